// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

// Statement is one parsed SQL statement. The set of implementations is
// closed: *Select, *Update, *Show and *Other.
type Statement interface {
	statementNode()
}

// Select is a SELECT query.
type Select struct {
	Projection []SelectItem
	From       []TableRef
	Where      Expr // nil when absent

	// Clauses names clauses present in the statement that a directory
	// search cannot express (DISTINCT, GROUP BY, HAVING, ORDER BY, LIMIT).
	Clauses []string
}

// SelectItem is one entry of a select list.
type SelectItem struct {
	Expr  Expr   // *Ident, *Wildcard or *Unsupported
	Alias string // AS name, empty when absent
}

// TableRef is one source reference of a FROM clause or UPDATE target.
type TableRef struct {
	Name string

	// Unsupported describes a reference that is not a simple named location
	// (join, derived table). Empty for simple references.
	Unsupported string
}

// Update is an UPDATE statement.
type Update struct {
	Tables      []TableRef
	Assignments []Assignment
	Where       Expr // nil when absent

	// Clauses names clauses the directory cannot express (ORDER BY, LIMIT).
	Clauses []string
}

// Assignment is one SET attribute = value pair.
type Assignment struct {
	Column    string
	Qualifier string // table qualifier of the column, empty when bare
	Value     Expr
}

// Show is a SHOW statement. Variable is the verbatim text following SHOW.
type Show struct {
	Variable string
}

// Other is any statement the dialect does not support.
type Other struct {
	Kind string
}

func (*Select) statementNode() {}
func (*Update) statementNode() {}
func (*Show) statementNode()   {}
func (*Other) statementNode()  {}

// Expr is an expression tree node. The set of implementations is closed:
// *BinaryOp, *Ident, *Literal, *Wildcard, *Nested and *Unsupported.
type Expr interface {
	exprNode()
}

// Operator is a binary operator token.
type Operator string

// Binary operators produced by the parser.
const (
	OpAnd  Operator = "AND"
	OpOr   Operator = "OR"
	OpEQ   Operator = "="
	OpNE   Operator = "<>"
	OpGE   Operator = ">="
	OpLE   Operator = "<="
	OpGT   Operator = ">"
	OpLT   Operator = "<"
	OpLike Operator = "LIKE"
)

// IsLogical reports whether op combines two boolean sub-expressions.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// BinaryOp is a logical combination or a comparison.
type BinaryOp struct {
	Left  Expr
	Op    Operator
	Right Expr
}

// Ident is a bare or double-quoted identifier. Name holds the identifier
// without its quote characters.
type Ident struct {
	Name string
}

// Literal is a value literal. Text is its SQL rendering, so string literals
// keep their single quotes.
type Literal struct {
	Text  string
	Value interface{}
}

// Wildcard is the bare "*" marker.
type Wildcard struct{}

// Nested is an explicitly parenthesized sub-expression.
type Nested struct {
	Inner Expr
}

// Unsupported stands for an expression the dialect has no equivalent for.
type Unsupported struct {
	Feature string
}

func (*BinaryOp) exprNode()    {}
func (*Ident) exprNode()       {}
func (*Literal) exprNode()     {}
func (*Wildcard) exprNode()    {}
func (*Nested) exprNode()      {}
func (*Unsupported) exprNode() {}

// Convenience constructors, mostly used to build expression trees in tests.

// And returns l AND r.
func And(l, r Expr) *BinaryOp { return &BinaryOp{Left: l, Op: OpAnd, Right: r} }

// Or returns l OR r.
func Or(l, r Expr) *BinaryOp { return &BinaryOp{Left: l, Op: OpOr, Right: r} }

// Cmp returns l op r.
func Cmp(l Expr, op Operator, r Expr) *BinaryOp { return &BinaryOp{Left: l, Op: op, Right: r} }

// Col returns a bare identifier.
func Col(name string) *Ident { return &Ident{Name: name} }

// Lit returns a literal rendered as text.
func Lit(text string) *Literal { return &Literal{Text: text, Value: text} }

// Group returns (e).
func Group(e Expr) *Nested { return &Nested{Inner: e} }
