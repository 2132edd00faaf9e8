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

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"sqldap/pkg/sqlerr"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	"github.com/pingcap/tidb/pkg/parser/test_driver"
)

// SQLParser wraps the TiDB parser for the directory SQL dialect.
// Double quotes delimit identifiers (ANSI_QUOTES), single quotes delimit
// string literals.
type SQLParser struct {
	parser *parser.Parser
}

// NewSQLParser creates a new SQL parser instance
func NewSQLParser() *SQLParser {
	p := parser.New()
	p.SetSQLMode(mysql.ModeANSIQuotes)
	return &SQLParser{
		parser: p,
	}
}

var bareShow = regexp.MustCompile(`(?is)^\s*SHOW\s+([A-Za-z_][A-Za-z0-9_]*)\s*;?\s*$`)

// Parse parses a single statement.
func (p *SQLParser) Parse(sql string) (Statement, error) {
	text := strings.TrimSpace(sql)
	if text == "" {
		return nil, sqlerr.Parse(errors.New("empty statement"))
	}

	stmts, _, err := p.parser.Parse(QuoteLocations(text), "", "")
	if err != nil {
		// SHOW <name> for names the grammar does not know.
		if m := bareShow.FindStringSubmatch(text); m != nil {
			return &Show{Variable: m[1]}, nil
		}
		return nil, sqlerr.Parse(err)
	}

	switch len(stmts) {
	case 0:
		return nil, sqlerr.Parse(errors.New("no statement found"))
	case 1:
	default:
		return nil, sqlerr.Parse(fmt.Errorf("expected one statement, found %d", len(stmts)))
	}

	switch stmt := stmts[0].(type) {
	case *ast.SelectStmt:
		return convertSelect(stmt), nil
	case *ast.UpdateStmt:
		return convertUpdate(stmt), nil
	case *ast.ShowStmt:
		return &Show{Variable: showVariable(text)}, nil
	case *ast.InsertStmt:
		return &Other{Kind: "INSERT"}, nil
	case *ast.DeleteStmt:
		return &Other{Kind: "DELETE"}, nil
	case *ast.SetOprStmt:
		return &Other{Kind: "UNION"}, nil
	default:
		return &Other{Kind: strings.TrimPrefix(fmt.Sprintf("%T", stmt), "*ast.")}, nil
	}
}

// showVariable returns the verbatim text following the SHOW keyword.
func showVariable(text string) string {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if len(text) >= 4 && strings.EqualFold(text[:4], "SHOW") {
		text = text[4:]
	}
	return strings.TrimSpace(text)
}

func convertSelect(stmt *ast.SelectStmt) *Select {
	sel := &Select{}

	if stmt.Distinct {
		sel.Clauses = append(sel.Clauses, "DISTINCT")
	}
	if stmt.GroupBy != nil {
		sel.Clauses = append(sel.Clauses, "GROUP BY")
	}
	if stmt.Having != nil {
		sel.Clauses = append(sel.Clauses, "HAVING")
	}
	if stmt.OrderBy != nil {
		sel.Clauses = append(sel.Clauses, "ORDER BY")
	}
	if stmt.Limit != nil {
		sel.Clauses = append(sel.Clauses, "LIMIT")
	}

	if stmt.Fields != nil {
		for _, field := range stmt.Fields.Fields {
			if field.WildCard != nil {
				if field.WildCard.Table.O != "" {
					sel.Projection = append(sel.Projection, SelectItem{
						Expr: &Unsupported{Feature: "qualified wildcard " + field.WildCard.Table.O + ".*"},
					})
					continue
				}
				sel.Projection = append(sel.Projection, SelectItem{Expr: &Wildcard{}})
				continue
			}
			sel.Projection = append(sel.Projection, SelectItem{
				Expr:  convertExpr(field.Expr),
				Alias: field.AsName.O,
			})
		}
	}

	if stmt.From != nil {
		sel.From = convertTableRefs(stmt.From.TableRefs)
	}

	if stmt.Where != nil {
		sel.Where = convertExpr(stmt.Where)
	}

	return sel
}

func convertUpdate(stmt *ast.UpdateStmt) *Update {
	upd := &Update{}

	if stmt.TableRefs != nil {
		upd.Tables = convertTableRefs(stmt.TableRefs.TableRefs)
	}

	for _, a := range stmt.List {
		upd.Assignments = append(upd.Assignments, Assignment{
			Column:    a.Column.Name.O,
			Qualifier: a.Column.Table.O,
			Value:     convertExpr(a.Expr),
		})
	}

	if stmt.Where != nil {
		upd.Where = convertExpr(stmt.Where)
	}
	if stmt.Order != nil {
		upd.Clauses = append(upd.Clauses, "ORDER BY")
	}
	if stmt.Limit != nil {
		upd.Clauses = append(upd.Clauses, "LIMIT")
	}

	return upd
}

// convertTableRefs flattens a FROM clause. Anything but a single named
// table comes back as an unsupported reference.
func convertTableRefs(join *ast.Join) []TableRef {
	if join == nil {
		return nil
	}
	if join.Right != nil {
		return []TableRef{{Unsupported: "join"}}
	}

	switch src := join.Left.(type) {
	case *ast.Join:
		return convertTableRefs(src)
	case *ast.TableSource:
		tableName, ok := src.Source.(*ast.TableName)
		if !ok {
			return []TableRef{{Unsupported: "derived table"}}
		}
		name := tableName.Name.O
		if tableName.Schema.O != "" {
			name = tableName.Schema.O + "." + name
		}
		return []TableRef{{Name: name}}
	default:
		return []TableRef{{Unsupported: fmt.Sprintf("table reference %T", src)}}
	}
}

// binaryOps lists the binary operators that survive conversion. Logical and
// relational operators outside this table are rejected by the filter
// compiler, arithmetic is rejected here.
var binaryOps = map[opcode.Op]Operator{
	opcode.LogicAnd: OpAnd,
	opcode.LogicOr:  OpOr,
	opcode.LogicXor: "XOR",
	opcode.EQ:       OpEQ,
	opcode.NE:       OpNE,
	opcode.GE:       OpGE,
	opcode.LE:       OpLE,
	opcode.GT:       OpGT,
	opcode.LT:       OpLT,
	opcode.NullEQ:   "<=>",
}

// convertExpr converts a TiDB expression into the closed expression set.
func convertExpr(node ast.ExprNode) Expr {
	switch e := node.(type) {
	case *ast.BinaryOperationExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			return &Unsupported{Feature: "operator " + e.Op.String()}
		}
		return &BinaryOp{Left: convertExpr(e.L), Op: op, Right: convertExpr(e.R)}

	case *ast.ParenthesesExpr:
		return &Nested{Inner: convertExpr(e.Expr)}

	case *ast.ColumnNameExpr:
		if e.Name.Table.O != "" {
			return &Unsupported{Feature: "qualified identifier " + e.Name.Table.O + "." + e.Name.Name.O}
		}
		return &Ident{Name: e.Name.Name.O}

	case *test_driver.ValueExpr:
		return literal(e)

	case *ast.PatternLikeOrIlikeExpr:
		if e.Not {
			return &Unsupported{Feature: "NOT LIKE"}
		}
		if !e.IsLike {
			return &Unsupported{Feature: "ILIKE"}
		}
		return &BinaryOp{Left: convertExpr(e.Expr), Op: OpLike, Right: convertExpr(e.Pattern)}

	case *ast.UnaryOperationExpr:
		if v, ok := e.V.(*test_driver.ValueExpr); ok && e.Op == opcode.Minus {
			if lit := literal(v); isNumeric(lit) {
				lit.Text = "-" + lit.Text
				return lit
			}
		}
		return &Unsupported{Feature: "unary operator " + e.Op.String()}

	case *ast.PatternInExpr:
		return &Unsupported{Feature: "IN"}
	case *ast.BetweenExpr:
		return &Unsupported{Feature: "BETWEEN"}
	case *ast.IsNullExpr:
		return &Unsupported{Feature: "IS NULL"}
	case *ast.FuncCallExpr:
		return &Unsupported{Feature: "function " + e.FnName.O}
	case *ast.AggregateFuncExpr:
		return &Unsupported{Feature: "aggregate " + e.F}
	case *ast.FuncCastExpr:
		return &Unsupported{Feature: "CAST"}
	case *ast.SubqueryExpr, *ast.ExistsSubqueryExpr:
		return &Unsupported{Feature: "subquery"}
	case *ast.CaseExpr:
		return &Unsupported{Feature: "CASE"}
	case *ast.VariableExpr:
		return &Unsupported{Feature: "variable @" + e.Name}
	default:
		return &Unsupported{Feature: strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast.")}
	}
}

// literal renders a value the way it was written: strings in single quotes,
// numbers as digits.
func literal(v *test_driver.ValueExpr) *Literal {
	var sb strings.Builder
	if err := v.Restore(format.NewRestoreCtx(format.RestoreStringSingleQuotes|format.RestoreStringWithoutCharset, &sb)); err != nil {
		sb.Reset()
		fmt.Fprintf(&sb, "%v", v.GetValue())
	}
	return &Literal{Text: sb.String(), Value: v.GetValue()}
}

func isNumeric(lit *Literal) bool {
	return lit.Value != nil && lit.Text != "" && lit.Text[0] != '\''
}

// QuoteLocations wraps the unquoted location token after FROM, every
// further location of a comma separated FROM list, and the token after a
// leading UPDATE in double quotes, so that alias references such as
// @people and raw distinguished names such as ou=people,dc=example,dc=com
// parse as identifiers. Quoted text is copied unchanged.
func QuoteLocations(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)

	var quote byte
	expectLocation := false
	afterLocation := false
	first := true

	for i := 0; i < len(sql); {
		c := sql[i]

		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			i++
			continue
		}

		switch {
		case isQuote(c):
			quote = c
			expectLocation = false
			afterLocation = false
			first = false
			b.WriteByte(c)
			i++
		case isSpace(c):
			b.WriteByte(c)
			i++
		case c == ';':
			expectLocation = false
			afterLocation = false
			b.WriteByte(c)
			i++
		default:
			j := i
			for j < len(sql) && !isSpace(sql[j]) && !isQuote(sql[j]) && sql[j] != ';' {
				j++
			}
			tok := sql[i:j]

			if expectLocation && tok[0] != '(' {
				core := strings.TrimRight(tok, ",)")
				if core == "" {
					b.WriteString(tok)
				} else {
					b.WriteString(`"` + core + `"` + tok[len(core):])
				}
				expectLocation = strings.HasSuffix(tok, ",")
				afterLocation = !expectLocation
			} else {
				b.WriteString(tok)
				expectLocation = strings.EqualFold(tok, "FROM") ||
					(first && strings.EqualFold(tok, "UPDATE")) ||
					(afterLocation && tok == ",")
				afterLocation = false
			}
			first = false
			i = j
		}
	}

	return b.String()
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
