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

// Package filter compiles SQL WHERE expressions into LDAP search filters.
//
// SQL combines conditions with infix AND/OR; LDAP filters put the & and |
// operators in front of their operands. The compiler is a structural
// recursion over the closed expression set of the parser package and fails
// on every shape it does not know instead of approximating it.
package filter

import (
	"strings"

	"sqldap/api/sql/parser"
	"sqldap/pkg/sqlerr"
)

// MatchAll is the filter used when a SELECT has no WHERE clause.
const MatchAll = "(objectClass=*)"

// Compile returns the filter text for expr. The result is not wrapped in an
// outer parenthesis pair; use Wrap for that.
func Compile(expr parser.Expr) (string, error) {
	var sb strings.Builder
	if err := compile(&sb, expr); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Wrap puts filter in exactly one pair of parentheses unless it already
// starts with one.
func Wrap(filter string) string {
	if strings.HasPrefix(filter, "(") {
		return filter
	}
	return "(" + filter + ")"
}

// CompileWrapped compiles expr and applies Wrap.
func CompileWrapped(expr parser.Expr) (string, error) {
	f, err := Compile(expr)
	if err != nil {
		return "", err
	}
	return Wrap(f), nil
}

func compile(sb *strings.Builder, expr parser.Expr) error {
	switch e := expr.(type) {
	case *parser.BinaryOp:
		return compileBinary(sb, e)

	case *parser.Nested:
		// Explicit grouping is the only way to nest: plain nested
		// combinations are concatenated.
		sb.WriteByte('(')
		if err := compile(sb, e.Inner); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil

	case *parser.Unsupported:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedExpression, e.Feature)
	case *parser.Ident:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedExpression, "bare identifier "+e.Name)
	case *parser.Literal:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedExpression, "bare literal "+e.Text)
	case *parser.Wildcard:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedExpression, "bare wildcard")
	case nil:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedExpression, "empty expression")
	default:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedExpression, "unknown expression")
	}
}

func compileBinary(sb *strings.Builder, e *parser.BinaryOp) error {
	var token string
	switch e.Op {
	case parser.OpAnd:
		sb.WriteByte('&')
	case parser.OpOr:
		sb.WriteByte('|')
	case parser.OpEQ, parser.OpGE, parser.OpLE:
		token = string(e.Op)
	case parser.OpLike:
		token = string(parser.OpEQ)
	default:
		return sqlerr.Unsupported(sqlerr.ErrUnsupportedFilterOperator, string(e.Op))
	}

	// Left operand opens the item: "(" + attribute.
	switch l := e.Left.(type) {
	case *parser.Ident:
		sb.WriteString("(" + l.Name)
	case *parser.Literal:
		sb.WriteString("(" + l.Text)
	case *parser.Wildcard:
		sb.WriteString("(*")
	default:
		if err := compile(sb, e.Left); err != nil {
			return err
		}
	}

	sb.WriteString(token)

	// Right operand closes it.
	switch r := e.Right.(type) {
	case *parser.Ident:
		sb.WriteString(Value(r.Name) + ")")
	case *parser.Literal:
		sb.WriteString(r.Text + ")")
	case *parser.Wildcard:
		sb.WriteString("*)")
	default:
		if err := compile(sb, e.Right); err != nil {
			return err
		}
	}

	return nil
}

// Value renders an identifier-shaped value, already unquoted by the parser:
// every % becomes the * wildcard. Literal values are never passed through
// here.
func Value(ident string) string {
	return strings.ReplaceAll(ident, "%", "*")
}
