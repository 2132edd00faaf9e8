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

package filter

import (
	"fmt"
	"testing"

	. "sqldap/api/sql/parser"
	"sqldap/pkg/sqlerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(n int) *Literal {
	return &Literal{Text: fmt.Sprint(n), Value: int64(n)}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{
			name: "single comparison",
			expr: Cmp(Col("uid"), OpEQ, Col("jdoe")),
			want: "(uid=jdoe)",
		},
		{
			name: "and",
			expr: And(Cmp(Col("a"), OpEQ, num(1)), Cmp(Col("b"), OpEQ, num(2))),
			want: "(&(a=1)(b=2))",
		},
		{
			name: "or with explicit group",
			expr: Or(
				Cmp(Col("a"), OpEQ, num(1)),
				Group(And(Cmp(Col("b"), OpEQ, num(2)), Cmp(Col("c"), OpEQ, num(3)))),
			),
			want: "(|(a=1)(&(b=2)(c=3)))",
		},
		{
			name: "ungrouped chain is concatenated",
			expr: And(And(Cmp(Col("a"), OpEQ, num(1)), Cmp(Col("b"), OpEQ, num(2))), Cmp(Col("c"), OpEQ, num(3))),
			want: "(&&(a=1)(b=2)(c=3))",
		},
		{
			name: "greater or equal",
			expr: Cmp(Col("passwordretrycount"), OpGE, num(3)),
			want: "(passwordretrycount>=3)",
		},
		{
			name: "less or equal",
			expr: Cmp(Col("uidNumber"), OpLE, num(1000)),
			want: "(uidNumber<=1000)",
		},
		{
			name: "like on identifier translates wildcards",
			expr: Cmp(Col("name"), OpLike, Col("%smith%")),
			want: "(name=*smith*)",
		},
		{
			name: "equals on identifier translates wildcards",
			expr: Cmp(Col("cn"), OpEQ, Col("j%")),
			want: "(cn=j*)",
		},
		{
			name: "literal keeps percent signs",
			expr: Cmp(Col("name"), OpLike, &Literal{Text: "'%smith%'", Value: "%smith%"}),
			want: "(name='%smith%')",
		},
		{
			name: "wildcard right operand",
			expr: Cmp(Col("mail"), OpEQ, &Wildcard{}),
			want: "(mail=*)",
		},
		{
			name: "wildcard left operand",
			expr: Cmp(&Wildcard{}, OpEQ, Col("x")),
			want: "(*=x)",
		},
		{
			name: "literal left operand",
			expr: Cmp(num(1), OpEQ, Col("a")),
			want: "(1=a)",
		},
		{
			name: "group at top level",
			expr: Group(Cmp(Col("a"), OpEQ, num(1))),
			want: "((a=1))",
		},
		{
			name: "group inside group",
			expr: And(Group(Or(Cmp(Col("a"), OpEQ, num(1)), Cmp(Col("a"), OpEQ, num(2)))), Cmp(Col("b"), OpEQ, num(3))),
			want: "(&(|(a=1)(a=2))(b=3))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileWrapped(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, balanced(got), "unbalanced filter %q", got)
		})
	}
}

func TestCompile_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		kind error
	}{
		{"not equal", Cmp(Col("a"), OpNE, num(1)), sqlerr.ErrUnsupportedFilterOperator},
		{"greater than", Cmp(Col("a"), OpGT, num(1)), sqlerr.ErrUnsupportedFilterOperator},
		{"less than", Cmp(Col("a"), OpLT, num(1)), sqlerr.ErrUnsupportedFilterOperator},
		{"xor", Cmp(Cmp(Col("a"), OpEQ, num(1)), "XOR", Cmp(Col("b"), OpEQ, num(1))), sqlerr.ErrUnsupportedFilterOperator},
		{"nested bad operator", And(Cmp(Col("a"), OpEQ, num(1)), Cmp(Col("b"), OpNE, num(2))), sqlerr.ErrUnsupportedFilterOperator},
		{"function", &Unsupported{Feature: "function LOWER"}, sqlerr.ErrUnsupportedExpression},
		{"in", And(Cmp(Col("a"), OpEQ, num(1)), &Unsupported{Feature: "IN"}), sqlerr.ErrUnsupportedExpression},
		{"bare identifier", Col("active"), sqlerr.ErrUnsupportedExpression},
		{"bare literal", num(1), sqlerr.ErrUnsupportedExpression},
		{"grouped identifier", Group(Col("x")), sqlerr.ErrUnsupportedExpression},
		{"nil", nil, sqlerr.ErrUnsupportedExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "(a=1)", Wrap("(a=1)"))
	assert.Equal(t, "(&(a=1)(b=2))", Wrap("&(a=1)(b=2)"))
	assert.Equal(t, Wrap("&(a=1)(b=2)"), Wrap(Wrap("&(a=1)(b=2)")))
}

func TestValue(t *testing.T) {
	assert.Equal(t, "*smith*", Value("%smith%"))
	assert.Equal(t, `"*smith*"`, Value(`"%smith%"`))
	assert.Equal(t, `say"`, Value(`say"`))
	assert.Equal(t, "jdoe", Value("jdoe"))
}

// TestCompile_BalancedUpToDepthThree checks every AND/OR tree of depth at
// most three over =, >= and <= comparisons.
func TestCompile_BalancedUpToDepthThree(t *testing.T) {
	trees := exprTrees(3)
	require.NotEmpty(t, trees)

	for _, expr := range trees {
		got, err := CompileWrapped(expr)
		require.NoError(t, err)
		require.True(t, balanced(got), "unbalanced filter %q", got)
		require.True(t, outerPairSpansAll(got), "filter %q is not wrapped in exactly one outer pair", got)
	}
}

// exprTrees returns all trees of logical combinations up to depth with
// comparisons as leaves.
func exprTrees(depth int) []Expr {
	leaves := []Expr{
		Cmp(Col("a"), OpEQ, num(1)),
		Cmp(Col("b"), OpGE, Col("x%")),
		Cmp(Col("c"), OpLE, &Literal{Text: "'z'", Value: "z"}),
	}
	if depth <= 1 {
		return leaves
	}

	sub := exprTrees(depth - 1)
	out := append([]Expr{}, leaves...)
	for _, l := range sub {
		for _, r := range []Expr{leaves[0], sub[len(sub)-1]} {
			out = append(out, And(l, r), Or(l, r), Or(Group(l), r), And(l, Group(r)))
		}
	}
	return out
}

func balanced(s string) bool {
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// outerPairSpansAll reports whether the first "(" is closed by the last ")".
func outerPairSpansAll(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
