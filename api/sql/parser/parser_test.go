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
	"testing"

	"sqldap/pkg/sqlerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLParser_SimpleSelect(t *testing.T) {
	parser := NewSQLParser()

	tests := []struct {
		name        string
		sql         string
		wantTable   string
		wantColumns []string
		wantStar    bool
	}{
		{
			name:      "SELECT * FROM alias",
			sql:       "SELECT * FROM @people",
			wantTable: "@people",
			wantStar:  true,
		},
		{
			name:        "SELECT columns FROM distinguished name",
			sql:         "SELECT uid, cn FROM ou=people,dc=example,dc=com",
			wantTable:   "ou=people,dc=example,dc=com",
			wantColumns: []string{"uid", "cn"},
		},
		{
			name:        "SELECT FROM quoted location",
			sql:         `SELECT mail FROM "ou=Group,dc=example,dc=com"`,
			wantTable:   "ou=Group,dc=example,dc=com",
			wantColumns: []string{"mail"},
		},
		{
			name:        "case of attribute names is preserved",
			sql:         "select passwordRetryCount from @people;",
			wantTable:   "@people",
			wantColumns: []string{"passwordRetryCount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql)
			require.NoError(t, err)

			sel, ok := stmt.(*Select)
			require.True(t, ok, "got %T", stmt)
			require.Len(t, sel.From, 1)
			assert.Equal(t, tt.wantTable, sel.From[0].Name)
			assert.Empty(t, sel.From[0].Unsupported)
			assert.Nil(t, sel.Where)

			var columns []string
			star := false
			for _, item := range sel.Projection {
				switch e := item.Expr.(type) {
				case *Ident:
					columns = append(columns, e.Name)
				case *Wildcard:
					star = true
				default:
					t.Fatalf("unexpected projection %T", e)
				}
			}
			assert.Equal(t, tt.wantColumns, columns)
			assert.Equal(t, tt.wantStar, star)
		})
	}
}

func TestSQLParser_WhereClause(t *testing.T) {
	parser := NewSQLParser()

	tests := []struct {
		name string
		sql  string
		want Expr
	}{
		{
			name: "double quotes make an identifier",
			sql:  `SELECT uid FROM @people WHERE uid = "jdoe"`,
			want: Cmp(Col("uid"), OpEQ, Col("jdoe")),
		},
		{
			name: "single quotes make a literal",
			sql:  `SELECT uid FROM @people WHERE uid = 'jdoe'`,
			want: Cmp(Col("uid"), OpEQ, &Literal{Text: "'jdoe'", Value: "jdoe"}),
		},
		{
			name: "numbers",
			sql:  `SELECT uid FROM @people WHERE uidNumber >= 1000`,
			want: Cmp(Col("uidNumber"), OpGE, &Literal{Text: "1000", Value: int64(1000)}),
		},
		{
			name: "like",
			sql:  `SELECT cn FROM @people WHERE cn LIKE "%smith%"`,
			want: Cmp(Col("cn"), OpLike, Col("%smith%")),
		},
		{
			name: "logical combination",
			sql:  `SELECT cn FROM @people WHERE a = 1 AND b = 2`,
			want: And(
				Cmp(Col("a"), OpEQ, &Literal{Text: "1", Value: int64(1)}),
				Cmp(Col("b"), OpEQ, &Literal{Text: "2", Value: int64(2)}),
			),
		},
		{
			name: "grouping",
			sql:  `SELECT cn FROM @people WHERE a = 1 OR (b = 2 AND c = 3)`,
			want: Or(
				Cmp(Col("a"), OpEQ, &Literal{Text: "1", Value: int64(1)}),
				Group(And(
					Cmp(Col("b"), OpEQ, &Literal{Text: "2", Value: int64(2)}),
					Cmp(Col("c"), OpEQ, &Literal{Text: "3", Value: int64(3)}),
				)),
			),
		},
		{
			name: "not equal survives as an operator",
			sql:  `SELECT cn FROM @people WHERE a <> 1`,
			want: Cmp(Col("a"), OpNE, &Literal{Text: "1", Value: int64(1)}),
		},
		{
			name: "in",
			sql:  `SELECT cn FROM @people WHERE a IN (1, 2)`,
			want: &Unsupported{Feature: "IN"},
		},
		{
			name: "not like",
			sql:  `SELECT cn FROM @people WHERE cn NOT LIKE 'a%'`,
			want: &Unsupported{Feature: "NOT LIKE"},
		},
		{
			name: "between",
			sql:  `SELECT cn FROM @people WHERE a BETWEEN 1 AND 2`,
			want: &Unsupported{Feature: "BETWEEN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql)
			require.NoError(t, err)

			sel, ok := stmt.(*Select)
			require.True(t, ok, "got %T", stmt)
			assert.Equal(t, tt.want, sel.Where)
		})
	}
}

func TestSQLParser_NegativeLiteral(t *testing.T) {
	stmt, err := NewSQLParser().Parse(`SELECT uid FROM @people WHERE shadowExpire <= -1`)
	require.NoError(t, err)

	cmp, ok := stmt.(*Select).Where.(*BinaryOp)
	require.True(t, ok)
	lit, ok := cmp.Right.(*Literal)
	require.True(t, ok, "got %T", cmp.Right)
	assert.Equal(t, "-1", lit.Text)
}

func TestSQLParser_UnsupportedShapes(t *testing.T) {
	parser := NewSQLParser()

	stmt, err := parser.Parse("SELECT uid FROM a, b")
	require.NoError(t, err)
	sel := stmt.(*Select)
	require.Len(t, sel.From, 1)
	assert.Equal(t, "join", sel.From[0].Unsupported)

	stmt, err = parser.Parse("SELECT uid FROM @people, @group")
	require.NoError(t, err)
	assert.Equal(t, "join", stmt.(*Select).From[0].Unsupported)

	stmt, err = parser.Parse("SELECT * FROM (SELECT uid FROM x) t")
	require.NoError(t, err)
	assert.Equal(t, "derived table", stmt.(*Select).From[0].Unsupported)

	stmt, err = parser.Parse("SELECT COUNT(*) FROM @people")
	require.NoError(t, err)
	require.Len(t, stmt.(*Select).Projection, 1)
	assert.IsType(t, &Unsupported{}, stmt.(*Select).Projection[0].Expr)

	stmt, err = parser.Parse("SELECT uid FROM @people ORDER BY uid LIMIT 3")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDER BY", "LIMIT"}, stmt.(*Select).Clauses)

	stmt, err = parser.Parse("SELECT uid AS u FROM @people")
	require.NoError(t, err)
	assert.Equal(t, "u", stmt.(*Select).Projection[0].Alias)
}

func TestSQLParser_Update(t *testing.T) {
	parser := NewSQLParser()

	stmt, err := parser.Parse(`UPDATE uid=jdoe,ou=people,dc=example,dc=com SET mail = 'j@example.com', cn = "John" WHERE uid = "jdoe"`)
	require.NoError(t, err)

	upd, ok := stmt.(*Update)
	require.True(t, ok, "got %T", stmt)
	assert.Equal(t, []TableRef{{Name: "uid=jdoe,ou=people,dc=example,dc=com"}}, upd.Tables)
	assert.Equal(t, []Assignment{
		{Column: "mail", Value: &Literal{Text: "'j@example.com'", Value: "j@example.com"}},
		{Column: "cn", Value: Col("John")},
	}, upd.Assignments)
	assert.Equal(t, Cmp(Col("uid"), OpEQ, Col("jdoe")), upd.Where)
}

func TestSQLParser_Show(t *testing.T) {
	parser := NewSQLParser()

	tests := []struct {
		sql  string
		want string
	}{
		{"SHOW TABLES", "TABLES"},
		{"show databases;", "databases"},
		{"SHOW Tables", "Tables"},
		{"SHOW whatever", "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, &Show{Variable: tt.want}, stmt)
		})
	}
}

func TestSQLParser_OtherStatements(t *testing.T) {
	parser := NewSQLParser()

	stmt, err := parser.Parse("INSERT INTO x (a) VALUES (1)")
	require.NoError(t, err)
	assert.Equal(t, &Other{Kind: "INSERT"}, stmt)

	stmt, err = parser.Parse("DELETE FROM @people WHERE uid = 'x'")
	require.NoError(t, err)
	assert.Equal(t, &Other{Kind: "DELETE"}, stmt)
}

func TestSQLParser_Errors(t *testing.T) {
	parser := NewSQLParser()

	for _, sql := range []string{"", "   ", "SELEC uid FROM x", "SELECT 1; SELECT 2"} {
		_, err := parser.Parse(sql)
		assert.ErrorIs(t, err, sqlerr.ErrParse, "sql %q", sql)
	}
}

func TestQuoteLocations(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT uid FROM @people", `SELECT uid FROM "@people"`},
		{"SELECT uid FROM @people WHERE cn = 'a from b'", `SELECT uid FROM "@people" WHERE cn = 'a from b'`},
		{"select uid from ou=people,dc=example,dc=com;", `select uid from "ou=people,dc=example,dc=com";`},
		{`SELECT uid FROM "@people"`, `SELECT uid FROM "@people"`},
		{"SELECT a FROM x, y", `SELECT a FROM "x", "y"`},
		{"SELECT a FROM @people, @group WHERE a = 1", `SELECT a FROM "@people", "@group" WHERE a = 1`},
		{"SELECT a FROM @people , @group", `SELECT a FROM "@people" , "@group"`},
		{"SELECT a FROM x, y, z", `SELECT a FROM "x", "y", "z"`},
		{"SELECT * FROM (SELECT a FROM b) t", `SELECT * FROM (SELECT a FROM "b") t`},
		{"UPDATE uid=x,dc=y SET a = 1", `UPDATE "uid=x,dc=y" SET a = 1`},
		{"SELECT update FROM x", `SELECT update FROM "x"`},
		{"SHOW TABLES", "SHOW TABLES"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteLocations(tt.in))
		})
	}
}
