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

// Package query classifies parsed statements into the normalized form the
// executor works with: statement kind, requested attributes, resolved
// search base and compiled filter.
package query

import (
	"strings"

	"sqldap/api/sql/parser"
	"sqldap/internal/filter"
	"sqldap/pkg/sqlerr"
)

// Classify normalizes stmt. Table references of a SELECT are resolved
// against aliases; the target of an UPDATE is used as a literal
// distinguished name.
func Classify(stmt parser.Statement, aliases Aliases) (*Query, error) {
	switch s := stmt.(type) {
	case *parser.Select:
		return classifySelect(s, aliases)
	case *parser.Update:
		return classifyUpdate(s)
	case *parser.Show:
		return &Query{Kind: KindShow, Variable: s.Variable}, nil
	case *parser.Other:
		return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedStatement, s.Kind)
	default:
		return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedStatement, "unknown statement")
	}
}

func classifySelect(s *parser.Select, aliases Aliases) (*Query, error) {
	if len(s.Clauses) > 0 {
		return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedStatement, "SELECT with "+strings.Join(s.Clauses, ", "))
	}

	q := &Query{Kind: KindSelect}

	for _, item := range s.Projection {
		if item.Alias != "" {
			return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedProjection, "column alias "+item.Alias)
		}
		switch e := item.Expr.(type) {
		case *parser.Ident:
			q.Identifiers = append(q.Identifiers, e.Name)
		case *parser.Wildcard:
			if q.Wildcard {
				return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedProjection, "repeated wildcard")
			}
			q.Wildcard = true
		case *parser.Unsupported:
			return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedProjection, e.Feature)
		default:
			return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedProjection, "expression in select list")
		}
	}

	ref, err := singleTable(s.From)
	if err != nil {
		return nil, err
	}
	q.Table, err = aliases.Resolve(strings.Trim(ref.Name, `"`))
	if err != nil {
		return nil, err
	}

	if s.Where == nil {
		q.Filter = filter.MatchAll
		q.DefaultFilter = true
		return q, nil
	}
	if q.Filter, err = filter.CompileWrapped(s.Where); err != nil {
		return nil, err
	}
	return q, nil
}

func classifyUpdate(s *parser.Update) (*Query, error) {
	if len(s.Clauses) > 0 {
		return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedStatement, "UPDATE with "+strings.Join(s.Clauses, ", "))
	}

	ref, err := singleTable(s.Tables)
	if err != nil {
		return nil, err
	}
	// The target is a literal DN; aliases are not substituted here.
	if marker := aliasMarker(ref.Name); marker != "" {
		return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedTableExpression,
			"alias "+marker+" in UPDATE target, use the full distinguished name")
	}

	q := &Query{Kind: KindUpdate, Table: ref.Name}

	for _, a := range s.Assignments {
		if a.Qualifier != "" {
			return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedAssignment, "qualified column "+a.Qualifier+"."+a.Column)
		}

		var value string
		switch v := a.Value.(type) {
		case *parser.Literal:
			value = v.Text
		case *parser.Ident:
			value = v.Name
		case *parser.Unsupported:
			return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedAssignment, a.Column+" = "+v.Feature)
		default:
			return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedAssignment, a.Column+" = expression")
		}

		q.Identifiers = append(q.Identifiers, a.Column)
		q.Assignments = append(q.Assignments, Assignment{Attribute: a.Column, Value: value})
	}
	q.Identifiers = append(q.Identifiers, EntryDNAttribute)

	if s.Where != nil {
		if q.Filter, err = filter.CompileWrapped(s.Where); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// singleTable returns the only source reference of a statement.
func singleTable(refs []parser.TableRef) (parser.TableRef, error) {
	switch len(refs) {
	case 0:
		return parser.TableRef{}, sqlerr.Unsupported(sqlerr.ErrUnsupportedTableExpression, "missing source location")
	case 1:
	default:
		return parser.TableRef{}, sqlerr.Unsupported(sqlerr.ErrUnsupportedTableExpression, "more than one source location")
	}
	if refs[0].Unsupported != "" {
		return parser.TableRef{}, sqlerr.Unsupported(sqlerr.ErrUnsupportedTableExpression, refs[0].Unsupported)
	}
	return refs[0], nil
}
