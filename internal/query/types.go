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

package query

import "strings"

// Kind is the statement class of a query.
type Kind int

const (
	KindSelect Kind = iota
	KindShow
	KindUpdate
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindShow:
		return "SHOW"
	case KindUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// EntryDNAttribute is the operational attribute requested with every UPDATE
// search to recover the distinguished name of each matched entry.
const EntryDNAttribute = "entrydn"

// Query is the classified form of one statement. It is built once by
// Classify and not modified afterwards.
type Query struct {
	Kind Kind

	// Identifiers holds attribute names in statement order. Duplicates are
	// kept: an UPDATE always ends with EntryDNAttribute.
	Identifiers []string

	// Wildcard is true when the projection asked for all attributes.
	Wildcard bool

	// Table is the search base with every alias substituted.
	Table string

	// Filter is the compiled, parenthesized search filter. Always set for
	// SELECT, empty for an UPDATE without WHERE.
	Filter string

	// DefaultFilter reports that Filter is the injected match-all filter.
	DefaultFilter bool

	// Variable is the verbatim SHOW variable.
	Variable string

	// Assignments are the SET pairs of an UPDATE, in statement order.
	Assignments []Assignment
}

// Assignment is one attribute replacement requested by an UPDATE.
type Assignment struct {
	Attribute string
	Value     string
}

// ShowTarget is what a SHOW statement reports.
type ShowTarget int

const (
	// ShowNone is the outcome for unrecognized variables: nothing is
	// reported and no error is raised.
	ShowNone ShowTarget = iota
	ShowTables
	ShowDatabases
)

// String returns the string representation of ShowTarget
func (s ShowTarget) String() string {
	switch s {
	case ShowTables:
		return "TABLES"
	case ShowDatabases:
		return "DATABASES"
	default:
		return "none"
	}
}

// ShowTarget matches Variable case-insensitively.
func (q *Query) ShowTarget() ShowTarget {
	if q.Kind != KindShow {
		return ShowNone
	}
	switch strings.ToUpper(q.Variable) {
	case "TABLES":
		return ShowTables
	case "DATABASES":
		return ShowDatabases
	default:
		return ShowNone
	}
}

// Attributes returns the attributes to request from the directory. A
// wildcard query requests everything.
func (q *Query) Attributes() []string {
	if q.Wildcard {
		return append([]string{"*"}, q.Identifiers...)
	}
	return q.Identifiers
}
