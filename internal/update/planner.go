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

// Package update plans UPDATE statements against a directory without
// modifying it. A plan lists, per matched entry, the replace directives
// that would be sent, and excludes entries where a replace would discard
// values of a multi-valued attribute.
package update

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sqldap/internal/directory"
	"sqldap/internal/filter"
	"sqldap/internal/query"
	"sqldap/pkg/log"
	"sqldap/pkg/metrics"
	"sqldap/pkg/sqlerr"
)

// Searcher is the part of a directory client the planner needs.
type Searcher interface {
	Search(ctx context.Context, req directory.SearchRequest) ([]*directory.Entry, error)
}

// Directive replaces every value of Attribute with Values.
type Directive struct {
	Attribute string
	Values    []string
}

func (d Directive) String() string {
	return "replace " + d.Attribute + "=" + strings.Join(d.Values, "|")
}

// PlanEntry is the decision for one matched entry.
type PlanEntry struct {
	DN         string
	Directives []Directive

	// Conflicted entries hold more than one value for MultiValued and
	// carry no directives.
	Conflicted  bool
	MultiValued string
}

// Plan is the outcome of planning one UPDATE.
type Plan struct {
	Base    string
	Scope   directory.Scope
	Filter  string
	Entries []PlanEntry
}

// Applicable returns the entries whose directives may be applied.
func (p *Plan) Applicable() []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if !e.Conflicted {
			out = append(out, e)
		}
	}
	return out
}

// Excluded returns the conflicted entries.
func (p *Plan) Excluded() []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Conflicted {
			out = append(out, e)
		}
	}
	return out
}

// Report prints one line per entry followed by a summary.
func (p *Plan) Report(w io.Writer) error {
	if len(p.Entries) == 0 {
		_, err := fmt.Fprintln(w, "Nothing found.")
		return err
	}

	for _, e := range p.Entries {
		var err error
		if e.Conflicted {
			_, err = fmt.Fprintf(w, "entry %s excluded: multi-valued attribute %s\n", e.DN, e.MultiValued)
		} else {
			_, err = fmt.Fprintf(w, "would apply directives %s to entry %s\n", formatDirectives(e.Directives), e.DN)
		}
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d entries planned, %d excluded. No changes were made.\n",
		len(p.Applicable()), len(p.Excluded()))
	return err
}

func formatDirectives(ds []Directive) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Planner builds plans with one search per UPDATE. It never issues a
// modify operation.
type Planner struct {
	searcher Searcher
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// NewPlanner creates a planner. m and logger may be nil.
func NewPlanner(s Searcher, m *metrics.Metrics, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Planner{
		searcher: s,
		metrics:  m,
		logger:   logger.With(log.Component("update")),
	}
}

// Plan searches for the entries q targets and decides, per entry, whether
// its assignments can be applied.
//
// With a WHERE clause the search runs over the subtree at q.Table. Without
// one, q.Table names the entry itself and the search is base scoped.
func (p *Planner) Plan(ctx context.Context, q *query.Query) (*Plan, error) {
	if q.Kind != query.KindUpdate {
		return nil, sqlerr.Unsupported(sqlerr.ErrUnsupportedStatement, "cannot plan "+q.Kind.String())
	}

	plan := &Plan{Base: q.Table, Scope: directory.ScopeSubtree, Filter: q.Filter}
	if q.Filter == "" {
		// No WHERE: the literal location is the only target.
		plan.Scope = directory.ScopeBase
		plan.Filter = filter.MatchAll
	}

	entries, err := p.searcher.Search(ctx, directory.SearchRequest{
		Base:       plan.Base,
		Scope:      plan.Scope,
		Filter:     plan.Filter,
		Attributes: q.Identifiers,
	})
	if err != nil {
		return nil, fmt.Errorf("plan update of %s: %w", q.Table, err)
	}

	directives := make([]Directive, 0, len(q.Assignments))
	for _, a := range q.Assignments {
		directives = append(directives, Directive{Attribute: a.Attribute, Values: []string{a.Value}})
	}

	for _, e := range entries {
		pe := PlanEntry{DN: entryDN(e)}
		if attr := multiValued(e, q.Identifiers); attr != "" {
			pe.Conflicted = true
			pe.MultiValued = attr
			p.logger.Warn("entry excluded from update", log.DN(pe.DN), log.String("attribute", attr))
		} else {
			pe.Directives = directives
		}
		p.metrics.RecordPlanEntry(pe.Conflicted)
		plan.Entries = append(plan.Entries, pe)
	}

	p.logger.Debug("update planned",
		log.String("base", plan.Base),
		log.String("filter", plan.Filter),
		log.Count(len(plan.Entries)))

	return plan, nil
}

// entryDN prefers the entrydn operational attribute and falls back to the
// DN reported with the entry.
func entryDN(e *directory.Entry) string {
	if v := e.Get(query.EntryDNAttribute); len(v) > 0 && v[0] != "" {
		return v[0]
	}
	return e.DN
}

// multiValued returns the first requested attribute holding more than one
// value, or "".
func multiValued(e *directory.Entry, attributes []string) string {
	for _, a := range attributes {
		if len(e.Get(a)) > 1 {
			return a
		}
	}
	return ""
}
