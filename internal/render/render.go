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

// Package render prints query results as terminal tables.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/btree"
	"golang.org/x/term"

	"sqldap/internal/directory"
)

// NothingFound is printed for empty results.
const NothingFound = "Nothing found."

// Renderer writes tables to an output, switching to one key/value table
// per entry when a wide table does not fit the terminal.
type Renderer struct {
	out io.Writer

	// width returns the display width; ok is false when it is unknown, in
	// which case everything fits.
	width func() (w int, ok bool)
}

// New creates a renderer. When out is a terminal its width is queried on
// every render.
func New(out io.Writer) *Renderer {
	r := &Renderer{out: out, width: func() (int, bool) { return 0, false }}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		r.width = func() (int, bool) {
			w, _, err := term.GetSize(fd)
			if err != nil || w <= 0 {
				return 0, false
			}
			return w, true
		}
	}
	return r
}

// WithWidth returns a copy of r rendering for a fixed display width.
func (r *Renderer) WithWidth(w int) *Renderer {
	return &Renderer{out: r.out, width: func() (int, bool) { return w, w > 0 }}
}

// Writer returns the underlying output.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// Print writes text that carries its own line endings.
func (r *Renderer) Print(a ...interface{}) error {
	_, err := fmt.Fprint(r.out, a...)
	return err
}

// Printf writes formatted text.
func (r *Renderer) Printf(format string, a ...interface{}) error {
	_, err := fmt.Fprintf(r.out, format, a...)
	return err
}

// Println prints a line of text.
func (r *Renderer) Println(a ...interface{}) error {
	_, err := fmt.Fprintln(r.out, a...)
	return err
}

// Results prints search results. identifiers keeps the requested order;
// with wildcard the columns are every returned attribute, sorted.
//
// A single requested attribute collapses all values of all entries into
// one cell.
func (r *Renderer) Results(identifiers []string, wildcard bool, entries []*directory.Entry) error {
	if len(entries) == 0 {
		return r.Println(NothingFound)
	}

	single := !wildcard && len(identifiers) == 1

	var (
		columns []string
		rows    []map[string]string
	)
	switch {
	case single:
		columns = identifiers
		var values []string
		for _, e := range entries {
			values = append(values, e.Get(identifiers[0])...)
		}
		if len(values) == 0 {
			return r.Println(NothingFound)
		}
		rows = []map[string]string{{identifiers[0]: strings.Join(values, "\n")}}
	case wildcard:
		columns = attributeNames(entries)
		rows = exactRows(entries)
	default:
		columns = identifiers
		rows = requestedRows(entries, identifiers)
	}

	wide := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(cellStyle).
		Headers(columns...)
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = row[c]
		}
		wide.Row(cells...)
	}

	rendered := wide.Render()
	if r.fits(rendered) {
		return r.Println(rendered)
	}

	if err := r.perEntry(columns, rows, single); err != nil {
		return err
	}
	if wildcard {
		return r.Println("\nConsider replacing * with a subset of the following fields:\n\n" + strings.Join(columns, ","))
	}
	return nil
}

// KeyValues prints a two column table, used for SHOW output.
func (r *Renderer) KeyValues(headers [2]string, rows [][2]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(cellStyle).
		Headers(headers[0], headers[1])
	for _, row := range rows {
		t.Row(row[0], row[1])
	}
	return r.Println(t.Render())
}

func (r *Renderer) perEntry(columns []string, rows []map[string]string, single bool) error {
	for _, row := range rows {
		t := table.New().Border(lipgloss.NormalBorder()).StyleFunc(cellStyle)
		n := 0
		for _, c := range columns {
			if v, ok := row[c]; ok {
				t.Row(c, v)
				n++
			}
		}
		var err error
		if n == 0 {
			err = r.Println(NothingFound)
		} else {
			err = r.Println(t.Render())
		}
		if err != nil {
			return err
		}
		if single {
			break
		}
	}
	return nil
}

func (r *Renderer) fits(rendered string) bool {
	w, ok := r.width()
	if !ok {
		return true
	}
	return lipgloss.Width(rendered) <= w
}

func cellStyle(row, col int) lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

// attributeNames returns the sorted union of attribute names.
func attributeNames(entries []*directory.Entry) []string {
	set := btree.NewOrderedG[string](8)
	for _, e := range entries {
		for name := range e.Attributes {
			set.ReplaceOrInsert(name)
		}
	}
	names := make([]string, 0, set.Len())
	set.Ascend(func(name string) bool {
		names = append(names, name)
		return true
	})
	return names
}

func exactRows(entries []*directory.Entry) []map[string]string {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		row := make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			row[k] = strings.Join(v, "\n")
		}
		rows = append(rows, row)
	}
	return rows
}

// requestedRows keys values by the requested spelling of each attribute.
// Attributes an entry does not hold are left out of its row.
func requestedRows(entries []*directory.Entry, identifiers []string) []map[string]string {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		row := make(map[string]string, len(identifiers))
		for _, id := range identifiers {
			if v := e.Get(id); v != nil {
				row[id] = strings.Join(v, "\n")
			}
		}
		rows = append(rows, row)
	}
	return rows
}
