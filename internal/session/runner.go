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

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sqldap/api/sql/parser"
	"sqldap/internal/directory"
	"sqldap/internal/query"
	"sqldap/internal/render"
	"sqldap/internal/update"
	"sqldap/pkg/config"
	"sqldap/pkg/log"
	"sqldap/pkg/metrics"
)

// DefaultFilterNotice is printed when a SELECT has no WHERE clause.
const DefaultFilterNotice = "'WHERE attr=val' was not supplied, added (objectClass=*) as search filter.\n"

// Runner executes scripts sequentially. Every SELECT and UPDATE gets its
// own connection, bound and unbound around the statement.
type Runner struct {
	session Session
	dial    directory.Dialer
	out     *render.Renderer
	parser  *parser.SQLParser
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records statements and directory calls in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner for s. Connections are opened with dial.
func NewRunner(s Session, dial directory.Dialer, out *render.Renderer, opts ...Option) *Runner {
	r := &Runner{
		session: s,
		dial:    dial,
		out:     out,
		parser:  parser.NewSQLParser(),
		logger:  log.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if s.RateLimit > 0 {
		burst := s.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(s.RateLimit), burst)
	}

	r.dial = directory.InstrumentDialer(r.dial, r.metrics, r.logger)
	r.logger = r.logger.With(log.Component("session"), log.Server(s.Server))
	return r
}

// Run splits script, expands macros and executes each statement in order.
// The first failure stops the run.
func (r *Runner) Run(ctx context.Context, script string) error {
	stmts, err := ExpandMacros(Split(script), r.session.Macros)
	if err != nil {
		return err
	}

	logger := r.logger.With(log.RunID(uuid.NewString()))
	logger.Debug("running script", log.Count(len(stmts)))

	banner := len(stmts) > 1
	for i, text := range stmts {
		if banner {
			if err := r.out.Printf("Results for query '%s':\n\n", text); err != nil {
				return err
			}
		}
		if err := r.execute(ctx, logger.With(log.StatementIndex(i+1)), text); err != nil {
			return fmt.Errorf("statement %d %q: %w", i+1, text, err)
		}
		if banner && i < len(stmts)-1 {
			if err := r.out.Println(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, logger *log.Logger, text string) (err error) {
	start := time.Now()
	kind := "UNKNOWN"
	defer func() {
		r.metrics.RecordStatement(kind, time.Since(start), err)
	}()

	stmt, err := r.parser.Parse(text)
	if err != nil {
		return err
	}
	kind = statementKind(stmt)

	q, err := query.Classify(stmt, r.session.Aliases)
	if err != nil {
		return err
	}
	logger.Debug("classified statement", log.Statement(text), log.Kind(kind))

	switch q.Kind {
	case query.KindShow:
		return r.show(logger, q)
	case query.KindSelect:
		return r.selectEntries(ctx, q)
	case query.KindUpdate:
		return r.planUpdate(ctx, logger, q)
	default:
		return fmt.Errorf("unexpected statement kind %s", kind)
	}
}

// show reports configuration and never touches the directory.
func (r *Runner) show(logger *log.Logger, q *query.Query) error {
	switch q.ShowTarget() {
	case query.ShowTables:
		if len(r.session.Aliases) == 0 {
			return r.out.Print("No tables are configured in your config file.\nSee example config file below.\n" + config.Example + "\n")
		}
		return r.out.KeyValues([2]string{"Table name", "Configured dn"}, r.session.AliasRows())

	case query.ShowDatabases:
		rows := make([][2]string, 0, len(r.session.Databases))
		for _, db := range r.session.Databases {
			rows = append(rows, [2]string{db.Name, db.Connection})
		}
		return r.out.KeyValues([2]string{"Database name", "Configured server"}, rows)

	default:
		logger.Debug("nothing to show", log.String("variable", q.Variable))
		return nil
	}
}

func (r *Runner) selectEntries(ctx context.Context, q *query.Query) error {
	if q.DefaultFilter {
		if err := r.out.Print(DefaultFilterNotice + "\n"); err != nil {
			return err
		}
	}

	return r.withClient(ctx, func(c directory.Client) error {
		entries, err := c.Search(ctx, directory.SearchRequest{
			Base:       q.Table,
			Scope:      directory.ScopeSubtree,
			Filter:     q.Filter,
			Attributes: q.Attributes(),
		})
		if err != nil {
			return err
		}
		return r.out.Results(q.Identifiers, q.Wildcard, entries)
	})
}

func (r *Runner) planUpdate(ctx context.Context, logger *log.Logger, q *query.Query) error {
	return r.withClient(ctx, func(c directory.Client) error {
		plan, err := update.NewPlanner(c, r.metrics, logger).Plan(ctx, q)
		if err != nil {
			return err
		}
		return plan.Report(r.out.Writer())
	})
}

// withClient opens a connection, binds when credentials are configured,
// runs fn and tears the connection down again.
func (r *Runner) withClient(ctx context.Context, fn func(directory.Client) error) (err error) {
	if r.limiter != nil && !r.limiter.Allow() {
		r.metrics.RecordRateLimitWait()
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	c, err := r.dial(ctx, r.session.Conn)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !r.session.HasCredentials() {
		return fn(c)
	}

	if err := c.Bind(ctx, r.session.Conn.BindDN, r.session.Conn.BindPassword); err != nil {
		return err
	}
	if err := fn(c); err != nil {
		_ = c.Unbind(ctx)
		return err
	}
	return c.Unbind(ctx)
}

func statementKind(stmt parser.Statement) string {
	switch s := stmt.(type) {
	case *parser.Select:
		return query.KindSelect.String()
	case *parser.Update:
		return query.KindUpdate.String()
	case *parser.Show:
		return query.KindShow.String()
	case *parser.Other:
		return s.Kind
	default:
		return "UNKNOWN"
	}
}
