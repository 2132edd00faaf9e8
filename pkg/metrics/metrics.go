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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sqldap/pkg/sqlerr"
)

const namespace = "sqldap"

// Metrics holds the collectors of one invocation. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Statement metrics
	StatementsTotal   *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec

	// Directory metrics
	DirectoryOperationsTotal   *prometheus.CounterVec
	DirectoryOperationDuration *prometheus.HistogramVec
	DirectoryEntriesReturned   prometheus.Counter

	// Connection rate limiting
	RateLimitWaits prometheus.Counter

	// Update planning
	UpdatePlanEntries *prometheus.CounterVec
}

// New creates all collectors and registers them with registry.
func New(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		StatementsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "statement",
				Name:      "total",
				Help:      "Total number of executed statements by kind and outcome",
			},
			[]string{"kind", "status"},
		),

		StatementDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "statement",
				Name:      "duration_seconds",
				Help:      "Histogram of statement latencies, parse to output",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		DirectoryOperationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "directory",
				Name:      "operations_total",
				Help:      "Total number of directory operations by operation and outcome",
			},
			[]string{"operation", "status"},
		),

		DirectoryOperationDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "directory",
				Name:      "operation_duration_seconds",
				Help:      "Histogram of directory operation latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		DirectoryEntriesReturned: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "directory",
				Name:      "entries_returned_total",
				Help:      "Total number of entries returned by searches",
			},
		),

		RateLimitWaits: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "directory",
				Name:      "rate_limit_waits_total",
				Help:      "Total number of connections delayed by the rate limiter",
			},
		),

		UpdatePlanEntries: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "update",
				Name:      "plan_entries_total",
				Help:      "Total number of entries considered by update plans by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordStatement records a finished statement.
func (m *Metrics) RecordStatement(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.StatementsTotal.WithLabelValues(kind, sqlerr.Label(err)).Inc()
	m.StatementDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDirectoryOperation records a bind, search, unbind or dial.
func (m *Metrics) RecordDirectoryOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DirectoryOperationsTotal.WithLabelValues(operation, status).Inc()
	m.DirectoryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEntries adds n returned entries.
func (m *Metrics) RecordEntries(n int) {
	if m == nil {
		return
	}
	m.DirectoryEntriesReturned.Add(float64(n))
}

// RecordRateLimitWait records a connection that had to wait for a token.
func (m *Metrics) RecordRateLimitWait() {
	if m == nil {
		return
	}
	m.RateLimitWaits.Inc()
}

// RecordPlanEntry records one update plan entry.
func (m *Metrics) RecordPlanEntry(conflicted bool) {
	if m == nil {
		return
	}
	outcome := "planned"
	if conflicted {
		outcome = "excluded"
	}
	m.UpdatePlanEntries.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
