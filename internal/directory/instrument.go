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

package directory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sqldap/pkg/log"
	"sqldap/pkg/metrics"
)

// instrumented records latency and outcome of every call on a Client.
type instrumented struct {
	next    Client
	metrics *metrics.Metrics
	logger  *log.Logger
}

// Instrument wraps c so that every operation is counted, timed and logged
// at debug level.
func Instrument(c Client, m *metrics.Metrics, logger *log.Logger) Client {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &instrumented{next: c, metrics: m, logger: logger.With(log.Component("directory"))}
}

// InstrumentDialer returns a Dialer whose clients are instrumented, and
// whose dial attempts are recorded as the "dial" operation.
func InstrumentDialer(d Dialer, m *metrics.Metrics, logger *log.Logger) Dialer {
	return func(ctx context.Context, cfg ConnConfig) (Client, error) {
		start := time.Now()
		c, err := d(ctx, cfg)
		m.RecordDirectoryOperation("dial", time.Since(start), err)
		if err != nil {
			return nil, err
		}
		return Instrument(c, m, logger), nil
	}
}

func (i *instrumented) Bind(ctx context.Context, dn, password string) error {
	start := time.Now()
	err := i.next.Bind(ctx, dn, password)
	i.record("bind", start, err, log.BindDN(dn))
	return err
}

func (i *instrumented) Search(ctx context.Context, req SearchRequest) ([]*Entry, error) {
	start := time.Now()
	entries, err := i.next.Search(ctx, req)
	i.record("search", start, err,
		log.Search(req.Base, req.Scope.String(), req.Filter, req.Attributes),
		log.Count(len(entries)))
	if err == nil {
		i.metrics.RecordEntries(len(entries))
	}
	return entries, err
}

func (i *instrumented) Unbind(ctx context.Context) error {
	start := time.Now()
	err := i.next.Unbind(ctx)
	i.record("unbind", start, err)
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}

func (i *instrumented) record(op string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	i.metrics.RecordDirectoryOperation(op, elapsed, err)

	fields = append(fields, log.String("op", op), log.Duration("took", elapsed))
	if err != nil {
		i.logger.Debug("directory operation failed", append(fields, log.Err(err))...)
		return
	}
	i.logger.Debug("directory operation", fields...)
}
