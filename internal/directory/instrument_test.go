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
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sqldap/pkg/log"
	"sqldap/pkg/metrics"
)

func TestInstrumentDialer(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.FromZap(zap.New(core))

	dial := InstrumentDialer(Open, m, logger)

	c, err := dial(context.Background(), ConnConfig{URL: "memory://" + fixture})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Bind(ctx, "uid=admin,dc=example,dc=com", "secret"))
	entries, err := c.Search(ctx, SearchRequest{Base: "ou=people,dc=example,dc=com", Scope: ScopeSubtree, Filter: "(uid=*)"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NoError(t, c.Unbind(ctx))
	require.NoError(t, c.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryOperationsTotal.WithLabelValues("dial", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryOperationsTotal.WithLabelValues("bind", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryOperationsTotal.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryOperationsTotal.WithLabelValues("unbind", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DirectoryEntriesReturned))

	searches := logs.FilterField(zap.String("op", "search")).All()
	require.Len(t, searches, 1)
	assert.Equal(t, "directory", searches[0].ContextMap()["component"])
}

func TestInstrumentDialer_Failure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	boom := errors.New("boom")

	dial := InstrumentDialer(func(context.Context, ConnConfig) (Client, error) {
		return nil, boom
	}, m, log.NewNop())

	_, err := dial(context.Background(), ConnConfig{URL: "ldap://localhost"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryOperationsTotal.WithLabelValues("dial", "error")))
}

func TestInstrument_SearchFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := Instrument(NewMemory().Client(), m, log.NewNop())

	_, err := c.Search(context.Background(), SearchRequest{Base: "dc=nowhere", Filter: "(a=1)"})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryOperationsTotal.WithLabelValues("search", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DirectoryEntriesReturned))
}
