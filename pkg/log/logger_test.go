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

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return FromZap(zap.New(core)), logs
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.False(t, logger.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Zap().Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqldap.log")
	logger, err := NewLogger(&Config{Level: "debug", Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("dialing", Server("primary"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"dialing"`)
	assert.Contains(t, string(data), `"server":"primary"`)
}

func TestGlobalLogger_Replace(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { ReplaceGlobalLogger(prev) })

	logger, logs := observed(zapcore.DebugLevel)
	ReplaceGlobalLogger(logger)

	Debug("one")
	Warnf("two %d", 2)
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Message)
	assert.Equal(t, "two 2", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestLogger_WithAndNamed(t *testing.T) {
	logger, logs := observed(zapcore.InfoLevel)
	logger.Named("runner").With(RunID("abc")).Info("started", Count(3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "runner", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["run_id"])
	assert.EqualValues(t, 3, fields["count"])
}

func TestBindDN(t *testing.T) {
	assert.Equal(t, "anonymous", BindDN("").String)
	assert.Equal(t, "cn=admin", BindDN("cn=admin").String)
}

func TestSearchField(t *testing.T) {
	logger, logs := observed(zapcore.DebugLevel)
	logger.Debug("search", Search("dc=example,dc=com", "sub", "(uid=jdoe)", []string{"cn", "mail"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	search, ok := entries[0].ContextMap()["search"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dc=example,dc=com", search["base"])
	assert.Equal(t, "sub", search["scope"])
	assert.Equal(t, "(uid=jdoe)", search["filter"])
	assert.Equal(t, []interface{}{"cn", "mail"}, search["attributes"])
}
