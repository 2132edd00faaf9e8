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
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Common field constructors.

func String(key, val string) zap.Field {
	return zap.String(key, val)
}

func Strings(key string, val []string) zap.Field {
	return zap.Strings(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Any(key string, val interface{}) zap.Field {
	return zap.Any(key, val)
}

// Domain fields.

// Component names the subsystem emitting the line.
func Component(name string) zap.Field {
	return zap.String("component", name)
}

// Statement is the statement text being executed.
func Statement(sql string) zap.Field {
	return zap.String("statement", sql)
}

// StatementIndex is the 1-based position of a statement in its script.
func StatementIndex(i int) zap.Field {
	return zap.Int("statement_index", i)
}

// Kind is the classified statement kind.
func Kind(kind string) zap.Field {
	return zap.String("kind", kind)
}

// Server is the configured server section in use.
func Server(name string) zap.Field {
	return zap.String("server", name)
}

// RunID correlates every line of one invocation.
func RunID(id string) zap.Field {
	return zap.String("run_id", id)
}

// DN is a distinguished name.
func DN(dn string) zap.Field {
	return zap.String("dn", dn)
}

// BindDN logs the bind identity. Passwords are never logged.
func BindDN(dn string) zap.Field {
	if dn == "" {
		return zap.String("bind_dn", "anonymous")
	}
	return zap.String("bind_dn", dn)
}

// Count is a generic counter.
func Count(count int) zap.Field {
	return zap.Int("count", count)
}

// Search logs a directory search as one nested object.
func Search(base, scope, filter string, attributes []string) zap.Field {
	return zap.Object("search", searchFields{
		Base:       base,
		Scope:      scope,
		Filter:     filter,
		Attributes: attributes,
	})
}

type searchFields struct {
	Base       string
	Scope      string
	Filter     string
	Attributes []string
}

func (s searchFields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("base", s.Base)
	enc.AddString("scope", s.Scope)
	enc.AddString("filter", s.Filter)
	return enc.AddArray("attributes", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, a := range s.Attributes {
			arr.AppendString(a)
		}
		return nil
	}))
}
