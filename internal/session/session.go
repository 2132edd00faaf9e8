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

// Package session runs scripts of statements against one configured
// server.
package session

import (
	"sort"

	"sqldap/internal/directory"
	"sqldap/internal/query"
	"sqldap/pkg/config"
)

// Database is a configured server as listed by SHOW DATABASES.
type Database struct {
	Name       string
	Connection string
}

// Session is the read-only state shared by every statement of a run. It
// is passed by value and its maps are private copies.
type Session struct {
	Server    string
	Conn      directory.ConnConfig
	Aliases   query.Aliases
	Macros    map[string]string
	Databases []Database

	// RateLimit caps new directory connections per second, zero means
	// unlimited.
	RateLimit float64
	Burst     int
}

// New builds the session for server out of cfg.
func New(cfg *config.Config, server *config.Server) Session {
	s := Session{
		Server: server.Name,
		Conn: directory.ConnConfig{
			URL:       server.Connection,
			TLSVerify: server.VerifyTLS(),
		},
		Aliases:   make(query.Aliases, len(server.Tables)),
		Macros:    make(map[string]string, len(server.Queries)),
		RateLimit: server.RateLimit,
		Burst:     server.Burst,
	}
	if server.HasCredentials() {
		s.Conn.BindDN = server.BindDN
		s.Conn.BindPassword = server.BindPassword
	}
	for k, v := range server.Tables {
		s.Aliases[k] = v
	}
	for k, v := range server.Queries {
		s.Macros[k] = v
	}
	for _, srv := range cfg.Servers {
		s.Databases = append(s.Databases, Database{Name: srv.Name, Connection: srv.Connection})
	}
	return s
}

// HasCredentials reports whether statements bind before searching.
func (s Session) HasCredentials() bool {
	return s.Conn.BindDN != "" && s.Conn.BindPassword != ""
}

// AliasRows returns the alias mapping sorted by name.
func (s Session) AliasRows() [][2]string {
	names := make([]string, 0, len(s.Aliases))
	for name := range s.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][2]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, [2]string{name, s.Aliases[name]})
	}
	return rows
}
