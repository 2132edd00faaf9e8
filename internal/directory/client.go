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

// Package directory is the directory service boundary: a small client
// capability with an LDAP implementation and an in-memory one for offline
// runs.
package directory

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"sqldap/pkg/sqlerr"
)

// Scope is the extent of a search below its base.
type Scope int

const (
	ScopeBase Scope = iota
	ScopeOneLevel
	ScopeSubtree
)

func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopeOneLevel:
		return "one"
	case ScopeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// SearchRequest describes one search.
type SearchRequest struct {
	Base       string
	Scope      Scope
	Filter     string
	Attributes []string
}

// Entry is a returned directory entry. A slice longer than one in
// Attributes means the attribute is multi-valued.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Get returns the values of name, matching attribute names case
// insensitively as directories do.
func (e *Entry) Get(name string) []string {
	if v, ok := e.Attributes[name]; ok {
		return v
	}
	for k, v := range e.Attributes {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// Names returns the attribute names of e in sorted order.
func (e *Entry) Names() []string {
	names := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Client is the capability a statement needs from a directory.
type Client interface {
	Bind(ctx context.Context, dn, password string) error
	Search(ctx context.Context, req SearchRequest) ([]*Entry, error)
	Unbind(ctx context.Context) error
	Close() error
}

// ConnConfig is the resolved connection of one server section.
type ConnConfig struct {
	// URL is ldap://, ldaps://, ldapi:// or memory://<fixture>.
	URL string

	BindDN       string
	BindPassword string

	// TLSVerify enables certificate verification for ldaps:// and
	// StartTLS. Off unless configured.
	TLSVerify bool
}

// Dialer opens a fresh client for one statement.
type Dialer func(ctx context.Context, cfg ConnConfig) (Client, error)

// Open picks an implementation from the URL scheme and connects.
func Open(ctx context.Context, cfg ConnConfig) (Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, sqlerr.Directory("parse connection "+cfg.URL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ldap", "ldaps", "ldapi":
		return dialLDAP(ctx, cfg)
	case "memory":
		return OpenMemory(fixturePath(u))
	default:
		return nil, sqlerr.Config("unsupported connection scheme %q in %s", u.Scheme, cfg.URL)
	}
}

// fixturePath accepts memory://relative/file.yaml and memory:///abs/file.yaml.
func fixturePath(u *url.URL) string {
	return u.Host + u.Path
}
