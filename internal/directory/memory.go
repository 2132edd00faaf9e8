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
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/btree"
	"gopkg.in/yaml.v3"

	"sqldap/pkg/sqlerr"
)

// entryDNAttribute is the operational attribute carrying an entry's own
// distinguished name. It is returned only when asked for by name.
const entryDNAttribute = "entryDN"

// passwordAttribute is checked by Bind.
const passwordAttribute = "userPassword"

var (
	// ErrNoSuchObject is returned when a search base does not exist.
	ErrNoSuchObject = errors.New("no such object")

	// ErrInvalidCredentials is returned by a failed Bind.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrClosed is returned by any call on a closed client.
	ErrClosed = errors.New("connection closed")
)

// Fixture is the YAML document loaded by the memory directory.
//
//	entries:
//	  - dn: uid=jdoe,ou=people,dc=example,dc=com
//	    attributes:
//	      uid: [jdoe]
//	      mail: [jdoe@example.com, john@example.com]
type Fixture struct {
	Entries []FixtureEntry `yaml:"entries"`
}

// FixtureEntry is one entry of a Fixture.
type FixtureEntry struct {
	DN         string              `yaml:"dn"`
	Attributes map[string][]string `yaml:"attributes"`
}

// entryItem is a stored entry ordered by its reversed, normalized DN, so a
// subtree is a contiguous key range.
type entryItem struct {
	key   string
	depth int
	entry *Entry
}

// Less implements btree.Item.
func (e *entryItem) Less(other btree.Item) bool {
	return e.key < other.(*entryItem).key
}

// Memory is an in-memory directory. It is safe for concurrent use and
// shared by every client opened on the same fixture.
type Memory struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// NewMemory creates an empty directory.
func NewMemory() *Memory {
	return &Memory{tree: btree.New(32)}
}

// LoadFixture reads a YAML fixture file into a new directory.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sqlerr.Directory("load fixture", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, sqlerr.Directory("load fixture "+path, err)
	}

	m := NewMemory()
	for _, fe := range f.Entries {
		if err := m.Add(fe.DN, fe.Attributes); err != nil {
			return nil, sqlerr.Directory("load fixture "+path, err)
		}
	}
	return m, nil
}

// Add stores an entry, replacing any entry with the same DN. Entries
// without an objectClass get "top".
func (m *Memory) Add(dn string, attributes map[string][]string) error {
	key, depth, err := dnKey(dn)
	if err != nil {
		return err
	}

	attrs := make(map[string][]string, len(attributes)+1)
	hasObjectClass := false
	for k, v := range attributes {
		attrs[k] = append([]string(nil), v...)
		if strings.EqualFold(k, "objectClass") {
			hasObjectClass = true
		}
	}
	if !hasObjectClass {
		attrs["objectClass"] = []string{"top"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(&entryItem{
		key:   key,
		depth: depth,
		entry: &Entry{DN: dn, Attributes: attrs},
	})
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Client returns a new client session on m.
func (m *Memory) Client() Client {
	return &memoryClient{dir: m}
}

func (m *Memory) get(key string) *entryItem {
	item := m.tree.Get(&entryItem{key: key})
	if item == nil {
		return nil
	}
	return item.(*entryItem)
}

func (m *Memory) search(req SearchRequest) ([]*Entry, error) {
	baseKey, baseDepth, err := dnKey(req.Base)
	if err != nil {
		return nil, fmt.Errorf("invalid base %q: %w", req.Base, err)
	}

	matcher, err := compileMatcher(req.Filter)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if baseKey != "" && m.get(baseKey) == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchObject, req.Base)
	}

	var (
		entries  []*Entry
		matchErr error
	)
	visit := func(item btree.Item) bool {
		ei := item.(*entryItem)
		if !strings.HasPrefix(ei.key, baseKey) {
			return false
		}
		if baseKey != "" && ei.key != baseKey && !strings.HasPrefix(ei.key, baseKey+",") {
			// A sibling sharing the prefix, e.g. dc=example+x=y.
			return true
		}
		switch req.Scope {
		case ScopeBase:
			if ei.depth != baseDepth {
				return true
			}
		case ScopeOneLevel:
			if ei.depth != baseDepth+1 {
				return true
			}
		}

		ok, err := matcher.match(ei.entry)
		if err != nil {
			matchErr = err
			return false
		}
		if ok {
			entries = append(entries, project(ei.entry, req.Attributes))
		}
		return true
	}

	if req.Scope == ScopeBase {
		if item := m.get(baseKey); item != nil {
			visit(item)
		}
	} else {
		m.tree.AscendGreaterOrEqual(&entryItem{key: baseKey}, visit)
	}

	if matchErr != nil {
		return nil, matchErr
	}
	return entries, nil
}

// project copies the requested attributes of e. "*" selects every stored
// attribute; the entryDN operational attribute is only returned by name.
func project(e *Entry, requested []string) *Entry {
	out := &Entry{DN: e.DN, Attributes: make(map[string][]string)}

	all := len(requested) == 0
	for _, r := range requested {
		if r == "*" {
			all = true
		}
	}

	if all {
		for k, v := range e.Attributes {
			out.Attributes[k] = append([]string(nil), v...)
		}
	}
	for _, r := range requested {
		if strings.EqualFold(r, entryDNAttribute) {
			out.Attributes[entryDNAttribute] = []string{e.DN}
			continue
		}
		for k, v := range e.Attributes {
			if strings.EqualFold(k, r) {
				out.Attributes[k] = append([]string(nil), v...)
			}
		}
	}
	return out
}

// dnKey normalizes dn into a sort key with the root first, and returns the
// number of RDNs.
func dnKey(dn string) (string, int, error) {
	if strings.TrimSpace(dn) == "" {
		return "", 0, nil
	}
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", 0, err
	}

	rdns := make([]string, len(parsed.RDNs))
	for i, rdn := range parsed.RDNs {
		parts := make([]string, len(rdn.Attributes))
		for j, atv := range rdn.Attributes {
			parts[j] = strings.ToLower(atv.Type) + "=" + strings.ToLower(atv.Value)
		}
		rdns[len(rdns)-1-i] = strings.Join(parts, "+")
	}
	return strings.Join(rdns, ","), len(rdns), nil
}

// memoryClient is one session on a Memory directory.
type memoryClient struct {
	dir    *Memory
	closed bool
}

// OpenMemory loads a fixture and returns a client on it.
func OpenMemory(path string) (Client, error) {
	m, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return m.Client(), nil
}

func (c *memoryClient) Bind(ctx context.Context, dn, password string) error {
	if c.closed {
		return sqlerr.Directory("bind "+dn, ErrClosed)
	}
	key, _, err := dnKey(dn)
	if err != nil {
		return sqlerr.Directory("bind "+dn, err)
	}

	c.dir.mu.RLock()
	item := c.dir.get(key)
	c.dir.mu.RUnlock()

	if item == nil {
		return sqlerr.Directory("bind "+dn, ErrInvalidCredentials)
	}
	for _, p := range item.entry.Get(passwordAttribute) {
		if p == password {
			return nil
		}
	}
	return sqlerr.Directory("bind "+dn, ErrInvalidCredentials)
}

func (c *memoryClient) Search(ctx context.Context, req SearchRequest) ([]*Entry, error) {
	if c.closed {
		return nil, sqlerr.Directory("search "+req.Base, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, sqlerr.Directory("search "+req.Base, err)
	}
	entries, err := c.dir.search(req)
	if err != nil {
		return nil, sqlerr.Directory("search "+req.Base+" "+req.Filter, err)
	}
	return entries, nil
}

func (c *memoryClient) Unbind(ctx context.Context) error {
	if c.closed {
		return sqlerr.Directory("unbind", ErrClosed)
	}
	c.closed = true
	return nil
}

func (c *memoryClient) Close() error {
	c.closed = true
	return nil
}
