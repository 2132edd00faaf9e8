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
	"crypto/tls"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"sqldap/pkg/log"
	"sqldap/pkg/sqlerr"
)

const dialTimeout = 10 * time.Second

// ldapClient talks to a real directory server.
type ldapClient struct {
	conn   *ldap.Conn
	logger *log.Logger
}

func dialLDAP(ctx context.Context, cfg ConnConfig) (*ldapClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, sqlerr.Directory("dial "+cfg.URL, err)
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := ldap.DialURL(cfg.URL,
		ldap.DialWithDialer(dialer),
		ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: !cfg.TLSVerify}),
	)
	if err != nil {
		return nil, sqlerr.Directory("dial "+cfg.URL, err)
	}

	logger := log.GetLogger().With(log.Component("directory"))
	logger.Debug("connected", log.String("url", cfg.URL), log.Bool("tls_verify", cfg.TLSVerify))

	return &ldapClient{conn: conn, logger: logger}, nil
}

func (c *ldapClient) Bind(ctx context.Context, dn, password string) error {
	if err := ctx.Err(); err != nil {
		return sqlerr.Directory("bind "+dn, err)
	}
	if err := c.conn.Bind(dn, password); err != nil {
		return sqlerr.Directory("bind "+dn, err)
	}
	return nil
}

func (c *ldapClient) Search(ctx context.Context, req SearchRequest) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, sqlerr.Directory("search "+req.Base, err)
	}

	sr := ldap.NewSearchRequest(
		req.Base,
		ldapScope(req.Scope),
		ldap.NeverDerefAliases,
		0, 0, false,
		req.Filter,
		req.Attributes,
		nil,
	)

	res, err := c.conn.Search(sr)
	if err != nil {
		return nil, sqlerr.Directory("search "+req.Base+" "+req.Filter, err)
	}

	entries := make([]*Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		entry := &Entry{DN: e.DN, Attributes: make(map[string][]string, len(e.Attributes))}
		for _, a := range e.Attributes {
			entry.Attributes[a.Name] = a.Values
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *ldapClient) Unbind(ctx context.Context) error {
	if err := c.conn.Unbind(); err != nil {
		return sqlerr.Directory("unbind", err)
	}
	return nil
}

func (c *ldapClient) Close() error {
	c.conn.Close()
	return nil
}

func ldapScope(s Scope) int {
	switch s {
	case ScopeBase:
		return ldap.ScopeBaseObject
	case ScopeOneLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}
