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
	"fmt"
	"strconv"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
)

// matcher evaluates a compiled search filter against stored entries.
// Parsing is left to go-ldap so both directory implementations accept
// exactly the same filter text.
type matcher struct {
	root *ber.Packet
}

func compileMatcher(filter string) (*matcher, error) {
	if filter == "" {
		filter = "(objectClass=*)"
	}
	p, err := ldap.CompileFilter(filter)
	if err != nil {
		return nil, err
	}
	return &matcher{root: p}, nil
}

func (m *matcher) match(e *Entry) (bool, error) {
	return evaluate(m.root, e)
}

func evaluate(p *ber.Packet, e *Entry) (bool, error) {
	switch p.Tag {
	case ldap.FilterAnd:
		for _, c := range p.Children {
			ok, err := evaluate(c, e)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case ldap.FilterOr:
		for _, c := range p.Children {
			ok, err := evaluate(c, e)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case ldap.FilterNot:
		if len(p.Children) != 1 {
			return false, fmt.Errorf("malformed NOT filter")
		}
		ok, err := evaluate(p.Children[0], e)
		return !ok, err

	case ldap.FilterEqualityMatch, ldap.FilterApproxMatch:
		attr, want, err := assertion(p)
		if err != nil {
			return false, err
		}
		for _, v := range valuesOf(e, attr) {
			if strings.EqualFold(v, want) {
				return true, nil
			}
		}
		return false, nil

	case ldap.FilterGreaterOrEqual, ldap.FilterLessOrEqual:
		attr, bound, err := assertion(p)
		if err != nil {
			return false, err
		}
		for _, v := range valuesOf(e, attr) {
			c := compareValues(v, bound)
			if (p.Tag == ldap.FilterGreaterOrEqual && c >= 0) || (p.Tag == ldap.FilterLessOrEqual && c <= 0) {
				return true, nil
			}
		}
		return false, nil

	case ldap.FilterPresent:
		return len(valuesOf(e, packetString(p))) > 0, nil

	case ldap.FilterSubstrings:
		if len(p.Children) != 2 {
			return false, fmt.Errorf("malformed substrings filter")
		}
		attr := packetString(p.Children[0])
		for _, v := range valuesOf(e, attr) {
			if matchSubstrings(strings.ToLower(v), p.Children[1].Children) {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unsupported filter component %s", ldap.FilterMap[uint64(p.Tag)])
	}
}

func assertion(p *ber.Packet) (string, string, error) {
	if len(p.Children) != 2 {
		return "", "", fmt.Errorf("malformed %s filter", ldap.FilterMap[uint64(p.Tag)])
	}
	return packetString(p.Children[0]), packetString(p.Children[1]), nil
}

func packetString(p *ber.Packet) string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	if p.Data != nil {
		return p.Data.String()
	}
	return ""
}

// valuesOf returns the stored values of attr, including the entryDN
// operational attribute.
func valuesOf(e *Entry, attr string) []string {
	if strings.EqualFold(attr, entryDNAttribute) {
		return []string{e.DN}
	}
	return e.Get(attr)
}

// compareValues orders integers numerically and everything else by case
// folded text.
func compareValues(a, b string) int {
	ai, aerr := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	bi, berr := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// matchSubstrings reports whether value matches the initial, any and final
// components in order. value must already be lower case.
func matchSubstrings(value string, parts []*ber.Packet) bool {
	pos := 0
	for _, part := range parts {
		s := strings.ToLower(packetString(part))
		switch part.Tag {
		case ldap.FilterSubstringsInitial:
			if !strings.HasPrefix(value, s) {
				return false
			}
			pos = len(s)
		case ldap.FilterSubstringsAny:
			i := strings.Index(value[pos:], s)
			if i < 0 {
				return false
			}
			pos += i + len(s)
		case ldap.FilterSubstringsFinal:
			if len(value)-pos < len(s) || !strings.HasSuffix(value, s) {
				return false
			}
			pos = len(value)
		}
	}
	return true
}
