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

package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"sqldap/pkg/sqlerr"
)

// ErrUnknownAlias is returned when a location references an alias that is
// not configured.
var ErrUnknownAlias = fmt.Errorf("%w: unknown table alias", sqlerr.ErrConfig)

// Aliases maps alias names to base locations. It is read-only once
// configuration has been loaded.
type Aliases map[string]string

// aliasComponent matches an alias reference standing in a DN component
// position: at the start of the location or right after a comma.
var aliasComponent = regexp.MustCompile(`(?:^|,)\s*(@[A-Za-z0-9_.-]+)`)

// Resolve replaces every @name occurrence in location with its configured
// value. Longer names are substituted first so that @p never eats the
// prefix of @people.
func (a Aliases) Resolve(location string) (string, error) {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	resolved := location
	for _, name := range names {
		resolved = strings.ReplaceAll(resolved, "@"+name, a[name])
	}

	if marker := aliasMarker(resolved); marker != "" {
		return "", fmt.Errorf("%w %s in %q", ErrUnknownAlias, marker, location)
	}
	return resolved, nil
}

// aliasMarker returns the first alias reference left in location, or "".
func aliasMarker(location string) string {
	if m := aliasComponent.FindStringSubmatch(location); m != nil {
		return m[1]
	}
	return ""
}
