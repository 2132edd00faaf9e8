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

package session

import (
	"fmt"
	"strings"

	"sqldap/pkg/sqlerr"
)

// MacroMarker starts a statement that names a configured query.
const MacroMarker = "@"

// ErrUnknownMacro is returned for a @name statement with no configured
// query.
var ErrUnknownMacro = fmt.Errorf("%w: unknown query macro", sqlerr.ErrConfig)

// Split breaks a script into statements. A separator followed by a newline
// counts as a plain separator; blank statements are dropped and the rest
// trimmed.
func Split(script string) []string {
	script = strings.ReplaceAll(script, ";\r\n", ";")
	script = strings.ReplaceAll(script, ";\n", ";")

	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// ExpandMacros replaces every statement that is exactly @name with the
// configured query text. Replacement happens once: a macro whose text is
// itself @other is not expanded again.
func ExpandMacros(stmts []string, macros map[string]string) ([]string, error) {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		if !strings.HasPrefix(s, MacroMarker) {
			out[i] = s
			continue
		}
		text, ok := macros[strings.TrimPrefix(s, MacroMarker)]
		if !ok {
			return nil, fmt.Errorf("%w %s", ErrUnknownMacro, s)
		}
		out[i] = strings.TrimSpace(text)
	}
	return out, nil
}
