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

package config

import "strings"

// Example is a minimal configuration file.
const Example = `
To create a config file, you can use the following template

[dirserver1]
connection=ldap://ldap.example.com:389
binddn=uid=admin,ou=Admins,dc=example,dc=com
bindpassword=SECRETPASSWORD
[dirserver1.tables]
people=ou=people,dc=example,dc=com
group=ou=Group,dc=example,dc=com
[dirserver1.queries]
locked=SELECT uid FROM @people WHERE passwordretrycount>=3

[dirserver2]
connection=ldap://ad.example.com:389
`

// Usage explains where the configuration is looked for.
func Usage(filename string) string {
	lines := []string{
		"",
		"sqldap searches for a config file in the following locations,",
		"in the following order:",
		"",
	}
	for _, p := range SearchPaths(filename) {
		lines = append(lines, " - "+p)
	}
	lines = append(lines, Example)
	return strings.Join(lines, "\n")
}
