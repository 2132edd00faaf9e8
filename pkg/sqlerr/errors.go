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

// Package sqlerr defines the error kinds shared by every stage of a
// statement: parsing, classification, filter compilation, directory access
// and configuration.
package sqlerr

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is returned when statement text cannot be parsed.
	ErrParse = errors.New("parse error")

	// ErrUnsupportedStatement is returned for statement shapes other than
	// SELECT, UPDATE and SHOW, and for SELECT clauses that cannot be expressed
	// as a directory search.
	ErrUnsupportedStatement = errors.New("unsupported statement")

	// ErrUnsupportedProjection is returned when a select list holds anything
	// but bare attribute names or a single wildcard.
	ErrUnsupportedProjection = errors.New("unsupported projection")

	// ErrUnsupportedTableExpression is returned for joins, derived tables and
	// missing or repeated source references.
	ErrUnsupportedTableExpression = errors.New("unsupported table expression")

	// ErrUnsupportedExpression is returned for expression shapes that have no
	// filter equivalent.
	ErrUnsupportedExpression = errors.New("unsupported expression")

	// ErrUnsupportedFilterOperator is returned for relational operators other
	// than =, >=, <= and LIKE.
	ErrUnsupportedFilterOperator = errors.New("unsupported filter operator")

	// ErrUnsupportedAssignment is returned when an UPDATE assignment is not
	// attribute = literal or attribute = identifier.
	ErrUnsupportedAssignment = errors.New("unsupported assignment")

	// ErrDirectory wraps every bind, search and unbind failure.
	ErrDirectory = errors.New("directory error")

	// ErrConfig is returned for missing or invalid configuration.
	ErrConfig = errors.New("config error")
)

// Exit codes used by the command line.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitParse       = 2
	ExitUnsupported = 3
	ExitDirectory   = 4
	ExitConfig      = 5
)

// exitCodeMap maps error kinds to process exit codes.
var exitCodeMap = []struct {
	kind error
	code int
}{
	{ErrParse, ExitParse},
	{ErrUnsupportedStatement, ExitUnsupported},
	{ErrUnsupportedProjection, ExitUnsupported},
	{ErrUnsupportedTableExpression, ExitUnsupported},
	{ErrUnsupportedExpression, ExitUnsupported},
	{ErrUnsupportedFilterOperator, ExitUnsupported},
	{ErrUnsupportedAssignment, ExitUnsupported},
	{ErrDirectory, ExitDirectory},
	{ErrConfig, ExitConfig},
}

// Unsupported wraps kind with a description of the offending feature.
func Unsupported(kind error, feature string) error {
	return fmt.Errorf("%w: %s", kind, feature)
}

// Parse wraps a parser failure.
func Parse(err error) error {
	return fmt.Errorf("%w: %w", ErrParse, err)
}

// Directory wraps a transport failure with the operation that produced it.
func Directory(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDirectory, op, err)
}

// Config returns a configuration error with a formatted message.
func Config(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// IsUnsupported reports whether err names an unsupported language feature.
func IsUnsupported(err error) bool {
	return ExitCode(err) == ExitUnsupported
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, m := range exitCodeMap {
		if errors.Is(err, m.kind) {
			return m.code
		}
	}
	return ExitFailure
}

// Label returns a short, stable name for the kind of err, suitable as a
// metric label value.
func Label(err error) string {
	switch ExitCode(err) {
	case ExitOK:
		return "ok"
	case ExitParse:
		return "parse"
	case ExitUnsupported:
		return "unsupported"
	case ExitDirectory:
		return "directory"
	case ExitConfig:
		return "config"
	default:
		return "error"
	}
}
