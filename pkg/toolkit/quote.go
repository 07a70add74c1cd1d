// Copyright 2025 Greenmask
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

package toolkit

import "strings"

// QuoteIdent - quotes identifier for PostgreSQL. Embedded double quotes are doubled.
// An empty identifier is quoted as "" which is valid syntax but must never be produced by callers.
func QuoteIdent(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// QuoteQualifiedIdent - quotes identifier with the schema prefix. If schema is empty only the identifier is quoted.
func QuoteQualifiedIdent(schema, identifier string) string {
	if schema == "" {
		return QuoteIdent(identifier)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(identifier)
}

// QuoteFunctionSignature - quotes function or procedure name and appends the identity arguments list as is
func QuoteFunctionSignature(schema, identifier, args string) string {
	return QuoteQualifiedIdent(schema, identifier) + "(" + args + ")"
}

// QuoteLiteral - quotes string literal doubling the single quotes
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
