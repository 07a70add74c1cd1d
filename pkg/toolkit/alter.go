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

import "fmt"

// AlterClauses - returns ALTER TABLE clauses that turn column from into column to. The order is always
// default, not null, data type. The name and enum labels are not compared here, renames and enum
// re-creation are handled by the caller.
func AlterClauses(from, to *Column) []string {
	if from.Equal(to) {
		return nil
	}
	var clauses []string
	if !equalOptional(from.Default, to.Default) {
		clauses = append(clauses, to.AlterDefaultClause())
	}
	if from.NotNull != to.NotNull {
		clauses = append(clauses, to.AlterNotNullClause())
	}
	if from.DBTypeStr != to.DBTypeStr || !equalOptional(from.Collation, to.Collation) {
		clauses = append(clauses, to.AlterDataTypeClause())
	}
	return clauses
}

// AlterStatements - wraps AlterClauses into complete statements for the table. tableName must be already quoted
func AlterStatements(from, to *Column, tableName string) []string {
	clauses := AlterClauses(from, to)
	if len(clauses) == 0 {
		return nil
	}
	res := make([]string, 0, len(clauses))
	for _, c := range clauses {
		res = append(res, fmt.Sprintf("alter table %s %s;", tableName, c))
	}
	return res
}
