// Copyright 2023 Greenmask
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

import (
	"fmt"
	"slices"
)

// ColumnEnum - enum specific payload of the column. A column without this payload is a plain column
type ColumnEnum struct {
	Schema string   `json:"schema" yaml:"schema"`
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values,omitempty" yaml:"values"`
}

// Column - the alterable state of the relation column. The value must not be changed after the construction,
// a new state is always a new Column.
type Column struct {
	Name string `json:"name" yaml:"name"`
	// DBType - internal type token, for instance int4 or public.status
	DBType string `json:"db_type" yaml:"db_type"`
	// DBTypeStr - type definition used in the generated DDL, for instance integer or character varying(32)
	DBTypeStr string `json:"db_type_str" yaml:"db_type_str"`
	// HostType - go type the values of the column are decoded to. Informational
	HostType  string      `json:"host_type,omitempty" yaml:"host_type,omitempty"`
	Default   *string     `json:"default,omitempty" yaml:"default,omitempty"`
	NotNull   bool        `json:"not_null" yaml:"not_null"`
	Enum      *ColumnEnum `json:"enum,omitempty" yaml:"enum,omitempty"`
	Collation *string     `json:"collation,omitempty" yaml:"collation,omitempty"`
}

type ColumnOption func(c *Column)

func WithDBTypeStr(v string) ColumnOption {
	return func(c *Column) {
		c.DBTypeStr = v
	}
}

func WithHostType(v string) ColumnOption {
	return func(c *Column) {
		c.HostType = v
	}
}

// WithDefault - sets default expression. An empty string is the valid default expression and
// it is not the same as "no default"
func WithDefault(expr string) ColumnOption {
	return func(c *Column) {
		c.Default = &expr
	}
}

func WithNotNull(v bool) ColumnOption {
	return func(c *Column) {
		c.NotNull = v
	}
}

// WithEnum - marks the column as enum column of the type schema.name with the provided labels
func WithEnum(schema, name string, values ...string) ColumnOption {
	return func(c *Column) {
		c.Enum = &ColumnEnum{
			Schema: schema,
			Name:   name,
			Values: slices.Clone(values),
		}
	}
}

// WithCollation - sets column collation. Empty name means that collation is not set
func WithCollation(name string) ColumnOption {
	return func(c *Column) {
		if name == "" {
			c.Collation = nil
			return
		}
		c.Collation = &name
	}
}

func NewColumn(name, dbType string, opts ...ColumnOption) (*Column, error) {
	c := &Column{
		Name:   name,
		DBType: dbType,
	}
	for _, o := range opts {
		o(c)
	}
	if c.DBTypeStr == "" {
		c.DBTypeStr = c.DBType
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("empty column name: %w", ErrMalformedInput)
	}
	if c.DBType != "" && c.DBTypeStr == "" {
		return fmt.Errorf("column %s: empty type definition: %w", c.Name, ErrMalformedInput)
	}
	if c.Collation != nil && *c.Collation == "" {
		return fmt.Errorf("column %s: empty collation name: %w", c.Name, ErrMalformedInput)
	}
	if c.Enum != nil && c.Enum.Name == "" {
		return fmt.Errorf("column %s: empty enum type name: %w", c.Name, ErrMalformedInput)
	}
	return nil
}

func (c *Column) IsEnum() bool {
	return c.Enum != nil
}

func (c *Column) EnumValues() []string {
	if c.Enum == nil {
		return nil
	}
	return c.Enum.Values
}

// Equal - compares all the attributes that are meaningful for the DDL. Enum type schema and name
// are not compared because the type identity is already covered by DBType.
func (c *Column) Equal(other *Column) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Name == other.Name &&
		c.DBType == other.DBType &&
		c.DBTypeStr == other.DBTypeStr &&
		c.HostType == other.HostType &&
		equalOptional(c.Default, other.Default) &&
		c.NotNull == other.NotNull &&
		equalEnumValues(c.Enum, other.Enum) &&
		equalOptional(c.Collation, other.Collation)
}

func (c *Column) QuotedName() string {
	return QuoteIdent(c.Name)
}

// CreationClause - column definition for CREATE TABLE and ADD COLUMN: name, type, not null and default
func (c *Column) CreationClause() string {
	clause := fmt.Sprintf("%s %s", c.QuotedName(), c.DBTypeStr)
	if c.NotNull {
		clause += " not null"
	}
	if c.Default != nil {
		clause += fmt.Sprintf(" default %s", *c.Default)
	}
	return clause
}

func (c *Column) AddColumnClause() string {
	return fmt.Sprintf("add column %s%s", c.CreationClause(), c.CollationSubclause())
}

func (c *Column) DropColumnClause() string {
	return fmt.Sprintf("drop column %s", c.QuotedName())
}

func (c *Column) CollationSubclause() string {
	if c.Collation == nil {
		return ""
	}
	return fmt.Sprintf(" collate %s", QuoteIdent(*c.Collation))
}

// AlterNotNullClause - the direction is taken from the column state only
func (c *Column) AlterNotNullClause() string {
	keyword := "drop"
	if c.NotNull {
		keyword = "set"
	}
	return fmt.Sprintf("alter column %s %s not null", c.QuotedName(), keyword)
}

func (c *Column) AlterDefaultClause() string {
	if c.Default != nil {
		return fmt.Sprintf("alter column %s set default %s", c.QuotedName(), *c.Default)
	}
	return c.DropDefaultClause()
}

func (c *Column) DropDefaultClause() string {
	return fmt.Sprintf("alter column %s drop default", c.QuotedName())
}

// AlterDataTypeClause - type change with the explicit cast of the existing data
func (c *Column) AlterDataTypeClause() string {
	return fmt.Sprintf(
		"alter column %s set data type %s%s using %s::%s",
		c.QuotedName(), c.DBTypeStr, c.CollationSubclause(), c.QuotedName(), c.DBTypeStr,
	)
}

// EnumToStringStatement - converts enum column to varchar. Used before the enum type is re-created
func (c *Column) EnumToStringStatement(tableName string) (string, error) {
	if !c.IsEnum() {
		return "", fmt.Errorf("column %s is not enum: %w", c.Name, ErrInvalidOperation)
	}
	return fmt.Sprintf(
		"alter table %s alter column %s set data type varchar using %s::varchar;",
		tableName, c.QuotedName(), c.QuotedName(),
	), nil
}

// StringToEnumStatement - converts the column back to its enum type
func (c *Column) StringToEnumStatement(tableName string) (string, error) {
	if !c.IsEnum() {
		return "", fmt.Errorf("column %s is not enum: %w", c.Name, ErrInvalidOperation)
	}
	return fmt.Sprintf(
		"alter table %s alter column %s set data type %s using %s::%s;",
		tableName, c.QuotedName(), c.DBTypeStr, c.QuotedName(), c.DBTypeStr,
	), nil
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalEnumValues(a, b *ColumnEnum) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.Values, b.Values)
}
