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

import (
	"fmt"
	"slices"
	"strings"
)

// EnumType - user defined enum type with labels in the sort order
type EnumType struct {
	Schema string   `json:"schema" yaml:"schema"`
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values,omitempty" yaml:"values"`
}

func NewEnumType(schema, name string, values ...string) (*EnumType, error) {
	e := &EnumType{
		Schema: schema,
		Name:   name,
		Values: slices.Clone(values),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EnumType) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("empty enum type name: %w", ErrMalformedInput)
	}
	return nil
}

func (e *EnumType) QuotedFullName() string {
	return QuoteQualifiedIdent(e.Schema, e.Name)
}

func (e *EnumType) Equal(other *EnumType) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Schema == other.Schema && e.Name == other.Name && slices.Equal(e.Values, other.Values)
}

// Is - checks that the enum column payload refers to this type
func (e *EnumType) Is(ce *ColumnEnum) bool {
	return ce != nil && ce.Schema == e.Schema && ce.Name == e.Name
}

func (e *EnumType) CreateStatement() string {
	values := make([]string, 0, len(e.Values))
	for _, v := range e.Values {
		values = append(values, QuoteLiteral(v))
	}
	return fmt.Sprintf("create type %s as enum (%s);", e.QuotedFullName(), strings.Join(values, ", "))
}

func (e *EnumType) DropStatement() string {
	return fmt.Sprintf("drop type %s;", e.QuotedFullName())
}
