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

type RelationKind string

const (
	RelationKindTable            RelationKind = "table"
	RelationKindView             RelationKind = "view"
	RelationKindMaterializedView RelationKind = "materialized_view"
	RelationKindUnknown          RelationKind = "unknown"
)

// RelationKindFromRelKind - maps pg_class.relkind to RelationKind
func RelationKindFromRelKind(relKind rune) RelationKind {
	switch relKind {
	case 'r', 'p':
		return RelationKindTable
	case 'v':
		return RelationKindView
	case 'm':
		return RelationKindMaterializedView
	}
	return RelationKindUnknown
}

func (k RelationKind) IsView() bool {
	return k == RelationKindView || k == RelationKindMaterializedView
}

// Selectable - named relation that has columns: table, view or materialized view. The column order is the
// declaration order. The value must not be changed after the construction.
type Selectable struct {
	Schema           string       `json:"schema" yaml:"schema"`
	Name             string       `json:"name" yaml:"name"`
	Kind             RelationKind `json:"kind" yaml:"kind"`
	Columns          []*Column    `json:"columns,omitempty" yaml:"columns"`
	Definition       *string      `json:"definition,omitempty" yaml:"definition,omitempty"`
	ParentTable      *string      `json:"parent_table,omitempty" yaml:"parent_table,omitempty"`
	PartitionDef     *string      `json:"partition_def,omitempty" yaml:"partition_def,omitempty"`
	PartitionKey     *string      `json:"partition_key,omitempty" yaml:"partition_key,omitempty"`
	RowSecurity      bool         `json:"row_security" yaml:"row_security"`
	ForceRowSecurity bool         `json:"force_row_security" yaml:"force_row_security"`
	Comment          *string      `json:"comment,omitempty" yaml:"comment,omitempty"`
	// DependsOn - quoted full names of the objects this relation depends on. Not a part of the equality
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Dependents - quoted full names of the objects that depend on this relation. Not a part of the equality
	Dependents []string `json:"dependents,omitempty" yaml:"dependents,omitempty"`

	columnIdx map[string]int
}

type SelectableOption func(s *Selectable)

func WithDefinition(def string) SelectableOption {
	return func(s *Selectable) {
		s.Definition = &def
	}
}

// WithParentTable - sets the parent of the partition. parent is the quoted full name
func WithParentTable(parent string) SelectableOption {
	return func(s *Selectable) {
		s.ParentTable = &parent
	}
}

// WithPartitionDef - sets partition bound, for instance FOR VALUES FROM (1) TO (10)
func WithPartitionDef(def string) SelectableOption {
	return func(s *Selectable) {
		s.PartitionDef = &def
	}
}

// WithPartitionKey - marks the table as partitioned by the key, for instance RANGE (id). A partition has
// both the bound and the key when it is partitioned itself
func WithPartitionKey(key string) SelectableOption {
	return func(s *Selectable) {
		s.PartitionKey = &key
	}
}

func WithRowSecurity(enabled, forced bool) SelectableOption {
	return func(s *Selectable) {
		s.RowSecurity = enabled
		s.ForceRowSecurity = forced
	}
}

func WithComment(comment string) SelectableOption {
	return func(s *Selectable) {
		s.Comment = &comment
	}
}

func WithDependsOn(objects ...string) SelectableOption {
	return func(s *Selectable) {
		s.DependsOn = slices.Clone(objects)
	}
}

func WithDependents(objects ...string) SelectableOption {
	return func(s *Selectable) {
		s.Dependents = slices.Clone(objects)
	}
}

func NewSelectable(
	schema, name string, kind RelationKind, columns []*Column, opts ...SelectableOption,
) (*Selectable, error) {
	if kind == "" {
		kind = RelationKindUnknown
	}
	s := &Selectable{
		Schema:  schema,
		Name:    name,
		Kind:    kind,
		Columns: slices.Clone(columns),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate - checks the identity of the relation and its columns. It must be called for the values
// that were decoded instead of built by NewSelectable.
func (s *Selectable) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("empty relation name: %w", ErrMalformedInput)
	}
	switch s.Kind {
	case RelationKindTable, RelationKindView, RelationKindMaterializedView, RelationKindUnknown:
	case "":
		s.Kind = RelationKindUnknown
	default:
		return fmt.Errorf("relation %s: unknown kind %s: %w", s.UnquotedFullName(), s.Kind, ErrMalformedInput)
	}
	idx := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if c == nil {
			return fmt.Errorf("relation %s: nil column at %d: %w", s.UnquotedFullName(), i, ErrMalformedInput)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("relation %s: %w", s.UnquotedFullName(), err)
		}
		if _, ok := idx[c.Name]; ok {
			return fmt.Errorf(
				"relation %s: duplicate column %s: %w", s.UnquotedFullName(), c.Name, ErrMalformedInput,
			)
		}
		idx[c.Name] = i
	}
	s.columnIdx = idx
	return nil
}

// Column - finds column by name
func (s *Selectable) Column(name string) (*Column, bool) {
	if s.columnIdx == nil {
		idx := slices.IndexFunc(s.Columns, func(c *Column) bool {
			return c.Name == name
		})
		if idx == -1 {
			return nil, false
		}
		return s.Columns[idx], true
	}
	i, ok := s.columnIdx[name]
	if !ok {
		return nil, false
	}
	return s.Columns[i], true
}

func (s *Selectable) ColumnNames() []string {
	res := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		res = append(res, c.Name)
	}
	return res
}

// Equal - structural equality. Dependencies and comment describe the position in the graph and are ignored.
func (s *Selectable) Equal(other *Selectable) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Kind == other.Kind &&
		s.Name == other.Name &&
		s.Schema == other.Schema &&
		slices.EqualFunc(s.Columns, other.Columns, func(a, b *Column) bool {
			return a.Equal(b)
		}) &&
		equalOptional(s.Definition, other.Definition) &&
		equalOptional(s.ParentTable, other.ParentTable) &&
		equalOptional(s.PartitionDef, other.PartitionDef) &&
		equalOptional(s.PartitionKey, other.PartitionKey) &&
		s.RowSecurity == other.RowSecurity &&
		s.ForceRowSecurity == other.ForceRowSecurity
}

func (s *Selectable) IsPartition() bool {
	return s.ParentTable != nil
}

// IsPartitioned - the table is a partitioned table, the parent of the partitions
func (s *Selectable) IsPartitioned() bool {
	return s.PartitionKey != nil && *s.PartitionKey != ""
}

func (s *Selectable) QuotedName() string {
	return QuoteIdent(s.Name)
}

func (s *Selectable) QuotedSchema() string {
	return QuoteIdent(s.Schema)
}

func (s *Selectable) QuotedFullName() string {
	return QuoteQualifiedIdent(s.Schema, s.Name)
}

func (s *Selectable) UnquotedFullName() string {
	if s.Schema == "" {
		return s.Name
	}
	return fmt.Sprintf("%s.%s", s.Schema, s.Name)
}

// Signature - identity of the relation in the schema. Used as a key in the dependency lists
func (s *Selectable) Signature() string {
	return s.QuotedFullName()
}
