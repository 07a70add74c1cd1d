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
	"strconv"
	"strings"
)

const (
	ColumnCreatedDiffEvent       = "ColumnCreated"
	ColumnDroppedDiffEvent       = "ColumnDropped"
	ColumnAlteredDiffEvent       = "ColumnAltered"
	ColumnEnumChangedDiffEvent   = "ColumnEnumChanged"
	RowSecurityChangedDiffEvent  = "RowSecurityChanged"
	PartitionChangedDiffEvent    = "PartitionChanged"
	PartitionKeyChangedDiffEvent = "PartitionKeyChanged"
	DefinitionChangedDiffEvent   = "DefinitionChanged"
	ColumnsOrderChangedDiffEvent = "ColumnsOrderChanged"
)

var DiffEventMsgs = map[string]string{
	ColumnCreatedDiffEvent:       "Column created",
	ColumnDroppedDiffEvent:       "Column dropped",
	ColumnAlteredDiffEvent:       "Column altered",
	ColumnEnumChangedDiffEvent:   "Column enum type labels changed",
	RowSecurityChangedDiffEvent:  "Row level security changed",
	PartitionChangedDiffEvent:    "Partition parent or bound changed",
	PartitionKeyChangedDiffEvent: "Partition key changed",
	DefinitionChangedDiffEvent:   "Definition changed",
	ColumnsOrderChangedDiffEvent: "Columns order changed",
}

type DiffNode struct {
	Event     string            `json:"event,omitempty"`
	Signature map[string]string `json:"signature,omitempty"`
}

type ColumnPair struct {
	From *Column
	To   *Column
}

// SelectableDiff - difference between two states of the same relation
type SelectableDiff struct {
	From *Selectable
	To   *Selectable
	// Dropped - columns that exist only in From. Ordered as in From
	Dropped []*Column
	// Added - columns that exist only in To. Ordered as in To
	Added []*Column
	// Altered - columns that exist in both states and are not equal. Ordered as in To
	Altered []*ColumnPair
	// EnumChanged - enum columns of the same type which labels were changed
	EnumChanged []*ColumnPair
	Events      []*DiffNode
}

// DiffSelectables - aligns the columns of two states of the relation by name
func DiffSelectables(from, to *Selectable) (*SelectableDiff, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("both relation states are required: %w", ErrInvalidOperation)
	}
	if from.Schema != to.Schema || from.Name != to.Name {
		return nil, fmt.Errorf(
			"cannot diff different relations %s and %s: %w",
			from.UnquotedFullName(), to.UnquotedFullName(), ErrInvalidOperation,
		)
	}
	if from.Kind != to.Kind {
		return nil, fmt.Errorf(
			"cannot diff relation %s of kind %s with kind %s: %w",
			to.UnquotedFullName(), from.Kind, to.Kind, ErrInvalidOperation,
		)
	}

	d := &SelectableDiff{From: from, To: to}

	for _, fc := range from.Columns {
		if _, ok := to.Column(fc.Name); !ok {
			d.Dropped = append(d.Dropped, fc)
			d.addColumnEvent(ColumnDroppedDiffEvent, fc, nil)
		}
	}

	var keptFrom, keptTo []string
	for _, tc := range to.Columns {
		fc, ok := from.Column(tc.Name)
		if !ok {
			d.Added = append(d.Added, tc)
			d.addColumnEvent(ColumnCreatedDiffEvent, tc, nil)
			continue
		}
		keptTo = append(keptTo, tc.Name)
		if fc.Equal(tc) {
			continue
		}
		pair := &ColumnPair{From: fc, To: tc}
		d.Altered = append(d.Altered, pair)
		d.addColumnEvent(ColumnAlteredDiffEvent, tc, fc)
		if fc.IsEnum() && tc.IsEnum() && fc.DBTypeStr == tc.DBTypeStr && !equalEnumValues(fc.Enum, tc.Enum) {
			d.EnumChanged = append(d.EnumChanged, pair)
			d.addColumnEvent(ColumnEnumChangedDiffEvent, tc, fc)
		}
	}
	for _, fc := range from.Columns {
		if _, ok := to.Column(fc.Name); ok {
			keptFrom = append(keptFrom, fc.Name)
		}
	}
	if strings.Join(keptFrom, ",") != strings.Join(keptTo, ",") {
		d.Events = append(d.Events, &DiffNode{
			Event:     ColumnsOrderChangedDiffEvent,
			Signature: d.relationSignature(),
		})
	}

	if from.RowSecurity != to.RowSecurity || from.ForceRowSecurity != to.ForceRowSecurity {
		sig := d.relationSignature()
		sig["PreviousRowSecurity"] = strconv.FormatBool(from.RowSecurity)
		sig["CurrentRowSecurity"] = strconv.FormatBool(to.RowSecurity)
		sig["PreviousForceRowSecurity"] = strconv.FormatBool(from.ForceRowSecurity)
		sig["CurrentForceRowSecurity"] = strconv.FormatBool(to.ForceRowSecurity)
		d.Events = append(d.Events, &DiffNode{Event: RowSecurityChangedDiffEvent, Signature: sig})
	}

	if d.PartitionChanged() {
		sig := d.relationSignature()
		sig["PreviousParentTable"] = stringOrEmpty(from.ParentTable)
		sig["CurrentParentTable"] = stringOrEmpty(to.ParentTable)
		sig["PreviousPartitionDef"] = stringOrEmpty(from.PartitionDef)
		sig["CurrentPartitionDef"] = stringOrEmpty(to.PartitionDef)
		d.Events = append(d.Events, &DiffNode{Event: PartitionChangedDiffEvent, Signature: sig})
	}

	if d.PartitionKeyChanged() {
		sig := d.relationSignature()
		sig["PreviousPartitionKey"] = stringOrEmpty(from.PartitionKey)
		sig["CurrentPartitionKey"] = stringOrEmpty(to.PartitionKey)
		d.Events = append(d.Events, &DiffNode{Event: PartitionKeyChangedDiffEvent, Signature: sig})
	}

	if d.DefinitionChanged() {
		d.Events = append(d.Events, &DiffNode{Event: DefinitionChangedDiffEvent, Signature: d.relationSignature()})
	}

	return d, nil
}

func (d *SelectableDiff) IsEmpty() bool {
	return d.From.Equal(d.To)
}

func (d *SelectableDiff) PartitionChanged() bool {
	return !equalOptional(d.From.ParentTable, d.To.ParentTable) ||
		!equalOptional(d.From.PartitionDef, d.To.PartitionDef)
}

// PartitionKeyChanged - the partitioning of the table cannot be altered, the table is re-created
func (d *SelectableDiff) PartitionKeyChanged() bool {
	return !equalOptional(d.From.PartitionKey, d.To.PartitionKey)
}

func (d *SelectableDiff) DefinitionChanged() bool {
	return !equalOptional(d.From.Definition, d.To.Definition)
}

// RequiresRecreation - views cannot be altered column by column. Any change of a view requires drop and create.
// The table is re-created when its partition key was changed.
func (d *SelectableDiff) RequiresRecreation() bool {
	if d.To.Kind.IsView() {
		return !d.IsEmpty()
	}
	return d.PartitionKeyChanged()
}

// Statements - ALTER TABLE statements for the table. The partition is detached first and attached
// after the columns were changed. Views and re-created tables return nothing, see RequiresRecreation.
func (d *SelectableDiff) Statements() []string {
	if d.To.Kind != RelationKindTable || d.RequiresRecreation() {
		return nil
	}
	table := d.To.QuotedFullName()
	var res []string

	if d.PartitionChanged() && d.From.ParentTable != nil {
		res = append(res, fmt.Sprintf("alter table %s detach partition %s;", *d.From.ParentTable, table))
	}
	for _, c := range d.Dropped {
		res = append(res, fmt.Sprintf("alter table %s %s;", table, c.DropColumnClause()))
	}
	for _, c := range d.Added {
		res = append(res, fmt.Sprintf("alter table %s %s;", table, c.AddColumnClause()))
	}
	for _, p := range d.Altered {
		res = append(res, AlterStatements(p.From, p.To, table)...)
	}
	if d.From.RowSecurity != d.To.RowSecurity {
		res = append(res, RowSecurityStatement(table, d.To.RowSecurity))
	}
	if d.From.ForceRowSecurity != d.To.ForceRowSecurity {
		res = append(res, ForceRowSecurityStatement(table, d.To.ForceRowSecurity))
	}
	if d.PartitionChanged() && d.To.ParentTable != nil {
		res = append(res, AttachPartitionStatement(d.To))
	}
	return res
}

func RowSecurityStatement(table string, enabled bool) string {
	keyword := "disable"
	if enabled {
		keyword = "enable"
	}
	return fmt.Sprintf("alter table %s %s row level security;", table, keyword)
}

func ForceRowSecurityStatement(table string, forced bool) string {
	keyword := "no force"
	if forced {
		keyword = "force"
	}
	return fmt.Sprintf("alter table %s %s row level security;", table, keyword)
}

// AttachPartitionStatement - attaches the partition to its parent. The relation must have the parent table
func AttachPartitionStatement(s *Selectable) string {
	stmt := fmt.Sprintf("alter table %s attach partition %s", stringOrEmpty(s.ParentTable), s.QuotedFullName())
	if s.PartitionDef != nil && *s.PartitionDef != "" {
		stmt += " " + *s.PartitionDef
	}
	return stmt + ";"
}

func (d *SelectableDiff) relationSignature() map[string]string {
	return map[string]string{
		"SchemaName":   d.To.Schema,
		"RelationName": d.To.Name,
		"RelationKind": string(d.To.Kind),
	}
}

func (d *SelectableDiff) addColumnEvent(event string, current, previous *Column) {
	sig := d.relationSignature()
	sig["ColumnName"] = current.Name
	sig["ColumnType"] = current.DBTypeStr
	if previous != nil {
		sig["PreviousColumnType"] = previous.DBTypeStr
	}
	d.Events = append(d.Events, &DiffNode{Event: event, Signature: sig})
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
