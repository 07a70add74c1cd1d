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

package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

type Options struct {
	// Safe - refuse the plan when it contains destructive steps
	Safe bool
}

// Compute - builds the plan that migrates from to to. The steps are ordered:
//  1. drop views that were removed, changed or depend on the dropped or altered relations
//  2. convert enum columns of the dropped and changed enum types to varchar
//  3. drop removed and changed enum types, create added and changed enum types
//  4. convert the columns from the step 2 back to the enum types
//  5. drop removed tables, create added tables
//  6. alter kept tables
//  7. create views in the dependency order
func Compute(from, to *snapshot.Snapshot, opts *Options) (*Plan, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("both snapshots are required: %w", toolkit.ErrInvalidOperation)
	}
	if opts == nil {
		opts = &Options{}
	}
	p := &Plan{
		FromID:          string(from.ID),
		ToID:            string(to.ID),
		FromFingerprint: from.Fingerprint,
		ToFingerprint:   to.Fingerprint,
	}
	if from.Fingerprint != "" && from.Fingerprint == to.Fingerprint {
		log.Debug().
			Str("Fingerprint", from.Fingerprint).
			Msg("schemas have the same fingerprint: nothing to migrate")
		return p, nil
	}

	c, err := newComputer(from, to)
	if err != nil {
		return nil, err
	}
	if err = c.compute(p); err != nil {
		return nil, err
	}
	p.Events = c.events
	log.Debug().
		Int("StepsCount", len(p.Steps)).
		Int("DestructiveStepsCount", len(p.DestructiveSteps())).
		Msg("plan computed")

	if opts.Safe {
		if err = p.CheckSafe(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type computer struct {
	from     *snapshot.Snapshot
	to       *snapshot.Snapshot
	fromRels map[string]*toolkit.Selectable
	toRels   map[string]*toolkit.Selectable

	keptTables    []*toolkit.SelectableDiff
	droppedTables []*toolkit.Selectable
	addedTables   []*toolkit.Selectable

	droppedEnums []*toolkit.EnumType
	changedEnums []*toolkit.EnumType
	addedEnums   []*toolkit.EnumType
	// convertedEnums - quoted names of the enum types which columns are converted to varchar before
	// the type is dropped
	convertedEnums map[string]struct{}

	viewsToDrop   map[string]struct{}
	viewsToCreate map[string]struct{}

	// restoredDefaults - quoted paths of the converted columns which defaults are set by the enum post steps
	restoredDefaults map[string]struct{}
	events           []*toolkit.DiffNode
}

func relationsByName(rels []*toolkit.Selectable) map[string]*toolkit.Selectable {
	res := make(map[string]*toolkit.Selectable, len(rels))
	for _, r := range rels {
		res[r.QuotedFullName()] = r
	}
	return res
}

func newComputer(from, to *snapshot.Snapshot) (*computer, error) {
	c := &computer{
		from:           from,
		to:             to,
		fromRels:       relationsByName(from.Relations),
		toRels:         relationsByName(to.Relations),
		convertedEnums:   make(map[string]struct{}),
		viewsToDrop:      make(map[string]struct{}),
		viewsToCreate:    make(map[string]struct{}),
		restoredDefaults: make(map[string]struct{}),
	}
	c.classifyEnums()
	if err := c.classifyRelations(); err != nil {
		return nil, err
	}
	c.collectDependentViews()
	c.collectViewsToCreate()
	return c, nil
}

func (c *computer) classifyEnums() {
	for _, e := range c.from.Enums {
		other, ok := c.to.Enum(e.Schema, e.Name)
		switch {
		case !ok:
			c.droppedEnums = append(c.droppedEnums, e)
			c.convertedEnums[e.QuotedFullName()] = struct{}{}
		case !e.Equal(other):
			c.changedEnums = append(c.changedEnums, other)
			c.convertedEnums[e.QuotedFullName()] = struct{}{}
		}
	}
	for _, e := range c.to.Enums {
		if _, ok := c.from.Enum(e.Schema, e.Name); !ok {
			c.addedEnums = append(c.addedEnums, e)
		}
	}
}

func (c *computer) classifyRelations() error {
	var tableDiffs []*toolkit.SelectableDiff
	// recreated - tables which partitioning was changed. Their partitions are re-created as well
	recreated := make(map[string]struct{})
	for _, r := range c.from.Relations {
		other, ok := c.toRels[r.QuotedFullName()]
		switch {
		case r.Kind == toolkit.RelationKindTable:
			if !ok || other.Kind != toolkit.RelationKindTable {
				c.droppedTables = append(c.droppedTables, r)
				continue
			}
			d, err := toolkit.DiffSelectables(r, other)
			if err != nil {
				return err
			}
			c.events = append(c.events, d.Events...)
			if d.RequiresRecreation() {
				recreated[r.QuotedFullName()] = struct{}{}
			}
			tableDiffs = append(tableDiffs, d)
		case r.Kind.IsView():
			if !ok || other.Kind != r.Kind {
				c.viewsToDrop[r.QuotedFullName()] = struct{}{}
				continue
			}
			d, err := toolkit.DiffSelectables(r, other)
			if err != nil {
				return err
			}
			c.events = append(c.events, d.Events...)
			if d.RequiresRecreation() {
				c.viewsToDrop[r.QuotedFullName()] = struct{}{}
			}
		default:
			log.Warn().
				Str("TableSchema", r.Schema).
				Str("TableName", r.Name).
				Str("Kind", string(r.Kind)).
				Msg("unsupported relation kind: skipping")
		}
	}
	for changed := true; changed; {
		changed = false
		for _, d := range tableDiffs {
			if _, ok := recreated[d.From.QuotedFullName()]; !ok && underRecreated(d, recreated) {
				recreated[d.From.QuotedFullName()] = struct{}{}
				changed = true
			}
		}
	}
	for _, d := range tableDiffs {
		if _, ok := recreated[d.From.QuotedFullName()]; ok {
			log.Debug().
				Str("TableSchema", d.From.Schema).
				Str("TableName", d.From.Name).
				Msg("partitioning changed: table is re-created")
			c.droppedTables = append(c.droppedTables, d.From)
			c.addedTables = append(c.addedTables, d.To)
			continue
		}
		c.keptTables = append(c.keptTables, d)
	}
	for _, r := range c.to.Relations {
		if r.Kind != toolkit.RelationKindTable {
			continue
		}
		if other, ok := c.fromRels[r.QuotedFullName()]; !ok || other.Kind != toolkit.RelationKindTable {
			c.addedTables = append(c.addedTables, r)
		}
	}
	return nil
}

// underRecreated - the partition of the re-created table is dropped together with its parent
func underRecreated(d *toolkit.SelectableDiff, recreated map[string]struct{}) bool {
	for _, s := range []*toolkit.Selectable{d.From, d.To} {
		if !s.IsPartition() {
			continue
		}
		if _, ok := recreated[*s.ParentTable]; ok {
			return true
		}
	}
	return false
}

// collectDependentViews - views that depend directly or transitively on the dropped or altered relations
// must be dropped before the change and recreated after it
func (c *computer) collectDependentViews() {
	var queue []string
	for _, r := range c.droppedTables {
		queue = append(queue, r.QuotedFullName())
	}
	for _, d := range c.keptTables {
		if c.columnsChanged(d) {
			queue = append(queue, d.From.QuotedFullName())
		}
	}
	for name := range c.viewsToDrop {
		queue = append(queue, name)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		r, ok := c.fromRels[name]
		if !ok {
			continue
		}
		for _, dep := range r.Dependents {
			depRel, ok := c.fromRels[dep]
			if !ok || !depRel.Kind.IsView() {
				continue
			}
			if _, ok := c.viewsToDrop[dep]; ok {
				continue
			}
			c.viewsToDrop[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}
}

// columnsChanged - the table change affects the columns that might be used by the views
func (c *computer) columnsChanged(d *toolkit.SelectableDiff) bool {
	if len(d.Dropped) > 0 {
		return true
	}
	for _, p := range d.Altered {
		if len(toolkit.AlterClauses(p.From, p.To)) > 0 {
			return true
		}
	}
	return slices.ContainsFunc(d.From.Columns, c.isConverted)
}

func (c *computer) collectViewsToCreate() {
	for _, r := range c.to.Relations {
		if !r.Kind.IsView() {
			continue
		}
		name := r.QuotedFullName()
		_, dropped := c.viewsToDrop[name]
		other, existed := c.fromRels[name]
		if dropped || !existed || other.Kind != r.Kind {
			c.viewsToCreate[name] = struct{}{}
		}
	}
}

// isConverted - column is converted to varchar before its enum type is dropped
func (c *computer) isConverted(col *toolkit.Column) bool {
	if !col.IsEnum() {
		return false
	}
	_, ok := c.convertedEnums[toolkit.QuoteQualifiedIdent(col.Enum.Schema, col.Enum.Name)]
	return ok
}

// inheritsColumns - partition columns are inherited from the parent and are changed through the parent
func inheritsColumns(s *toolkit.Selectable, rels map[string]*toolkit.Selectable) bool {
	if !s.IsPartition() {
		return false
	}
	parent, ok := rels[*s.ParentTable]
	return ok && parent.Kind == toolkit.RelationKindTable
}

func (c *computer) compute(p *Plan) error {
	c.dropViews(p)
	c.enumPreSteps(p)
	c.enumTypes(p)
	c.enumPostSteps(p)
	c.dropTables(p)
	c.createTables(p)
	c.alterTables(p)
	return c.createViews(p)
}

func (c *computer) dropViews(p *Plan) {
	visited := make(map[string]struct{}, len(c.viewsToDrop))
	var visit func(name string)
	visit = func(name string) {
		if _, ok := visited[name]; ok {
			return
		}
		visited[name] = struct{}{}
		r := c.fromRels[name]
		for _, dep := range r.Dependents {
			if _, ok := c.viewsToDrop[dep]; ok {
				visit(dep)
			}
		}
		_, recreated := c.viewsToCreate[name]
		p.add(&Step{
			SQL:         fmt.Sprintf("drop %s %s;", viewKeyword(r.Kind), name),
			ObjectType:  viewObjectType(r.Kind),
			Operation:   OperationDrop,
			ObjectPath:  name,
			Destructive: !recreated,
		})
	}
	for _, r := range c.from.Relations {
		if _, ok := c.viewsToDrop[r.QuotedFullName()]; ok {
			visit(r.QuotedFullName())
		}
	}
}

// enumPreSteps - converts the enum columns of the dropped and changed types to varchar. The default that
// references the enum type is dropped before the conversion
func (c *computer) enumPreSteps(p *Plan) {
	tables := slices.Clone(c.droppedTables)
	for _, d := range c.keptTables {
		tables = append(tables, d.From)
	}
	for _, t := range tables {
		if inheritsColumns(t, c.fromRels) {
			continue
		}
		for _, col := range t.Columns {
			if !c.isConverted(col) {
				continue
			}
			stmt, err := col.EnumToStringStatement(t.QuotedFullName())
			if err != nil {
				continue
			}
			if col.Default != nil {
				p.add(&Step{
					SQL:        fmt.Sprintf("alter table %s %s;", t.QuotedFullName(), col.DropDefaultClause()),
					ObjectType: ObjectTypeColumn,
					Operation:  OperationAlter,
					ObjectPath: columnPath(t, col),
				})
			}
			p.add(&Step{
				SQL:        stmt,
				ObjectType: ObjectTypeColumn,
				Operation:  OperationAlter,
				ObjectPath: columnPath(t, col),
			})
		}
	}
}

func (c *computer) enumTypes(p *Plan) {
	for _, e := range c.droppedEnums {
		p.add(&Step{
			SQL:         e.DropStatement(),
			ObjectType:  ObjectTypeEnum,
			Operation:   OperationDrop,
			ObjectPath:  e.QuotedFullName(),
			Destructive: true,
		})
	}
	for _, e := range c.changedEnums {
		p.add(&Step{
			SQL:        e.DropStatement(),
			ObjectType: ObjectTypeEnum,
			Operation:  OperationDrop,
			ObjectPath: e.QuotedFullName(),
		})
	}
	created := append(slices.Clone(c.changedEnums), c.addedEnums...)
	slices.SortStableFunc(created, func(a, b *toolkit.EnumType) int {
		return strings.Compare(a.QuotedFullName(), b.QuotedFullName())
	})
	for _, e := range created {
		p.add(&Step{
			SQL:        e.CreateStatement(),
			ObjectType: ObjectTypeEnum,
			Operation:  OperationCreate,
			ObjectPath: e.QuotedFullName(),
		})
	}
}

// enumPostSteps - converts the varchar columns back when the column keeps its enum type and restores
// the default. The columns that change the type are converted by the table alteration
func (c *computer) enumPostSteps(p *Plan) {
	for _, d := range c.keptTables {
		if inheritsColumns(d.To, c.toRels) {
			continue
		}
		table := d.To.QuotedFullName()
		for _, pair := range d.EnumChanged {
			if !c.isConverted(pair.From) {
				continue
			}
			stmt, err := pair.To.StringToEnumStatement(table)
			if err != nil {
				continue
			}
			path := columnPath(d.To, pair.To)
			p.add(&Step{
				SQL:        stmt,
				ObjectType: ObjectTypeColumn,
				Operation:  OperationAlter,
				ObjectPath: path,
			})
			c.restoredDefaults[path] = struct{}{}
			if pair.To.Default != nil {
				p.add(&Step{
					SQL:        fmt.Sprintf("alter table %s %s;", table, pair.To.AlterDefaultClause()),
					ObjectType: ObjectTypeColumn,
					Operation:  OperationAlter,
					ObjectPath: path,
				})
			}
		}
	}
}

func (c *computer) dropTables(p *Plan) {
	// partitions are dropped before their parents
	tables := slices.Clone(c.droppedTables)
	slices.SortStableFunc(tables, func(a, b *toolkit.Selectable) int {
		return partitionDepth(b, c.fromRels) - partitionDepth(a, c.fromRels)
	})
	for _, t := range tables {
		p.add(&Step{
			SQL:         fmt.Sprintf("drop table %s;", t.QuotedFullName()),
			ObjectType:  ObjectTypeTable,
			Operation:   OperationDrop,
			ObjectPath:  t.QuotedFullName(),
			Destructive: true,
		})
	}
}

func (c *computer) createTables(p *Plan) {
	// parents are created before their partitions
	tables := slices.Clone(c.addedTables)
	slices.SortStableFunc(tables, func(a, b *toolkit.Selectable) int {
		return partitionDepth(a, c.toRels) - partitionDepth(b, c.toRels)
	})
	for _, t := range tables {
		name := t.QuotedFullName()
		p.add(&Step{
			SQL:        CreateTableStatement(t),
			ObjectType: ObjectTypeTable,
			Operation:  OperationCreate,
			ObjectPath: name,
		})
		if t.RowSecurity {
			p.add(&Step{
				SQL:        toolkit.RowSecurityStatement(name, true),
				ObjectType: ObjectTypeTable,
				Operation:  OperationAlter,
				ObjectPath: name,
			})
		}
		if t.ForceRowSecurity {
			p.add(&Step{
				SQL:        toolkit.ForceRowSecurityStatement(name, true),
				ObjectType: ObjectTypeTable,
				Operation:  OperationAlter,
				ObjectPath: name,
			})
		}
	}
}

func (c *computer) alterTables(p *Plan) {
	for _, d := range c.keptTables {
		if d.IsEmpty() {
			continue
		}
		if inheritsColumns(d.To, c.toRels) && inheritsColumns(d.From, c.fromRels) {
			partDiff := *d
			partDiff.Dropped, partDiff.Added, partDiff.Altered = nil, nil, nil
			d = &partDiff
		}
		var restore []*toolkit.Column
		d, restore = c.withoutConvertedDefaults(d)
		name := d.To.QuotedFullName()
		dropped := make(map[string]*toolkit.Column, len(d.Dropped))
		for _, col := range d.Dropped {
			dropped[fmt.Sprintf("alter table %s %s;", name, col.DropColumnClause())] = col
		}
		for _, stmt := range d.Statements() {
			step := &Step{
				SQL:        stmt,
				ObjectType: ObjectTypeTable,
				Operation:  OperationAlter,
				ObjectPath: name,
			}
			if col, ok := dropped[stmt]; ok {
				step.ObjectType = ObjectTypeColumn
				step.Operation = OperationDrop
				step.ObjectPath = columnPath(d.To, col)
				step.Destructive = true
			}
			p.add(step)
		}
		for _, col := range restore {
			p.add(&Step{
				SQL:        fmt.Sprintf("alter table %s %s;", name, col.AlterDefaultClause()),
				ObjectType: ObjectTypeColumn,
				Operation:  OperationAlter,
				ObjectPath: columnPath(d.To, col),
			})
		}
	}
}

// withoutConvertedDefaults - the default of the converted column was dropped by the enum pre steps. It is set
// after the type of the column was changed, so the column alteration must not touch the default. Returns the
// columns which defaults must be restored at the end
func (c *computer) withoutConvertedDefaults(d *toolkit.SelectableDiff) (*toolkit.SelectableDiff, []*toolkit.Column) {
	if !slices.ContainsFunc(d.Altered, func(pair *toolkit.ColumnPair) bool { return c.isConverted(pair.From) }) {
		return d, nil
	}
	var restore []*toolkit.Column
	res := *d
	res.Altered = make([]*toolkit.ColumnPair, 0, len(d.Altered))
	for _, pair := range d.Altered {
		if !c.isConverted(pair.From) {
			res.Altered = append(res.Altered, pair)
			continue
		}
		from := *pair.From
		from.Default = pair.To.Default
		res.Altered = append(res.Altered, &toolkit.ColumnPair{From: &from, To: pair.To})
		if _, ok := c.restoredDefaults[columnPath(d.To, pair.To)]; !ok && pair.To.Default != nil {
			restore = append(restore, pair.To)
		}
	}
	return &res, restore
}

func (c *computer) createViews(p *Plan) error {
	visited := make(map[string]struct{}, len(c.viewsToCreate))
	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := visited[name]; ok {
			return nil
		}
		visited[name] = struct{}{}
		r := c.toRels[name]
		for _, dep := range r.DependsOn {
			if _, ok := c.viewsToCreate[dep]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stmt, err := CreateViewStatement(r)
		if err != nil {
			return err
		}
		p.add(&Step{
			SQL:        stmt,
			ObjectType: viewObjectType(r.Kind),
			Operation:  OperationCreate,
			ObjectPath: name,
		})
		return nil
	}
	for _, r := range c.to.Relations {
		if _, ok := c.viewsToCreate[r.QuotedFullName()]; ok {
			if err := visit(r.QuotedFullName()); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateTableStatement - partitions are created as partitions of their parents and inherit the columns.
// The partitioned table is created with its partition key
func CreateTableStatement(t *toolkit.Selectable) string {
	var stmt string
	switch {
	case t.IsPartition():
		stmt = fmt.Sprintf("create table %s partition of %s", t.QuotedFullName(), *t.ParentTable)
		if t.PartitionDef != nil && *t.PartitionDef != "" {
			stmt += " " + *t.PartitionDef
		}
	case len(t.Columns) == 0:
		stmt = fmt.Sprintf("create table %s ()", t.QuotedFullName())
	default:
		columns := make([]string, 0, len(t.Columns))
		for _, col := range t.Columns {
			columns = append(columns, "    "+col.CreationClause()+col.CollationSubclause())
		}
		stmt = fmt.Sprintf("create table %s (\n%s\n)", t.QuotedFullName(), strings.Join(columns, ",\n"))
	}
	if t.IsPartitioned() {
		stmt += " partition by " + *t.PartitionKey
	}
	return stmt + ";"
}

func CreateViewStatement(v *toolkit.Selectable) (string, error) {
	if v.Definition == nil || strings.TrimSpace(*v.Definition) == "" {
		return "", fmt.Errorf("view %s has no definition: %w", v.UnquotedFullName(), toolkit.ErrMalformedInput)
	}
	def := strings.TrimSuffix(strings.TrimSpace(*v.Definition), ";")
	return fmt.Sprintf("create %s %s as\n%s;", viewKeyword(v.Kind), v.QuotedFullName(), def), nil
}

func viewKeyword(kind toolkit.RelationKind) string {
	if kind == toolkit.RelationKindMaterializedView {
		return "materialized view"
	}
	return "view"
}

func viewObjectType(kind toolkit.RelationKind) ObjectType {
	if kind == toolkit.RelationKindMaterializedView {
		return ObjectTypeMaterializedView
	}
	return ObjectTypeView
}

func columnPath(t *toolkit.Selectable, col *toolkit.Column) string {
	return t.QuotedFullName() + "." + col.QuotedName()
}

// partitionDepth - 0 for the regular and partitioned tables, the level of nesting for the partitions
func partitionDepth(t *toolkit.Selectable, rels map[string]*toolkit.Selectable) int {
	depth := 0
	for t.IsPartition() && depth < len(rels) {
		depth++
		parent, ok := rels[*t.ParentTable]
		if !ok {
			break
		}
		t = parent
	}
	return depth
}
