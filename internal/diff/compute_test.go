package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

func column(t *testing.T, name, dbType string, opts ...toolkit.ColumnOption) *toolkit.Column {
	t.Helper()
	c, err := toolkit.NewColumn(name, dbType, opts...)
	require.NoError(t, err)
	return c
}

func relation(
	t *testing.T, name string, kind toolkit.RelationKind, columns []*toolkit.Column, opts ...toolkit.SelectableOption,
) *toolkit.Selectable {
	t.Helper()
	s, err := toolkit.NewSelectable("public", name, kind, columns, opts...)
	require.NoError(t, err)
	return s
}

func enum(t *testing.T, name string, values ...string) *toolkit.EnumType {
	t.Helper()
	e, err := toolkit.NewEnumType("public", name, values...)
	require.NoError(t, err)
	return e
}

func newSnapshot(t *testing.T, enums []*toolkit.EnumType, relations ...*toolkit.Selectable) *snapshot.Snapshot {
	t.Helper()
	s, err := snapshot.New("testdb", "17.0", enums, relations)
	require.NoError(t, err)
	return s
}

func idColumn(t *testing.T) *toolkit.Column {
	return column(t, "id", "int4", toolkit.WithDBTypeStr("integer"), toolkit.WithNotNull(true))
}

func TestCompute_EqualSchemas(t *testing.T) {
	users := relation(t, "users", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)})
	from := newSnapshot(t, nil, users)
	to := newSnapshot(t, nil, users)

	p, err := Compute(from, to, nil)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
	assert.Equal(t, from.Fingerprint, p.FromFingerprint)
	assert.Equal(t, to.Fingerprint, p.ToFingerprint)
	assert.NoError(t, p.CheckSafe())
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(nil, newSnapshot(t, nil), nil)
	require.ErrorIs(t, err, toolkit.ErrInvalidOperation)
}

func TestCompute_Ordering(t *testing.T) {
	fromUsers := relation(t, "users", toolkit.RelationKindTable, []*toolkit.Column{
		idColumn(t),
		column(t, "email", "text"),
		column(t, "s", "status", toolkit.WithEnum("public", "status", "a", "b")),
		column(t, "o", "old", toolkit.WithEnum("public", "old", "x")),
	}, toolkit.WithDependents(`"public"."active_users"`))
	toUsers := relation(t, "users", toolkit.RelationKindTable, []*toolkit.Column{
		idColumn(t),
		column(t, "email", "text", toolkit.WithNotNull(true)),
		column(t, "s", "status", toolkit.WithEnum("public", "status", "a", "b", "c")),
		column(t, "o", "text"),
		column(t, "age", "int4", toolkit.WithDBTypeStr("integer")),
	}, toolkit.WithDependents(`"public"."active_users"`))

	activeUsers := relation(t, "active_users", toolkit.RelationKindView,
		[]*toolkit.Column{idColumn(t)},
		toolkit.WithDefinition(" SELECT users.id\n   FROM users;"),
		toolkit.WithDependsOn(`"public"."users"`),
		toolkit.WithDependents(`"public"."users_count"`),
	)
	usersCount := relation(t, "users_count", toolkit.RelationKindMaterializedView,
		[]*toolkit.Column{column(t, "cnt", "int8", toolkit.WithDBTypeStr("bigint"))},
		toolkit.WithDefinition(" SELECT count(*) AS cnt\n   FROM active_users;"),
		toolkit.WithDependsOn(`"public"."active_users"`),
	)
	other := relation(t, "other", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
		toolkit.WithDependents(`"public"."other_view"`),
	)
	otherView := relation(t, "other_view", toolkit.RelationKindView, []*toolkit.Column{idColumn(t)},
		toolkit.WithDefinition(" SELECT other.id\n   FROM other;"),
		toolkit.WithDependsOn(`"public"."other"`),
	)
	legacy := relation(t, "legacy", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)})
	accounts := relation(t, "accounts", toolkit.RelationKindTable, []*toolkit.Column{
		idColumn(t),
		column(t, "mood", "mood", toolkit.WithEnum("public", "mood", "happy"), toolkit.WithDefault("'happy'::mood")),
	}, toolkit.WithRowSecurity(true, true))

	from := newSnapshot(t,
		[]*toolkit.EnumType{enum(t, "status", "a", "b"), enum(t, "old", "x")},
		fromUsers, activeUsers, usersCount, other, otherView, legacy,
	)
	to := newSnapshot(t,
		[]*toolkit.EnumType{enum(t, "status", "a", "b", "c"), enum(t, "mood", "happy")},
		toUsers, activeUsers, usersCount, other, otherView, accounts,
	)

	p, err := Compute(from, to, nil)
	require.NoError(t, err)

	expected := []string{
		// 1. dependent views, dependents first
		`drop materialized view "public"."users_count";`,
		`drop view "public"."active_users";`,
		// 2. enum columns to varchar
		`alter table "public"."users" alter column "s" set data type varchar using "s"::varchar;`,
		`alter table "public"."users" alter column "o" set data type varchar using "o"::varchar;`,
		// 3. enum types
		`drop type "public"."old";`,
		`drop type "public"."status";`,
		`create type "public"."mood" as enum ('happy');`,
		`create type "public"."status" as enum ('a', 'b', 'c');`,
		// 4. varchar back to enum
		`alter table "public"."users" alter column "s" set data type status using "s"::status;`,
		// 5. tables
		`drop table "public"."legacy";`,
		"create table \"public\".\"accounts\" (\n    \"id\" integer not null,\n    \"mood\" mood default 'happy'::mood\n);",
		`alter table "public"."accounts" enable row level security;`,
		`alter table "public"."accounts" force row level security;`,
		// 6. kept tables
		`alter table "public"."users" add column "age" integer;`,
		`alter table "public"."users" alter column "email" set not null;`,
		`alter table "public"."users" alter column "o" set data type text using "o"::text;`,
		// 7. views, dependencies first
		"create view \"public\".\"active_users\" as\nSELECT users.id\n   FROM users;",
		"create materialized view \"public\".\"users_count\" as\nSELECT count(*) AS cnt\n   FROM active_users;",
	}
	assert.Equal(t, expected, p.Statements())

	destructive := p.DestructiveSteps()
	require.Len(t, destructive, 2)
	assert.Equal(t, `"public"."old"`, destructive[0].ObjectPath)
	assert.Equal(t, ObjectTypeEnum, destructive[0].ObjectType)
	assert.Equal(t, `"public"."legacy"`, destructive[1].ObjectPath)

	err = p.CheckSafe()
	require.ErrorIs(t, err, ErrUnsafePlan)
	assert.Contains(t, err.Error(), `drop table "public"."legacy"`)

	_, err = Compute(from, to, &Options{Safe: true})
	require.ErrorIs(t, err, ErrUnsafePlan)
}

func TestCompute_EnumDefaults(t *testing.T) {
	from := newSnapshot(t, []*toolkit.EnumType{enum(t, "status", "a", "b")},
		relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{
			idColumn(t),
			column(t, "s", "status", toolkit.WithEnum("public", "status", "a", "b"), toolkit.WithDefault("'a'::status")),
			column(t, "k", "status", toolkit.WithEnum("public", "status", "a", "b"), toolkit.WithDefault("'a'::status")),
			column(t, "n", "status", toolkit.WithEnum("public", "status", "a", "b")),
		}),
	)
	to := newSnapshot(t, []*toolkit.EnumType{enum(t, "status", "a", "b", "c")},
		relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{
			idColumn(t),
			column(t, "s", "status", toolkit.WithEnum("public", "status", "a", "b", "c"),
				toolkit.WithDefault("'b'::status"),
			),
			column(t, "k", "text", toolkit.WithDefault("'a'::text")),
			column(t, "n", "status", toolkit.WithEnum("public", "status", "a", "b", "c")),
		}),
	)

	p, err := Compute(from, to, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`alter table "public"."t" alter column "s" drop default;`,
		`alter table "public"."t" alter column "s" set data type varchar using "s"::varchar;`,
		`alter table "public"."t" alter column "k" drop default;`,
		`alter table "public"."t" alter column "k" set data type varchar using "k"::varchar;`,
		`alter table "public"."t" alter column "n" set data type varchar using "n"::varchar;`,
		`drop type "public"."status";`,
		`create type "public"."status" as enum ('a', 'b', 'c');`,
		`alter table "public"."t" alter column "s" set data type status using "s"::status;`,
		`alter table "public"."t" alter column "s" set default 'b'::status;`,
		`alter table "public"."t" alter column "n" set data type status using "n"::status;`,
		`alter table "public"."t" alter column "k" set data type text using "k"::text;`,
		`alter table "public"."t" alter column "k" set default 'a'::text;`,
	}, p.Statements())
	assert.Empty(t, p.DestructiveSteps())
}

func TestCompute_Events(t *testing.T) {
	from := newSnapshot(t, nil,
		relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)}),
		relation(t, "v", toolkit.RelationKindView, []*toolkit.Column{idColumn(t)},
			toolkit.WithDefinition("SELECT 1 AS id"),
		),
	)
	to := newSnapshot(t, nil,
		relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t), column(t, "name", "text")}),
		relation(t, "v", toolkit.RelationKindView, []*toolkit.Column{idColumn(t)},
			toolkit.WithDefinition("SELECT 2 AS id"),
		),
	)

	p, err := Compute(from, to, nil)
	require.NoError(t, err)
	require.Len(t, p.Events, 2)
	assert.Equal(t, toolkit.ColumnCreatedDiffEvent, p.Events[0].Event)
	assert.Equal(t, "name", p.Events[0].Signature["ColumnName"])
	assert.Equal(t, toolkit.DefinitionChangedDiffEvent, p.Events[1].Event)
	assert.Equal(t, "v", p.Events[1].Signature["RelationName"])

	p, err = Compute(from, from, nil)
	require.NoError(t, err)
	assert.Empty(t, p.Events)
}

func TestCompute_Views(t *testing.T) {
	table := relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)})

	t.Run("changed definition", func(t *testing.T) {
		v1 := relation(t, "v", toolkit.RelationKindView, nil, toolkit.WithDefinition("SELECT 1"))
		v2 := relation(t, "v", toolkit.RelationKindView, nil, toolkit.WithDefinition("SELECT 2;"))
		p, err := Compute(newSnapshot(t, nil, table, v1), newSnapshot(t, nil, table, v2), &Options{Safe: true})
		require.NoError(t, err)
		assert.Equal(t, []string{
			`drop view "public"."v";`,
			"create view \"public\".\"v\" as\nSELECT 2;",
		}, p.Statements())
		assert.False(t, p.Steps[0].Destructive)
	})

	t.Run("removed view", func(t *testing.T) {
		v := relation(t, "v", toolkit.RelationKindView, nil, toolkit.WithDefinition("SELECT 1"))
		p, err := Compute(newSnapshot(t, nil, table, v), newSnapshot(t, nil, table), nil)
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, `drop view "public"."v";`, p.Steps[0].SQL)
		assert.True(t, p.Steps[0].Destructive)
	})

	t.Run("added column does not recreate views", func(t *testing.T) {
		withDeps := relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
			toolkit.WithDependents(`"public"."v"`),
		)
		added := relation(t, "t", toolkit.RelationKindTable,
			[]*toolkit.Column{idColumn(t), column(t, "name", "text")},
			toolkit.WithDependents(`"public"."v"`),
		)
		v := relation(t, "v", toolkit.RelationKindView, nil,
			toolkit.WithDefinition("SELECT id FROM t"), toolkit.WithDependsOn(`"public"."t"`),
		)
		p, err := Compute(newSnapshot(t, nil, withDeps, v), newSnapshot(t, nil, added, v), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{`alter table "public"."t" add column "name" text;`}, p.Statements())
	})

	t.Run("view without definition", func(t *testing.T) {
		v := relation(t, "v", toolkit.RelationKindView, nil)
		_, err := Compute(newSnapshot(t, nil, table), newSnapshot(t, nil, table, v), nil)
		require.ErrorIs(t, err, toolkit.ErrMalformedInput)
	})

	t.Run("table replaced by view", func(t *testing.T) {
		v := relation(t, "t", toolkit.RelationKindView, nil, toolkit.WithDefinition("SELECT 1"))
		p, err := Compute(newSnapshot(t, nil, table), newSnapshot(t, nil, v), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			`drop table "public"."t";`,
			"create view \"public\".\"t\" as\nSELECT 1;",
		}, p.Statements())
	})
}

func TestCompute_Partitions(t *testing.T) {
	parent := relation(t, "events", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
		toolkit.WithPartitionKey("RANGE (id)"),
	)
	part := func(bound string) *toolkit.Selectable {
		return relation(t, "events_1", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
			toolkit.WithParentTable(`"public"."events"`), toolkit.WithPartitionDef(bound),
		)
	}

	t.Run("created parent first", func(t *testing.T) {
		p, err := Compute(newSnapshot(t, nil), newSnapshot(t, nil, parent, part("FOR VALUES FROM (1) TO (10)")), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"create table \"public\".\"events\" (\n    \"id\" integer not null\n) partition by RANGE (id);",
			`create table "public"."events_1" partition of "public"."events" FOR VALUES FROM (1) TO (10);`,
		}, p.Statements())
	})

	t.Run("sub-partition keeps its key", func(t *testing.T) {
		sub := relation(t, "events_1", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
			toolkit.WithParentTable(`"public"."events"`), toolkit.WithPartitionDef("FOR VALUES FROM (1) TO (10)"),
			toolkit.WithPartitionKey("HASH (id)"),
		)
		leaf := relation(t, "events_1_0", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
			toolkit.WithParentTable(`"public"."events_1"`),
			toolkit.WithPartitionDef("FOR VALUES WITH (modulus 2, remainder 0)"),
		)
		p, err := Compute(newSnapshot(t, nil), newSnapshot(t, nil, leaf, sub, parent), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"create table \"public\".\"events\" (\n    \"id\" integer not null\n) partition by RANGE (id);",
			`create table "public"."events_1" partition of "public"."events" FOR VALUES FROM (1) TO (10) ` +
				`partition by HASH (id);`,
			`create table "public"."events_1_0" partition of "public"."events_1" ` +
				`FOR VALUES WITH (modulus 2, remainder 0);`,
		}, p.Statements())
	})

	t.Run("partition key changed", func(t *testing.T) {
		hashParent := relation(t, "events", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
			toolkit.WithPartitionKey("HASH (id)"),
		)
		hashPart := relation(t, "events_1", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)},
			toolkit.WithParentTable(`"public"."events"`),
			toolkit.WithPartitionDef("FOR VALUES WITH (modulus 1, remainder 0)"),
		)
		p, err := Compute(
			newSnapshot(t, nil, parent, part("FOR VALUES FROM (1) TO (10)")),
			newSnapshot(t, nil, hashParent, hashPart),
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, []string{
			`drop table "public"."events_1";`,
			`drop table "public"."events";`,
			"create table \"public\".\"events\" (\n    \"id\" integer not null\n) partition by HASH (id);",
			`create table "public"."events_1" partition of "public"."events" FOR VALUES WITH (modulus 1, remainder 0);`,
		}, p.Statements())
		assert.Len(t, p.DestructiveSteps(), 2)

		require.NotEmpty(t, p.Events)
		assert.Equal(t, toolkit.PartitionKeyChangedDiffEvent, p.Events[0].Event)
	})

	t.Run("regular table becomes partitioned", func(t *testing.T) {
		plain := relation(t, "events", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)})
		p, err := Compute(newSnapshot(t, nil, plain), newSnapshot(t, nil, parent), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			`drop table "public"."events";`,
			"create table \"public\".\"events\" (\n    \"id\" integer not null\n) partition by RANGE (id);",
		}, p.Statements())
	})

	t.Run("dropped partition first", func(t *testing.T) {
		p, err := Compute(newSnapshot(t, nil, parent, part("FOR VALUES FROM (1) TO (10)")), newSnapshot(t, nil), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			`drop table "public"."events_1";`,
			`drop table "public"."events";`,
		}, p.Statements())
	})

	t.Run("bound changed", func(t *testing.T) {
		p, err := Compute(
			newSnapshot(t, nil, parent, part("FOR VALUES FROM (1) TO (10)")),
			newSnapshot(t, nil, parent, part("FOR VALUES FROM (1) TO (20)")),
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, []string{
			`alter table "public"."events" detach partition "public"."events_1";`,
			`alter table "public"."events" attach partition "public"."events_1" FOR VALUES FROM (1) TO (20);`,
		}, p.Statements())
	})

	t.Run("inherited columns are altered through the parent", func(t *testing.T) {
		newParent := relation(t, "events", toolkit.RelationKindTable,
			[]*toolkit.Column{idColumn(t), column(t, "name", "text")},
			toolkit.WithPartitionKey("RANGE (id)"),
		)
		newPart := relation(t, "events_1", toolkit.RelationKindTable,
			[]*toolkit.Column{idColumn(t), column(t, "name", "text")},
			toolkit.WithParentTable(`"public"."events"`), toolkit.WithPartitionDef("FOR VALUES FROM (1) TO (10)"),
		)
		p, err := Compute(
			newSnapshot(t, nil, parent, part("FOR VALUES FROM (1) TO (10)")),
			newSnapshot(t, nil, newParent, newPart),
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, []string{`alter table "public"."events" add column "name" text;`}, p.Statements())
	})
}

func TestCompute_DropColumnIsDestructive(t *testing.T) {
	from := newSnapshot(t, nil, relation(t, "t", toolkit.RelationKindTable,
		[]*toolkit.Column{idColumn(t), column(t, "name", "text")},
	))
	to := newSnapshot(t, nil, relation(t, "t", toolkit.RelationKindTable, []*toolkit.Column{idColumn(t)}))

	p, err := Compute(from, to, nil)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, &Step{
		SQL:         `alter table "public"."t" drop column "name";`,
		ObjectType:  ObjectTypeColumn,
		Operation:   OperationDrop,
		ObjectPath:  `"public"."t"."name"`,
		Destructive: true,
	}, p.Steps[0])

	_, err = Compute(from, to, &Options{Safe: true})
	require.ErrorIs(t, err, ErrUnsafePlan)
}
