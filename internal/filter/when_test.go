package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

func testRelation(t *testing.T, schema, name string, kind toolkit.RelationKind, opts ...toolkit.SelectableOption) *toolkit.Selectable {
	t.Helper()
	id, err := toolkit.NewColumn("id", "int4")
	require.NoError(t, err)
	email, err := toolkit.NewColumn("email", "text")
	require.NoError(t, err)
	s, err := toolkit.NewSelectable(schema, name, kind, []*toolkit.Column{id, email}, opts...)
	require.NoError(t, err)
	return s
}

func TestWhen_Evaluate(t *testing.T) {
	users := testRelation(t, "public", "users", toolkit.RelationKindTable, toolkit.WithRowSecurity(true, false))
	view := testRelation(t, "public", "active_users", toolkit.RelationKindView)
	part := testRelation(t, "billing", "invoices_1", toolkit.RelationKindTable,
		toolkit.WithParentTable(`"billing"."invoices"`),
	)

	tests := []struct {
		name     string
		when     string
		expected []bool
	}{
		{name: "empty", when: "", expected: []bool{true, true, true}},
		{name: "schema", when: `schema == "public"`, expected: []bool{true, true, false}},
		{name: "kind", when: `kind == "table"`, expected: []bool{true, false, true}},
		{name: "name prefix", when: `name startsWith "active"`, expected: []bool{false, true, false}},
		{name: "row security", when: `row_security`, expected: []bool{true, false, false}},
		{name: "partition", when: `not is_partition`, expected: []bool{true, true, false}},
		{name: "columns", when: `"email" in columns and len(columns) == 2`, expected: []bool{true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWhen(tt.when)
			require.NoError(t, err)
			assert.Equal(t, tt.when == "", w.IsEmpty())
			assert.Equal(t, tt.when, w.String())
			for i, r := range []*toolkit.Selectable{users, view, part} {
				res, err := w.Evaluate(r)
				require.NoError(t, err)
				assert.Equalf(t, tt.expected[i], res, "relation %s", r.QuotedFullName())
			}
		})
	}
}

func TestNewWhen_Errors(t *testing.T) {
	t.Run("syntax", func(t *testing.T) {
		_, err := NewWhen(`schema ==`)
		require.Error(t, err)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := NewWhen(`owner == "postgres"`)
		require.Error(t, err)
	})

	t.Run("not a boolean", func(t *testing.T) {
		_, err := NewWhen(`name`)
		require.Error(t, err)
	})
}
