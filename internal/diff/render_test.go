package diff

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

func testPlan() *Plan {
	return &Plan{
		FromID:          "1700000000000",
		ToID:            "1700000000500",
		FromFingerprint: "aaaa",
		ToFingerprint:   "bbbb",
		Steps: []*Step{
			{
				SQL:         `drop table "public"."legacy";`,
				ObjectType:  ObjectTypeTable,
				Operation:   OperationDrop,
				ObjectPath:  `"public"."legacy"`,
				Destructive: true,
			},
			{
				SQL:        `alter table "public"."users" add column "age" integer;`,
				ObjectType: ObjectTypeTable,
				Operation:  OperationAlter,
				ObjectPath: `"public"."users"`,
			},
		},
	}
}

func testPlanWithEvents() *Plan {
	p := testPlan()
	p.Events = []*toolkit.DiffNode{
		{
			Event: toolkit.ColumnCreatedDiffEvent,
			Signature: map[string]string{
				"SchemaName":   "public",
				"RelationName": "users",
				"RelationKind": "table",
				"ColumnName":   "age",
				"ColumnType":   "integer",
			},
		},
	}
	return p
}

func render(t *testing.T, cfg *domains.Diff, p *Plan) string {
	t.Helper()
	r, err := NewRenderer(cfg)
	require.NoError(t, err)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, r.Render(buf, p))
	return buf.String()
}

func TestSqlRenderer(t *testing.T) {
	res := render(t, &domains.Diff{Format: domains.DiffFormatSql}, testPlan())
	expected := "-- from: 1700000000000 (aaaa)\n" +
		"-- to: 1700000000500 (bbbb)\n" +
		"\n" +
		"drop table \"public\".\"legacy\";\n" +
		"\n" +
		"alter table \"public\".\"users\" add column \"age\" integer;\n"
	assert.Equal(t, expected, res)

	t.Run("without header", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, (&SqlRenderer{}).Render(buf, &Plan{}))
		assert.Empty(t, buf.String())
	})

	t.Run("database side", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, (&SqlRenderer{Header: true}).Render(buf, &Plan{FromFingerprint: "aaaa", ToID: "1", ToFingerprint: "bbbb"}))
		assert.Equal(t, "-- from: aaaa\n-- to: 1 (bbbb)\n\n", buf.String())
	})
}

func TestJsonRenderer(t *testing.T) {
	res := render(t, &domains.Diff{Format: domains.DiffFormatJson}, testPlan())
	var decoded Plan
	require.NoError(t, json.Unmarshal([]byte(res), &decoded))
	assert.Equal(t, testPlan(), &decoded)

	t.Run("empty plan has empty steps", func(t *testing.T) {
		res := render(t, &domains.Diff{Format: domains.DiffFormatJson}, &Plan{})
		assert.Contains(t, res, `"steps": []`)
		assert.NotContains(t, res, `"events"`)
	})

	t.Run("events", func(t *testing.T) {
		res := render(t, &domains.Diff{Format: domains.DiffFormatJson}, testPlanWithEvents())
		var decoded Plan
		require.NoError(t, json.Unmarshal([]byte(res), &decoded))
		assert.Equal(t, testPlanWithEvents().Events, decoded.Events)
	})
}

func TestTableRenderer(t *testing.T) {
	res := render(t, &domains.Diff{Format: domains.DiffFormatTable, WrapWidth: 20}, testPlan())
	assert.Contains(t, res, "OPERATION")
	assert.Contains(t, res, `"public"."legacy"`)
	assert.Contains(t, res, "yes")
	for _, line := range strings.Split(res, "\n") {
		assert.NotContains(t, line, `add column "age" integer;`, "long statements must be wrapped")
	}
	assert.NotContains(t, res, "DETAILS")

	t.Run("events", func(t *testing.T) {
		res := render(t, &domains.Diff{Format: domains.DiffFormatTable}, testPlanWithEvents())
		assert.Contains(t, res, "DETAILS")
		assert.Contains(t, res, "Column created")
		assert.Contains(t, res, `"public"."users"`)
		assert.Contains(t, res, "ColumnName=age ColumnType=integer")
	})
}

func TestTemplateRenderer(t *testing.T) {
	tmpl := `{{ range .Steps }}{{ .Operation | toString | upper }} {{ .ObjectPath }}
{{ end }}{{ quoteIdent "we\"ird" }} {{ quoteLiteral "it's" }}`
	res := render(t, &domains.Diff{Format: domains.DiffFormatTemplate, Template: tmpl}, testPlan())
	assert.Equal(t, "DROP \"public\".\"legacy\"\nALTER \"public\".\"users\"\n\"we\"\"ird\" 'it''s'", res)

	t.Run("invalid template", func(t *testing.T) {
		_, err := NewRenderer(&domains.Diff{Format: domains.DiffFormatTemplate, Template: "{{ .Steps"})
		require.Error(t, err)
	})

	t.Run("execution error", func(t *testing.T) {
		r, err := NewTemplateRenderer("{{ .Unknown }}")
		require.NoError(t, err)
		require.Error(t, r.Render(io.Discard, testPlan()))
	})
}

func TestNewRenderer_Validation(t *testing.T) {
	_, err := NewRenderer(&domains.Diff{Format: "yaml"})
	require.Error(t, err)
	_, err = NewRenderer(&domains.Diff{Format: domains.DiffFormatTemplate})
	require.Error(t, err)
}

func TestNewOutput(t *testing.T) {
	dir := t.TempDir()

	t.Run("plain", func(t *testing.T) {
		p := filepath.Join(dir, "plan.sql")
		w, err := NewOutput(p, false)
		require.NoError(t, err)
		_, err = w.Write([]byte("select 1;"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "select 1;", string(data))
	})

	t.Run("gzip", func(t *testing.T) {
		p := filepath.Join(dir, "plan.sql.gz")
		w, err := NewOutput(p, true)
		require.NoError(t, err)
		_, err = w.Write([]byte("select 1;"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		f, err := os.Open(p)
		require.NoError(t, err)
		defer f.Close() // nolint: errcheck
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		data, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Equal(t, "select 1;", string(data))
	})

	t.Run("stdout", func(t *testing.T) {
		w, err := NewOutput("", false)
		require.NoError(t, err)
		assert.NoError(t, w.Close())
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewOutput(filepath.Join(dir, "missing", "plan.sql"), false)
		require.Error(t, err)
	})
}
