package show_snapshot

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

func TestShowSnapshot(t *testing.T) {
	ctx := context.Background()
	Config.Storage.Type = builder.DirectoryStorageType
	Config.Storage.Directory.Path = t.TempDir()

	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	require.NoError(t, err)

	id, err := toolkit.NewColumn("id", "int4", toolkit.WithDBTypeStr("integer"))
	require.NoError(t, err)
	users, err := toolkit.NewSelectable("public", "users", toolkit.RelationKindTable, []*toolkit.Column{id})
	require.NoError(t, err)
	snap, err := snapshot.New("app", "17.0", nil, []*toolkit.Selectable{users})
	require.NoError(t, err)
	_, err = snapshot.NewStore(st, false).Save(ctx, snap)
	require.NoError(t, err)

	reset := func() {
		format, path, output = snapshot.FormatText, "", ""
	}

	t.Run("text", func(t *testing.T) {
		reset()
		buf := bytes.NewBuffer(nil)
		require.NoError(t, showSnapshot(ctx, buf, snapshot.LatestID))
		assert.Contains(t, buf.String(), "users")
	})

	t.Run("path", func(t *testing.T) {
		reset()
		path = "relations.0.columns.#.name"
		buf := bytes.NewBuffer(nil)
		require.NoError(t, showSnapshot(ctx, buf, snap.ID))
		assert.Equal(t, "[\"id\"]\n", buf.String())
	})

	t.Run("output file", func(t *testing.T) {
		for _, name := range []string{"schema.json", "schema.yaml.gz"} {
			reset()
			output = filepath.Join(t.TempDir(), name)
			buf := bytes.NewBuffer(nil)
			require.NoError(t, showSnapshot(ctx, buf, snap.ID))
			assert.Empty(t, buf.String())

			exported, err := snapshot.LoadFile(output)
			require.NoError(t, err)
			assert.Equal(t, snap.Fingerprint, exported.Fingerprint)
			assert.Equal(t, []string{"id"}, exported.Relations[0].ColumnNames())
		}
	})

	t.Run("unsupported output extension", func(t *testing.T) {
		reset()
		output = filepath.Join(t.TempDir(), "schema.txt")
		require.Error(t, showSnapshot(ctx, bytes.NewBuffer(nil), snap.ID))
	})

	t.Run("invalid id", func(t *testing.T) {
		reset()
		require.Error(t, showSnapshot(ctx, bytes.NewBuffer(nil), "abc"))
	})
}
