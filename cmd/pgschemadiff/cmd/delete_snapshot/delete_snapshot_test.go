package delete_snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

func TestDeleteSnapshot(t *testing.T) {
	ctx := context.Background()
	Config.Storage.Type = builder.DirectoryStorageType
	Config.Storage.Directory.Path = t.TempDir()

	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	require.NoError(t, err)
	store := snapshot.NewStore(st, false)

	users, err := toolkit.NewSelectable("public", "users", toolkit.RelationKindTable, nil)
	require.NoError(t, err)
	snap, err := snapshot.New("app", "17.0", nil, []*toolkit.Selectable{users})
	require.NoError(t, err)
	_, err = store.Save(ctx, snap)
	require.NoError(t, err)

	id, err := deleteSnapshot(snapshot.LatestID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, id)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = deleteSnapshot(snap.ID)
	require.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)

	_, err = deleteSnapshot("abc")
	require.Error(t, err)
}
