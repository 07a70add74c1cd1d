package snapshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShow_Text(t *testing.T) {
	snap := testSnapshot(t)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, Show(buf, snap, FormatText, 0))
	res := buf.String()

	assert.Contains(t, res, "; Snapshot "+string(snap.ID)+" created at ")
	assert.Contains(t, res, ";     dbname: app\n")
	assert.Contains(t, res, ";     Schemas: billing, public\n")
	assert.Contains(t, res, "type public.status (active, blocked)\n")
	assert.Contains(t, res, "table public.users\n    id integer not null default nextval('users_id_seq'::regclass)\n")
	assert.Contains(t, res, "    status status\n")
	assert.Contains(t, res, "view public.active_users\n    id integer not null")
	assert.Contains(t, res, "WHERE (users.status = 'active'::status);")

	t.Run("wrapped definitions", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		require.NoError(t, Show(buf, snap, FormatText, 20))
		assert.NotContains(t, buf.String(), "WHERE (users.status = 'active'::status);")
	})
}

func TestShow_Encoded(t *testing.T) {
	snap := testSnapshot(t)
	for _, format := range []string{FormatYaml, FormatJson} {
		t.Run(format, func(t *testing.T) {
			buf := bytes.NewBuffer(nil)
			require.NoError(t, Show(buf, snap, format, 0))
			decoded, err := Decode(buf, format)
			require.NoError(t, err)
			assert.Equal(t, snap.Fingerprint, decoded.Fingerprint)
		})
	}

	require.Error(t, Show(bytes.NewBuffer(nil), snap, "xml", 0))
}

func TestQuery(t *testing.T) {
	snap := testSnapshot(t)

	res, err := Query(snap, `relations.#(name=="users").columns.#.name`)
	require.NoError(t, err)
	assert.Equal(t, `["id","status","bio"]`, res)

	res, err = Query(snap, "database")
	require.NoError(t, err)
	assert.Equal(t, `"app"`, res)

	_, err = Query(snap, "relations.#(name==\"missing\")")
	require.ErrorIs(t, err, errPathNotFound)
}
