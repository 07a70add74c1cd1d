package list_snapshots

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
)

func TestSizePretty(t *testing.T) {
	assert.Equal(t, "512 B", SizePretty(512))
	assert.Equal(t, "1.0 KiB", SizePretty(1024))
	assert.Equal(t, "1.5 MiB", SizePretty(1024*1024*3/2))
}

func TestRenderList(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	renderList(buf, []*snapshot.Metadata{
		{
			ID:             "1700000000500",
			CreatedAt:      time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
			Database:       "app",
			RelationsCount: 12,
			EnumsCount:     2,
			CompressedSize: 2048,
			Fingerprint:    "0123456789abcdef0123456789abcdef",
		},
	})
	res := buf.String()
	assert.Contains(t, res, "FINGERPRINT")
	assert.Contains(t, res, "1700000000500")
	assert.Contains(t, res, "2023-11-14T22:13:20Z")
	assert.Contains(t, res, "2.0 KiB")
	assert.Contains(t, res, "0123456789abcdef0123456789abcdef")
}
