package ioutils

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSnapshotData = `id: "1700000000000"
database: app
relations:
    - schema: public
      name: users
      kind: table
`

type writeCloserMock struct {
	data           []byte
	writeCallCount int
	writeCallFunc  func(callCount int) error
	closeCallCount int
	closeCallFunc  func(callCount int) error
}

func (w *writeCloserMock) Write(p []byte) (n int, err error) {
	w.writeCallCount++
	if w.writeCallFunc != nil {
		return 0, w.writeCallFunc(w.writeCallCount)
	}
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *writeCloserMock) Close() error {
	w.closeCallCount++
	if w.closeCallFunc != nil {
		return w.closeCallFunc(w.closeCallCount)
	}
	return nil
}

func TestNewGzipWriter_Write(t *testing.T) {
	testDataBuf := new(bytes.Buffer)
	gzData := gzip.NewWriter(testDataBuf)
	_, err := gzData.Write([]byte(testSnapshotData))
	require.NoError(t, err)
	err = gzData.Flush()
	require.NoError(t, err)
	err = gzData.Close()
	require.NoError(t, err)
	expectedData := testDataBuf.Bytes()

	objSrc := &writeCloserMock{}
	r := NewGzipWriter(objSrc, false)
	_, err = r.Write([]byte(testSnapshotData))
	require.NoError(t, err)
	err = r.Close()
	require.NoError(t, err)

	require.Equal(t, expectedData, objSrc.data)
}

func TestNewGzipWriter_Close(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		objSrc := &writeCloserMock{}
		r := NewGzipWriter(objSrc, false)
		err := r.Close()
		require.NoError(t, err)
		require.Equal(t, 1, objSrc.closeCallCount)
	})

	t.Run("Flush Error", func(t *testing.T) {
		objSrc := &writeCloserMock{
			writeCallFunc: func(c int) error {
				if c == 2 {
					return errors.New("storage object error")
				}
				return nil
			},
		}
		r := NewGzipWriter(objSrc, false)
		_, err := r.Write([]byte(testSnapshotData))
		require.NoError(t, err)

		err = r.Close()
		require.Error(t, err)
		require.ErrorContains(t, err, "error closing gzip writer")
		require.Equal(t, 1, objSrc.closeCallCount)
		require.Equal(t, 2, objSrc.writeCallCount)
	})

	t.Run("Storage object close Error", func(t *testing.T) {
		objSrc := &writeCloserMock{
			closeCallFunc: func(c int) error {
				return errors.New("storage object error")
			},
		}
		r := NewGzipWriter(objSrc, false)
		err := r.Close()
		require.Error(t, err)
		require.Equal(t, 1, objSrc.closeCallCount)
		require.ErrorContains(t, err, "error closing target object")
	})
}

func TestGzipReader_RoundTrip(t *testing.T) {
	for _, usePgzip := range []bool{false, true} {
		objSrc := &writeCloserMock{}
		w := NewGzipWriter(objSrc, usePgzip)
		_, err := w.Write([]byte(testSnapshotData))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := NewGzipReader(io.NopCloser(bytes.NewReader(objSrc.data)), usePgzip)
		require.NoError(t, err)
		res, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.Equal(t, testSnapshotData, string(res))
	}
}

func TestNewGzipReader_NotCompressed(t *testing.T) {
	src := &readCloserMock{Reader: bytes.NewReader([]byte(testSnapshotData))}
	_, err := NewGzipReader(src, false)
	require.Error(t, err)
	require.True(t, src.closed)
}

func TestCountWriteCloser(t *testing.T) {
	objSrc := &writeCloserMock{}
	cw := NewCountWriteCloser(objSrc)
	_, err := cw.Write([]byte(testSnapshotData))
	require.NoError(t, err)
	require.NoError(t, cw.Close())
	require.Equal(t, int64(len(testSnapshotData)), cw.Count)
	require.Equal(t, 1, objSrc.closeCallCount)
	require.True(t, IsGzipName("snapshot.yaml.gz"))
	require.False(t, IsGzipName("snapshot.yaml"))
}

type readCloserMock struct {
	*bytes.Reader
	closed bool
}

func (r *readCloserMock) Close() error {
	r.closed = true
	return nil
}
