package s3

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/pgschemadiff/internal/storages"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	deleted []string
}

func (f *fakeS3) GetObjectWithContext(
	_ aws.Context, in *s3.GetObjectInput, _ ...request.Option,
) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, awserr.New(awsErrorCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObjectWithContext(
	_ aws.Context, in *s3.HeadObjectInput, _ ...request.Option,
) (*s3.HeadObjectOutput, error) {
	return f.HeadObject(in)
}

func (f *fakeS3) HeadObject(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, awserr.New(awsErrorCodeNotFound, "not found", nil)
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		LastModified:  aws.Time(time.Unix(1700000000, 0)),
	}, nil
}

func (f *fakeS3) DeleteObjectsWithContext(
	_ aws.Context, in *s3.DeleteObjectsInput, _ ...request.Option,
) (*s3.DeleteObjectsOutput, error) {
	for _, o := range in.Delete.Objects {
		f.deleted = append(f.deleted, *o.Key)
		delete(f.objects, *o.Key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func newTestStorage(objects map[string][]byte) (*Storage, *fakeS3) {
	svc := &fakeS3{objects: objects}
	cfg := NewConfig()
	cfg.Bucket = "snapshots"
	return &Storage{config: cfg, service: svc, prefix: fixPrefix("pgschemadiff")}, svc
}

func TestStorage_GetObject(t *testing.T) {
	st, _ := newTestStorage(map[string][]byte{"pgschemadiff/1/metadata.json": []byte("{}")})

	r, err := st.GetObject(context.Background(), "1/metadata.json")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = st.GetObject(context.Background(), "2/metadata.json")
	require.ErrorIs(t, err, storages.ErrFileNotFound)
}

func TestStorage_ExistsAndStat(t *testing.T) {
	st, _ := newTestStorage(map[string][]byte{"pgschemadiff/1/metadata.json": []byte("{}")})
	sub := st.SubStorage("1", true)
	assert.Equal(t, "pgschemadiff/1/", sub.GetCwd())
	assert.Equal(t, "1", sub.Dirname())

	ok, err := sub.Exists(context.Background(), "metadata.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sub.Exists(context.Background(), "snapshot.yaml.gz")
	require.NoError(t, err)
	assert.False(t, ok)

	stat, err := sub.Stat("metadata.json")
	require.NoError(t, err)
	assert.True(t, stat.Exist)
	assert.Equal(t, int64(2), stat.Size)

	stat, err = sub.Stat("missing")
	require.NoError(t, err)
	assert.False(t, stat.Exist)
}

func TestStorage_Delete(t *testing.T) {
	st, svc := newTestStorage(map[string][]byte{"pgschemadiff/1/metadata.json": []byte("{}")})
	require.NoError(t, st.Delete(context.Background(), "1/metadata.json"))
	assert.Equal(t, []string{"pgschemadiff/1/metadata.json"}, svc.deleted)
	require.NoError(t, st.Delete(context.Background()))
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewConfig()
	require.Error(t, cfg.Validate())
	cfg.Bucket = "b"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "a/", fixPrefix("a"))
	assert.Equal(t, "a/", fixPrefix("a/"))
	assert.Equal(t, "", fixPrefix(""))
}
