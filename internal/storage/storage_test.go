package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/redirect-cleaner/internal/config"
)

type fakeS3 struct {
	objects     map[string][]byte
	contentType map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = data
	f.contentType[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		path   string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://seo-maps/redirects/in.csv", "seo-maps", "redirects/in.csv", true},
		{"s3://seo-maps/in.csv", "seo-maps", "in.csv", true},
		{"s3://seo-maps/", "", "", false},
		{"s3://", "", "", false},
		{"/tmp/in.csv", "", "", false},
		{"redirects.csv", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			bucket, key, ok := ParseS3Path(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestLocalRoundTrip(t *testing.T) {
	s := New(config.StorageConfig{})
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, s.Write(ctx, path, []byte("a,b\n")))
	require.NoError(t, s.Write(ctx, path, []byte("c,d\n")))

	rc, err := s.Open(ctx, path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "c,d\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLocalOpenMissing(t *testing.T) {
	s := New(config.StorageConfig{})
	_, err := s.Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLocalWriteMissingDir(t *testing.T) {
	s := New(config.StorageConfig{})
	err := s.Write(context.Background(), filepath.Join(t.TempDir(), "no", "such", "out.csv"), []byte("x"))
	assert.Error(t, err)
}

func TestS3RoundTrip(t *testing.T) {
	fake := newFakeS3()
	fake.objects["maps/in.csv"] = []byte("source_url\n")
	s := NewWithS3(config.StorageConfig{}, fake)
	ctx := context.Background()

	rc, err := s.Open(ctx, "s3://maps/in.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "source_url\n", string(data))

	require.NoError(t, s.Write(ctx, "s3://maps/clean/out.csv", []byte("x,y\n")))
	assert.Equal(t, "x,y\n", string(fake.objects["maps/clean/out.csv"]))
	assert.Equal(t, "text/csv", fake.contentType["maps/clean/out.csv"])
}

func TestS3OpenMissing(t *testing.T) {
	s := NewWithS3(config.StorageConfig{}, newFakeS3())
	_, err := s.Open(context.Background(), "s3://maps/nope.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://maps/nope.csv")
}
