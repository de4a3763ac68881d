package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ignite/redirect-cleaner/internal/config"
)

// Storage opens input and writes output by path. Paths of the form
// s3://bucket/key go to S3; anything else is a local file.
type Storage struct {
	config config.StorageConfig

	mu  sync.Mutex
	aws *AWSStorage
}

// New creates a Storage. The S3 client is only built when an s3:// path is used.
func New(cfg config.StorageConfig) *Storage {
	return &Storage{config: cfg}
}

// NewWithS3 creates a Storage backed by an existing S3 client.
func NewWithS3(cfg config.StorageConfig, client ObjectAPI) *Storage {
	return &Storage{config: cfg, aws: &AWSStorage{s3Client: client}}
}

// Open returns a reader for path.
func (s *Storage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if bucket, key, ok := ParseS3Path(path); ok {
		a, err := s.s3(ctx)
		if err != nil {
			return nil, err
		}
		return a.Get(ctx, bucket, key)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// Write stores data at path. Local files are replaced atomically.
func (s *Storage) Write(ctx context.Context, path string, data []byte) error {
	if bucket, key, ok := ParseS3Path(path); ok {
		a, err := s.s3(ctx)
		if err != nil {
			return err
		}
		return a.Put(ctx, bucket, key, data)
	}
	return writeFileAtomic(path, data)
}

func (s *Storage) s3(ctx context.Context) (*AWSStorage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aws != nil {
		return s.aws, nil
	}
	a, err := NewAWSStorage(ctx, s.config.S3Region, s.config.AWSProfile)
	if err != nil {
		return nil, fmt.Errorf("initializing AWS storage: %w", err)
	}
	s.aws = a
	return a, nil
}

// ParseS3Path splits "s3://bucket/key" into bucket and key.
func ParseS3Path(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}
