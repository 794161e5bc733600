package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL prefix under which DiskStore files are served.
const PublicPrefix = "/storage/v1/object/public"

// DiskStore keeps buckets as directories under a root.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates the root directory if needed
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory served under PublicPrefix
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *DiskStore) Remove(ctx context.Context, bucket string, paths []string) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := s.resolve(bucket, path)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *DiskStore) PublicURL(bucket, path string) string {
	return s.baseURL + PublicPrefix + "/" + bucket + "/" + path
}

func (s *DiskStore) resolve(bucket, path string) (string, error) {
	if err := ValidatePath(bucket); err != nil || strings.Contains(bucket, "/") {
		return "", ErrInvalidPath
	}
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(path)), nil
}
