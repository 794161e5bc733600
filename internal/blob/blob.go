package blob

import (
	"context"
	"errors"
	"strings"
)

// ErrExists is returned by Upload when overwrite is false and the path is taken.
var ErrExists = errors.New("blob already exists")

// ErrInvalidPath is returned for empty, absolute or traversing paths.
var ErrInvalidPath = errors.New("invalid blob path")

// Store is path-addressed object storage grouped into buckets.
// Removing a path that does not exist is not an error.
type Store interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string, overwrite bool) error
	Remove(ctx context.Context, bucket string, paths []string) error
	PublicURL(bucket, path string) string
}

// ValidatePath rejects paths that could escape their bucket
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "\\") {
		return ErrInvalidPath
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
