package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yukikurage/task-tracker/internal/blob"
	"github.com/yukikurage/task-tracker/internal/constants"
)

var (
	ErrUnauthorized     = errors.New("authentication required")
	ErrNoFile           = errors.New("no file provided")
	ErrFileTooLarge     = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType  = errors.New("unsupported image type")
	ErrUpload           = errors.New("upload failed")
	ErrUnrecognizedURL  = errors.New("url does not point into a known bucket")
	allowedContentTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	plainExtension      = regexp.MustCompile(`^[a-z0-9]{1,8}$`)
)

// File is an uploaded attachment.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Config names the buckets the manager writes into.
type Config struct {
	TaskImageBucket string
	AvatarBucket    string
	MaxUploadBytes  int64
}

// Manager uploads and removes attachment blobs.
type Manager struct {
	store  blob.Store
	cfg    Config
	logger *zap.Logger
}

// NewManager creates a Manager over store
func NewManager(store blob.Store, cfg Config, logger *zap.Logger) *Manager {
	if cfg.TaskImageBucket == "" {
		cfg.TaskImageBucket = constants.DefaultTaskImageBucket
	}
	if cfg.AvatarBucket == "" {
		cfg.AvatarBucket = constants.DefaultAvatarBucket
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, cfg: cfg, logger: logger}
}

// Upload stores a task image under {ownerID}/{uuid}.{ext} and returns its public URL.
func (m *Manager) Upload(ctx context.Context, ownerID string, file *File) (string, error) {
	if ownerID == "" {
		return "", ErrUnauthorized
	}
	data, contentType, ext, err := m.read(file)
	if err != nil {
		return "", err
	}

	path := ownerID + "/" + uuid.NewString() + "." + ext
	if err := m.store.Upload(ctx, m.cfg.TaskImageBucket, path, data, contentType, false); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	m.logger.Info("task image uploaded",
		zap.String("owner_id", ownerID),
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return m.store.PublicURL(m.cfg.TaskImageBucket, path), nil
}

// UploadAvatar stores the avatar at {userID}.{ext}, replacing any previous upload at that path.
func (m *Manager) UploadAvatar(ctx context.Context, userID string, file *File) (string, error) {
	if userID == "" {
		return "", ErrUnauthorized
	}
	data, contentType, ext, err := m.read(file)
	if err != nil {
		return "", err
	}

	path := userID + "." + ext
	if err := m.store.Upload(ctx, m.cfg.AvatarBucket, path, data, contentType, true); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return m.store.PublicURL(m.cfg.AvatarBucket, path), nil
}

// Delete removes the blob behind rawURL. It never fails: unknown URLs and
// store errors are logged and dropped.
func (m *Manager) Delete(ctx context.Context, rawURL string) {
	if err := m.Remove(ctx, rawURL); err != nil {
		m.logger.Warn("attachment cleanup failed", zap.String("url", rawURL), zap.Error(err))
	}
}

// Remove removes the blob behind rawURL and reports what went wrong.
// A blob that is already gone is not an error.
func (m *Manager) Remove(ctx context.Context, rawURL string) error {
	bucket, path, ok := m.locate(rawURL)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnrecognizedURL, rawURL)
	}
	if err := m.store.Remove(ctx, bucket, []string{path}); err != nil {
		return err
	}
	m.logger.Debug("attachment removed", zap.String("bucket", bucket), zap.String("path", path))
	return nil
}

// PathFromURL extracts the task-image path from a public URL
func (m *Manager) PathFromURL(rawURL string) (string, bool) {
	return pathFromURL(m.cfg.TaskImageBucket, rawURL)
}

// OwnsImage reports whether rawURL is a task image stored under ownerID
func (m *Manager) OwnsImage(ownerID, rawURL string) bool {
	path, ok := m.PathFromURL(rawURL)
	return ok && ownerID != "" && strings.HasPrefix(path, ownerID+"/")
}

// SameBlob reports whether two public URLs name the same stored object,
// ignoring query strings such as cache busters.
func (m *Manager) SameBlob(a, b string) bool {
	ab, ap, aok := m.locate(a)
	bb, bp, bok := m.locate(b)
	if !aok || !bok {
		return a == b
	}
	return ab == bb && ap == bp
}

func (m *Manager) locate(rawURL string) (bucket, path string, ok bool) {
	for _, bucket := range []string{m.cfg.TaskImageBucket, m.cfg.AvatarBucket} {
		if path, ok := pathFromURL(bucket, rawURL); ok {
			return bucket, path, true
		}
	}
	return "", "", false
}

func pathFromURL(bucket, rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Path == "" {
		return "", false
	}
	marker := "/" + bucket + "/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", false
	}
	path := u.Path[idx+len(marker):]
	if blob.ValidatePath(path) != nil {
		return "", false
	}
	return path, true
}

// read validates file and returns its bytes, sniffed content type and storage extension
func (m *Manager) read(file *File) ([]byte, string, string, error) {
	if file == nil || file.Content == nil || file.Size == 0 {
		return nil, "", "", ErrNoFile
	}
	if file.Size > m.cfg.MaxUploadBytes {
		return nil, "", "", ErrFileTooLarge
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(file.Content, m.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if n == 0 {
		return nil, "", "", ErrNoFile
	}
	if n > m.cfg.MaxUploadBytes {
		return nil, "", "", ErrFileTooLarge
	}

	data := buf.Bytes()
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedContentTypes...) {
		return nil, "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Name), "."))
	if !plainExtension.MatchString(ext) {
		ext = strings.TrimPrefix(mtype.Extension(), ".")
	}
	return data, mtype.String(), ext, nil
}
