package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"training-app/internal/apperr"
	"training-app/internal/logger"
)

// DiskStore keeps uploads in a local directory served over HTTP.
type DiskStore struct {
	dir        string
	baseURL    string
	publicPath string
	maxSize    int64
	log        logger.Logger
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir, baseURL, publicPath string, maxSize int64, log logger.Logger) (*DiskStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{
		dir:        dir,
		baseURL:    baseURL,
		publicPath: publicPath,
		maxSize:    maxSize,
		log:        log,
	}, nil
}

// Save writes the file under a new unique name.
func (s *DiskStore) Save(ctx context.Context, f File) (string, error) {
	mediaType, err := checkType(f.MIMEType)
	if err != nil {
		return "", err
	}
	if f.Size > s.maxSize {
		return "", tooLarge(s.maxSize)
	}

	name := newFileName(extension(f.Name, mediaType))
	full := filepath.Join(s.dir, name)
	// O_EXCL makes a name collision an error instead of an overwrite.
	dst, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(f.Reader, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxSize {
		err = tooLarge(s.maxSize)
	}
	if err != nil {
		if rmErr := os.Remove(full); rmErr != nil {
			s.log.Error(rmErr, "Failed to remove partial upload "+full)
		}
		if errors.Is(err, apperr.ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	s.log.With(map[string]interface{}{"file": name, "bytes": n}).Debug("Upload stored")
	return publicURL(s.baseURL, s.publicPath, name), nil
}

// Delete removes the file behind url. Missing files are logged and ignored.
func (s *DiskStore) Delete(ctx context.Context, url string) error {
	name := fileName(url, s.publicPath)
	if name == "" {
		return fmt.Errorf("url %q does not point at a stored upload", url)
	}
	full := filepath.Join(s.dir, name)
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Upload already removed: " + full)
			return nil
		}
		return fmt.Errorf("failed to delete upload file: %w", err)
	}
	s.log.Debug("Upload removed: " + full)
	return nil
}

// Owns reports whether url resolves to a file name under the public path.
func (s *DiskStore) Owns(url string) bool {
	return fileName(url, s.publicPath) != ""
}

// Path returns the local path for a stored URL, or "" if it is not one.
func (s *DiskStore) Path(url string) string {
	name := fileName(url, s.publicPath)
	if name == "" {
		return ""
	}
	return filepath.Join(s.dir, name)
}

// PublicPath is the URL prefix the files are served under.
func (s *DiskStore) PublicPath() string {
	return s.publicPath
}

// Handler serves the upload directory. Mount it with the public path stripped.
func (s *DiskStore) Handler() http.Handler {
	return http.FileServer(noDirFS{http.Dir(s.dir)})
}

// noDirFS refuses to list directories.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

// newFileName is unique across concurrent saves: nanosecond timestamp plus a random UUID.
func newFileName(ext string) string {
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}
