// Package upload persists element files and resolves their public URLs.
package upload

import (
	"context"
	"io"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"training-app/internal/apperr"
)

// DefaultMaxSize is the upload cap used when none is configured.
const DefaultMaxSize int64 = 100 * 1024 * 1024

// allowedTypes maps each accepted MIME type to the extension used when the
// original file name has none.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
	"video/mpeg": ".mpeg",
	"video/ogg":  ".ogv",
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// File is an uploaded file as received by the API layer.
type File struct {
	Name     string // original client file name
	MIMEType string
	Size     int64 // declared size, -1 when unknown
	Reader   io.Reader
}

// Store saves and deletes element files.
type Store interface {
	// Save persists f and returns the URL it is served under.
	Save(ctx context.Context, f File) (string, error)
	// Delete removes the file behind a URL. A file that is already gone is not an error.
	Delete(ctx context.Context, url string) error
	// Owns reports whether url points at a file managed by this store.
	Owns(url string) bool
}

// checkType normalizes and validates the declared MIME type.
func checkType(mimeType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", apperr.New(apperr.ErrUnsupportedType, "unsupported file type")
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedTypes[mediaType]; !ok {
		return "", apperr.New(apperr.ErrUnsupportedType, "unsupported file type: "+mediaType)
	}
	return mediaType, nil
}

func tooLarge(limit int64) error {
	return apperr.New(apperr.ErrTooLarge, "file is too large, the maximum size is "+formatSize(limit))
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + "MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

// extension picks the stored file extension: the original one when it is
// simple, otherwise the default for the MIME type.
func extension(name, mediaType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if extPattern.MatchString(ext) {
		return ext
	}
	return allowedTypes[mediaType]
}

// publicURL joins base URL, public path and file name.
func publicURL(baseURL, publicPath, name string) string {
	return strings.TrimRight(baseURL, "/") + path.Join("/", publicPath, name)
}

// fileName returns the stored file name a URL refers to when it lives under
// publicPath, or "" otherwise.
func fileName(rawURL, publicPath string) string {
	p := rawURL
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		j := strings.Index(rest, "/")
		if j < 0 {
			return ""
		}
		p = rest[j:]
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	prefix := path.Join("/", publicPath) + "/"
	if !strings.HasPrefix(p, prefix) {
		return ""
	}
	name := strings.TrimPrefix(p, prefix)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ""
	}
	return name
}
