package upload

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-process Store for tests. URLs have the same shape as
// DiskStore URLs so ownership checks behave identically.
type MemoryStore struct {
	mu         sync.Mutex
	baseURL    string
	publicPath string
	maxSize    int64
	files      map[string][]byte

	// SaveErr, when set, is returned by every Save.
	SaveErr error
	// DeleteErr, when set, is returned by every Delete after recording the call.
	DeleteErr error
	// Deleted records every URL passed to Delete.
	Deleted []string
}

// NewMemoryStore creates an empty store serving under baseURL + publicPath.
func NewMemoryStore(baseURL, publicPath string, maxSize int64) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		baseURL:    baseURL,
		publicPath: publicPath,
		maxSize:    maxSize,
		files:      make(map[string][]byte),
	}
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*DiskStore)(nil)

func (m *MemoryStore) Save(ctx context.Context, f File) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	mediaType, err := checkType(f.MIMEType)
	if err != nil {
		return "", err
	}
	if f.Size > m.maxSize {
		return "", tooLarge(m.maxSize)
	}
	b, err := io.ReadAll(io.LimitReader(f.Reader, m.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(b)) > m.maxSize {
		return "", tooLarge(m.maxSize)
	}

	name := newFileName(extension(f.Name, mediaType))
	m.mu.Lock()
	m.files[name] = b
	m.mu.Unlock()
	return publicURL(m.baseURL, m.publicPath, name), nil
}

func (m *MemoryStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, url)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	name := fileName(url, m.publicPath)
	if name == "" {
		return fmt.Errorf("url %q does not point at a stored upload", url)
	}
	delete(m.files, name)
	return nil
}

func (m *MemoryStore) Owns(url string) bool {
	return fileName(url, m.publicPath) != ""
}

// Has reports whether the file behind url is currently stored.
func (m *MemoryStore) Has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[fileName(url, m.publicPath)]
	return ok
}

// Len returns the number of stored files.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

