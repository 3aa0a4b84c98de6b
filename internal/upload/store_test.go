//go:build unit

package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"training-app/internal/apperr"
	"training-app/internal/logger"
)

func newTestDiskStore(t *testing.T, maxSize int64) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir(), "http://localhost:8080", "/uploads", maxSize, logger.Nop())
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	return s
}

func TestDiskStore_SaveAndDelete(t *testing.T) {
	s := newTestDiskStore(t, 0)
	ctx := context.Background()

	url, err := s.Save(ctx, File{Name: "Photo.PNG", MIMEType: "image/png", Size: 5, Reader: strings.NewReader("hello")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("unexpected url %q", url)
	}
	if !s.Owns(url) {
		t.Errorf("store should own %q", url)
	}

	b, err := os.ReadFile(s.Path(url))
	if err != nil {
		t.Fatalf("stored file not readable: %v", err)
	}
	if string(b) != "hello" {
		t.Errorf("stored content = %q", b)
	}

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(s.Path(url)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after delete: %v", err)
	}

	// Deleting again is swallowed.
	if err := s.Delete(ctx, url); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestDiskStore_Rejects(t *testing.T) {
	s := newTestDiskStore(t, 10)
	ctx := context.Background()

	_, err := s.Save(ctx, File{Name: "doc.pdf", MIMEType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")})
	if !errors.Is(err, apperr.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}

	_, err = s.Save(ctx, File{Name: "big.mp4", MIMEType: "video/mp4", Size: 11, Reader: strings.NewReader("01234567890")})
	if !errors.Is(err, apperr.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge for declared size, got %v", err)
	}

	// Declared size lies; the store counts bytes itself.
	_, err = s.Save(ctx, File{Name: "big.mp4", MIMEType: "video/mp4", Size: -1, Reader: strings.NewReader("01234567890")})
	if !errors.Is(err, apperr.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge for streamed size, got %v", err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected partial upload to be removed, found %d files", len(entries))
	}
}

func TestDiskStore_ConcurrentSavesDoNotCollide(t *testing.T) {
	s := newTestDiskStore(t, 0)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	urls := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			urls[i], errs[i] = s.Save(ctx, File{Name: "same.gif", MIMEType: "image/gif", Size: 1, Reader: bytes.NewReader([]byte{1})})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Save() error = %v", errs[i])
		}
		if seen[urls[i]] {
			t.Fatalf("duplicate url %q", urls[i])
		}
		seen[urls[i]] = true
	}
}

func TestDiskStore_Handler(t *testing.T) {
	s := newTestDiskStore(t, 0)
	url, err := s.Save(context.Background(), File{Name: "clip.mp4", MIMEType: "video/mp4", Size: 4, Reader: strings.NewReader("mp4!")})
	if err != nil {
		t.Fatal(err)
	}

	srv := http.StripPrefix(s.PublicPath(), s.Handler())
	name := url[strings.LastIndex(url, "/")+1:]

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("want status 200; got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if string(body) != "mp4!" {
		t.Errorf("unexpected body %q", body)
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("directory listing should be refused, got %d", rr.Code)
	}
}

func TestOwnership(t *testing.T) {
	s := NewMemoryStore("http://localhost:8080", "/uploads", 0)

	testCases := []struct {
		url  string
		want bool
	}{
		{"http://localhost:8080/uploads/1-abc.png", true},
		{"https://other-host/uploads/1-abc.png", true},
		{"/uploads/1-abc.png", true},
		{"https://youtu.be/dQw4w9WgXcQ", false},
		{"http://localhost:8080/uploads/", false},
		{"http://localhost:8080/uploads/../secret", false},
		{"http://localhost:8080/static/1-abc.png", false},
	}
	for _, tc := range testCases {
		if got := s.Owns(tc.url); got != tc.want {
			t.Errorf("Owns(%q) = %v; want %v", tc.url, got, tc.want)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("http://localhost:8080", "/uploads", 4)
	ctx := context.Background()

	url, err := s.Save(ctx, File{Name: "a.jpg", MIMEType: "image/jpeg; charset=binary", Size: 3, Reader: strings.NewReader("jpg")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Has(url) || s.Len() != 1 {
		t.Fatalf("expected stored file at %q", url)
	}

	if _, err := s.Save(ctx, File{Name: "b.jpg", MIMEType: "image/jpeg", Size: -1, Reader: strings.NewReader("too big")}); !errors.Is(err, apperr.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Has(url) || s.Len() != 0 {
		t.Error("file still present after delete")
	}
	if len(s.Deleted) != 1 || s.Deleted[0] != url {
		t.Errorf("unexpected delete log %v", s.Deleted)
	}
}
