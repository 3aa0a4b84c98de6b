//go:build integration

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"training-app/internal/auth"
	"training-app/internal/content"
	"training-app/internal/data"
	"training-app/internal/logger"
	"training-app/internal/service"
	"training-app/internal/upload"
)

const testBaseURL = "http://training.test"

type testApp struct {
	Router *chi.Mux
	Store  *upload.DiskStore
}

// setupIntegrationTest wires the full stack on an in-memory SQLite database.
func setupIntegrationTest(t *testing.T) *testApp {
	t.Helper()
	log := logger.Nop()
	ctx := context.Background()

	db, err := data.NewDB("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := data.ApplyMigrations(db, "sqlite3", "../../migrations"); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	enforcer, err := auth.NewEnforcer(nil)
	if err != nil {
		t.Fatalf("Failed to create enforcer: %v", err)
	}
	if err := auth.SeedPolicies(enforcer, log); err != nil {
		t.Fatalf("Failed to seed policies: %v", err)
	}
	authService, err := auth.NewService(data.NewUserRepository(db), auth.NewTokenIssuer("integration-secret", time.Hour), enforcer, bcrypt.MinCost, log)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := authService.EnsureAdmin(ctx, "admin", "admin-pw"); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}

	store, err := upload.NewDiskStore(t.TempDir(), testBaseURL, "/uploads", 1024, log)
	if err != nil {
		t.Fatal(err)
	}

	sections := data.NewSectionRepository(db)
	elements := data.NewElementRepository(db)
	sectionService := service.NewSectionService(sections, elements, store, authService, nil, log)
	elementService := service.NewElementService(sections, elements, store, authService, content.NewSanitizer(), log)

	router := NewRouter(Router{
		Auth:       NewAuthHandler(authService),
		Sections:   NewSectionHandler(sectionService),
		Elements:   NewElementHandler(elementService, 1024, log),
		Verifier:   authService,
		DB:         db,
		UploadPath: store.PublicPath(),
		Uploads:    store.Handler(),
		Log:        log,
	})
	return &testApp{Router: router, Store: store}
}

func (app *testApp) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)
	return rr
}

func (app *testApp) json(t *testing.T, method, path, token string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	return app.do(t, method, path, token, body, "application/json")
}

func (app *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	rr := app.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: want status 200; got %d (%s)", username, rr.Code, rr.Body.String())
	}
	var out struct{ Token string }
	decode(t, rr, &out)
	return out.Token
}

// multipartBody builds a form with the given fields and an optional file part.
func multipartBody(t *testing.T, fields map[string]string, fileName, mimeType string, fileContent []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", mimeType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(fileContent)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("want status %d; got %d (%s)", want, rr.Code, rr.Body.String())
	}
}

func expectMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	decode(t, rr, &out)
	if out["message"] == "" {
		t.Fatalf("expected a message, got %q", rr.Body.String())
	}
	return out["message"]
}

func TestIntegration_Auth(t *testing.T) {
	app := setupIntegrationTest(t)

	rr := app.do(t, http.MethodGet, "/api/health", "", nil, "")
	expectStatus(t, rr, http.StatusOK)

	rr = app.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	expectStatus(t, rr, http.StatusUnauthorized)
	expectMessage(t, rr)

	rr = app.do(t, http.MethodGet, "/api/sections", "", nil, "")
	expectStatus(t, rr, http.StatusUnauthorized)
	rr = app.do(t, http.MethodGet, "/api/sections", "garbage", nil, "")
	expectStatus(t, rr, http.StatusForbidden)

	adminToken := app.login(t, "admin", "admin-pw")

	rr = app.json(t, http.MethodPost, "/api/auth/register", adminToken, map[string]string{"username": "bob", "password": "bob-pw"})
	expectStatus(t, rr, http.StatusCreated)
	var user map[string]interface{}
	decode(t, rr, &user)
	if user["username"] != "bob" || user["is_admin"] != false {
		t.Errorf("unexpected user %v", user)
	}
	if _, ok := user["password_hash"]; ok {
		t.Error("password hash must not be exposed")
	}

	rr = app.json(t, http.MethodPost, "/api/auth/register", adminToken, map[string]string{"username": "bob", "password": "x"})
	expectStatus(t, rr, http.StatusBadRequest)

	bobToken := app.login(t, "bob", "bob-pw")
	rr = app.json(t, http.MethodPost, "/api/auth/register", bobToken, map[string]string{"username": "eve", "password": "x"})
	expectStatus(t, rr, http.StatusForbidden)
	rr = app.json(t, http.MethodPost, "/api/sections", bobToken, map[string]string{"title": "x", "type": "video"})
	expectStatus(t, rr, http.StatusForbidden)

	rr = app.do(t, http.MethodGet, "/api/sections", bobToken, nil, "")
	expectStatus(t, rr, http.StatusOK)
}

func TestIntegration_OversizedJSONBody(t *testing.T) {
	app := setupIntegrationTest(t)
	huge := `{"username":"` + strings.Repeat("a", maxJSONBody+1) + `","password":"x"}`

	rr := app.do(t, http.MethodPost, "/api/auth/login", "", strings.NewReader(huge), "application/json")
	expectStatus(t, rr, http.StatusBadRequest)
	if msg := expectMessage(t, rr); msg != "request body is too large" {
		t.Errorf("unexpected message %q", msg)
	}

	adminToken := app.login(t, "admin", "admin-pw")
	hugeSection := `{"title":"` + strings.Repeat("t", maxJSONBody+1) + `","type":"video"}`
	rr = app.do(t, http.MethodPost, "/api/sections", adminToken, strings.NewReader(hugeSection), "application/json")
	expectStatus(t, rr, http.StatusBadRequest)

	rr = app.do(t, http.MethodGet, "/api/sections", adminToken, nil, "")
	expectStatus(t, rr, http.StatusOK)
	var sections []map[string]interface{}
	decode(t, rr, &sections)
	if len(sections) != 0 {
		t.Errorf("oversized create must not insert a section, got %d", len(sections))
	}
}

func TestIntegration_SectionsAndElements(t *testing.T) {
	app := setupIntegrationTest(t)
	token := app.login(t, "admin", "admin-pw")

	rr := app.json(t, http.MethodPost, "/api/sections", token, map[string]string{"title": "Safety", "type": "video"})
	expectStatus(t, rr, http.StatusCreated)
	var section data.Section
	decode(t, rr, &section)
	sectionPath := "/api/elements/" + strconv.FormatInt(section.ID, 10)

	rr = app.json(t, http.MethodPost, "/api/sections", token, map[string]string{"title": "", "type": "video"})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = app.json(t, http.MethodPut, "/api/sections/"+strconv.FormatInt(section.ID, 10), token, map[string]string{"title": "Safety first"})
	expectStatus(t, rr, http.StatusOK)
	rr = app.json(t, http.MethodPut, "/api/sections/999", token, map[string]string{"title": "Nope"})
	expectStatus(t, rr, http.StatusNotFound)

	// Image upload through a multipart form.
	body, ct := multipartBody(t, map[string]string{"type": "image"}, "photo.png", "image/png", []byte("png bytes"))
	rr = app.do(t, http.MethodPost, sectionPath, token, body, ct)
	expectStatus(t, rr, http.StatusCreated)
	var image data.Element
	decode(t, rr, &image)
	if !strings.HasPrefix(image.Content, testBaseURL+"/uploads/") {
		t.Fatalf("unexpected image url %q", image.Content)
	}

	// The stored file is served publicly.
	rr = app.do(t, http.MethodGet, strings.TrimPrefix(image.Content, testBaseURL), "", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "png bytes" {
		t.Errorf("served file = %q", rr.Body.String())
	}

	// Image without a file.
	body, ct = multipartBody(t, map[string]string{"type": "image"}, "", "", nil)
	rr = app.do(t, http.MethodPost, sectionPath, token, body, ct)
	expectStatus(t, rr, http.StatusBadRequest)

	// Unsupported and oversized uploads.
	body, ct = multipartBody(t, map[string]string{"type": "image"}, "doc.pdf", "application/pdf", []byte("%PDF"))
	rr = app.do(t, http.MethodPost, sectionPath, token, body, ct)
	expectStatus(t, rr, http.StatusBadRequest)
	body, ct = multipartBody(t, map[string]string{"type": "video"}, "big.mp4", "video/mp4", bytes.Repeat([]byte("x"), 2048))
	rr = app.do(t, http.MethodPost, sectionPath, token, body, ct)
	expectStatus(t, rr, http.StatusBadRequest)

	// YouTube link as JSON.
	rr = app.json(t, http.MethodPost, sectionPath, token, map[string]string{"type": "video", "content": "https://youtu.be/dQw4w9WgXcQ"})
	expectStatus(t, rr, http.StatusCreated)
	var video map[string]interface{}
	decode(t, rr, &video)
	if video["embed_url"] != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Errorf("unexpected embed url %v", video["embed_url"])
	}

	rr = app.json(t, http.MethodPost, sectionPath, token, map[string]string{"type": "video", "content": "not a url"})
	expectStatus(t, rr, http.StatusBadRequest)
	if msg := expectMessage(t, rr); msg != "invalid YouTube link" {
		t.Errorf("message = %q", msg)
	}

	rr = app.json(t, http.MethodPost, sectionPath, token, map[string]string{"type": "text", "content": `<span style="color: red">hot</span><img src=x>`})
	expectStatus(t, rr, http.StatusCreated)
	var text data.Element
	decode(t, rr, &text)
	if text.Content != `<span style="color: red">hot</span>` {
		t.Errorf("text not sanitized: %q", text.Content)
	}

	// Replace the image; the old file disappears.
	oldPath := app.Store.Path(image.Content)
	body, ct = multipartBody(t, map[string]string{"type": "image"}, "new.gif", "image/gif", []byte("gif bytes"))
	rr = app.do(t, http.MethodPut, "/api/elements/"+strconv.FormatInt(image.ID, 10), token, body, ct)
	expectStatus(t, rr, http.StatusOK)
	var replaced data.Element
	decode(t, rr, &replaced)
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("old image file still present: %v", err)
	}
	newPath := app.Store.Path(replaced.Content)
	if _, err := os.Stat(newPath); err != nil {
		t.Errorf("new image file missing: %v", err)
	}

	rr = app.do(t, http.MethodGet, sectionPath, token, nil, "")
	expectStatus(t, rr, http.StatusOK)
	var list []map[string]interface{}
	decode(t, rr, &list)
	if len(list) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(list))
	}

	// Deleting the section removes every element and file.
	rr = app.do(t, http.MethodDelete, "/api/sections/"+strconv.FormatInt(section.ID, 10), token, nil, "")
	expectStatus(t, rr, http.StatusOK)
	if _, err := os.Stat(newPath); !os.IsNotExist(err) {
		t.Errorf("image file survived section delete: %v", err)
	}
	rr = app.do(t, http.MethodGet, sectionPath, token, nil, "")
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &list)
	if len(list) != 0 {
		t.Errorf("expected no elements after delete, got %d", len(list))
	}
	rr = app.do(t, http.MethodDelete, "/api/sections/"+strconv.FormatInt(section.ID, 10), token, nil, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestIntegration_ElementDelete(t *testing.T) {
	app := setupIntegrationTest(t)
	token := app.login(t, "admin", "admin-pw")

	rr := app.json(t, http.MethodPost, "/api/sections", token, map[string]string{"title": "Docs", "type": "directory"})
	expectStatus(t, rr, http.StatusCreated)
	var section data.Section
	decode(t, rr, &section)

	body, ct := multipartBody(t, map[string]string{"type": "video"}, "clip.mp4", "video/mp4", []byte("mp4"))
	rr = app.do(t, http.MethodPost, "/api/elements/"+strconv.FormatInt(section.ID, 10), token, body, ct)
	expectStatus(t, rr, http.StatusCreated)
	var element data.Element
	decode(t, rr, &element)
	path := app.Store.Path(element.Content)

	elementPath := "/api/elements/" + strconv.FormatInt(element.ID, 10)
	rr = app.do(t, http.MethodDelete, elementPath, token, nil, "")
	expectStatus(t, rr, http.StatusOK)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("video file still present: %v", err)
	}

	rr = app.do(t, http.MethodDelete, elementPath, token, nil, "")
	expectStatus(t, rr, http.StatusNotFound)
	rr = app.do(t, http.MethodDelete, "/api/elements/abc", token, nil, "")
	expectStatus(t, rr, http.StatusBadRequest)
}
