package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"training-app/internal/apperr"
	"training-app/internal/auth"
	"training-app/internal/data"
	"training-app/internal/middleware"
	"training-app/internal/service"
)

// AuthServicer is the credential service used by AuthHandler.
type AuthServicer interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, id auth.Identity, username, password string) (*data.User, error)
}

// SectionServicer is the section service used by SectionHandler.
type SectionServicer interface {
	List(ctx context.Context, id auth.Identity) ([]*data.Section, error)
	Create(ctx context.Context, id auth.Identity, title, sectionType string) (*data.Section, error)
	Rename(ctx context.Context, id auth.Identity, sectionID int64, title string) (*data.Section, error)
	Delete(ctx context.Context, id auth.Identity, sectionID int64) error
}

// ElementServicer is the element service used by ElementHandler.
type ElementServicer interface {
	ListBySection(ctx context.Context, id auth.Identity, sectionID int64) ([]*data.Element, error)
	Create(ctx context.Context, id auth.Identity, sectionID int64, in service.ElementInput) (*data.Element, error)
	Update(ctx context.Context, id auth.Identity, elementID int64, in service.ElementInput) (*data.Element, error)
	Delete(ctx context.Context, id auth.Identity, elementID int64) error
}

var (
	_ AuthServicer    = (*auth.Service)(nil)
	_ SectionServicer = (*service.SectionService)(nil)
	_ ElementServicer = (*service.ElementService)(nil)
)

// identity returns the caller set by the Authenticate middleware.
func identity(r *http.Request) (auth.Identity, error) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return auth.Identity{}, apperr.ErrMissingToken
	}
	return id, nil
}

// idParam parses the {id} route parameter.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.ErrValidation, "invalid id")
	}
	return id, nil
}

// maxJSONBody caps JSON request bodies. Element uploads go through
// multipart forms and have their own, larger cap.
const maxJSONBody = 1 << 20

// decodeJSON reads a JSON request body of at most maxJSONBody bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.New(apperr.ErrTooLarge, "request body is too large")
		case errors.Is(err, io.EOF):
			return apperr.New(apperr.ErrValidation, "request body is empty")
		default:
			return apperr.New(apperr.ErrValidation, "malformed JSON body")
		}
	}
	return nil
}

func message(w http.ResponseWriter, text string) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": text})
}
