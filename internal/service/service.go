// Package service holds the section and element operations. Every mutating
// call takes the caller's verified identity explicitly.
package service

import (
	"context"
	"time"

	"training-app/internal/auth"
	"training-app/internal/content"
	"training-app/internal/data"
	"training-app/internal/logger"
	"training-app/internal/upload"
)

// SectionRepository is the section storage used by the services.
type SectionRepository interface {
	GetAll(ctx context.Context) ([]*data.Section, error)
	GetByID(ctx context.Context, id int64) (*data.Section, error)
	GetPendingDelete(ctx context.Context) ([]*data.Section, error)
	Create(ctx context.Context, section *data.Section) (int64, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	MarkPendingDelete(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// ElementRepository is the element storage used by the services.
type ElementRepository interface {
	GetBySection(ctx context.Context, sectionID int64) ([]*data.Element, error)
	GetAllBySection(ctx context.Context, sectionID int64) ([]*data.Element, error)
	GetByID(ctx context.Context, id int64) (*data.Element, error)
	GetPendingDelete(ctx context.Context) ([]*data.Element, error)
	Create(ctx context.Context, element *data.Element) (int64, error)
	Update(ctx context.Context, element *data.Element) error
	MarkPendingDelete(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	DeleteBySection(ctx context.Context, sectionID int64) error
}

// Authorizer decides whether an identity may act on an object.
type Authorizer interface {
	Authorize(id auth.Identity, object, action string) error
}

// Cache stores serialized read results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// removeFile deletes the upload owned by an element, if any. Failures are
// logged and never returned.
func removeFile(ctx context.Context, store upload.Store, log logger.Logger, e *data.Element) {
	body, err := content.Decode(e.Type, e.Content)
	if err != nil {
		log.With(map[string]interface{}{"element_id": e.ID}).Warn("Skipping file cleanup for undecodable element")
		return
	}
	url, ok := content.StoredFile(body)
	if !ok {
		return
	}
	discardUpload(ctx, store, log, url)
}

// discardUpload deletes a stored upload best-effort.
func discardUpload(ctx context.Context, store upload.Store, log logger.Logger, url string) {
	if !store.Owns(url) {
		log.Warn("Not deleting file outside the upload store: " + url)
		return
	}
	if err := store.Delete(ctx, url); err != nil {
		log.Error(err, "Failed to delete upload "+url)
	}
}
