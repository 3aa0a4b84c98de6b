package service

import (
	"context"
	"fmt"
	"strings"

	"training-app/internal/apperr"
	"training-app/internal/auth"
	"training-app/internal/content"
	"training-app/internal/data"
	"training-app/internal/logger"
	"training-app/internal/upload"
)

// ElementInput is the payload of an element create or update.
type ElementInput struct {
	Type    string
	Content string
	Format  content.Format // text only; empty means HTML
	File    *upload.File
}

// ElementService manages elements and the uploads they own.
type ElementService struct {
	sections  SectionRepository
	elements  ElementRepository
	store     upload.Store
	authz     Authorizer
	sanitizer *content.Sanitizer
	log       logger.Logger
}

// NewElementService creates an ElementService.
func NewElementService(sections SectionRepository, elements ElementRepository, store upload.Store, authz Authorizer, sanitizer *content.Sanitizer, log logger.Logger) *ElementService {
	return &ElementService{
		sections:  sections,
		elements:  elements,
		store:     store,
		authz:     authz,
		sanitizer: sanitizer,
		log:       log,
	}
}

// ListBySection returns the live elements of a section.
func (s *ElementService) ListBySection(ctx context.Context, id auth.Identity, sectionID int64) ([]*data.Element, error) {
	if err := s.authz.Authorize(id, auth.ObjectElements, auth.ActionRead); err != nil {
		return nil, err
	}
	elements, err := s.elements.GetBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list elements: %w", err)
	}
	return elements, nil
}

// Create adds an element to a section.
func (s *ElementService) Create(ctx context.Context, id auth.Identity, sectionID int64, in ElementInput) (*data.Element, error) {
	if err := s.authz.Authorize(id, auth.ObjectElements, auth.ActionWrite); err != nil {
		return nil, err
	}

	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("create element: %w", err)
	}
	if section == nil {
		return nil, apperr.New(apperr.ErrNotFound, "section not found")
	}

	body, err := s.buildBody(ctx, in)
	if err != nil {
		return nil, err
	}

	element := &data.Element{SectionID: sectionID, Type: string(body.Kind()), Content: body.Raw()}
	newID, err := s.elements.Create(ctx, element)
	if err != nil {
		s.discardNew(ctx, body)
		return nil, fmt.Errorf("create element: %w", err)
	}
	element.ID = newID
	return element, nil
}

// Update replaces the type and content of an element. A file the element
// owned is deleted only after the new content is stored and the row updated.
func (s *ElementService) Update(ctx context.Context, id auth.Identity, elementID int64, in ElementInput) (*data.Element, error) {
	if err := s.authz.Authorize(id, auth.ObjectElements, auth.ActionWrite); err != nil {
		return nil, err
	}

	existing, err := s.elements.GetByID(ctx, elementID)
	if err != nil {
		return nil, fmt.Errorf("update element: %w", err)
	}
	if existing == nil {
		return nil, apperr.New(apperr.ErrNotFound, "element not found")
	}

	// Any new file is stored before the row changes. If the row update
	// fails, only the new file is removed and the element keeps pointing at
	// its old content.
	body, err := s.buildBody(ctx, in)
	if err != nil {
		return nil, err
	}

	updated := &data.Element{
		ID:        existing.ID,
		SectionID: existing.SectionID,
		Type:      string(body.Kind()),
		Content:   body.Raw(),
	}
	if err := s.elements.Update(ctx, updated); err != nil {
		s.discardNew(ctx, body)
		return nil, fmt.Errorf("update element: %w", err)
	}

	// The row now references the new body. The old file goes only if the
	// element owned one and no longer points at it, whether it was replaced
	// or the type changed.
	if old, err := content.Decode(existing.Type, existing.Content); err == nil {
		oldURL, owned := content.StoredFile(old)
		if newURL, _ := content.StoredFile(body); owned && oldURL != newURL {
			discardUpload(ctx, s.store, s.log, oldURL)
		}
	}
	return updated, nil
}

// Delete removes an element and, best-effort, the file it owns.
func (s *ElementService) Delete(ctx context.Context, id auth.Identity, elementID int64) error {
	if err := s.authz.Authorize(id, auth.ObjectElements, auth.ActionWrite); err != nil {
		return err
	}

	element, err := s.elements.GetByID(ctx, elementID)
	if err != nil {
		return fmt.Errorf("delete element: %w", err)
	}
	if element == nil {
		return apperr.New(apperr.ErrNotFound, "element not found")
	}

	// Hide the row first so a crash before the final delete leaves it for
	// ResumeDeletes instead of serving an element whose file is gone.
	if err := s.elements.MarkPendingDelete(ctx, elementID); err != nil {
		return fmt.Errorf("delete element: %w", err)
	}
	removeFile(ctx, s.store, s.log, element)
	if err := s.elements.Delete(ctx, elementID); err != nil {
		return fmt.Errorf("delete element: %w", err)
	}
	return nil
}

// buildBody validates the input for its type and produces the body to store.
// For image and uploaded video bodies the file is saved before returning.
func (s *ElementService) buildBody(ctx context.Context, in ElementInput) (content.Body, error) {
	kind, err := content.ParseKind(in.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case content.KindText:
		return s.buildText(in)

	case content.KindImage:
		if in.File == nil {
			return nil, apperr.New(apperr.ErrValidation, "an image file is required")
		}
		if !hasMediaPrefix(in.File.MIMEType, "image/") {
			return nil, apperr.New(apperr.ErrUnsupportedType, "image elements require an image file")
		}
		url, err := s.store.Save(ctx, *in.File)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		return content.Image{URL: url}, nil

	default:
		if in.File != nil {
			if !hasMediaPrefix(in.File.MIMEType, "video/") {
				return nil, apperr.New(apperr.ErrUnsupportedType, "video elements require a video file")
			}
			url, err := s.store.Save(ctx, *in.File)
			if err != nil {
				return nil, fmt.Errorf("save video: %w", err)
			}
			return content.UploadedVideo{URL: url}, nil
		}
		if strings.TrimSpace(in.Content) == "" {
			return nil, apperr.New(apperr.ErrValidation, "a video file or a YouTube link is required")
		}
		return content.NewVideoLink(in.Content)
	}
}

func (s *ElementService) buildText(in ElementInput) (content.Body, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.New(apperr.ErrValidation, "text content is required")
	}

	html := in.Content
	switch in.Format {
	case "", content.FormatHTML:
	case content.FormatMarkdown:
		rendered, err := content.RenderMarkdown(in.Content)
		if err != nil {
			return nil, apperr.New(apperr.ErrValidation, "text content is not valid markdown")
		}
		html = rendered
	default:
		return nil, apperr.New(apperr.ErrValidation, "unknown text format")
	}

	safe := strings.TrimSpace(s.sanitizer.Sanitize(html))
	if safe == "" {
		return nil, apperr.New(apperr.ErrValidation, "text content is empty after sanitizing")
	}
	return content.Text{HTML: safe}, nil
}

// discardNew removes a file saved for a body that never made it into a row.
func (s *ElementService) discardNew(ctx context.Context, body content.Body) {
	if url, ok := content.StoredFile(body); ok {
		discardUpload(ctx, s.store, s.log, url)
	}
}

func hasMediaPrefix(mimeType, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), prefix)
}
