package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"training-app/internal/apperr"
	"training-app/internal/auth"
	"training-app/internal/data"
	"training-app/internal/logger"
	"training-app/internal/upload"
)

const sectionsCacheKey = "sections:all"

// SectionService manages sections and cascades deletes to their elements.
type SectionService struct {
	sections SectionRepository
	elements ElementRepository
	store    upload.Store
	authz    Authorizer
	cache    Cache
	log      logger.Logger

	// cacheMu orders cache writes after a read against invalidations;
	// cacheGen counts invalidations.
	cacheMu  sync.Mutex
	cacheGen uint64
}

// NewSectionService creates a SectionService. cache may be nil.
func NewSectionService(sections SectionRepository, elements ElementRepository, store upload.Store, authz Authorizer, cache Cache, log logger.Logger) *SectionService {
	return &SectionService{
		sections: sections,
		elements: elements,
		store:    store,
		authz:    authz,
		cache:    cache,
		log:      log,
	}
}

// List returns every live section.
func (s *SectionService) List(ctx context.Context, id auth.Identity) ([]*data.Section, error) {
	if err := s.authz.Authorize(id, auth.ObjectSections, auth.ActionRead); err != nil {
		return nil, err
	}

	if cached := s.cached(ctx); cached != nil {
		return cached, nil
	}

	gen := s.generation()
	sections, err := s.sections.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	s.cacheList(ctx, gen, sections)
	return sections, nil
}

// Create adds a section of the given type.
func (s *SectionService) Create(ctx context.Context, id auth.Identity, title, sectionType string) (*data.Section, error) {
	if err := s.authz.Authorize(id, auth.ObjectSections, auth.ActionWrite); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.ErrValidation, "title is required")
	}
	t := data.SectionType(sectionType)
	if !t.Valid() {
		return nil, apperr.New(apperr.ErrValidation, "invalid section type")
	}

	section := &data.Section{Title: title, Type: t}
	newID, err := s.sections.Create(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("create section: %w", err)
	}
	section.ID = newID
	s.invalidate(ctx)
	return section, nil
}

// Rename changes a section's title. The type never changes.
func (s *SectionService) Rename(ctx context.Context, id auth.Identity, sectionID int64, title string) (*data.Section, error) {
	if err := s.authz.Authorize(id, auth.ObjectSections, auth.ActionWrite); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.ErrValidation, "title is required")
	}

	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("rename section: %w", err)
	}
	if section == nil {
		return nil, apperr.New(apperr.ErrNotFound, "section not found")
	}

	if err := s.sections.UpdateTitle(ctx, sectionID, title); err != nil {
		return nil, fmt.Errorf("rename section: %w", err)
	}
	section.Title = title
	s.invalidate(ctx)
	return section, nil
}

// Delete removes a section, its elements and their files.
//
// The section and its elements are first marked pending so they disappear
// from every read. Files are then removed best-effort, followed by the
// element rows and the section row. If the process stops part way,
// ResumeDeletes finishes the job.
func (s *SectionService) Delete(ctx context.Context, id auth.Identity, sectionID int64) error {
	if err := s.authz.Authorize(id, auth.ObjectSections, auth.ActionWrite); err != nil {
		return err
	}

	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	if section == nil {
		return apperr.New(apperr.ErrNotFound, "section not found")
	}

	if err := s.sections.MarkPendingDelete(ctx, sectionID); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	s.invalidate(ctx)

	if err := s.purge(ctx, sectionID); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	s.log.With(map[string]interface{}{"section_id": sectionID, "by": id.Username}).Info("Section deleted")
	return nil
}

// ResumeDeletes finishes deletions left pending by an interrupted Delete
// (section or element). It returns how many rows were cleaned up.
func (s *SectionService) ResumeDeletes(ctx context.Context) (int, error) {
	n := 0

	sections, err := s.sections.GetPendingDelete(ctx)
	if err != nil {
		return n, fmt.Errorf("resume deletes: %w", err)
	}
	for _, section := range sections {
		if err := s.purge(ctx, section.ID); err != nil {
			return n, fmt.Errorf("resume deletes: %w", err)
		}
		n++
	}

	elements, err := s.elements.GetPendingDelete(ctx)
	if err != nil {
		return n, fmt.Errorf("resume deletes: %w", err)
	}
	for _, e := range elements {
		removeFile(ctx, s.store, s.log, e)
		if err := s.elements.Delete(ctx, e.ID); err != nil {
			return n, fmt.Errorf("resume deletes: %w", err)
		}
		n++
	}

	if n > 0 {
		s.invalidate(ctx)
		s.log.Info(fmt.Sprintf("Finished %d interrupted deletes", n))
	}
	return n, nil
}

// purge removes the files and rows of a section already marked pending.
func (s *SectionService) purge(ctx context.Context, sectionID int64) error {
	// Pending elements are included: the section mark covered them too.
	elements, err := s.elements.GetAllBySection(ctx, sectionID)
	if err != nil {
		return err
	}

	// File removal is best-effort and never stops the cascade. A file that
	// cannot be deleted is logged and left behind.
	for _, e := range elements {
		removeFile(ctx, s.store, s.log, e)
	}

	// Element rows go before the section row to satisfy the foreign key.
	// Running purge again after a failure here is safe.
	if err := s.elements.DeleteBySection(ctx, sectionID); err != nil {
		return err
	}
	return s.sections.Delete(ctx, sectionID)
}

func (s *SectionService) cached(ctx context.Context) []*data.Section {
	if s.cache == nil {
		return nil
	}
	b, err := s.cache.Get(ctx, sectionsCacheKey)
	if err != nil {
		s.log.Error(err, "Failed to read section list from cache")
		return nil
	}
	if b == nil {
		return nil
	}
	var sections []*data.Section
	if err := json.Unmarshal(b, &sections); err != nil {
		s.log.Error(err, "Discarding corrupt cached section list")
		return nil
	}
	return sections
}

func (s *SectionService) generation() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// cacheList caches a list read at generation gen. A list read before a
// concurrent mutation invalidated the cache is dropped, otherwise it would
// be served until the entry expires.
func (s *SectionService) cacheList(ctx context.Context, gen uint64, sections []*data.Section) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(sections)
	if err != nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen != gen {
		return
	}
	if err := s.cache.Set(ctx, sectionsCacheKey, b, 0); err != nil {
		s.log.Error(err, "Failed to cache section list")
	}
}

func (s *SectionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	if err := s.cache.Delete(ctx, sectionsCacheKey); err != nil {
		s.log.Error(err, "Failed to invalidate cached section list")
	}
}
