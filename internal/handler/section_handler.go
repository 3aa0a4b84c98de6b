package handler

import (
	"net/http"

	"training-app/internal/middleware"
)

// SectionHandler serves the section endpoints.
type SectionHandler struct {
	sections SectionServicer
}

// NewSectionHandler creates a new SectionHandler.
func NewSectionHandler(s SectionServicer) *SectionHandler {
	return &SectionHandler{sections: s}
}

type sectionRequest struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

// list returns every live section.
func (h *SectionHandler) list(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	sections, err := h.sections.List(r.Context(), id)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, sections)
	return nil
}

// create adds a section and answers 201 with it.
func (h *SectionHandler) create(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	var in sectionRequest
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	section, err := h.sections.Create(r.Context(), id, in.Title, in.Type)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, section)
	return nil
}

// rename changes the title of the section given by {id}. Any type in the
// body is ignored.
func (h *SectionHandler) rename(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	sectionID, err := idParam(r)
	if err != nil {
		return err
	}
	var in sectionRequest
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	section, err := h.sections.Rename(r.Context(), id, sectionID, in.Title)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, section)
	return nil
}

// delete removes the section together with its elements and their files.
func (h *SectionHandler) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	sectionID, err := idParam(r)
	if err != nil {
		return err
	}
	if err := h.sections.Delete(r.Context(), id, sectionID); err != nil {
		return err
	}
	message(w, "section deleted")
	return nil
}
