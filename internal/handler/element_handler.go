package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"training-app/internal/apperr"
	"training-app/internal/content"
	"training-app/internal/data"
	"training-app/internal/logger"
	"training-app/internal/middleware"
	"training-app/internal/service"
	"training-app/internal/upload"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 8 << 20

// ElementHandler serves the element endpoints.
type ElementHandler struct {
	elements    ElementServicer
	maxBodySize int64
	log         logger.Logger
}

// NewElementHandler creates a new ElementHandler. Request bodies are capped
// at maxUpload plus 1MB for the other form fields.
func NewElementHandler(e ElementServicer, maxUpload int64, log logger.Logger) *ElementHandler {
	if maxUpload <= 0 {
		maxUpload = upload.DefaultMaxSize
	}
	return &ElementHandler{elements: e, maxBodySize: maxUpload + 1<<20, log: log}
}

// elementResponse adds the embed link for YouTube videos.
type elementResponse struct {
	*data.Element
	EmbedURL string `json:"embed_url,omitempty"`
}

func newElementResponse(e *data.Element) elementResponse {
	resp := elementResponse{Element: e}
	if body, err := content.Decode(e.Type, e.Content); err == nil {
		if yt, ok := body.(content.YouTubeVideo); ok && yt.ID != "" {
			resp.EmbedURL = content.EmbedURL(yt.ID)
		}
	}
	return resp
}

type elementRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Format  string `json:"format"`
}

// list returns the elements of the section given by {id}.
func (h *ElementHandler) list(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	sectionID, err := idParam(r)
	if err != nil {
		return err
	}
	elements, err := h.elements.ListBySection(r.Context(), id, sectionID)
	if err != nil {
		return err
	}
	out := make([]elementResponse, 0, len(elements))
	for _, e := range elements {
		out = append(out, newElementResponse(e))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
	return nil
}

// create adds an element to the section given by {id}.
func (h *ElementHandler) create(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	sectionID, err := idParam(r)
	if err != nil {
		return err
	}
	in, cleanup, err := h.parseInput(w, r)
	if err != nil {
		return err
	}
	defer cleanup()

	element, err := h.elements.Create(r.Context(), id, sectionID, in)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, newElementResponse(element))
	return nil
}

// update replaces the element given by {id}.
func (h *ElementHandler) update(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	elementID, err := idParam(r)
	if err != nil {
		return err
	}
	in, cleanup, err := h.parseInput(w, r)
	if err != nil {
		return err
	}
	defer cleanup()

	element, err := h.elements.Update(r.Context(), id, elementID, in)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, newElementResponse(element))
	return nil
}

// delete removes the element given by {id} and its file.
func (h *ElementHandler) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	elementID, err := idParam(r)
	if err != nil {
		return err
	}
	if err := h.elements.Delete(r.Context(), id, elementID); err != nil {
		return err
	}
	message(w, "element deleted")
	return nil
}

// parseInput reads an element payload from a multipart form or a JSON body.
// The returned cleanup releases any temporary files.
func (h *ElementHandler) parseInput(w http.ResponseWriter, r *http.Request) (service.ElementInput, func(), error) {
	noop := func() {}
	// Cap the whole body before any parsing so an oversized upload fails
	// with ErrTooLarge instead of filling the temp dir.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	// Anything that is not a multipart form is treated as JSON. That path
	// carries no file.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req elementRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return service.ElementInput{}, noop, err
		}
		return service.ElementInput{Type: req.Type, Content: req.Content, Format: content.Format(req.Format)}, noop, nil
	}

	// Parts beyond multipartMemory spill to temp files, which cleanup removes
	// once the handler is done with the file reader.
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return service.ElementInput{}, noop, apperr.New(apperr.ErrTooLarge, "request body is too large")
		}
		return service.ElementInput{}, noop, apperr.New(apperr.ErrValidation, "malformed multipart body")
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.log.Error(err, "Failed to remove multipart temp files")
		}
	}

	in := service.ElementInput{
		Type:    r.FormValue("type"),
		Content: r.FormValue("content"),
		Format:  content.Format(r.FormValue("format")),
	}

	// The file part is optional: text and YouTube elements send none.
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, cleanup, nil
	case err != nil:
		cleanup()
		return service.ElementInput{}, noop, apperr.New(apperr.ErrValidation, "unreadable file part")
	}
	in.File = fileFromPart(file, header)
	return in, func() {
		file.Close()
		cleanup()
	}, nil
}

func fileFromPart(file multipart.File, header *multipart.FileHeader) *upload.File {
	return &upload.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Reader:   file,
	}
}
