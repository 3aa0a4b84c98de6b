// Package content models what an element holds. Each element type has its
// own body variant so that a stored string is always interpreted the same
// way by every layer.
package content

import (
	"strings"

	"training-app/internal/apperr"
)

// Kind is the element type token.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ParseKind validates an element type token.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindImage, KindVideo:
		return k, nil
	}
	return "", apperr.New(apperr.ErrValidation, "invalid element type")
}

// Body is the typed content of an element.
type Body interface {
	Kind() Kind
	// Raw is the string persisted in the content column.
	Raw() string
}

// Text is a sanitized HTML fragment.
type Text struct{ HTML string }

// Image points at a stored upload.
type Image struct{ URL string }

// UploadedVideo points at a stored upload.
type UploadedVideo struct{ URL string }

// YouTubeVideo is a link to a video hosted on YouTube. It owns no file.
type YouTubeVideo struct {
	URL string
	ID  string // empty when the id could not be extracted
}

func (Text) Kind() Kind          { return KindText }
func (Image) Kind() Kind         { return KindImage }
func (UploadedVideo) Kind() Kind { return KindVideo }
func (YouTubeVideo) Kind() Kind  { return KindVideo }

func (b Text) Raw() string          { return b.HTML }
func (b Image) Raw() string         { return b.URL }
func (b UploadedVideo) Raw() string { return b.URL }
func (b YouTubeVideo) Raw() string  { return b.URL }

// NewVideoLink validates a plain string as a YouTube link.
func NewVideoLink(raw string) (YouTubeVideo, error) {
	raw = strings.TrimSpace(raw)
	if !IsYouTubeURL(raw) {
		return YouTubeVideo{}, apperr.New(apperr.ErrInvalidVideoLink, "invalid YouTube link")
	}
	id, _ := YouTubeID(raw)
	return YouTubeVideo{URL: raw, ID: id}, nil
}

// Decode interprets a stored element row.
func Decode(kind, raw string) (Body, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, apperr.New(apperr.ErrValidation, "element content is empty")
	}
	switch k {
	case KindText:
		return Text{HTML: raw}, nil
	case KindImage:
		return Image{URL: raw}, nil
	default:
		if IsYouTubeURL(raw) {
			id, _ := YouTubeID(raw)
			return YouTubeVideo{URL: raw, ID: id}, nil
		}
		return UploadedVideo{URL: raw}, nil
	}
}

// StoredFile returns the upload URL a body owns, if any.
func StoredFile(b Body) (string, bool) {
	switch v := b.(type) {
	case Image:
		return v.URL, true
	case UploadedVideo:
		return v.URL, true
	}
	return "", false
}
