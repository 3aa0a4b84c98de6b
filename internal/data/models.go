package data

import "time"

// User is an account that can sign in. Only admins can create users.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// SectionType distinguishes reference directories from video categories.
type SectionType string

const (
	SectionDirectory SectionType = "directory"
	SectionVideo     SectionType = "video"
)

// Valid reports whether t is one of the known section types.
func (t SectionType) Valid() bool {
	return t == SectionDirectory || t == SectionVideo
}

// Section is a named grouping of elements.
type Section struct {
	ID            int64       `db:"id" json:"id"`
	Title         string      `db:"title" json:"title"`
	Type          SectionType `db:"type" json:"type"`
	PendingDelete bool        `db:"pending_delete" json:"-"`
	CreatedAt     time.Time   `db:"created_at" json:"-"`
}

// Element is a single content unit stored in a section. The meaning of
// Content depends on Type; see package content.
type Element struct {
	ID            int64     `db:"id" json:"id"`
	SectionID     int64     `db:"section_id" json:"section_id"`
	Type          string    `db:"type" json:"type"`
	Content       string    `db:"content" json:"content"`
	PendingDelete bool      `db:"pending_delete" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
}
