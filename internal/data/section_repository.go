package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const sectionColumns = `id, title, type, pending_delete, created_at`

// SectionRepository handles database operations for sections.
// Sections marked pending_delete are invisible to GetAll and GetByID.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// GetAll retrieves every live section ordered by id.
func (r *SectionRepository) GetAll(ctx context.Context) ([]*Section, error) {
	sections := []*Section{}
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE pending_delete = 0 ORDER BY id`
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("failed to get sections: %w", err)
	}
	return sections, nil
}

// GetByID finds a live section by its ID. Not found is not an error.
func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*Section, error) {
	var section Section
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = ? AND pending_delete = 0`
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get section by id: %w", err)
	}
	return &section, nil
}

// GetPendingDelete lists sections whose deletion was started but not finished.
func (r *SectionRepository) GetPendingDelete(ctx context.Context) ([]*Section, error) {
	sections := []*Section{}
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE pending_delete = 1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("failed to get pending sections: %w", err)
	}
	return sections, nil
}

// Create inserts a new section and returns its ID.
func (r *SectionRepository) Create(ctx context.Context, section *Section) (int64, error) {
	res, err := r.db.NamedExecContext(ctx, `INSERT INTO sections (title, type) VALUES (:title, :type)`, section)
	if err != nil {
		return 0, fmt.Errorf("failed to insert section: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted section id: %w", err)
	}
	return id, nil
}

// UpdateTitle renames a section. The type column is never written after insert.
func (r *SectionRepository) UpdateTitle(ctx context.Context, id int64, title string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sections SET title = ? WHERE id = ?`, title, id); err != nil {
		return fmt.Errorf("failed to update section title: %w", err)
	}
	return nil
}

// MarkPendingDelete flags a section and all its elements as being deleted.
func (r *SectionRepository) MarkPendingDelete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sections SET pending_delete = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark section for deletion: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE elements SET pending_delete = 1 WHERE section_id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark section elements for deletion: %w", err)
	}
	return nil
}

// Delete removes the section row. Elements must be removed first.
func (r *SectionRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	return nil
}
