package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const elementColumns = `id, section_id, type, content, pending_delete, created_at`

// ElementRepository handles database operations for elements.
type ElementRepository struct {
	db *sqlx.DB
}

// NewElementRepository creates a new ElementRepository.
func NewElementRepository(db *sqlx.DB) *ElementRepository {
	return &ElementRepository{db: db}
}

// GetBySection retrieves the live elements of a section in insertion order.
func (r *ElementRepository) GetBySection(ctx context.Context, sectionID int64) ([]*Element, error) {
	elements := []*Element{}
	query := `SELECT ` + elementColumns + ` FROM elements WHERE section_id = ? AND pending_delete = 0 ORDER BY id`
	if err := r.db.SelectContext(ctx, &elements, query, sectionID); err != nil {
		return nil, fmt.Errorf("failed to get elements by section id: %w", err)
	}
	return elements, nil
}

// GetAllBySection retrieves every element of a section, including ones
// already marked for deletion.
func (r *ElementRepository) GetAllBySection(ctx context.Context, sectionID int64) ([]*Element, error) {
	elements := []*Element{}
	query := `SELECT ` + elementColumns + ` FROM elements WHERE section_id = ? ORDER BY id`
	if err := r.db.SelectContext(ctx, &elements, query, sectionID); err != nil {
		return nil, fmt.Errorf("failed to get all elements by section id: %w", err)
	}
	return elements, nil
}

// GetByID finds a live element by its ID. Not found is not an error.
func (r *ElementRepository) GetByID(ctx context.Context, id int64) (*Element, error) {
	var element Element
	query := `SELECT ` + elementColumns + ` FROM elements WHERE id = ? AND pending_delete = 0`
	if err := r.db.GetContext(ctx, &element, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get element by id: %w", err)
	}
	return &element, nil
}

// GetPendingDelete lists elements marked for deletion whose section is still live.
func (r *ElementRepository) GetPendingDelete(ctx context.Context) ([]*Element, error) {
	elements := []*Element{}
	query := `SELECT e.id, e.section_id, e.type, e.content, e.pending_delete, e.created_at
		FROM elements e JOIN sections s ON s.id = e.section_id
		WHERE e.pending_delete = 1 AND s.pending_delete = 0 ORDER BY e.id`
	if err := r.db.SelectContext(ctx, &elements, query); err != nil {
		return nil, fmt.Errorf("failed to get pending elements: %w", err)
	}
	return elements, nil
}

// Create inserts a new element and returns its ID.
func (r *ElementRepository) Create(ctx context.Context, element *Element) (int64, error) {
	query := `INSERT INTO elements (section_id, type, content) VALUES (:section_id, :type, :content)`
	res, err := r.db.NamedExecContext(ctx, query, element)
	if err != nil {
		return 0, fmt.Errorf("failed to insert element: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted element id: %w", err)
	}
	return id, nil
}

// Update writes the type and content of an existing element.
func (r *ElementRepository) Update(ctx context.Context, element *Element) error {
	query := `UPDATE elements SET type = :type, content = :content WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, element); err != nil {
		return fmt.Errorf("failed to update element: %w", err)
	}
	return nil
}

// MarkPendingDelete flags a single element as being deleted.
func (r *ElementRepository) MarkPendingDelete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE elements SET pending_delete = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark element for deletion: %w", err)
	}
	return nil
}

// Delete removes an element row.
func (r *ElementRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM elements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete element: %w", err)
	}
	return nil
}

// DeleteBySection removes every element row of a section.
func (r *ElementRepository) DeleteBySection(ctx context.Context, sectionID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM elements WHERE section_id = ?`, sectionID); err != nil {
		return fmt.Errorf("failed to delete elements by section id: %w", err)
	}
	return nil
}
