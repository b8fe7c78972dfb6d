// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// DefinitionStore manages warning definitions.
type DefinitionStore struct {
	db *sql.DB
}

// NewDefinitionStore returns a new DefinitionStore.
func NewDefinitionStore(db *sql.DB) *DefinitionStore {
	return &DefinitionStore{db: db}
}

const definitionColumns = `warning_definition_id, warning_category_id, title, points, expiry_days, allow_custom_title, is_custom`

func scanDefinition(scanner interface{ Scan(...any) error }) (*models.WarningDefinition, error) {
	var d models.WarningDefinition
	err := scanner.Scan(
		&d.ID, &d.CategoryID, &d.Title, &d.Points, &d.ExpiryDays,
		&d.AllowCustomTitle, &d.IsCustom,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns all definitions ordered by category then id, for grouping
// under the category tree.
func (s *DefinitionStore) List(ctx context.Context) ([]*models.WarningDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+definitionColumns+`
		FROM warning_definitions
		ORDER BY warning_category_id, warning_definition_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var items []*models.WarningDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// FindByID retrieves a definition by ID. Returns nil if not found. ID 0
// resolves the synthetic custom-warning definition seeded at install.
func (s *DefinitionStore) FindByID(ctx context.Context, id int64) (*models.WarningDefinition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM warning_definitions WHERE warning_definition_id = $1`, id)
	d, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find definition by id: %w", err)
	}
	return d, nil
}

// Custom returns the synthetic definition backing fully custom warnings.
func (s *DefinitionStore) Custom(ctx context.Context) (*models.WarningDefinition, error) {
	return s.FindByID(ctx, models.CustomDefinitionID)
}

// Create inserts a new definition and returns it.
func (s *DefinitionStore) Create(ctx context.Context, d *models.WarningDefinition) (*models.WarningDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO warning_definitions (warning_category_id, title, points, expiry_days, allow_custom_title, is_custom)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+definitionColumns,
		d.CategoryID, d.Title, d.Points, d.ExpiryDays, d.AllowCustomTitle, d.IsCustom,
	)
	result, err := scanDefinition(row)
	if err != nil {
		return nil, fmt.Errorf("create definition: %w", err)
	}
	return result, nil
}

// Delete removes a definition by ID.
func (s *DefinitionStore) Delete(ctx context.Context, q Queryer, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM warning_definitions WHERE warning_definition_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	return nil
}

// CountByCategory re-queries the live count of definitions referencing a
// category. The category counter is rebuilt from this rather than
// incremented, which keeps it correct against out-of-band data changes.
func (s *DefinitionStore) CountByCategory(ctx context.Context, q Queryer, categoryID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warning_definitions WHERE warning_category_id = $1
	`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count definitions: %w", err)
	}
	return count, nil
}

// ListByCategory returns the definitions attached to a category.
func (s *DefinitionStore) ListByCategory(ctx context.Context, q Queryer, categoryID int64) ([]*models.WarningDefinition, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+definitionColumns+`
		FROM warning_definitions
		WHERE warning_category_id = $1
		ORDER BY warning_definition_id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list definitions by category: %w", err)
	}
	defer rows.Close()

	var items []*models.WarningDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// Reparent moves a definition to another category.
func (s *DefinitionStore) Reparent(ctx context.Context, q Queryer, definitionID, categoryID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE warning_definitions SET warning_category_id = $1 WHERE warning_definition_id = $2
	`, categoryID, definitionID)
	if err != nil {
		return fmt.Errorf("reparent definition: %w", err)
	}
	return nil
}
