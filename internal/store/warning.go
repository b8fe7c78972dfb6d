// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// WarningStore manages issued warnings.
type WarningStore struct {
	db *sql.DB
}

// NewWarningStore returns a new WarningStore.
func NewWarningStore(db *sql.DB) *WarningStore {
	return &WarningStore{db: db}
}

const warningColumns = `warning_id, user_id, warned_by, warning_definition_id, title, points, warning_date, expiry_date, is_deleted, notes`

func scanWarning(scanner interface{ Scan(...any) error }) (*models.Warning, error) {
	var w models.Warning
	err := scanner.Scan(
		&w.ID, &w.UserID, &w.WarnedByID, &w.DefinitionID, &w.Title,
		&w.Points, &w.WarningDate, &w.ExpiryDate, &w.IsDeleted, &w.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Insert persists a warning inside the caller's transaction and returns
// the stored row.
func (s *WarningStore) Insert(ctx context.Context, q Queryer, w *models.Warning) (*models.Warning, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO warnings (user_id, warned_by, warning_definition_id, title, points, warning_date, expiry_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+warningColumns,
		w.UserID, w.WarnedByID, w.DefinitionID, w.Title, w.Points,
		w.WarningDate, w.ExpiryDate, w.Notes,
	)
	result, err := scanWarning(row)
	if err != nil {
		return nil, fmt.Errorf("insert warning: %w", err)
	}
	return result, nil
}

// FindByID retrieves a warning by ID. Returns nil if not found.
func (s *WarningStore) FindByID(ctx context.Context, id int64) (*models.Warning, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+warningColumns+` FROM warnings WHERE warning_id = $1`, id)
	w, err := scanWarning(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find warning by id: %w", err)
	}
	return w, nil
}

// ActiveOrPermanent returns every non-deleted warning for the user whose
// expiry is in the future or permanent, ordered non-permanent first
// (ascending by expiry), permanent last. This is the exact order the
// escalation walk depends on: shortest-lived points decay first.
func (s *WarningStore) ActiveOrPermanent(ctx context.Context, userID int64) ([]models.Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+warningColumns+`
		FROM warnings
		WHERE user_id = $1
		  AND NOT is_deleted
		  AND (expiry_date >= $2 OR expiry_date = 0)
		ORDER BY (expiry_date = 0), expiry_date
	`, userID, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("active warnings: %w", err)
	}
	defer rows.Close()

	var items []models.Warning
	for rows.Next() {
		w, err := scanWarning(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		items = append(items, *w)
	}
	return items, rows.Err()
}

// Recent returns the user's most recent warnings, newest first, deleted
// ones included so moderators see the full history.
func (s *WarningStore) Recent(ctx context.Context, userID int64, limit int) ([]models.Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+warningColumns+`
		FROM warnings
		WHERE user_id = $1
		ORDER BY warning_date DESC, warning_id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent warnings: %w", err)
	}
	defer rows.Close()

	var items []models.Warning
	for rows.Next() {
		w, err := scanWarning(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		items = append(items, *w)
	}
	return items, rows.Err()
}

// SoftDelete marks a warning deleted without removing the row, so the
// escalation walk stops counting its points.
func (s *WarningStore) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE warnings SET is_deleted = TRUE WHERE warning_id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft delete warning: %w", err)
	}
	return nil
}
