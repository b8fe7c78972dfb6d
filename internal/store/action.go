// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// ActionStore manages warning actions (point-threshold rules).
type ActionStore struct {
	db *sql.DB
}

// NewActionStore returns a new ActionStore.
func NewActionStore(db *sql.DB) *ActionStore {
	return &ActionStore{db: db}
}

const actionColumns = `warning_action_id, warning_category_id, points, action, action_length_type, action_length, extra_user_group_ids`

func scanAction(scanner interface{ Scan(...any) error }) (*models.WarningAction, error) {
	var (
		a      models.WarningAction
		groups string
	)
	err := scanner.Scan(
		&a.ID, &a.CategoryID, &a.Points, &a.Action,
		&a.ActionLengthType, &a.ActionLength, &groups,
	)
	if err != nil {
		return nil, err
	}
	a.ExtraGroupIDs = models.SplitGroupIDs(groups)
	return &a, nil
}

// FindByID retrieves a warning action by ID. Returns nil if not found.
func (s *ActionStore) FindByID(ctx context.Context, id int64) (*models.WarningAction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM warning_actions WHERE warning_action_id = $1`, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find warning action by id: %w", err)
	}
	return a, nil
}

// Create inserts a new warning action and returns it.
func (s *ActionStore) Create(ctx context.Context, a *models.WarningAction) (*models.WarningAction, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO warning_actions (warning_category_id, points, action, action_length_type, action_length, extra_user_group_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+actionColumns,
		a.CategoryID, a.Points, a.Action, a.ActionLengthType, a.ActionLength,
		models.JoinGroupIDs(a.ExtraGroupIDs),
	)
	result, err := scanAction(row)
	if err != nil {
		return nil, fmt.Errorf("create warning action: %w", err)
	}
	return result, nil
}

// DeleteByCategory removes all warning actions bound to a category.
// Part of the category delete cascade.
func (s *ActionStore) DeleteByCategory(ctx context.Context, q Queryer, categoryID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM warning_actions WHERE warning_category_id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("delete category actions: %w", err)
	}
	return nil
}
