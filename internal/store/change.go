// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// ChangeStore manages consequence actions (pending user changes).
type ChangeStore struct {
	db *sql.DB
}

// NewChangeStore returns a new ChangeStore.
func NewChangeStore(db *sql.DB) *ChangeStore {
	return &ChangeStore{db: db}
}

const changeColumns = `user_change_id, user_id, change_key, action_type, new_value, expiry_date, created_at`

func scanChange(scanner interface{ Scan(...any) error }) (*models.ConsequenceAction, error) {
	var c models.ConsequenceAction
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.ChangeKey, &c.ActionType, &c.NewValue,
		&c.ExpiryDate, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a consequence action by ID. Returns nil if not found.
func (s *ChangeStore) FindByID(ctx context.Context, id int64) (*models.ConsequenceAction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+changeColumns+` FROM user_changes WHERE user_change_id = $1`, id)
	c, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user change by id: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's pending consequence actions, oldest first.
func (s *ChangeStore) ListByUser(ctx context.Context, userID int64) ([]*models.ConsequenceAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM user_changes
		WHERE user_id = $1
		ORDER BY user_change_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user changes: %w", err)
	}
	defer rows.Close()

	var items []*models.ConsequenceAction
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user change: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Upsert records a consequence action, replacing any existing one with
// the same change key for the user.
func (s *ChangeStore) Upsert(ctx context.Context, c *models.ConsequenceAction) (*models.ConsequenceAction, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_changes (user_id, change_key, action_type, new_value, expiry_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, change_key) DO UPDATE SET
			action_type = EXCLUDED.action_type,
			new_value = EXCLUDED.new_value,
			expiry_date = EXCLUDED.expiry_date
		RETURNING `+changeColumns,
		c.UserID, c.ChangeKey, c.ActionType, c.NewValue, c.ExpiryDate,
	)
	result, err := scanChange(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user change: %w", err)
	}
	return result, nil
}

// Delete retires a consequence action.
func (s *ChangeStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_changes WHERE user_change_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user change: %w", err)
	}
	return nil
}
