// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AlertStore persists private alerts. The sender columns capture the
// identity presented to the recipient at send time, which is how issuer
// anonymization survives later moderator renames.
type AlertStore struct {
	db *sql.DB
}

// NewAlertStore returns a new AlertStore.
func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

// Insert records an alert for a user inside the caller's transaction.
// senderID may be 0 for the synthesized anonymous moderator.
func (s *AlertStore) Insert(ctx context.Context, q Queryer, alertedUserID, senderID int64, senderName, contentType string, contentID int64, action string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO alerts (alerted_user_id, user_id, username, content_type, content_id, action)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, alertedUserID, senderID, senderName, contentType, contentID, action)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// CountFor returns how many unviewed alerts a user has. Used by the
// handlers and by tests asserting fan-out behavior.
func (s *AlertStore) CountFor(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts WHERE alerted_user_id = $1 AND view_date IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}
