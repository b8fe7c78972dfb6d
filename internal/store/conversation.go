// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ConversationStore persists private conversations and their messages.
type ConversationStore struct {
	db *sql.DB
}

// NewConversationStore returns a new ConversationStore.
func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Start creates a conversation with its opening message and recipient
// list inside the caller's transaction. starterID/starterName are the
// sender identity presented to recipients, which may be the anonymized
// moderator rather than the real issuer.
func (s *ConversationStore) Start(ctx context.Context, q Queryer, starterID int64, starterName, title, message string, recipientIDs []int64) (int64, error) {
	var conversationID int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO conversations (title, user_id, username)
		VALUES ($1, $2, $3)
		RETURNING conversation_id
	`, title, starterID, starterName).Scan(&conversationID)
	if err != nil {
		return 0, fmt.Errorf("start conversation: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO conversation_messages (conversation_id, user_id, username, message)
		VALUES ($1, $2, $3, $4)
	`, conversationID, starterID, starterName, message)
	if err != nil {
		return 0, fmt.Errorf("conversation message: %w", err)
	}

	for _, recipientID := range recipientIDs {
		_, err = q.ExecContext(ctx, `
			INSERT INTO conversation_recipients (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, conversationID, recipientID)
		if err != nil {
			return 0, fmt.Errorf("conversation recipient: %w", err)
		}
	}

	return conversationID, nil
}

// Recipients returns the user ids subscribed to a conversation.
func (s *ConversationStore) Recipients(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_recipients WHERE conversation_id = $1 ORDER BY user_id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation recipients: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Find returns the starter identity and title of a conversation. Returns
// found=false when the conversation does not exist.
func (s *ConversationStore) Find(ctx context.Context, conversationID int64) (starterID int64, starterName, title string, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, username, title FROM conversations WHERE conversation_id = $1
	`, conversationID).Scan(&starterID, &starterName, &title)
	if err == sql.ErrNoRows {
		return 0, "", "", false, nil
	}
	if err != nil {
		return 0, "", "", false, fmt.Errorf("find conversation: %w", err)
	}
	return starterID, starterName, title, true, nil
}
