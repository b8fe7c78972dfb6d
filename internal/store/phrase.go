package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// PhraseStore manages translatable text snippets. Category titles and the
// notification templates live here rather than on the owning rows.
type PhraseStore struct {
	db *sql.DB
}

// NewPhraseStore returns a new PhraseStore.
func NewPhraseStore(db *sql.DB) *PhraseStore {
	return &PhraseStore{db: db}
}

// Find retrieves a phrase by its key. Returns nil if not found.
func (s *PhraseStore) Find(ctx context.Context, q Queryer, title string) (*models.Phrase, error) {
	var p models.Phrase
	err := q.QueryRowContext(ctx, `
		SELECT phrase_id, title, phrase_text FROM phrases WHERE title = $1
	`, title).Scan(&p.ID, &p.Title, &p.Text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find phrase: %w", err)
	}
	return &p, nil
}

// Text returns the phrase body for a key, or the fallback when the key is
// absent.
func (s *PhraseStore) Text(ctx context.Context, title, fallback string) (string, error) {
	p, err := s.Find(ctx, s.db, title)
	if err != nil {
		return "", err
	}
	if p == nil {
		return fallback, nil
	}
	return p.Text, nil
}

// Upsert stores a phrase body under a key, creating the phrase if absent.
func (s *PhraseStore) Upsert(ctx context.Context, q Queryer, title, text string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO phrases (title, phrase_text)
		VALUES ($1, $2)
		ON CONFLICT (title) DO UPDATE SET phrase_text = EXCLUDED.phrase_text
	`, title, text)
	if err != nil {
		return fmt.Errorf("upsert phrase: %w", err)
	}
	return nil
}

// Rename rewrites a phrase key in place, keeping the body bound to the
// new key. Used when a category is renumbered.
func (s *PhraseStore) Rename(ctx context.Context, q Queryer, oldTitle, newTitle string) error {
	_, err := q.ExecContext(ctx, `UPDATE phrases SET title = $1 WHERE title = $2`, newTitle, oldTitle)
	if err != nil {
		return fmt.Errorf("rename phrase: %w", err)
	}
	return nil
}

// Delete removes a phrase by key. Deleting a missing key is not an error.
func (s *PhraseStore) Delete(ctx context.Context, q Queryer, title string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM phrases WHERE title = $1`, title)
	if err != nil {
		return fmt.Errorf("delete phrase: %w", err)
	}
	return nil
}
