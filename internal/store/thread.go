// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ThreadStore persists the summary-forum side of the notification sink:
// forums, threads and posts.
type ThreadStore struct {
	db *sql.DB
}

// NewThreadStore returns a new ThreadStore.
func NewThreadStore(db *sql.DB) *ThreadStore {
	return &ThreadStore{db: db}
}

// ForumDefaultPrefix returns a forum's default thread prefix. found is
// false when the forum does not exist.
func (s *ThreadStore) ForumDefaultPrefix(ctx context.Context, q Queryer, forumID int64) (prefix string, found bool, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT default_prefix FROM forums WHERE forum_id = $1
	`, forumID).Scan(&prefix)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find forum: %w", err)
	}
	return prefix, true, nil
}

// ThreadExists reports whether a thread row exists.
func (s *ThreadStore) ThreadExists(ctx context.Context, q Queryer, threadID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM threads WHERE thread_id = $1)
	`, threadID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("thread exists: %w", err)
	}
	return exists, nil
}

// CreateThread inserts an automated thread with its opening post and
// returns the thread id. posterID/posterName are the impersonated posting
// identity, not the real issuer.
func (s *ThreadStore) CreateThread(ctx context.Context, q Queryer, forumID, posterID int64, posterName, prefix, title, message string, automated bool) (int64, error) {
	var threadID int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO threads (forum_id, title, prefix, user_id, username, is_automated)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING thread_id
	`, forumID, title, prefix, posterID, posterName, automated).Scan(&threadID)
	if err != nil {
		return 0, fmt.Errorf("create thread: %w", err)
	}

	if _, err := s.insertPost(ctx, q, threadID, posterID, posterName, message, 0); err != nil {
		return 0, err
	}
	return threadID, nil
}

// Reply appends a post to an existing thread and bumps its reply count.
func (s *ThreadStore) Reply(ctx context.Context, q Queryer, threadID, posterID int64, posterName, message string) (int64, error) {
	var position int
	err := q.QueryRowContext(ctx, `
		UPDATE threads SET reply_count = reply_count + 1
		WHERE thread_id = $1
		RETURNING reply_count
	`, threadID).Scan(&position)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("reply: thread %d not found", threadID)
	}
	if err != nil {
		return 0, fmt.Errorf("bump reply count: %w", err)
	}

	return s.insertPost(ctx, q, threadID, posterID, posterName, message, position)
}

func (s *ThreadStore) insertPost(ctx context.Context, q Queryer, threadID, posterID int64, posterName, message string, position int) (int64, error) {
	var postID int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO posts (thread_id, user_id, username, message, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING post_id
	`, threadID, posterID, posterName, message, position).Scan(&postID)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return postID, nil
}

// ForumWatchers returns the ids of users watching a forum.
func (s *ThreadStore) ForumWatchers(ctx context.Context, forumID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM forum_watchers WHERE forum_id = $1 ORDER BY user_id
	`, forumID)
	if err != nil {
		return nil, fmt.Errorf("forum watchers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ThreadForum returns the forum a thread belongs to. found is false when
// the thread does not exist.
func (s *ThreadStore) ThreadForum(ctx context.Context, threadID int64) (forumID int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT forum_id FROM threads WHERE thread_id = $1
	`, threadID).Scan(&forumID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("thread forum: %w", err)
	}
	return forumID, true, nil
}
