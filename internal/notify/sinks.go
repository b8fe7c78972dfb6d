// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package notify

import (
	"context"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
)

// Alerter delivers the private warning alert to a recipient.
type Alerter struct {
	alerts *store.AlertStore
}

// NewAlerter creates the alert sink.
func NewAlerter(alerts *store.AlertStore) *Alerter {
	return &Alerter{alerts: alerts}
}

// Alert records a warning alert from the given identity inside the
// caller's transaction.
func (a *Alerter) Alert(ctx context.Context, q store.Queryer, from Identity, toUserID int64, contentType string, contentID int64, action string) error {
	return a.alerts.Insert(ctx, q, toUserID, from.UserID, from.Username, contentType, contentID, action)
}

// Conversations creates private conversations and, post-commit, alerts
// their recipients.
type Conversations struct {
	conversations *store.ConversationStore
	alerts        *store.AlertStore
}

// NewConversations creates the conversation sink.
func NewConversations(conversations *store.ConversationStore, alerts *store.AlertStore) *Conversations {
	return &Conversations{conversations: conversations, alerts: alerts}
}

// Start creates a conversation under the given sender identity inside
// the caller's transaction and returns its id.
func (c *Conversations) Start(ctx context.Context, q store.Queryer, from Identity, title, message string, recipientIDs []int64) (int64, error) {
	return c.conversations.Start(ctx, q, from.UserID, from.Username, title, message, recipientIDs)
}

// SendNotifications alerts every recipient of the conversation except
// the sender. Runs post-commit in its own transaction scope (the plain
// DB connection); failures are the queue's to log.
func (c *Conversations) SendNotifications(ctx context.Context, q store.Queryer, as Identity, conversationID int64) error {
	recipients, err := c.conversations.Recipients(ctx, conversationID)
	if err != nil {
		return err
	}
	for _, recipientID := range recipients {
		if recipientID == as.UserID {
			continue
		}
		if err := c.alerts.Insert(ctx, q, recipientID, as.UserID, as.Username, "conversation", conversationID, "insert"); err != nil {
			return err
		}
	}
	return nil
}

// Threads posts to the public moderation-summary forum and, post-commit,
// alerts forum watchers.
type Threads struct {
	threads *store.ThreadStore
	alerts  *store.AlertStore
}

// NewThreads creates the thread sink.
func NewThreads(threads *store.ThreadStore, alerts *store.AlertStore) *Threads {
	return &Threads{threads: threads, alerts: alerts}
}

// CreateThread opens an automated summary thread in the forum, applying
// the forum's default prefix if it has one. Returns ok=false when the
// forum does not exist.
func (t *Threads) CreateThread(ctx context.Context, q store.Queryer, as Identity, forumID int64, title, message string) (threadID int64, ok bool, err error) {
	prefix, found, err := t.threads.ForumDefaultPrefix(ctx, q, forumID)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}

	threadID, err = t.threads.CreateThread(ctx, q, forumID, as.UserID, as.Username, prefix, title, message, true)
	if err != nil {
		return 0, false, err
	}
	return threadID, true, nil
}

// Reply appends the summary message to the configured thread. Returns
// ok=false when the thread does not exist.
func (t *Threads) Reply(ctx context.Context, q store.Queryer, as Identity, threadID int64, message string) (postID int64, ok bool, err error) {
	exists, err := t.threads.ThreadExists(ctx, q, threadID)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, nil
	}

	postID, err = t.threads.Reply(ctx, q, threadID, as.UserID, as.Username, message)
	if err != nil {
		return 0, false, err
	}
	return postID, true, nil
}

// SendNotifications alerts every watcher of the thread's forum except
// the poster.
func (t *Threads) SendNotifications(ctx context.Context, q store.Queryer, as Identity, threadID int64) error {
	forumID, found, err := t.threads.ThreadForum(ctx, threadID)
	if err != nil || !found {
		return err
	}
	watchers, err := t.threads.ForumWatchers(ctx, forumID)
	if err != nil {
		return err
	}
	for _, watcherID := range watchers {
		if watcherID == as.UserID {
			continue
		}
		if err := t.alerts.Insert(ctx, q, watcherID, as.UserID, as.Username, "thread", threadID, "insert"); err != nil {
			return err
		}
	}
	return nil
}
