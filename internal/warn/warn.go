// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

// Package warn orchestrates warning issuance: persisting the warning,
// alerting the recipient, opening the private conversation under the
// effective (possibly anonymized) issuer, posting to the public summary
// forum, and deferring notification delivery until after commit.
package warn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/markdown"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/notify"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/perms"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
)

// AlertSink delivers a private alert.
type AlertSink interface {
	Alert(ctx context.Context, q store.Queryer, from notify.Identity, toUserID int64, contentType string, contentID int64, action string) error
}

// ConversationSink creates private conversations and delivers their
// notifications post-commit.
type ConversationSink interface {
	Start(ctx context.Context, q store.Queryer, from notify.Identity, title, message string, recipientIDs []int64) (int64, error)
	SendNotifications(ctx context.Context, q store.Queryer, as notify.Identity, conversationID int64) error
}

// ThreadSink posts to the public summary forum and delivers watcher
// notifications post-commit.
type ThreadSink interface {
	CreateThread(ctx context.Context, q store.Queryer, as notify.Identity, forumID int64, title, message string) (int64, bool, error)
	Reply(ctx context.Context, q store.Queryer, as notify.Identity, threadID int64, message string) (int64, bool, error)
	SendNotifications(ctx context.Context, q store.Queryer, as notify.Identity, threadID int64) error
}

// Options are the installation-wide warning settings.
type Options struct {
	// AnonymizeConversations hides the real issuer from recipients who
	// lack the view-issuer capability.
	AnonymizeConversations bool
	// AnonymousUsername is the display name of the synthesized anonymous
	// moderator identity.
	AnonymousUsername string
	// SummaryForumID, when set, receives a new automated thread per
	// warning. Takes precedence over SummaryThreadID.
	SummaryForumID int64
	// SummaryThreadID, when set (and no summary forum is configured),
	// receives a reply per warning.
	SummaryThreadID int64
	// PostingUserID is the designated identity that authors summary
	// posts. Falls back to the real issuer when unset.
	PostingUserID int64
}

// Phrase keys and fallback templates for the outbound texts.
const (
	summaryTitleKey   = "warning_summary.title"
	summaryMessageKey = "warning_summary.message"

	defaultSummaryTitle   = "Warning issued to {username}"
	defaultSummaryMessage = "{username} received **{warning_title}** ({warning_points} points, expires {warning_expiry}) from {warned_by}.\n\n{action}"

	conversationTitleKey   = "warning_conversation.title"
	conversationMessageKey = "warning_conversation.message"

	defaultConversationTitle   = "You have received a warning: {warning_title}"
	defaultConversationMessage = "{username}, you have been warned for **{warning_title}**.\n\nPoints: {warning_points}\nExpires: {warning_expiry}"
)

// Request carries everything needed to issue one warning. It replaces
// ambient shared state: the whole input travels through the call chain
// explicitly.
type Request struct {
	UserID       int64
	WarnedByID   int64
	DefinitionID int64 // models.CustomDefinitionID for a fully custom warning
	CustomTitle  string
	Points       *int   // nil: definition default
	ExpiryDate   *int64 // nil: definition default; 0: permanent
	Notes        string

	SendAlert bool

	StartConversation   bool
	ConversationTitle   string // empty: phrase template
	ConversationMessage string // empty: phrase template

	ContentAction string // description of any applied consequence, feeds templates
}

// Warner is the warning-issuance service.
type Warner struct {
	db          *sql.DB
	users       *store.UserStore
	definitions *store.DefinitionStore
	warnings    *store.WarningStore
	phrases     *store.PhraseStore
	oracle      perms.Oracle

	alerts        AlertSink
	conversations ConversationSink
	threads       ThreadSink
	queue         *notify.Queue

	opts Options
}

// NewWarner creates the warning-issuance service.
func NewWarner(db *sql.DB, users *store.UserStore, definitions *store.DefinitionStore, warnings *store.WarningStore, phrases *store.PhraseStore, oracle perms.Oracle, alerts AlertSink, conversations ConversationSink, threads ThreadSink, queue *notify.Queue, opts Options) *Warner {
	if opts.AnonymousUsername == "" {
		opts.AnonymousUsername = "Moderator"
	}
	return &Warner{
		db:            db,
		users:         users,
		definitions:   definitions,
		warnings:      warnings,
		phrases:       phrases,
		oracle:        oracle,
		alerts:        alerts,
		conversations: conversations,
		threads:       threads,
		queue:         queue,
		opts:          opts,
	}
}

// IssueCustom issues a fully custom warning (no definition).
func (s *Warner) IssueCustom(ctx context.Context, userID, warnedByID int64, title string, points int, expiryDate int64, req Request) (*models.Warning, error) {
	req.UserID = userID
	req.WarnedByID = warnedByID
	req.DefinitionID = models.CustomDefinitionID
	req.CustomTitle = title
	req.Points = &points
	req.ExpiryDate = &expiryDate
	return s.Issue(ctx, req)
}

// Issue runs the full fan-out for one warning. Persistence effects
// (warning row, alert, conversation setup) commit atomically; the
// summary-forum step runs as its own transaction afterwards so its
// failure cannot unwind the warning; notification deliveries are
// published to the post-commit queue.
func (s *Warner) Issue(ctx context.Context, req Request) (*models.Warning, error) {
	recipient, issuer, definition, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	warning := s.buildWarning(req, definition)

	if err := s.validate(ctx, recipient, issuer); err != nil {
		return nil, err
	}

	effectiveIssuer, err := s.effectiveIssuer(ctx, recipient, issuer)
	if err != nil {
		return nil, err
	}

	imp := notify.NewImpersonator(notify.IdentityOf(issuer))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin warning tx: %w", err)
	}
	defer tx.Rollback()

	saved, err := s.warnings.Insert(ctx, tx, warning)
	if err != nil {
		return nil, err
	}

	if req.SendAlert {
		if err := s.alerts.Alert(ctx, tx, effectiveIssuer, recipient.ID, "warning", saved.ID, "warning"); err != nil {
			return nil, err
		}
	}

	var conversationID int64
	if req.StartConversation {
		conversationID, err = s.setupConversation(ctx, tx, imp, effectiveIssuer, recipient, saved, req)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit warning tx: %w", err)
	}

	// Separately transacted: a summary-post failure is logged, never
	// unwound into the committed warning.
	threadID, postingIdentity := s.summaryNotifications(ctx, recipient, issuer, saved, req)

	if conversationID != 0 {
		convID := conversationID
		s.queue.Publish(notify.Task{
			Name: "warning_conversation",
			As:   effectiveIssuer,
			Run: func(ctx context.Context, as notify.Identity) error {
				return s.conversations.SendNotifications(ctx, s.db, as, convID)
			},
		})
	}
	if threadID != 0 {
		tid := threadID
		s.queue.Publish(notify.Task{
			Name: "warning_summary",
			As:   postingIdentity,
			Run: func(ctx context.Context, as notify.Identity) error {
				return s.threads.SendNotifications(ctx, s.db, as, tid)
			},
		})
	}

	slog.Info("warning issued",
		"warning_id", saved.ID,
		"user_id", saved.UserID,
		"points", saved.Points,
		"definition_id", saved.DefinitionID,
	)
	return saved, nil
}

// load resolves the participants and definition, reporting every missing
// piece together.
func (s *Warner) load(ctx context.Context, req Request) (recipient, issuer *models.User, definition *models.WarningDefinition, err error) {
	verr := &ValidationError{}

	recipient, err = s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	if recipient == nil {
		verr.add(fmt.Sprintf("recipient %d does not exist", req.UserID))
	}

	issuer, err = s.users.FindByID(ctx, req.WarnedByID)
	if err != nil {
		return nil, nil, nil, err
	}
	if issuer == nil {
		verr.add(fmt.Sprintf("issuer %d does not exist", req.WarnedByID))
	}

	definition, err = s.definitions.FindByID(ctx, req.DefinitionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if definition == nil {
		verr.add(fmt.Sprintf("warning definition %d does not exist", req.DefinitionID))
	}

	if err := verr.orNil(); err != nil {
		return nil, nil, nil, err
	}
	return recipient, issuer, definition, nil
}

// buildWarning assembles the warning row from the request and its
// definition. For the synthetic custom definition the stored title is
// blanked; a caller-supplied custom title wins whenever the definition
// allows one.
func (s *Warner) buildWarning(req Request, definition *models.WarningDefinition) *models.Warning {
	w := &models.Warning{
		UserID:       req.UserID,
		WarnedByID:   req.WarnedByID,
		DefinitionID: definition.ID,
		Title:        definition.Title,
		Points:       definition.Points,
		WarningDate:  time.Now(),
		Notes:        req.Notes,
	}

	if definition.ID == models.CustomDefinitionID {
		w.Title = ""
	}
	if req.CustomTitle != "" && (definition.AllowCustomTitle || definition.ID == models.CustomDefinitionID) {
		w.Title = req.CustomTitle
	}

	if req.Points != nil {
		w.Points = *req.Points
	}

	switch {
	case req.ExpiryDate != nil:
		w.ExpiryDate = *req.ExpiryDate
	case definition.ExpiryDays > 0:
		w.ExpiryDate = w.WarningDate.Add(time.Duration(definition.ExpiryDays) * 24 * time.Hour).Unix()
	default:
		w.ExpiryDate = models.PermanentExpiry
	}

	return w
}

// validate blocks the transaction unless the warning would be visible to
// its eventual assembler and the issuer may warn at all. Failures are
// aggregated.
func (s *Warner) validate(ctx context.Context, recipient, issuer *models.User) error {
	verr := &ValidationError{}

	canGive, err := s.oracle.HasCapability(ctx, issuer.ID, models.CapGiveWarnings)
	if err != nil {
		return err
	}
	if !canGive {
		verr.add(fmt.Sprintf("user %d may not issue warnings", issuer.ID))
	}

	canView, err := s.oracle.HasCapability(ctx, issuer.ID, models.CapViewWarnings)
	if err != nil {
		return err
	}
	if !canView {
		verr.add("issued warning would not be visible to its issuer")
	}

	if recipient.ID == issuer.ID {
		verr.add("a user cannot warn themselves")
	}

	return verr.orNil()
}

// effectiveIssuer decides whose identity outbound notifications carry:
// the real issuer unless anonymized conversations are enabled, in which
// case the recipient's own view-issuer capability decides between the
// real issuer and the anonymous moderator.
func (s *Warner) effectiveIssuer(ctx context.Context, recipient, issuer *models.User) (notify.Identity, error) {
	if !s.opts.AnonymizeConversations {
		return notify.IdentityOf(issuer), nil
	}

	canViewIssuer, err := s.oracle.HasCapability(ctx, recipient.ID, models.CapViewWarningIssuer)
	if err != nil {
		return notify.Identity{}, err
	}
	if canViewIssuer {
		return notify.IdentityOf(issuer), nil
	}
	return notify.Identity{UserID: 0, Username: s.opts.AnonymousUsername}, nil
}

// setupConversation creates the private conversation inside the warning
// transaction, impersonating the effective issuer for the duration. The
// impersonation scope is released on every exit path.
func (s *Warner) setupConversation(ctx context.Context, tx store.Queryer, imp *notify.Impersonator, effectiveIssuer notify.Identity, recipient *models.User, warning *models.Warning, req Request) (int64, error) {
	scope := imp.As(effectiveIssuer)
	defer scope.Release()

	title := req.ConversationTitle
	if title == "" {
		var err error
		title, err = s.phrases.Text(ctx, conversationTitleKey, defaultConversationTitle)
		if err != nil {
			return 0, err
		}
	}
	message := req.ConversationMessage
	if message == "" {
		var err error
		message, err = s.phrases.Text(ctx, conversationMessageKey, defaultConversationMessage)
		if err != nil {
			return 0, err
		}
	}

	tokens := BuildReplacements(recipient, warning, effectiveIssuer.Username, req.ContentAction)
	title = tokens.Apply(title)

	body, err := markdown.ToHTML(tokens.Apply(message))
	if err != nil {
		return 0, fmt.Errorf("render conversation message: %w", err)
	}

	return s.conversations.Start(ctx, tx, imp.Current(), title, body, []int64{recipient.ID})
}

// summaryNotifications posts the public moderation summary in its own
// transaction: a new automated thread in the summary forum, or a reply
// to the summary thread. Returns the thread to notify about (0 if none)
// and the posting identity used.
func (s *Warner) summaryNotifications(ctx context.Context, recipient, issuer *models.User, warning *models.Warning, req Request) (int64, notify.Identity) {
	if s.opts.SummaryForumID == 0 && s.opts.SummaryThreadID == 0 {
		return 0, notify.Identity{}
	}

	postingIdentity := notify.IdentityOf(issuer)
	if s.opts.PostingUserID != 0 {
		poster, err := s.users.FindByID(ctx, s.opts.PostingUserID)
		if err != nil {
			slog.Error("summary posting identity lookup failed", "user_id", s.opts.PostingUserID, "error", err)
			return 0, notify.Identity{}
		}
		if poster != nil {
			postingIdentity = notify.IdentityOf(poster)
		}
	}

	// The summary post always names the real issuer; only the recipient-
	// facing surfaces are anonymized.
	tokens := BuildReplacements(recipient, warning, issuer.Username, req.ContentAction)

	messageTemplate, err := s.phrases.Text(ctx, summaryMessageKey, defaultSummaryMessage)
	if err != nil {
		slog.Error("summary message phrase lookup failed", "error", err)
		return 0, notify.Identity{}
	}
	body, err := markdown.ToHTML(tokens.Apply(messageTemplate))
	if err != nil {
		slog.Error("summary message render failed", "error", err)
		return 0, notify.Identity{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("summary post begin failed", "error", err)
		return 0, notify.Identity{}
	}
	defer tx.Rollback()

	imp := notify.NewImpersonator(notify.IdentityOf(issuer))
	scope := imp.As(postingIdentity)
	defer scope.Release()

	var threadID int64
	if s.opts.SummaryForumID != 0 {
		titleTemplate, err := s.phrases.Text(ctx, summaryTitleKey, defaultSummaryTitle)
		if err != nil {
			slog.Error("summary title phrase lookup failed", "error", err)
			return 0, notify.Identity{}
		}

		id, ok, err := s.threads.CreateThread(ctx, tx, imp.Current(), s.opts.SummaryForumID, tokens.Apply(titleTemplate), body)
		if err != nil || !ok {
			s.logSummaryFailure("summary thread create failed", warning.ID, err)
			return 0, notify.Identity{}
		}
		threadID = id
	} else {
		_, ok, err := s.threads.Reply(ctx, tx, imp.Current(), s.opts.SummaryThreadID, body)
		if err != nil || !ok {
			s.logSummaryFailure("summary thread reply failed", warning.ID, err)
			return 0, notify.Identity{}
		}
		threadID = s.opts.SummaryThreadID
	}

	if err := tx.Commit(); err != nil {
		s.logSummaryFailure("summary post commit failed", warning.ID, err)
		return 0, notify.Identity{}
	}

	return threadID, postingIdentity
}

// logSummaryFailure records a best-effort summary-post failure. The
// warning itself stays committed.
func (s *Warner) logSummaryFailure(msg string, warningID int64, err error) {
	if err != nil {
		slog.Error(msg, "warning_id", warningID, "error", err)
		return
	}
	slog.Warn(msg, "warning_id", warningID, "reason", "target missing")
}
