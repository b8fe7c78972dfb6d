// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

// Package notify holds the outbound side of warning issuance: the
// scoped impersonation helper, the post-commit delivery queue, and the
// database-backed notification sinks.
package notify

import (
	"sync"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// Identity is the acting user presented on outbound notifications. The
// zero UserID with a non-empty Username is the synthesized anonymous
// moderator.
type Identity struct {
	UserID   int64
	Username string
}

// IdentityOf captures a user as an acting identity.
func IdentityOf(u *models.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// Impersonator tracks the acting identity for one unit of work. Entering
// impersonation returns a Scope whose Release restores the prior
// identity; Release must run on every exit path, including failure, so a
// mid-impersonation error never leaks the assumed identity to later work.
type Impersonator struct {
	mu      sync.Mutex
	current Identity
}

// NewImpersonator creates an impersonator acting as the given identity.
func NewImpersonator(actor Identity) *Impersonator {
	return &Impersonator{current: actor}
}

// Current returns the identity currently in effect.
func (im *Impersonator) Current() Identity {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.current
}

// Scope is an impersonation handle. Release restores the identity that
// was in effect when the scope was entered.
type Scope struct {
	im    *Impersonator
	prior Identity
	once  sync.Once
}

// As switches the acting identity and returns the scope that undoes it.
func (im *Impersonator) As(id Identity) *Scope {
	im.mu.Lock()
	defer im.mu.Unlock()
	scope := &Scope{im: im, prior: im.current}
	im.current = id
	return scope
}

// Release restores the prior identity. Safe to call more than once.
func (s *Scope) Release() {
	s.once.Do(func() {
		s.im.mu.Lock()
		defer s.im.mu.Unlock()
		s.im.current = s.prior
	})
}
