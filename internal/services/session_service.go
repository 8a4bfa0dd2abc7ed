// Package services – SessionService
//
// This file implements the SessionService, which owns the lifecycle of opaque
// session tokens: minting, validation, refresh, revocation, and the periodic
// expiry sweep. Tokens are 256 bits of crypto/rand entropy and the service is
// safe under concurrent validation/refresh of the same token: refresh is a
// conditional UPDATE (last-writer-wins on expiry), validation is a single
// atomic fetch plus checks on the loaded row.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/repo"
)

// SessionService provides session issuance, validation, and revocation.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// TTL is the session lifetime applied at creation and refresh.
	TTL time.Duration
	// Grace is how long expired rows are retained before the sweep removes them.
	Grace time.Duration
	// Log is used by the background sweep.
	Log zerolog.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB, ttl, grace time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{DB: db, TTL: ttl, Grace: grace, Log: log}
}

// Create mints a new session for the principal and persists it with
// expiry = now + TTL. It returns the stored session including the token.
func (s *SessionService) Create(ctx context.Context, principalID, chatID int64, data string) (*domain.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		Token:          token,
		PrincipalID:    principalID,
		ChatID:         chatID,
		ExpiresAt:      now.Add(s.TTL),
		Active:         true,
		LastAccessedAt: now,
		Data:           data,
		CreatedAt:      now,
	}
	if err := repo.CreateSession(ctx, s.DB, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session for token if it is currently valid: present,
// active, and unexpired. Invalid sessions yield ErrSessionNotFound. The
// last-accessed timestamp is touched best-effort.
func (s *SessionService) Get(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := repo.GetSession(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	now := time.Now().UTC()
	if !sess.Active || !now.Before(sess.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	if err := repo.TouchSession(ctx, s.DB, token, now); err != nil {
		s.Log.Warn().Err(err).Msg("session touch failed")
	}
	return sess, nil
}

// IsValid reports whether token names an active, unexpired session.
func (s *SessionService) IsValid(ctx context.Context, token string) bool {
	_, err := s.Get(ctx, token)
	return err == nil
}

// Refresh extends a currently valid session by TTL from now (not from the
// original creation time). It returns false, without creating or modifying
// anything, when the token is unknown, inactive, or already expired.
func (s *SessionService) Refresh(ctx context.Context, token string) (*domain.Session, bool) {
	now := time.Now().UTC()
	affected, err := repo.ExtendSession(ctx, s.DB, token, now, now.Add(s.TTL))
	if err != nil {
		s.Log.Error().Err(err).Msg("session refresh failed")
		return nil, false
	}
	if affected == 0 {
		return nil, false
	}
	sess, err := repo.GetSession(ctx, s.DB, token)
	if err != nil {
		return nil, false
	}
	return sess, true
}

// Invalidate marks the session inactive. Idempotent: invalidating an unknown
// or already-inactive token succeeds.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	return repo.DeactivateSession(ctx, s.DB, token)
}

// InvalidateAllForPrincipal revokes every session owned by the principal,
// typically on block. Idempotent.
func (s *SessionService) InvalidateAllForPrincipal(ctx context.Context, principalID int64) error {
	return repo.DeactivateSessionsForPrincipal(ctx, s.DB, principalID)
}

// CleanupExpired deletes sessions whose expiry is older than now-Grace.
// Rows inside the grace window are kept: they could still race an in-flight
// refresh, and the expiry check (not presence) is what gates validity anyway.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredSessions(ctx, s.DB, time.Now().UTC(), s.Grace)
}

// RunCleanup sweeps expired sessions every interval until ctx is cancelled.
func (s *SessionService) RunCleanup(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.CleanupExpired(ctx)
			if err != nil {
				s.Log.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				s.Log.Info().Int64("removed", n).Msg("session sweep")
			}
		}
	}
}

// newToken returns 32 bytes of crypto/rand entropy, hex encoded (64 chars).
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
