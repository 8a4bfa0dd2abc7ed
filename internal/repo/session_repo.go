// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model.
//
// Error semantics match the rest of the package: missing rows surface as
// ErrNotFound, everything else propagates the raw gorm error.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// CreateSession inserts a new session row. The caller is responsible for
// minting the token value.
func CreateSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	return db.WithContext(ctx).Create(s).Error
}

// GetSession fetches a session by token, or ErrNotFound. It performs a single
// atomic fetch; validity (active + expiry) is the caller's concern.
func GetSession(ctx context.Context, db *gorm.DB, token string) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).First(&s, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchSession updates last_accessed_at. Best-effort; callers may ignore the
// returned error.
func TouchSession(ctx context.Context, db *gorm.DB, token string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("token = ?", token).
		Update("last_accessed_at", at).Error
}

// ExtendSession moves expires_at forward for a session that is still active
// and unexpired as of now. Returns the number of rows affected: 0 means the
// session was missing, inactive, or already expired (refresh must fail), 1
// means the expiry was recomputed from now. Concurrent refreshes are
// last-writer-wins on the expiry column.
func ExtendSession(ctx context.Context, db *gorm.DB, token string, now, newExpiry time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("token = ? AND active = ? AND expires_at > ?", token, true, now).
		Updates(map[string]any{
			"expires_at":       newExpiry,
			"last_accessed_at": now,
		})
	return res.RowsAffected, res.Error
}

// DeactivateSession sets active=false for a token. Idempotent: deactivating a
// missing or already-inactive session is not an error.
func DeactivateSession(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("token = ?", token).
		Update("active", false).Error
}

// DeactivateSessionsForPrincipal sets active=false on every session owned by
// the principal. Idempotent.
func DeactivateSessionsForPrincipal(ctx context.Context, db *gorm.DB, principalID int64) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("principal_id = ?", principalID).
		Update("active", false).Error
}

// DeleteExpiredSessions removes sessions whose expiry is older than
// now-grace. The expiry check (rather than mere presence) keeps rows that an
// in-flight refresh could still legitimately extend. Returns the number of
// rows removed.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time, grace time.Duration) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", now.Add(-grace)).
		Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
