// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// ProcessedUpdate model used to implement at-least-once tolerance in the
// dispatch pipeline: the same platform update may be delivered twice around a
// polling/webhook mode switch, and only the first delivery may claim it.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// ErrDuplicate indicates that an update id has already been claimed by a
// previous dispatch attempt.
var ErrDuplicate = errors.New("duplicate")

// ClaimUpdate inserts a marker row for updateID and returns ErrDuplicate on
// unique violation. The ttl bounds how long markers are retained.
func ClaimUpdate(ctx context.Context, db *gorm.DB, updateID int64, ttl time.Duration) error {
	now := time.Now().UTC()
	rec := &domain.ProcessedUpdate{
		ID:        uuid.NewString(),
		UpdateID:  updateID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// PurgeExpiredUpdateMarkers removes markers past their retention window.
// Telegram update ids are monotonically increasing, so an expired marker can
// never collide with a live update again.
func PurgeExpiredUpdateMarkers(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.ProcessedUpdate{})
	return res.RowsAffected, res.Error
}
