// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Principal
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a principal is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertPrincipal inserts a principal on first sight or refreshes its identity
// fields on conflict. Blocked state, seen timestamps, and the interaction
// counter are never touched here; they have their own write paths.
func UpsertPrincipal(ctx context.Context, db *gorm.DB, p *domain.Principal) error {
	now := time.Now().UTC()
	if p.FirstSeenAt.IsZero() {
		p.FirstSeenAt = now
	}
	if p.LastSeenAt.IsZero() {
		p.LastSeenAt = now
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "first_name", "last_name", "language_code", "is_bot", "updated_at",
			}),
		}).
		Create(p).Error
}

// GetPrincipal fetches a single principal by platform id, or ErrNotFound.
func GetPrincipal(ctx context.Context, db *gorm.DB, id int64) (*domain.Principal, error) {
	var p domain.Principal
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// TouchPrincipal bumps last_seen_at and increments the lifetime interaction
// counter in a single UPDATE. The increment happens inside SQL so concurrent
// events for the same principal cannot lose counts.
func TouchPrincipal(ctx context.Context, db *gorm.DB, id int64, seenAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Principal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_seen_at":      seenAt,
			"interaction_count": gorm.Expr("interaction_count + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPrincipalBlocked flips the blocked flag (and reason) for a principal.
// Returns ErrNotFound when the principal does not exist.
func SetPrincipalBlocked(ctx context.Context, db *gorm.DB, id int64, blocked bool, reason string) error {
	res := db.WithContext(ctx).
		Model(&domain.Principal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"blocked":      blocked,
			"block_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPrincipals returns the total number of principals.
func CountPrincipals(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Principal{}).Count(&total).Error
	return total, err
}

// ListPrincipalsPage returns a paginated slice of principals ordered by most
// recently seen. Use CountPrincipals to obtain the total for pagination
// metadata.
func ListPrincipalsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Principal, error) {
	var out []domain.Principal
	err := db.WithContext(ctx).
		Order("last_seen_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
