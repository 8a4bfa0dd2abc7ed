// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only write path for
// interactions and error records plus the small aggregate queries the
// analytics service composes into reports.
//
// All window parameters are half-open [start, end) intervals. Grouping by
// calendar bucket is done in the service layer; the queries here stay plain
// scans and GROUP BYs so they behave identically on every SQLite build.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// CommandCount is one row of the command leaderboard.
type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

// KindCount is the number of interactions recorded for one event kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// ErrorKindCount is the number of error records for one error kind.
type ErrorKindCount struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// InsertInteraction appends a single interaction row.
func InsertInteraction(ctx context.Context, db *gorm.DB, in *domain.Interaction) error {
	return db.WithContext(ctx).Create(in).Error
}

// InsertErrorRecord appends a single error record row.
func InsertErrorRecord(ctx context.Context, db *gorm.DB, rec *domain.ErrorRecord) error {
	return db.WithContext(ctx).Create(rec).Error
}

// CountInteractions returns total and successful interaction counts in the window.
func CountInteractions(ctx context.Context, db *gorm.DB, start, end time.Time) (total, success int64, err error) {
	err = db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&total).Error
	if err != nil || total == 0 {
		return 0, 0, err
	}
	err = db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("created_at >= ? AND created_at < ? AND success = ?", start, end, true).
		Count(&success).Error
	return total, success, err
}

// CountDistinctPrincipals returns the number of distinct principals that
// produced interactions in the window.
func CountDistinctPrincipals(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Distinct("principal_id").
		Count(&n).Error
	return n, err
}

// AvgLatencyMS returns the mean processing latency over the window, in
// milliseconds. Zero when the window is empty.
func AvgLatencyMS(ctx context.Context, db *gorm.DB, start, end time.Time) (float64, error) {
	var row struct {
		Avg *float64
	}
	err := db.WithContext(ctx).Model(&domain.Interaction{}).
		Select("AVG(latency_ms) as avg").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&row).Error
	if err != nil || row.Avg == nil {
		return 0, err
	}
	return *row.Avg, nil
}

// InteractionKindCounts returns per-kind interaction counts in the window,
// most frequent first.
func InteractionKindCounts(ctx context.Context, db *gorm.DB, start, end time.Time) ([]KindCount, error) {
	var out []KindCount
	err := db.WithContext(ctx).Model(&domain.Interaction{}).
		Select("kind, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("kind").
		Order("count desc, kind asc").
		Scan(&out).Error
	return out, err
}

// TopCommands ranks commands by usage count inside the window, ties broken by
// command name ascending, capped at limit.
func TopCommands(ctx context.Context, db *gorm.DB, start, end time.Time, limit int) ([]CommandCount, error) {
	var out []CommandCount
	err := db.WithContext(ctx).Model(&domain.Interaction{}).
		Select("command, COUNT(*) as count").
		Where("kind = ? AND command <> '' AND created_at >= ? AND created_at < ?",
			domain.KindCommand, start, end).
		Group("command").
		Order("count desc, command asc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// InteractionTimes returns the creation timestamps of all interactions in the
// window, oldest first. The analytics service buckets them by calendar
// granularity in Go.
func InteractionTimes(ctx context.Context, db *gorm.DB, start, end time.Time) ([]time.Time, error) {
	var rows []domain.Interaction
	err := db.WithContext(ctx).Model(&domain.Interaction{}).
		Select("created_at").
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CreatedAt)
	}
	return out, nil
}

// CountErrors returns the number of error records in the window.
func CountErrors(ctx context.Context, db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ErrorRecord{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&n).Error
	return n, err
}

// ErrorKindCounts returns per-kind error counts in the window, most frequent
// first, capped at limit.
func ErrorKindCounts(ctx context.Context, db *gorm.DB, start, end time.Time, limit int) ([]ErrorKindCount, error) {
	var out []ErrorKindCount
	err := db.WithContext(ctx).Model(&domain.ErrorRecord{}).
		Select("kind, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("kind").
		Order("count desc, kind asc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// RecentErrors returns the newest error records in the window, capped at limit.
func RecentErrors(ctx context.Context, db *gorm.DB, start, end time.Time, limit int) ([]domain.ErrorRecord, error) {
	var out []domain.ErrorRecord
	err := db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
