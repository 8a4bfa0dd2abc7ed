// Package services – AnalyticsService
//
// This file implements the AnalyticsService, the reporting layer over the
// interactions and error_records tables. Recording is a single best-effort
// insert per event; the dispatcher calls it inline and treats failures as
// log-only. The query side resolves named reporting periods into half-open
// UTC windows and aggregates counts, top commands, activity buckets, and
// error breakdowns.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/repo"
)

// Named reporting periods accepted by the analytics endpoints.
const (
	PeriodLastHour = "last-hour"
	PeriodLast24h  = "last-24h"
	PeriodLast7d   = "last-7d"
	PeriodLast30d  = "last-30d"
	PeriodLast90d  = "last-90d"
	PeriodLastYear = "last-year"
	PeriodCustom   = "custom"
)

// Activity granularities accepted by UserActivity.
const (
	GranularityHour  = "hour"
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// Statistics is the aggregate usage report for one window.
type Statistics struct {
	Start              time.Time        `json:"start"`
	End                time.Time        `json:"end"`
	TotalInteractions  int64            `json:"total_interactions"`
	SuccessCount       int64            `json:"success_count"`
	ErrorCount         int64            `json:"error_count"`
	SuccessRate        float64          `json:"success_rate"`
	DistinctPrincipals int64            `json:"distinct_principals"`
	AvgLatencyMS       float64          `json:"avg_latency_ms"`
	KindCounts         []repo.KindCount `json:"kind_counts"`
	RecordedErrors     int64            `json:"recorded_errors"`
}

// ActivityBucket is one time bucket of the activity report.
type ActivityBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ActivityReport is the bucketed activity report for one window.
type ActivityReport struct {
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	Granularity string           `json:"granularity"`
	Buckets     []ActivityBucket `json:"buckets"`
	Total       int64            `json:"total"`
	PeakBucket  string           `json:"peak_bucket,omitempty"`
	PeakCount   int64            `json:"peak_count"`
	// PeakWeekday is only populated for day and coarser granularities.
	PeakWeekday string `json:"peak_weekday,omitempty"`
}

// ErrorReport is the error breakdown for one window.
type ErrorReport struct {
	Start      time.Time             `json:"start"`
	End        time.Time             `json:"end"`
	Total      int64                 `json:"total"`
	KindCounts []repo.ErrorKindCount `json:"kind_counts"`
	Recent     []domain.ErrorRecord  `json:"recent"`
}

// AnalyticsService records interactions and errors and serves reports.
type AnalyticsService struct {
	DB  *gorm.DB
	Log zerolog.Logger

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(db *gorm.DB, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{DB: db, Log: log, now: time.Now}
}

// RecordInteraction inserts one interaction row and returns its id. Callers
// on the hot path treat a returned error as log-only.
func (s *AnalyticsService) RecordInteraction(ctx context.Context, principalID, chatID int64, kind, command string, success bool, errText string, latency time.Duration) (string, error) {
	rec := &domain.Interaction{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		ChatID:      chatID,
		Kind:        kind,
		Command:     command,
		Success:     success,
		Error:       errText,
		LatencyMS:   latency.Milliseconds(),
		CreatedAt:   s.now().UTC(),
	}
	if err := repo.InsertInteraction(ctx, s.DB, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// RecordError inserts one error record. principalID may be nil when the
// failure happened before a principal was resolved.
func (s *AnalyticsService) RecordError(ctx context.Context, kind, message string, principalID *int64, interactionID, severity string) error {
	if severity == "" {
		severity = domain.SeverityError
	}
	rec := &domain.ErrorRecord{
		ID:            uuid.NewString(),
		Kind:          kind,
		Message:       message,
		PrincipalID:   principalID,
		InteractionID: interactionID,
		Severity:      severity,
		CreatedAt:     s.now().UTC(),
	}
	return repo.InsertErrorRecord(ctx, s.DB, rec)
}

// ResolveWindow maps a named period (or "custom" plus explicit bounds) to a
// half-open UTC window [start, end). Unknown names and inverted custom
// bounds return ErrBadPeriod.
func (s *AnalyticsService) ResolveWindow(period string, start, end time.Time) (time.Time, time.Time, error) {
	now := s.now().UTC()
	switch period {
	case PeriodLastHour:
		return now.Add(-time.Hour), now, nil
	case PeriodLast24h, "":
		return now.Add(-24 * time.Hour), now, nil
	case PeriodLast7d:
		return now.AddDate(0, 0, -7), now, nil
	case PeriodLast30d:
		return now.AddDate(0, 0, -30), now, nil
	case PeriodLast90d:
		return now.AddDate(0, 0, -90), now, nil
	case PeriodLastYear:
		return now.AddDate(-1, 0, 0), now, nil
	case PeriodCustom:
		if start.IsZero() || end.IsZero() || !start.Before(end) {
			return time.Time{}, time.Time{}, ErrBadPeriod
		}
		return start.UTC(), end.UTC(), nil
	default:
		return time.Time{}, time.Time{}, ErrBadPeriod
	}
}

// GetStatistics aggregates usage totals for the window.
func (s *AnalyticsService) GetStatistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	total, success, err := repo.CountInteractions(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}
	distinct, err := repo.CountDistinctPrincipals(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}
	avgLatency, err := repo.AvgLatencyMS(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}
	kinds, err := repo.InteractionKindCounts(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}
	recorded, err := repo.CountErrors(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if total > 0 {
		rate = float64(success) / float64(total)
	}
	return &Statistics{
		Start:              start,
		End:                end,
		TotalInteractions:  total,
		SuccessCount:       success,
		ErrorCount:         total - success,
		SuccessRate:        rate,
		DistinctPrincipals: distinct,
		AvgLatencyMS:       avgLatency,
		KindCounts:         kinds,
		RecordedErrors:     recorded,
	}, nil
}

// TopCommands returns the most used commands in the window, ordered by count
// descending with name ascending as the tiebreak.
func (s *AnalyticsService) TopCommands(ctx context.Context, start, end time.Time, limit int) ([]repo.CommandCount, error) {
	if limit <= 0 {
		limit = 10
	}
	return repo.TopCommands(ctx, s.DB, start, end, limit)
}

// UserActivity buckets interactions by calendar period. Bucketing is done in
// Go over raw timestamps so labels follow the UTC calendar regardless of how
// the driver stores time values.
func (s *AnalyticsService) UserActivity(ctx context.Context, start, end time.Time, granularity string) (*ActivityReport, error) {
	switch granularity {
	case GranularityHour, GranularityDay, GranularityWeek, GranularityMonth:
	case "":
		granularity = GranularityDay
	default:
		return nil, ErrBadGranularity
	}

	times, err := repo.InteractionTimes(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	order := make([]string, 0)
	weekdays := make(map[time.Weekday]int64)
	for _, ts := range times {
		label := bucketLabel(ts.UTC(), granularity)
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
		weekdays[ts.UTC().Weekday()]++
	}

	report := &ActivityReport{
		Start:       start,
		End:         end,
		Granularity: granularity,
		Buckets:     make([]ActivityBucket, 0, len(order)),
		Total:       int64(len(times)),
	}
	for _, label := range order {
		n := counts[label]
		report.Buckets = append(report.Buckets, ActivityBucket{Label: label, Count: n})
		if n > report.PeakCount {
			report.PeakCount = n
			report.PeakBucket = label
		}
	}
	if granularity != GranularityHour {
		var best time.Weekday
		var bestN int64
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if weekdays[wd] > bestN {
				bestN = weekdays[wd]
				best = wd
			}
		}
		if bestN > 0 {
			report.PeakWeekday = best.String()
		}
	}
	return report, nil
}

// ErrorStatistics returns the error total, per-kind breakdown, and the most
// recent records for the window.
func (s *AnalyticsService) ErrorStatistics(ctx context.Context, start, end time.Time, limit int) (*ErrorReport, error) {
	if limit <= 0 {
		limit = 20
	}
	total, err := repo.CountErrors(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}
	kinds, err := repo.ErrorKindCounts(ctx, s.DB, start, end, limit)
	if err != nil {
		return nil, err
	}
	recent, err := repo.RecentErrors(ctx, s.DB, start, end, limit)
	if err != nil {
		return nil, err
	}
	return &ErrorReport{Start: start, End: end, Total: total, KindCounts: kinds, Recent: recent}, nil
}

// bucketLabel renders the calendar bucket label for one timestamp.
func bucketLabel(t time.Time, granularity string) string {
	switch granularity {
	case GranularityHour:
		return t.Format("2006-01-02 15:00")
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
