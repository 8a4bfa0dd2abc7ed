package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dkraev/tg-bot-backend/internal/repo"
	"github.com/dkraev/tg-bot-backend/internal/services"
)

func TestStatistics_DefaultPeriod(t *testing.T) {
	var gotStart, gotEnd time.Time
	h := New(nil, nil, &stubStats{
		statistics: func(_ context.Context, start, end time.Time) (*services.Statistics, error) {
			gotStart, gotEnd = start, end
			return &services.Statistics{Start: start, End: end, TotalInteractions: 12}, nil
		},
	}, nil, nil)

	w := perform(t, newRouter(h), http.MethodGet, "/analytics/statistics", nil)
	expectStatus(t, w, http.StatusOK)

	// No period parameter means the last 24 hours.
	if window := gotEnd.Sub(gotStart); window != 24*time.Hour {
		t.Fatalf("window = %v; want 24h", window)
	}
	var stats services.Statistics
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalInteractions != 12 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestStatistics_CustomPeriod(t *testing.T) {
	var gotStart, gotEnd time.Time
	h := New(nil, nil, &stubStats{
		statistics: func(_ context.Context, start, end time.Time) (*services.Statistics, error) {
			gotStart, gotEnd = start, end
			return &services.Statistics{}, nil
		},
	}, nil, nil)

	w := perform(t, newRouter(h), http.MethodGet,
		"/analytics/statistics?period=custom&start=2026-01-01T00:00:00Z&end=2026-02-01T00:00:00Z", nil)
	expectStatus(t, w, http.StatusOK)
	if gotStart.Format("2006-01-02") != "2026-01-01" || gotEnd.Format("2006-01-02") != "2026-02-01" {
		t.Fatalf("window [%v, %v)", gotStart, gotEnd)
	}
}

func TestStatistics_BadPeriods(t *testing.T) {
	h := New(nil, nil, &stubStats{}, nil, nil)
	r := newRouter(h)

	for _, path := range []string{
		"/analytics/statistics?period=fortnight",
		"/analytics/statistics?period=custom&start=yesterday&end=2026-02-01T00:00:00Z",
		"/analytics/statistics?period=custom&start=2026-01-01T00:00:00Z&end=not-a-time",
		"/analytics/statistics?period=custom&start=2026-02-01T00:00:00Z&end=2026-01-01T00:00:00Z",
	} {
		w := perform(t, r, http.MethodGet, path, nil)
		expectStatus(t, w, http.StatusBadRequest)
		if resp := decodeError(t, w); resp.Code != ErrCodeBadPeriod {
			t.Fatalf("%s: code = %q", path, resp.Code)
		}
	}
}

func TestTopCommands_LimitParsing(t *testing.T) {
	var gotLimit int
	h := New(nil, nil, &stubStats{
		top: func(_ context.Context, _, _ time.Time, limit int) ([]repo.CommandCount, error) {
			gotLimit = limit
			return []repo.CommandCount{{Command: "start", Count: 4}}, nil
		},
	}, nil, nil)
	r := newRouter(h)

	w := perform(t, r, http.MethodGet, "/analytics/commands?limit=3", nil)
	expectStatus(t, w, http.StatusOK)
	if gotLimit != 3 {
		t.Fatalf("limit = %d", gotLimit)
	}

	// Unparseable limit falls back to the default.
	w = perform(t, r, http.MethodGet, "/analytics/commands?limit=many", nil)
	expectStatus(t, w, http.StatusOK)
	if gotLimit != 10 {
		t.Fatalf("default limit = %d", gotLimit)
	}
}

func TestActivity_BadGranularity(t *testing.T) {
	h := New(nil, nil, &stubStats{
		activity: func(_ context.Context, _, _ time.Time, granularity string) (*services.ActivityReport, error) {
			return nil, services.ErrBadGranularity
		},
	}, nil, nil)

	w := perform(t, newRouter(h), http.MethodGet, "/analytics/activity?granularity=decade", nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestActivity_PassesGranularity(t *testing.T) {
	var gotGranularity string
	h := New(nil, nil, &stubStats{
		activity: func(_ context.Context, start, end time.Time, granularity string) (*services.ActivityReport, error) {
			gotGranularity = granularity
			return &services.ActivityReport{Granularity: granularity}, nil
		},
	}, nil, nil)

	w := perform(t, newRouter(h), http.MethodGet, "/analytics/activity?granularity=week", nil)
	expectStatus(t, w, http.StatusOK)
	if gotGranularity != "week" {
		t.Fatalf("granularity = %q", gotGranularity)
	}
}

func TestErrors_DefaultLimit(t *testing.T) {
	var gotLimit int
	h := New(nil, nil, &stubStats{
		errs: func(_ context.Context, _, _ time.Time, limit int) (*services.ErrorReport, error) {
			gotLimit = limit
			return &services.ErrorReport{Total: 2}, nil
		},
	}, nil, nil)

	w := perform(t, newRouter(h), http.MethodGet, "/analytics/errors", nil)
	expectStatus(t, w, http.StatusOK)
	if gotLimit != 20 {
		t.Fatalf("default limit = %d", gotLimit)
	}
}
