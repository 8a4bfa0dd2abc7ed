package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

func testSession(token string, principalID int64, expiresAt time.Time) *domain.Session {
	return &domain.Session{
		Token:          token,
		PrincipalID:    principalID,
		ExpiresAt:      expiresAt,
		Active:         true,
		LastAccessedAt: time.Now().UTC(),
	}
}

func fixedToken(seed string) string {
	// 64 hex-ish chars, deterministic per seed.
	return (seed + strings.Repeat("0", 64))[:64]
}

func TestCreateAndGetSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tok := fixedToken("a1")
	exp := time.Now().UTC().Add(time.Hour)
	if err := CreateSession(ctx, db, testSession(tok, 1, exp)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetSession(ctx, db, tok)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PrincipalID != 1 || !got.Active {
		t.Fatalf("unexpected session: %+v", got)
	}

	if _, err := GetSession(ctx, db, fixedToken("ff")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtendSession_ConditionalUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	live := fixedToken("b1")
	expired := fixedToken("b2")
	inactive := fixedToken("b3")

	if err := CreateSession(ctx, db, testSession(live, 1, now.Add(time.Hour))); err != nil {
		t.Fatalf("create live: %v", err)
	}
	if err := CreateSession(ctx, db, testSession(expired, 1, now.Add(-time.Minute))); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	s := testSession(inactive, 1, now.Add(time.Hour))
	s.Active = false
	if err := CreateSession(ctx, db, s); err != nil {
		t.Fatalf("create inactive: %v", err)
	}
	// gorm default:true would re-apply on zero value; force the flag off.
	if err := DeactivateSession(ctx, db, inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	newExp := now.Add(2 * time.Hour)

	n, err := ExtendSession(ctx, db, live, now, newExp)
	if err != nil || n != 1 {
		t.Fatalf("live: n=%d err=%v; want 1 row", n, err)
	}
	got, _ := GetSession(ctx, db, live)
	if !got.ExpiresAt.After(now.Add(90 * time.Minute)) {
		t.Fatalf("expiry not extended: %v", got.ExpiresAt)
	}

	if n, err = ExtendSession(ctx, db, expired, now, newExp); err != nil || n != 0 {
		t.Fatalf("expired: n=%d err=%v; want 0 rows", n, err)
	}
	if n, err = ExtendSession(ctx, db, inactive, now, newExp); err != nil || n != 0 {
		t.Fatalf("inactive: n=%d err=%v; want 0 rows", n, err)
	}
	if n, err = ExtendSession(ctx, db, fixedToken("ff"), now, newExp); err != nil || n != 0 {
		t.Fatalf("missing: n=%d err=%v; want 0 rows", n, err)
	}
}

func TestDeactivateSessionsForPrincipal(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Hour)

	if err := CreateSession(ctx, db, testSession(fixedToken("c1"), 5, exp)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateSession(ctx, db, testSession(fixedToken("c2"), 5, exp)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateSession(ctx, db, testSession(fixedToken("c3"), 6, exp)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := DeactivateSessionsForPrincipal(ctx, db, 5); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	for _, tok := range []string{fixedToken("c1"), fixedToken("c2")} {
		s, _ := GetSession(ctx, db, tok)
		if s.Active {
			t.Fatalf("session %s still active", tok[:4])
		}
	}
	other, _ := GetSession(ctx, db, fixedToken("c3"))
	if !other.Active {
		t.Fatalf("unrelated principal's session deactivated")
	}
}

func TestDeleteExpiredSessions_HonorsGrace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	grace := 10 * time.Minute

	// Expired well past grace: deleted.
	if err := CreateSession(ctx, db, testSession(fixedToken("d1"), 1, now.Add(-time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Expired but inside grace: kept.
	if err := CreateSession(ctx, db, testSession(fixedToken("d2"), 1, now.Add(-time.Minute))); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Live: kept.
	if err := CreateSession(ctx, db, testSession(fixedToken("d3"), 1, now.Add(time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := DeleteExpiredSessions(ctx, db, now, grace)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d rows; want 1", n)
	}
	if _, err := GetSession(ctx, db, fixedToken("d1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old session should be gone, got %v", err)
	}
	if _, err := GetSession(ctx, db, fixedToken("d2")); err != nil {
		t.Fatalf("grace-window session should remain: %v", err)
	}
}
