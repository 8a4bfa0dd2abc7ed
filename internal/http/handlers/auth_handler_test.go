package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dkraev/tg-bot-backend/internal/services"
)

func validLoginPayload() map[string]any {
	return map[string]any{
		"id":        int64(1001),
		"first_name": "Ada",
		"auth_date":  time.Now().Unix(),
		"hash":       "aabbcc",
	}
}

func TestLogin_Success(t *testing.T) {
	pair := &services.TokenPair{
		AccessToken:  "jwt-token",
		RefreshToken: "session-token",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}
	h := New(&stubAuth{
		login: func(_ context.Context, req services.LoginRequest) (*services.TokenPair, error) {
			if req.ID != 1001 {
				t.Fatalf("login request id = %d", req.ID)
			}
			return pair, nil
		},
	}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/login", validLoginPayload())
	expectStatus(t, w, http.StatusOK)

	var got services.TokenPair
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AccessToken != "jwt-token" || got.RefreshToken != "session-token" {
		t.Fatalf("pair: %+v", got)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h := New(&stubAuth{}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/login", map[string]any{"id": 1})
	expectStatus(t, w, http.StatusBadRequest)
	if resp := decodeError(t, w); resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestLogin_FailedVerification(t *testing.T) {
	h := New(&stubAuth{
		login: func(context.Context, services.LoginRequest) (*services.TokenPair, error) {
			return nil, services.ErrInvalidLogin
		},
	}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/login", validLoginPayload())
	expectStatus(t, w, http.StatusUnauthorized)
	if resp := decodeError(t, w); resp.Code != ErrCodeLoginFailed {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestLogin_BlockedUser(t *testing.T) {
	h := New(&stubAuth{
		login: func(context.Context, services.LoginRequest) (*services.TokenPair, error) {
			return nil, services.ErrPrincipalBlocked
		},
	}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/login", validLoginPayload())
	expectStatus(t, w, http.StatusForbidden)
	if resp := decodeError(t, w); resp.Code != ErrCodeUserBlocked {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestRefreshToken_Success(t *testing.T) {
	h := New(&stubAuth{
		refresh: func(_ context.Context, token string) (*services.TokenPair, error) {
			if token != "session-token" {
				t.Fatalf("refresh token = %q", token)
			}
			return &services.TokenPair{AccessToken: "new-jwt", RefreshToken: token}, nil
		},
	}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/refresh",
		map[string]any{"refresh_token": "session-token"})
	expectStatus(t, w, http.StatusOK)
}

func TestRefreshToken_ExpiredSession(t *testing.T) {
	h := New(&stubAuth{
		refresh: func(context.Context, string) (*services.TokenPair, error) {
			return nil, services.ErrSessionNotFound
		},
	}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/refresh",
		map[string]any{"refresh_token": "stale"})
	expectStatus(t, w, http.StatusUnauthorized)
	if resp := decodeError(t, w); resp.Code != ErrCodeUnauthorized {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestRefreshToken_MissingBody(t *testing.T) {
	h := New(&stubAuth{}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/refresh", map[string]any{})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestLogout(t *testing.T) {
	var invalidated string
	h := New(&stubAuth{
		logout: func(_ context.Context, token string) error {
			invalidated = token
			return nil
		},
	}, nil, nil, nil, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/auth/logout",
		map[string]any{"refresh_token": "session-token"})
	expectStatus(t, w, http.StatusNoContent)
	if invalidated != "session-token" {
		t.Fatalf("invalidated = %q", invalidated)
	}
}
