package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/services"
)

type fakeVerifier struct {
	claims *services.Claims
	err    error
}

func (f *fakeVerifier) VerifyToken(string) (*services.Claims, error) {
	return f.claims, f.err
}

type fakeSessions struct {
	sess *domain.Session
	err  error
}

func (f *fakeSessions) Get(context.Context, string) (*domain.Session, error) {
	return f.sess, f.err
}

func authRouter(tokens TokenVerifier, sessions SessionChecker, load PrincipalLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", AuthGateway(tokens, sessions, load), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetInt64(CtxUserID),
			"session": c.GetString(CtxSessionToken),
		})
	})
	return r
}

func authGet(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validAuthDeps() (*fakeVerifier, *fakeSessions, PrincipalLoader) {
	tokens := &fakeVerifier{claims: &services.Claims{PlatformID: 42, SessionToken: "sess-1"}}
	sessions := &fakeSessions{sess: &domain.Session{
		Token:       "sess-1",
		PrincipalID: 42,
		ExpiresAt:   time.Now().Add(time.Hour),
		Active:      true,
	}}
	load := func(_ context.Context, id int64) (*domain.Principal, error) {
		return &domain.Principal{ID: id, Username: "ada"}, nil
	}
	return tokens, sessions, load
}

func TestAuthGateway_Success(t *testing.T) {
	r := authRouter(validAuthDeps())

	w := authGet(r, "Bearer some.jwt.token")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %q)", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if want := `"session":"sess-1"`; !strings.Contains(body, want) {
		t.Fatalf("body %q missing %q", body, want)
	}
	if want := `"user_id":42`; !strings.Contains(body, want) {
		t.Fatalf("body %q missing %q", body, want)
	}
}

func TestAuthGateway_HeaderParsing(t *testing.T) {
	r := authRouter(validAuthDeps())

	for _, header := range []string{"", "Bearer", "Basic dXNlcjpwdw==", "Bearer "} {
		w := authGet(r, header)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d", header, w.Code)
		}
	}

	// The scheme comparison is case-insensitive.
	w := authGet(r, "bearer some.jwt.token")
	if w.Code != http.StatusOK {
		t.Fatalf("lowercase scheme: status = %d", w.Code)
	}
}

func TestAuthGateway_InvalidToken(t *testing.T) {
	tokens, sessions, load := validAuthDeps()
	tokens.claims, tokens.err = nil, services.ErrInvalidToken
	r := authRouter(tokens, sessions, load)

	w := authGet(r, "Bearer forged")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthGateway_ExpiredSession(t *testing.T) {
	tokens, sessions, load := validAuthDeps()
	sessions.sess, sessions.err = nil, services.ErrSessionNotFound
	r := authRouter(tokens, sessions, load)

	w := authGet(r, "Bearer some.jwt.token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthGateway_SessionLookupFailure(t *testing.T) {
	tokens, sessions, load := validAuthDeps()
	sessions.sess, sessions.err = nil, errors.New("disk on fire")
	r := authRouter(tokens, sessions, load)

	w := authGet(r, "Bearer some.jwt.token")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthGateway_BlockedPrincipal(t *testing.T) {
	tokens, sessions, _ := validAuthDeps()
	load := func(_ context.Context, id int64) (*domain.Principal, error) {
		return &domain.Principal{ID: id, Blocked: true}, nil
	}
	r := authRouter(tokens, sessions, load)

	w := authGet(r, "Bearer some.jwt.token")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthGateway_UnknownPrincipal(t *testing.T) {
	tokens, sessions, _ := validAuthDeps()
	load := func(context.Context, int64) (*domain.Principal, error) {
		return nil, errors.New("record not found")
	}
	r := authRouter(tokens, sessions, load)

	w := authGet(r, "Bearer some.jwt.token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}
