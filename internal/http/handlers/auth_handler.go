// Auth HTTP handlers.
//
// This file exposes the REST endpoints for the login flow:
//   - POST /auth/login    (exchange a platform login proof for tokens)
//   - POST /auth/refresh  (extend a session, mint a new access token)
//   - POST /auth/logout   (invalidate the session)
//
// Handlers in this file are transport-thin: they validate input, delegate to
// application services, and translate domain/service errors into HTTP
// results.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/repo"
	"github.com/dkraev/tg-bot-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines the login lifecycle operations consumed by HTTP
// handlers. Implementations should be safe for concurrent use and must honor
// the provided context for cancellation and timeouts.
type AuthService interface {
	// Login verifies a platform login proof and opens a session.
	Login(ctx context.Context, req services.LoginRequest) (*services.TokenPair, error)
	// Refresh extends a session identified by its opaque token.
	Refresh(ctx context.Context, sessionToken string) (*services.TokenPair, error)
	// Logout invalidates the session. Idempotent.
	Logout(ctx context.Context, sessionToken string) error
}

// UserService defines principal management operations consumed by HTTP
// handlers.
type UserService interface {
	// ListPage returns a page of principals and the total count.
	ListPage(ctx context.Context, offset, limit int) (*services.PrincipalPage, error)
	// Get returns one principal.
	Get(ctx context.Context, id int64) (*domain.Principal, error)
	// Block marks a principal blocked and ends their sessions.
	Block(ctx context.Context, id int64, reason string) error
	// Unblock clears the blocked flag.
	Unblock(ctx context.Context, id int64) error
}

// AnalyticsService defines the reporting operations consumed by HTTP
// handlers.
type AnalyticsService interface {
	// ResolveWindow maps a named period or custom bounds to [start, end).
	ResolveWindow(period string, start, end time.Time) (time.Time, time.Time, error)
	// GetStatistics aggregates usage totals for a window.
	GetStatistics(ctx context.Context, start, end time.Time) (*services.Statistics, error)
	// TopCommands returns the most used commands in a window.
	TopCommands(ctx context.Context, start, end time.Time, limit int) ([]repo.CommandCount, error)
	// UserActivity buckets interactions by calendar period.
	UserActivity(ctx context.Context, start, end time.Time, granularity string) (*services.ActivityReport, error)
	// ErrorStatistics summarizes recorded errors in a window.
	ErrorStatistics(ctx context.Context, start, end time.Time, limit int) (*services.ErrorReport, error)
}

// BotControl defines the update-source control operations consumed by HTTP
// handlers: webhook ingestion plus mode switching.
type BotControl interface {
	// Mode reports the active ingestion mode ("polling" or "webhook").
	Mode(ctx context.Context) (string, error)
	// HandleWebhookUpdate authenticates and dispatches one webhook delivery.
	HandleWebhookUpdate(ctx context.Context, secret string, body []byte) error
	// EnableWebhook registers the webhook with the platform and persists it.
	EnableWebhook(ctx context.Context, baseURL, secret string) (string, error)
	// DisableWebhook deregisters the webhook and returns to polling.
	DisableWebhook(ctx context.Context) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for auth, users, analytics, and bot
// control. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	authSvc  AuthService
	userSvc  UserService
	statsSvc AnalyticsService
	botCtl   BotControl
	listCfg  func(ctx context.Context) ([]domain.BotConfig, error)
}

// New constructs and returns a Handlers instance bound to the given services.
// listCfg lazily reads the persisted bot configuration for the status
// endpoint; it may be nil when the status endpoint is not mounted.
func New(authSvc AuthService, userSvc UserService, statsSvc AnalyticsService, botCtl BotControl, listCfg func(ctx context.Context) ([]domain.BotConfig, error)) *Handlers {
	return &Handlers{
		authSvc:  authSvc,
		userSvc:  userSvc,
		statsSvc: statsSvc,
		botCtl:   botCtl,
		listCfg:  listCfg,
	}
}

//
// DTOs
//

// RefreshRequest is the JSON payload for extending a session.
type RefreshRequest struct {
	// RefreshToken is the opaque session token returned by login.
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest is the JSON payload for invalidating a session.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

//
// Endpoints
//

// Login exchanges a platform login proof for a token pair.
func (h *Handlers) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id, auth_date and hash are required")
		return
	}

	pair, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLogin):
			fail(c, http.StatusUnauthorized, ErrCodeLoginFailed, "login verification failed")
		case errors.Is(err, services.ErrPrincipalBlocked):
			fail(c, http.StatusForbidden, ErrCodeUserBlocked, "user is blocked")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, pair)
}

// RefreshToken extends the session and returns a new token pair.
func (h *Handlers) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired session")
		case errors.Is(err, services.ErrPrincipalBlocked):
			fail(c, http.StatusForbidden, ErrCodeUserBlocked, "user is blocked")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, pair)
}

// Logout invalidates the session backing the supplied refresh token.
func (h *Handlers) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "refresh_token is required")
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	noContent(c)
}
