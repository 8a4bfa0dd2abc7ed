// Package middleware – bearer-token auth gateway.
//
// This file implements AuthGateway, the middleware guarding the control-plane
// API group. Every request must carry a Bearer JWT; the gateway validates the
// token signature and claims, then re-checks the backing session and the
// principal's blocked flag so revocation takes effect immediately rather than
// at token expiry.
//
// On success the principal id is stored in the Gin context under "userID" and
// the session token under "sessionToken" for downstream handlers.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/services"
)

// Context keys set by AuthGateway.
const (
	CtxUserID       = "userID"
	CtxSessionToken = "sessionToken"
)

// TokenVerifier validates a bearer JWT and returns its claims.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*services.Claims, error)
}

// SessionChecker validates the opaque session backing a JWT.
type SessionChecker interface {
	Get(ctx context.Context, token string) (*domain.Session, error)
}

// PrincipalLoader loads the principal owning a session.
type PrincipalLoader func(ctx context.Context, id int64) (*domain.Principal, error)

// authError mirrors the handlers.ErrorResponse envelope. Declared here to
// keep the middleware package free of a dependency on handlers.
type authError struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, authError{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// AuthGateway returns middleware that authenticates requests with a Bearer
// JWT and verifies the backing session on every call.
//
// Responses:
//   - 401 when the header is missing/malformed, the token fails validation,
//     or the session is gone or expired.
//   - 403 when the principal has been blocked since the token was issued.
func AuthGateway(tokens TokenVerifier, sessions SessionChecker, loadPrincipal PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		claims, err := tokens.VerifyToken(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		sess, err := sessions.Get(c.Request.Context(), claims.SessionToken)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				abortAuth(c, http.StatusUnauthorized, "unauthorized", "session expired")
				return
			}
			abortAuth(c, http.StatusInternalServerError, "internal_error", "session lookup failed")
			return
		}

		p, err := loadPrincipal(c.Request.Context(), sess.PrincipalID)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "unknown principal")
			return
		}
		if p.Blocked {
			abortAuth(c, http.StatusForbidden, "forbidden", "user is blocked")
			return
		}

		c.Set(CtxUserID, p.ID)
		c.Set(CtxSessionToken, sess.Token)
		c.Next()
	}
}
