// User HTTP handlers.
//
// This file exposes the REST endpoints for principal management:
//   - GET    /users            (list, paginated)
//   - GET    /users/{id}       (detail)
//   - POST   /users/{id}/block (block + end sessions)
//   - DELETE /users/{id}/block (unblock)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkraev/tg-bot-backend/internal/services"
	"github.com/dkraev/tg-bot-backend/internal/utils"
)

// BlockUserRequest is the JSON payload for blocking a principal.
type BlockUserRequest struct {
	// Reason optionally records why the principal was blocked.
	Reason string `json:"reason" binding:"max=255"`
}

// ListUsers returns one page of principals ordered by most recent activity.
func (h *Handlers) ListUsers(c *gin.Context) {
	offset := utils.AtoiDefault(c.Query("offset"), 0)
	limit := utils.AtoiDefault(c.Query("limit"), 20)

	page, err := h.userSvc.ListPage(c.Request.Context(), offset, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, page)
}

// GetUser returns one principal by platform id.
func (h *Handlers) GetUser(c *gin.Context) {
	id := utils.ParseInt64Default(c.Param("id"), 0)
	if id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a non-zero integer")
		return
	}

	p, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPrincipalNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// BlockUser marks a principal blocked and invalidates their sessions.
func (h *Handlers) BlockUser(c *gin.Context) {
	id := utils.ParseInt64Default(c.Param("id"), 0)
	if id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a non-zero integer")
		return
	}

	var req BlockUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reason must be at most 255 characters")
			return
		}
	}

	if err := h.userSvc.Block(c.Request.Context(), id, req.Reason); err != nil {
		if errors.Is(err, services.ErrPrincipalNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// UnblockUser clears the blocked flag on a principal.
func (h *Handlers) UnblockUser(c *gin.Context) {
	id := utils.ParseInt64Default(c.Param("id"), 0)
	if id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a non-zero integer")
		return
	}

	if err := h.userSvc.Unblock(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrPrincipalNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
