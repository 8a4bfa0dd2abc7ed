// Analytics HTTP handlers.
//
// This file exposes the REST endpoints for usage reporting:
//   - GET /analytics/statistics
//   - GET /analytics/commands
//   - GET /analytics/activity
//   - GET /analytics/errors
//
// All endpoints accept a `period` query parameter naming a reporting window
// (last-hour, last-24h, last-7d, last-30d, last-90d, last-year) or
// `period=custom` with RFC 3339 `start` and `end` bounds. Windows are
// half-open: [start, end).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkraev/tg-bot-backend/internal/services"
	"github.com/dkraev/tg-bot-backend/internal/utils"
)

// window resolves the period query parameters of the request into a concrete
// time window, writing the error response itself on failure.
func (h *Handlers) window(c *gin.Context) (time.Time, time.Time, bool) {
	period := c.Query("period")

	var start, end time.Time
	if period == services.PeriodCustom {
		var err error
		if start, err = time.Parse(time.RFC3339, c.Query("start")); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadPeriod, "start must be RFC 3339")
			return time.Time{}, time.Time{}, false
		}
		if end, err = time.Parse(time.RFC3339, c.Query("end")); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadPeriod, "end must be RFC 3339")
			return time.Time{}, time.Time{}, false
		}
	}

	s, e, err := h.statsSvc.ResolveWindow(period, start, end)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadPeriod, "unknown period")
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

// Statistics returns aggregate usage totals for the window.
func (h *Handlers) Statistics(c *gin.Context) {
	start, end, okWin := h.window(c)
	if !okWin {
		return
	}

	stats, err := h.statsSvc.GetStatistics(c.Request.Context(), start, end)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// TopCommands returns the most used commands for the window.
func (h *Handlers) TopCommands(c *gin.Context) {
	start, end, okWin := h.window(c)
	if !okWin {
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 10)

	rows, err := h.statsSvc.TopCommands(c.Request.Context(), start, end, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"start": start, "end": end, "commands": rows})
}

// Activity returns interaction counts bucketed by calendar period.
func (h *Handlers) Activity(c *gin.Context) {
	start, end, okWin := h.window(c)
	if !okWin {
		return
	}

	report, err := h.statsSvc.UserActivity(c.Request.Context(), start, end, c.Query("granularity"))
	if err != nil {
		if errors.Is(err, services.ErrBadGranularity) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "granularity must be hour, day, week or month")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}

// Errors returns the recorded-error breakdown for the window.
func (h *Handlers) Errors(c *gin.Context) {
	start, end, okWin := h.window(c)
	if !okWin {
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 20)

	report, err := h.statsSvc.ErrorStatistics(c.Request.Context(), start, end, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}
