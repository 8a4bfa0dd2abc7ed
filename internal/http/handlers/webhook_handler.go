// Webhook HTTP handler.
//
// This file exposes the public ingestion endpoint the platform calls when the
// bot runs in webhook mode:
//   - POST /webhook/{secret}
//
// The secret path segment authenticates the caller; it is compared in
// constant time against the persisted value. The platform retries failed
// deliveries, so only transport-level faults return non-2xx: a delivery that
// reaches dispatch always yields 200 regardless of handler outcome.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkraev/tg-bot-backend/internal/bot"
)

// maxWebhookBody caps how much of a webhook delivery is read.
const maxWebhookBody = 1 << 20

// Webhook authenticates and ingests one platform update delivery.
func (h *Handlers) Webhook(c *gin.Context) {
	secret := c.Param("secret")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	if err := h.botCtl.HandleWebhookUpdate(c.Request.Context(), secret, body); err != nil {
		switch {
		case errors.Is(err, bot.ErrBadSecret):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid webhook secret")
		case errors.Is(err, bot.ErrBadPayload):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed update payload")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	c.Status(http.StatusOK)
}
