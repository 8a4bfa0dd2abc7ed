// Bot control HTTP handlers.
//
// This file exposes the REST endpoints for switching the update ingestion
// mode at runtime:
//   - GET    /bot/status   (mode + persisted configuration)
//   - PUT    /bot/webhook  (register webhook, switch to webhook mode)
//   - DELETE /bot/webhook  (deregister webhook, return to polling)
//
// The poller observes mode changes on its next cycle, so a switch never
// requires a restart.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// EnableWebhookRequest is the JSON payload for registering a webhook.
type EnableWebhookRequest struct {
	// BaseURL is the public HTTPS origin updates should be delivered to;
	// the secret path segment is appended server-side.
	BaseURL string `json:"base_url" binding:"required,url"`
	// Secret optionally pins the webhook secret; one is generated when empty.
	Secret string `json:"secret"`
}

// BotStatus reports the active ingestion mode and persisted configuration.
func (h *Handlers) BotStatus(c *gin.Context) {
	mode, err := h.botCtl.Mode(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	resp := gin.H{"mode": mode}
	if h.listCfg != nil {
		cfg, err := h.listCfg(c.Request.Context())
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		resp["config"] = cfg
	}
	ok(c, http.StatusOK, resp)
}

// EnableWebhook registers the webhook with the platform and switches the bot
// to webhook mode.
func (h *Handlers) EnableWebhook(c *gin.Context) {
	var req EnableWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "base_url must be a valid URL")
		return
	}
	if !strings.HasPrefix(req.BaseURL, "https://") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "base_url must use https")
		return
	}

	base := strings.TrimRight(req.BaseURL, "/")
	secret, err := h.botCtl.EnableWebhook(c.Request.Context(), base, req.Secret)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeWebhookFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"mode": "webhook", "webhook_url": base + "/webhook/" + secret})
}

// DisableWebhook deregisters the webhook and returns the bot to polling.
func (h *Handlers) DisableWebhook(c *gin.Context) {
	if err := h.botCtl.DisableWebhook(c.Request.Context()); err != nil {
		fail(c, http.StatusBadGateway, ErrCodeWebhookFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"mode": "polling"})
}
