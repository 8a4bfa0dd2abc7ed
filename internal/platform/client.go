// Package platform wraps the Telegram Bot API behind a narrow client
// interface. The rest of the application treats the messaging platform as an
// opaque remote boundary: send a message, fetch the bot identity, manage the
// webhook registration, receive a batch of updates. Tests substitute fakes.
package platform

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Identity describes the bot account as reported by the platform.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Client is the remote call boundary to the messaging platform.
//
// Implementations must be safe for concurrent use: the polling loop, webhook
// handlers, and command handlers all share one client.
type Client interface {
	// GetBotIdentity returns the authenticated bot account.
	GetBotIdentity(ctx context.Context) (*Identity, error)

	// SendMessage delivers a plain-text message to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error

	// AnswerCallback acknowledges a callback query, optionally with a short
	// notification text shown to the user.
	AnswerCallback(ctx context.Context, callbackID, text string) error

	// SetWebhook registers url as the push endpoint for updates.
	SetWebhook(ctx context.Context, url string) error

	// DeleteWebhook clears the push registration, re-enabling polling.
	DeleteWebhook(ctx context.Context) error

	// ReceiveUpdates long-polls for up to timeoutSec seconds and returns at
	// most limit updates with update_id >= offset. It returns early when ctx
	// is cancelled.
	ReceiveUpdates(ctx context.Context, offset, limit, timeoutSec int) ([]tgbotapi.Update, error)
}

// ErrorClass partitions remote failures for the backoff policy.
type ErrorClass int

const (
	// ErrClassPlatform covers requests the platform accepted and rejected
	// (bad request, forbidden, chat not found, ...).
	ErrClassPlatform ErrorClass = iota
	// ErrClassRateLimited covers explicit "too many requests" signals.
	ErrClassRateLimited
	// ErrClassNetwork covers transport-level failures where no platform
	// response was decoded.
	ErrClassNetwork
)

// ClassifyError maps a remote error to its backoff class.
func ClassifyError(err error) ErrorClass {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.RetryAfter > 0 {
			return ErrClassRateLimited
		}
		return ErrClassPlatform
	}
	return ErrClassNetwork
}
