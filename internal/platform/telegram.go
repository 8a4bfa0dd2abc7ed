// Telegram implementation of the platform client.
//
// The underlying SDK has no context support, so blocking calls are wrapped in
// a goroutine and raced against ctx. A cancelled long-poll returns immediately
// to the caller; the in-flight HTTP request drains in the background, bounded
// by the SDK's own client timeout.
package platform

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the slice of *tgbotapi.BotAPI this package actually uses.
// Narrowing it to an interface keeps the Telegram client testable without
// network access.
type botAPI interface {
	GetMe() (tgbotapi.User, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Telegram is the production Client backed by the Bot API.
type Telegram struct {
	api botAPI
}

// NewTelegram authenticates against the Bot API with the given token.
func NewTelegram(token string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api}, nil
}

// newTelegramWith wires an arbitrary botAPI; used by tests.
func newTelegramWith(api botAPI) *Telegram { return &Telegram{api: api} }

// GetBotIdentity implements Client.
func (t *Telegram) GetBotIdentity(ctx context.Context) (*Identity, error) {
	type result struct {
		user tgbotapi.User
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		u, err := t.api.GetMe()
		ch <- result{user: u, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return &Identity{ID: r.user.ID, Username: r.user.UserName}, nil
	}
}

// SendMessage implements Client.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// AnswerCallback implements Client.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// SetWebhook implements Client.
func (t *Telegram) SetWebhook(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	_, err = t.api.Request(wh)
	return err
}

// DeleteWebhook implements Client.
func (t *Telegram) DeleteWebhook(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false})
	return err
}

// ReceiveUpdates implements Client. The SDK call blocks for up to timeoutSec
// seconds server-side; cancellation unblocks the caller immediately.
func (t *Telegram) ReceiveUpdates(ctx context.Context, offset, limit, timeoutSec int) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Limit = limit
	cfg.Timeout = timeoutSec

	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		ups, err := t.api.GetUpdates(cfg)
		ch <- result{updates: ups, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.updates, r.err
	}
}
