// Built-in command handlers. Each one is a small struct bound to the platform
// client and whatever storage it needs; wiring happens in cmd/bot.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/platform"
	"github.com/dkraev/tg-bot-backend/internal/repo"
)

// StartHandler greets the user on /start.
type StartHandler struct {
	Client platform.Client
}

// CanExecute implements Handler.
func (h *StartHandler) CanExecute(context.Context, *tgbotapi.Update, *domain.Principal) bool {
	return true
}

// Execute implements Handler.
func (h *StartHandler) Execute(ctx context.Context, upd *tgbotapi.Update, p *domain.Principal) error {
	name := p.FirstName
	if name == "" {
		name = p.Username
	}
	text := fmt.Sprintf("Hi %s! I'm up and listening. Use /help to see what I can do.", name)
	return h.Client.SendMessage(ctx, incomingMessage(upd).Chat.ID, text)
}

// HelpHandler lists the available commands on /help.
type HelpHandler struct {
	Client   platform.Client
	Registry *Registry
}

// CanExecute implements Handler.
func (h *HelpHandler) CanExecute(context.Context, *tgbotapi.Update, *domain.Principal) bool {
	return true
}

// Execute implements Handler.
func (h *HelpHandler) Execute(ctx context.Context, upd *tgbotapi.Update, _ *domain.Principal) error {
	text := "Available commands:\n"
	for _, name := range h.Registry.Names() {
		text += "/" + name + "\n"
	}
	return h.Client.SendMessage(ctx, incomingMessage(upd).Chat.ID, text)
}

// StatsHandler replies with the caller's own usage numbers on /stats.
type StatsHandler struct {
	Client platform.Client
	DB     *gorm.DB
}

// CanExecute implements Handler. Bot accounts get no stats.
func (h *StatsHandler) CanExecute(_ context.Context, _ *tgbotapi.Update, p *domain.Principal) bool {
	return !p.IsBot
}

// Execute implements Handler.
func (h *StatsHandler) Execute(ctx context.Context, upd *tgbotapi.Update, p *domain.Principal) error {
	// Re-read: the in-memory principal predates this event's counter bump.
	fresh, err := repo.GetPrincipal(ctx, h.DB, p.ID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(
		"You have sent %d interactions since %s.",
		fresh.InteractionCount,
		fresh.FirstSeenAt.Format("2006-01-02"),
	)
	return h.Client.SendMessage(ctx, incomingMessage(upd).Chat.ID, text)
}
