// Package bot contains the update ingestion and dispatch pipeline: the
// command registry, the dispatcher that turns one platform update into at
// most one side effect plus exactly one analytics record, and the update
// source that feeds it from either polling or webhook mode.
package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// Handler processes one command invocation. Implementations form a closed set
// registered at startup; there is no reflection-based discovery.
type Handler interface {
	// CanExecute gates execution, e.g. on principal state. A false return
	// routes the update to the default handler instead.
	CanExecute(ctx context.Context, upd *tgbotapi.Update, p *domain.Principal) bool

	// Execute performs the command's side effect. Errors are converted to
	// failed-interaction analytics by the dispatcher, never propagated.
	Execute(ctx context.Context, upd *tgbotapi.Update, p *domain.Principal) error
}

// Registry maps command keywords to handlers. It is populated once during
// startup and read-only afterwards; the mutex only exists so late
// registration stays safe if a deployment ever needs it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command keyword (stored lowercase). A second
// registration for the same name replaces the first.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(name)] = h
}

// Resolve looks up a handler by command keyword, case-insensitively.
func (r *Registry) Resolve(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(name)]
	return h, ok
}

// Names returns the registered command keywords, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}

// ParseCommand extracts the command keyword and trailing arguments from a
// message text. The leading slash is required; an "@botname" suffix on the
// keyword is stripped (Telegram appends it in group chats) and the keyword is
// lowercased so /Start and /start resolve identically.
func ParseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", "", false
	}
	rest := text[1:]
	if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
		cmd, args = rest[:i], strings.TrimSpace(rest[i+1:])
	} else {
		cmd = rest
	}
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", "", false
	}
	return strings.ToLower(cmd), args, true
}
