// Update source: a two-mode (polling | webhook) producer of platform events.
//
// Exactly one mode is active at a time; the flag lives in the bot_config
// table and only this component flips it. The switch is not atomic with
// respect to an in-flight polling iteration — a long-poll already awaiting
// the platform may deliver one more batch after the flag changed. The
// dispatcher's duplicate detection absorbs that window.
package bot

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/config"
	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/platform"
	"github.com/dkraev/tg-bot-backend/internal/repo"
)

// Sentinel errors surfaced to the webhook HTTP handler.
var (
	// ErrBadSecret means the path secret did not match the configured one.
	ErrBadSecret = errors.New("webhook secret mismatch")
	// ErrBadPayload means the request body was not a parseable update.
	ErrBadPayload = errors.New("unparsable update payload")
)

// webhookSecretLen is the generated secret length; uniform random
// alphanumerics, comfortably past the 32-character floor.
const webhookSecretLen = 48

// Source owns the ingestion mode and feeds updates to the dispatcher.
type Source struct {
	DB         *gorm.DB
	Client     platform.Client
	Dispatcher *Dispatcher
	Cfg        config.BotConfig
	Log        zerolog.Logger

	// offset is the polling cursor. The polling loop is the only writer.
	offset int
}

// NewSource wires an update source. Initial mode seeding happens in Seed.
func NewSource(db *gorm.DB, client platform.Client, d *Dispatcher, cfg config.BotConfig, log zerolog.Logger) *Source {
	return &Source{DB: db, Client: client, Dispatcher: d, Cfg: cfg, Log: log}
}

// Seed writes default bot_config rows for a fresh database: the boot mode
// from the environment, empty webhook settings, and the retry budget.
// Existing rows win over defaults.
func (s *Source) Seed(ctx context.Context) error {
	return repo.SeedConfigDefaults(ctx, s.DB, []domain.BotConfig{
		{Key: domain.ConfigKeyMode, Value: s.Cfg.Mode, Sensitive: false},
		{Key: domain.ConfigKeyWebhookURL, Value: s.Cfg.WebhookURL, Sensitive: false},
		{Key: domain.ConfigKeyWebhookSecret, Value: "", Sensitive: true},
		{Key: domain.ConfigKeyRetryLimit, Value: "3", Sensitive: false},
	})
}

// Mode returns the currently persisted ingestion mode.
func (s *Source) Mode(ctx context.Context) (string, error) {
	mode, err := repo.GetConfigValue(ctx, s.DB, domain.ConfigKeyMode)
	if err != nil {
		if repo.IsMissing(err) {
			return domain.ModePolling, nil
		}
		return "", err
	}
	return mode, nil
}

// RunPolling drives the long-poll loop until ctx is cancelled. It is the only
// writer of the offset cursor, so the cursor needs no locking. Failures never
// terminate the loop; they select a backoff sleep:
//
//	rate-limited  → the long retry interval (>= 60s)
//	anything else → the short retry interval (>= 5s)
//
// Both sleeps abort promptly on cancellation.
func (s *Source) RunPolling(ctx context.Context) {
	s.Log.Info().Msg("polling loop started")
	for {
		if ctx.Err() != nil {
			s.Log.Info().Msg("polling loop stopped")
			return
		}

		mode, err := s.Mode(ctx)
		if err != nil {
			s.Log.Error().Err(err).Msg("read ingestion mode")
			if !s.sleep(ctx, s.Cfg.RetryShort) {
				return
			}
			continue
		}
		if mode != domain.ModePolling {
			// Webhook mode is active; idle until switched back.
			if !s.sleep(ctx, s.Cfg.RetryShort) {
				return
			}
			continue
		}

		updates, err := s.Client.ReceiveUpdates(ctx, s.offset, s.Cfg.PollBatch, int(s.Cfg.PollTimeout.Seconds()))
		if err != nil {
			if ctx.Err() != nil {
				s.Log.Info().Msg("polling loop stopped")
				return
			}
			class := platform.ClassifyError(err)
			wait := s.Cfg.RetryShort
			label := "transport"
			if class == platform.ErrClassRateLimited {
				wait = s.Cfg.RetryLong
				label = "rate_limited"
			}
			pollBackoffTotal.WithLabelValues(label).Inc()
			s.Log.Warn().Err(err).Str("class", label).Dur("backoff", wait).Msg("receive updates failed")
			if !s.sleep(ctx, wait) {
				return
			}
			continue
		}

		for i := range updates {
			upd := updates[i]
			if upd.UpdateID >= s.offset {
				// Advancing the cursor acknowledges this update on the
				// next ReceiveUpdates call.
				s.offset = upd.UpdateID + 1
			}
			s.Dispatcher.Dispatch(ctx, &upd)
		}
	}
}

// HandleWebhookUpdate authenticates and dispatches one pushed update.
// The secret comparison is constant-time. No retry logic lives here: the
// platform owns webhook redelivery.
func (s *Source) HandleWebhookUpdate(ctx context.Context, secret string, body []byte) error {
	configured, err := repo.GetConfigValue(ctx, s.DB, domain.ConfigKeyWebhookSecret)
	if err != nil && !repo.IsMissing(err) {
		return err
	}
	if configured == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(configured)) != 1 {
		return ErrBadSecret
	}

	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	s.Dispatcher.Dispatch(ctx, &upd)
	return nil
}

// EnableWebhook switches ingestion to webhook mode. A missing secret is
// replaced with a freshly generated one; the registration URL embeds the
// secret in its path. Mode, URL, and secret are persisted so the switch
// survives restarts; the polling loop idles from its next iteration.
func (s *Source) EnableWebhook(ctx context.Context, baseURL, secret string) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return "", errors.New("webhook url must not be empty")
	}
	if secret == "" {
		var err error
		secret, err = GenerateSecret(webhookSecretLen)
		if err != nil {
			return "", fmt.Errorf("generate webhook secret: %w", err)
		}
	}

	if err := s.Client.SetWebhook(ctx, baseURL+"/webhook/"+secret); err != nil {
		return "", fmt.Errorf("register webhook: %w", err)
	}

	if err := repo.SetConfigValue(ctx, s.DB, domain.ConfigKeyWebhookURL, baseURL, false); err != nil {
		return "", err
	}
	if err := repo.SetConfigValue(ctx, s.DB, domain.ConfigKeyWebhookSecret, secret, true); err != nil {
		return "", err
	}
	if err := repo.SetConfigValue(ctx, s.DB, domain.ConfigKeyMode, domain.ModeWebhook, false); err != nil {
		return "", err
	}

	s.Log.Info().Str("url", baseURL).Msg("webhook mode enabled")
	return secret, nil
}

// DisableWebhook clears the remote registration and returns to polling mode.
func (s *Source) DisableWebhook(ctx context.Context) error {
	if err := s.Client.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("deregister webhook: %w", err)
	}
	if err := repo.SetConfigValue(ctx, s.DB, domain.ConfigKeyWebhookSecret, "", true); err != nil {
		return err
	}
	if err := repo.SetConfigValue(ctx, s.DB, domain.ConfigKeyMode, domain.ModePolling, false); err != nil {
		return err
	}
	s.Log.Info().Msg("polling mode restored")
	return nil
}

// sleep blocks for d or until cancellation; it reports whether the caller
// should keep running.
func (s *Source) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// secretAlphabet is the character set for generated webhook secrets.
const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSecret returns n uniform random alphanumeric characters from
// crypto/rand. Uniformity matters: modulo bias would shave entropy off a
// credential that guards an unauthenticated endpoint.
func GenerateSecret(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[idx.Int64()]
	}
	return string(out), nil
}
