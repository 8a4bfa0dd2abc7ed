// Dispatcher: turns one raw platform update into zero-or-one side effects
// plus exactly one analytics record.
//
// Failure discipline (applies to every branch):
//   - handler and downstream errors never propagate out of Dispatch; they are
//     captured, written as error records, and turned into failed-interaction
//     analytics
//   - the interaction write itself is best-effort; its failure is only logged
//   - duplicate deliveries of one update id are detected before any side
//     effect and dropped, which makes at-least-once delivery around a
//     polling/webhook mode switch safe
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/platform"
	"github.com/dkraev/tg-bot-backend/internal/repo"
	"github.com/dkraev/tg-bot-backend/internal/services"
)

// defaultDedupTTL bounds retention of processed-update markers. Update ids
// only ever increase, so a marker never needs to outlive the window in which
// the platform could redeliver it.
const defaultDedupTTL = 24 * time.Hour

// failureNotice is the generic reply sent when a message handler fails.
const failureNotice = "Something went wrong, please try again later."

// blockedNotice is the callback acknowledgement shown to blocked principals.
const blockedNotice = "You are not allowed to use this bot."

// Dispatcher routes updates to command handlers and records outcomes.
type Dispatcher struct {
	DB        *gorm.DB
	Client    platform.Client
	Registry  *Registry
	Analytics *services.AnalyticsService
	Log       zerolog.Logger

	// DedupTTL overrides the processed-update marker retention; zero means
	// defaultDedupTTL.
	DedupTTL time.Duration
}

// Dispatch processes a single update end to end. It never returns an error:
// per-event failures are recorded, not raised, so neither the polling loop
// nor a webhook response can be poisoned by one bad event.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *tgbotapi.Update) {
	start := time.Now()

	tr := otel.Tracer("bot/Dispatcher")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(attribute.Int("update.id", upd.UpdateID)),
	)
	defer span.End()

	kind, sender, chatID := eventKind(upd)
	span.SetAttributes(attribute.String("update.kind", kind))

	// Claim the update id before any side effect. Losing the claim means a
	// previous delivery already processed (or is processing) this event.
	if err := repo.ClaimUpdate(ctx, d.DB, int64(upd.UpdateID), d.dedupTTL()); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			d.Log.Debug().Int("update_id", upd.UpdateID).Msg("duplicate update dropped")
			updatesTotal.WithLabelValues(kind, statusDuplicate).Inc()
			return
		}
		// A storage failure here must not drop the event: at-least-once
		// processing is the safer side of the trade.
		d.Log.Error().Err(err).Int("update_id", upd.UpdateID).Msg("claim update failed")
		d.recordError(ctx, domain.ErrKindStorage, err.Error(), nil, "", domain.SeverityWarning)
	}

	var principal *domain.Principal
	if sender != nil {
		p, err := d.resolvePrincipal(ctx, sender)
		if err != nil {
			d.Log.Error().Err(err).Int64("principal_id", sender.ID).Msg("resolve principal failed")
			d.recordError(ctx, domain.ErrKindStorage, err.Error(), &sender.ID, "", domain.SeverityError)
			d.record(ctx, sender.ID, chatID, kind, "", false, err.Error(), start)
			return
		}
		principal = p

		if principal.Blocked {
			if upd.CallbackQuery != nil {
				// Callback-style events get a minimal "forbidden" ack; the
				// platform would otherwise keep the button spinner alive.
				if err := d.Client.AnswerCallback(ctx, upd.CallbackQuery.ID, blockedNotice); err != nil {
					d.Log.Warn().Err(err).Msg("blocked callback ack failed")
				}
			}
			updatesTotal.WithLabelValues(kind, statusBlocked).Inc()
			d.record(ctx, principal.ID, chatID, kind, "", false, "principal blocked", start)
			return
		}

		if err := repo.TouchPrincipal(ctx, d.DB, principal.ID, time.Now().UTC()); err != nil {
			d.Log.Warn().Err(err).Int64("principal_id", principal.ID).Msg("touch principal failed")
		}
	}

	kind, cmdName, handlerErr := d.route(ctx, upd, kind, principal)

	success := handlerErr == nil
	errText := ""
	if handlerErr != nil {
		errText = handlerErr.Error()
	}

	var pid int64
	if principal != nil {
		pid = principal.ID
	}
	interactionID := d.record(ctx, pid, chatID, kind, cmdName, success, errText, start)

	if handlerErr != nil {
		var pidRef *int64
		if principal != nil {
			pidRef = &principal.ID
		}
		d.recordError(ctx, domain.ErrKindBusiness, handlerErr.Error(), pidRef, interactionID, domain.SeverityError)
		if msg := incomingMessage(upd); msg != nil {
			// Best-effort apology; its own failure is not escalated.
			if err := d.Client.SendMessage(ctx, msg.Chat.ID, failureNotice); err != nil {
				d.Log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failure notice not delivered")
			}
		}
	}
}

// route selects and runs the handler for an update. It returns the possibly
// upgraded event kind (message → command), the command name when one was
// extracted, and the handler error if any.
func (d *Dispatcher) route(ctx context.Context, upd *tgbotapi.Update, kind string, p *domain.Principal) (string, string, error) {
	switch kind {
	case domain.KindMessage:
		msg := incomingMessage(upd)
		if cmd, _, ok := ParseCommand(msg.Text); ok {
			if h, found := d.Registry.Resolve(cmd); found && h.CanExecute(ctx, upd, p) {
				return domain.KindCommand, cmd, d.execute(ctx, h, upd, p)
			}
			// Unknown command or predicate refused: default handling, which
			// must not fail analytics even when nothing is sent.
			d.defaultReply(ctx, msg)
			return domain.KindCommand, cmd, nil
		}
		d.defaultReply(ctx, msg)
		return kind, "", nil

	case domain.KindCallback:
		// Fixed per-kind handling: acknowledge so the client stops spinning.
		if err := d.Client.AnswerCallback(ctx, upd.CallbackQuery.ID, ""); err != nil {
			return kind, "", fmt.Errorf("answer callback: %w", err)
		}
		return kind, "", nil

	default:
		// Remaining kinds have no side effect yet but still record analytics.
		return kind, "", nil
	}
}

// execute runs a handler, converting panics into errors at the dispatch
// boundary so no per-event control flow crosses into the ingestion loop.
func (d *Dispatcher) execute(ctx context.Context, h Handler, upd *tgbotapi.Update, p *domain.Principal) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h.Execute(ctx, upd, p)
}

// defaultReply echoes plain text messages back. Send failures are logged and
// swallowed: the fallback never fails analytics.
func (d *Dispatcher) defaultReply(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Text == "" {
		return
	}
	if err := d.Client.SendMessage(ctx, msg.Chat.ID, msg.Text); err != nil {
		d.Log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("default reply not delivered")
	}
}

// resolvePrincipal upserts the sender's identity and loads the current row
// (blocked flag included).
func (d *Dispatcher) resolvePrincipal(ctx context.Context, u *tgbotapi.User) (*domain.Principal, error) {
	p := &domain.Principal{
		ID:           u.ID,
		Username:     u.UserName,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		IsBot:        u.IsBot,
	}
	if err := repo.UpsertPrincipal(ctx, d.DB, p); err != nil {
		return nil, err
	}
	return repo.GetPrincipal(ctx, d.DB, u.ID)
}

// record writes the per-event interaction row and emits metrics. The write is
// best-effort: its failure is logged, never re-raised.
func (d *Dispatcher) record(ctx context.Context, principalID, chatID int64, kind, command string, success bool, errText string, start time.Time) string {
	latency := time.Since(start)

	status := statusOK
	if !success {
		status = statusFailed
	}
	updatesTotal.WithLabelValues(kind, status).Inc()
	updateDuration.WithLabelValues(kind).Observe(latency.Seconds())

	id, err := d.Analytics.RecordInteraction(ctx, principalID, chatID, kind, command, success, errText, latency)
	if err != nil {
		d.Log.Error().Err(err).Str("kind", kind).Msg("interaction record failed")
		return ""
	}
	return id
}

// recordError writes an error record; failure to do so is only logged.
func (d *Dispatcher) recordError(ctx context.Context, kind, message string, principalID *int64, interactionID, severity string) {
	if err := d.Analytics.RecordError(ctx, kind, message, principalID, interactionID, severity); err != nil {
		d.Log.Error().Err(err).Str("error_kind", kind).Msg("error record failed")
	}
}

func (d *Dispatcher) dedupTTL() time.Duration {
	if d.DedupTTL > 0 {
		return d.DedupTTL
	}
	return defaultDedupTTL
}

// incomingMessage returns the message carried by an update: a fresh one, or
// the new revision of an edited one. Handlers reply through this accessor so
// an edited "/command" reaches the same chat as an original send would.
func incomingMessage(upd *tgbotapi.Update) *tgbotapi.Message {
	if upd.Message != nil {
		return upd.Message
	}
	return upd.EditedMessage
}

// eventKind resolves the event kind, the sending user, and the originating
// chat (0 when the kind has none) from the populated sub-fields of an update.
func eventKind(upd *tgbotapi.Update) (kind string, sender *tgbotapi.User, chatID int64) {
	switch {
	case upd.Message != nil:
		return domain.KindMessage, upd.Message.From, upd.Message.Chat.ID
	case upd.EditedMessage != nil:
		return domain.KindMessage, upd.EditedMessage.From, upd.EditedMessage.Chat.ID
	case upd.CallbackQuery != nil:
		var chat int64
		if upd.CallbackQuery.Message != nil {
			chat = upd.CallbackQuery.Message.Chat.ID
		}
		return domain.KindCallback, upd.CallbackQuery.From, chat
	case upd.InlineQuery != nil:
		return domain.KindInline, upd.InlineQuery.From, 0
	case upd.ChosenInlineResult != nil:
		return domain.KindChosenInline, upd.ChosenInlineResult.From, 0
	case upd.PreCheckoutQuery != nil:
		return domain.KindPreCheckout, upd.PreCheckoutQuery.From, 0
	case upd.ShippingQuery != nil:
		return domain.KindShipping, upd.ShippingQuery.From, 0
	case upd.PollAnswer != nil:
		return domain.KindPollAnswer, &upd.PollAnswer.User, 0
	case upd.MyChatMember != nil:
		return domain.KindChatMember, &upd.MyChatMember.From, upd.MyChatMember.Chat.ID
	case upd.ChatMember != nil:
		return domain.KindChatMember, &upd.ChatMember.From, upd.ChatMember.Chat.ID
	case upd.ChatJoinRequest != nil:
		return domain.KindJoinRequest, &upd.ChatJoinRequest.From, upd.ChatJoinRequest.Chat.ID
	default:
		return domain.KindUnknown, nil, 0
	}
}
