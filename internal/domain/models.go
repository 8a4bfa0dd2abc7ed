// Package domain defines the persistence models for principals, sessions,
// interactions, error records, and bot configuration. These types are mapped
// with GORM and form the core data layer of the bot backend.
package domain

import (
	"time"
)

// Event kinds recorded per processed update. The set is closed: the dispatcher
// resolves exactly one kind from the populated sub-fields of a platform update.
const (
	KindMessage      = "message"
	KindCommand      = "command"
	KindCallback     = "callback"
	KindInline       = "inline_query"
	KindChosenInline = "chosen_inline_result"
	KindPreCheckout  = "pre_checkout"
	KindShipping     = "shipping"
	KindPollAnswer   = "poll_answer"
	KindChatMember   = "chat_member"
	KindJoinRequest  = "join_request"
	KindUnknown      = "unknown"
)

// Error kinds for ErrorRecord rows.
const (
	ErrKindPlatformAPI = "platform_api"
	ErrKindStorage     = "storage"
	ErrKindValidation  = "validation"
	ErrKindAuth        = "auth"
	ErrKindNetwork     = "network"
	ErrKindParsing     = "parsing"
	ErrKindBusiness    = "business"
	ErrKindSystem      = "system"
)

// Error severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Principal is an end user of the bot, keyed by the platform's numeric user id.
// Rows are created on first observed event or first login and never hard-deleted;
// blocking is soft state.
//
// Fields:
//   - ID: numeric platform user id (primary key, not generated).
//   - Username / FirstName / LastName / LanguageCode / IsBot: platform identity.
//   - Blocked / BlockReason: soft moderation state; blocked principals are
//     short-circuited by the dispatcher and rejected by the auth gateway.
//   - FirstSeenAt / LastSeenAt: observation window, touched on every event.
//   - InteractionCount: lifetime counter, incremented atomically in SQL.
type Principal struct {
	ID               int64     `json:"id"                gorm:"primaryKey;autoIncrement:false"`
	Username         string    `json:"username"          gorm:"type:varchar(64);index"`
	FirstName        string    `json:"first_name"        gorm:"type:varchar(128)"`
	LastName         string    `json:"last_name"         gorm:"type:varchar(128)"`
	LanguageCode     string    `json:"language_code"     gorm:"type:varchar(16)"`
	IsBot            bool      `json:"is_bot"`
	Blocked          bool      `json:"blocked"           gorm:"index"`
	BlockReason      string    `json:"block_reason,omitempty" gorm:"type:varchar(255)"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	InteractionCount int64     `json:"interaction_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for Principal.
func (Principal) TableName() string { return "principals" }

// Session is an opaque server-side credential bound to a principal. At most one
// active, non-expired session is trusted per token value; the token itself is
// 256 bits of crypto/rand entropy, hex-encoded.
//
// Fields:
//   - Token: primary key, unguessable.
//   - PrincipalID: owning principal.
//   - ChatID: platform chat the session was opened from (0 when unknown).
//   - ExpiresAt: absolute expiry; refresh recomputes it from the refresh time.
//   - Active: cleared on logout, principal block, or the expiry sweep.
//   - LastAccessedAt: touched on successful validation.
//   - Data: optional opaque payload attached at login.
type Session struct {
	Token          string    `json:"-"               gorm:"type:char(64);primaryKey"`
	PrincipalID    int64     `json:"principal_id"    gorm:"not null;index"`
	ChatID         int64     `json:"chat_id"`
	ExpiresAt      time.Time `json:"expires_at"      gorm:"not null;index"`
	Active         bool      `json:"active"          gorm:"not null;default:true"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	Data           string    `json:"-"               gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Interaction is the append-only outcome of processing one platform update.
// Exactly one row is written per dispatched event attempt.
type Interaction struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	PrincipalID int64     `json:"principal_id" gorm:"index:idx_interactions_principal"`
	ChatID      int64     `json:"chat_id"`
	Kind        string    `json:"kind"         gorm:"type:varchar(32);not null;index"`
	Command     string    `json:"command,omitempty" gorm:"type:varchar(64);index"`
	Success     bool      `json:"success"      gorm:"not null"`
	Error       string    `json:"error,omitempty" gorm:"type:text"`
	LatencyMS   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for Interaction.
func (Interaction) TableName() string { return "interactions" }

// ErrorRecord is an append-only diagnostic written whenever ingestion or
// dispatch hits an error that is unrecoverable for that event.
type ErrorRecord struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	Kind          string    `json:"kind"           gorm:"type:varchar(32);not null;index"`
	Message       string    `json:"message"        gorm:"type:text;not null"`
	PrincipalID   *int64    `json:"principal_id,omitempty" gorm:"index"`
	InteractionID string    `json:"interaction_id,omitempty" gorm:"type:char(36)"`
	Severity      string    `json:"severity"       gorm:"type:varchar(16);not null;default:'error'"`
	Stack         string    `json:"-"              gorm:"type:text"`
	Resolved      bool      `json:"resolved"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for ErrorRecord.
func (ErrorRecord) TableName() string { return "error_records" }

// BotConfig is a key/value row of runtime bot settings (ingestion mode, webhook
// url/secret, retry limits). Sensitive values are never surfaced unmasked.
type BotConfig struct {
	Key       string    `json:"key"       gorm:"type:varchar(64);primaryKey"`
	Value     string    `json:"value"     gorm:"type:text;not null"`
	Sensitive bool      `json:"sensitive" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for BotConfig.
func (BotConfig) TableName() string { return "bot_config" }

// Well-known bot_config keys. The update source owns the mode keys exclusively.
const (
	ConfigKeyMode          = "mode"
	ConfigKeyWebhookURL    = "webhook_url"
	ConfigKeyWebhookSecret = "webhook_secret"
	ConfigKeyRetryLimit    = "retry_limit"
)

// Ingestion modes stored under ConfigKeyMode.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)
