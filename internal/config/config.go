// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, bot polling behavior,
// session/JWT lifetimes, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "tg-bot-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BotConfig defines the platform connection and ingestion behavior.
// The mode stored here is only the boot-time default; runtime switches are
// persisted by the update source in the bot_config table.
type BotConfig struct {
	Token       string        // BOT_TOKEN (Telegram bot token)
	Mode        string        // BOT_MODE: polling|webhook (initial mode)
	WebhookURL  string        // BOT_WEBHOOK_URL (public base URL for webhook mode)
	PollTimeout time.Duration // BOT_POLL_TIMEOUT (server-side long-poll wait)
	PollBatch   int           // BOT_POLL_BATCH (updates per GetUpdates call)
	RetryShort  time.Duration // BOT_RETRY_SHORT (sleep after transport errors)
	RetryLong   time.Duration // BOT_RETRY_LONG (sleep after rate limiting)
}

// JWTConfig defines the signing parameters for control-plane bearer tokens.
type JWTConfig struct {
	Secret   string        // JWT_SECRET (HMAC signing key)
	Issuer   string        // JWT_ISSUER
	Audience string        // JWT_AUDIENCE
	TTL      time.Duration // JWT_TTL (must equal SESSION_TTL; validated at load)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for control-plane routes

	// App
	DBPath string // SQLite path

	// Bot / sessions
	Bot          BotConfig
	JWT          JWTConfig
	SessionTTL   time.Duration // SESSION_TTL
	SessionGrace time.Duration // SESSION_GRACE (sweep keeps rows this long past expiry)
	SweepEvery   time.Duration // SESSION_SWEEP_EVERY

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "bot.db"),

		// Bot
		Bot: BotConfig{
			Token:       getenv("BOT_TOKEN", ""),
			Mode:        strings.ToLower(getenv("BOT_MODE", "polling")),
			WebhookURL:  getenv("BOT_WEBHOOK_URL", ""),
			PollTimeout: getdur("BOT_POLL_TIMEOUT", 60*time.Second),
			PollBatch:   getint("BOT_POLL_BATCH", 100),
			RetryShort:  getdur("BOT_RETRY_SHORT", 5*time.Second),
			RetryLong:   getdur("BOT_RETRY_LONG", 60*time.Second),
		},

		// JWT / sessions
		JWT: JWTConfig{
			Secret:   getenv("JWT_SECRET", ""),
			Issuer:   getenv("JWT_ISSUER", "tg-bot-backend"),
			Audience: getenv("JWT_AUDIENCE", "tg-bot-control-plane"),
			TTL:      getdur("JWT_TTL", time.Hour),
		},
		SessionTTL:   getdur("SESSION_TTL", time.Hour),
		SessionGrace: getdur("SESSION_GRACE", 24*time.Hour),
		SweepEvery:   getdur("SESSION_SWEEP_EVERY", 10*time.Minute),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "tg-bot-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Bot.Token) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	switch cfg.Bot.Mode {
	case "polling", "webhook":
	default:
		return cfg, errors.New("BOT_MODE must be polling or webhook")
	}
	if cfg.Bot.Mode == "webhook" && strings.TrimSpace(cfg.Bot.WebhookURL) == "" {
		return cfg, errors.New("BOT_WEBHOOK_URL is required when BOT_MODE=webhook")
	}
	if cfg.Bot.PollTimeout <= 0 {
		return cfg, errors.New("BOT_POLL_TIMEOUT must be > 0")
	}
	if cfg.Bot.PollBatch < 1 || cfg.Bot.PollBatch > 100 {
		return cfg, errors.New("BOT_POLL_BATCH must be in [1,100]")
	}
	if cfg.Bot.RetryShort < 5*time.Second {
		return cfg, errors.New("BOT_RETRY_SHORT must be >= 5s")
	}
	if cfg.Bot.RetryLong < time.Minute {
		return cfg, errors.New("BOT_RETRY_LONG must be >= 1m")
	}
	if cfg.Bot.RetryLong <= cfg.Bot.RetryShort {
		return cfg, errors.New("BOT_RETRY_LONG must exceed BOT_RETRY_SHORT")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return cfg, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.JWT.TTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	// The JWT wraps the session and both expire together; a mismatch would
	// silently truncate or outlive one of the two, so it fails loudly here.
	if cfg.JWT.TTL != cfg.SessionTTL {
		return cfg, errors.New("JWT_TTL must equal SESSION_TTL")
	}
	if cfg.SessionGrace < 0 {
		return cfg, errors.New("SESSION_GRACE must be >= 0")
	}
	if cfg.SweepEvery <= 0 {
		return cfg, errors.New("SESSION_SWEEP_EVERY must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
