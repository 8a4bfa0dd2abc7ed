// Command bot runs the chat-bot backend: the update ingestion pipeline
// (polling or webhook), the command dispatcher, the session sweeper, and the
// HTTP control plane.
//
// Startup order:
//  1. Environment (.env in dev) → config
//  2. Logging (zerolog) and tracing (OTel, optional)
//  3. SQLite storage + migrations
//  4. Platform client, command registry, dispatcher, update source
//  5. Background loops: polling, session cleanup, dedup-marker purge
//  6. Gin HTTP server with graceful shutdown on SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/bot"
	"github.com/dkraev/tg-bot-backend/internal/config"
	httpapi "github.com/dkraev/tg-bot-backend/internal/http"
	"github.com/dkraev/tg-bot-backend/internal/observability"
	"github.com/dkraev/tg-bot-backend/internal/platform"
	"github.com/dkraev/tg-bot-backend/internal/repo"
	"github.com/dkraev/tg-bot-backend/internal/services"
	"github.com/dkraev/tg-bot-backend/internal/sysutil"
)

// version is set at build time via -ldflags.
var version = "dev"

// markerPurgeEvery is how often expired dedup markers are deleted.
const markerPurgeEvery = time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	logger := sysutil.NewServiceLogger(cfg.OTEL.ServiceName, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	client, err := platform.NewTelegram(cfg.Bot.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("platform client init failed")
	}
	identity, err := client.GetBotIdentity(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("platform identity check failed")
	}
	logger.Info().Int64("bot_id", identity.ID).Str("username", identity.Username).Msg("connected to platform")

	analytics := services.NewAnalyticsService(db, logger)
	sessions := services.NewSessionService(db, cfg.SessionTTL, cfg.SessionGrace, logger)
	auth := services.NewAuthService(db, sessions, cfg.JWT, cfg.Bot.Token)
	users := services.NewUserService(db, sessions, logger)

	registry := bot.NewRegistry()
	registry.Register("start", &bot.StartHandler{Client: client})
	registry.Register("help", &bot.HelpHandler{Client: client, Registry: registry})
	registry.Register("stats", &bot.StatsHandler{Client: client, DB: db})

	dispatcher := &bot.Dispatcher{
		DB:        db,
		Client:    client,
		Registry:  registry,
		Analytics: analytics,
		Log:       logger,
	}
	source := bot.NewSource(db, client, dispatcher, cfg.Bot, logger)
	if err := source.Seed(ctx); err != nil {
		logger.Fatal().Err(err).Msg("config seed failed")
	}

	go source.RunPolling(ctx)
	go sessions.RunCleanup(ctx, cfg.SweepEvery)
	go purgeMarkers(ctx, db, logger)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Deps{
		Auth:      auth,
		Users:     users,
		Analytics: analytics,
		BotCtl:    source,
		Tokens:    auth,
		Sessions:  sessions,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	logger.Info().Msg("bye")
}

// purgeMarkers periodically deletes expired processed-update markers.
func purgeMarkers(ctx context.Context, db *gorm.DB, logger zerolog.Logger) {
	t := time.NewTicker(markerPurgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredUpdateMarkers(ctx, db, time.Now().UTC())
			if err != nil {
				logger.Error().Err(err).Msg("marker purge failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("purged update markers")
			}
		}
	}
}
