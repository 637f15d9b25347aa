// Package main is the entry point for the Telefunken game server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telefunken-server/internal/bot"
	"telefunken-server/internal/config"
	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/handler"
	"telefunken-server/internal/notify"
	"telefunken-server/internal/pkg/db"
	"telefunken-server/internal/repository"
	"telefunken-server/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("storage", cfg.Storage.Driver).
		Bool("telegram", cfg.TelegramEnabled()).
		Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	var (
		sessionStore service.SessionStore
		historyStore service.HistoryStore
		health       handler.HealthChecker
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		sessionStore = repository.NewSessionRepository(dbPool.Pool)
		historyStore = repository.NewHistoryRepository(dbPool.Pool)
		health = dbPool
	default:
		log.Warn().Msg("Using in-memory storage, sessions will not survive a restart")
		sessionStore = repository.NewMemorySessionStore()
		historyStore = repository.NewMemoryHistoryStore()
	}

	tieBreak, err := telefunken.ParseTieBreak(cfg.Game.TieBreak)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid game configuration")
	}
	rules := telefunken.DefaultRules()
	rules.MinPlayers = cfg.Game.MinPlayers
	rules.MaxPlayers = cfg.Game.MaxPlayers
	rules.TieBreak = tieBreak

	// Initialize notifiers and services
	hub := notify.NewHub(notify.HubConfig{WriteTimeout: cfg.Server.WriteTimeout})
	notifier := notify.NewFanout(hub)

	sessionService := service.NewSessionService(rules, sessionStore, notifier,
		service.WithHistory(historyStore),
		service.WithLockTimeout(cfg.Server.LockTimeout),
	)
	historyService := service.NewHistoryService(historyStore)

	// The bot reads sessions through the service it announces for.
	var telegramBot *bot.Bot
	if cfg.TelegramEnabled() {
		telegramBot, err = bot.New(cfg.Telegram, sessionService)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		notifier.Add(telegramBot.Announcer())
	}

	log.Info().Int("notifiers", notifier.Len()).Msg("Notifiers registered")

	router := handler.NewRouter(handler.RouterConfig{
		Sessions: handler.NewSessionHandler(sessionService, hub),
		History:  handler.NewHistoryHandler(historyService),
		Identity: handler.NewIdentity(cfg.Auth),
		Health:   health,
	})

	// No server-wide WriteTimeout: WebSocket streams stay open and the hub
	// bounds each frame with cfg.Server.WriteTimeout instead.
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if telegramBot != nil {
		go func() {
			log.Info().Msg("Bot is starting...")
			telegramBot.Start()
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown did not complete")
	}
	if telegramBot != nil {
		telegramBot.Stop()
	}
	log.Info().Msg("Server stopped gracefully")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
