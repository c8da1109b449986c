// Command bot runs the duplicate-video tracking bot. It serves Telegram
// updates either through a webhook HTTP endpoint (when WEBHOOK_URL is set) or
// a long-polling loop, and shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-dedupe-bot/internal/bot"
	"github.com/tbourn/go-dedupe-bot/internal/config"
	httpapi "github.com/tbourn/go-dedupe-bot/internal/http"
	"github.com/tbourn/go-dedupe-bot/internal/observability"
	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/services"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info().Str("path", cfg.DBPath).Msg("database initialized")

	client := telegram.NewClient(cfg.BotToken, cfg.APIBase)

	dispatcher := &bot.Dispatcher{
		DB:        db,
		Messenger: client,
		Recorder:  &services.RecorderService{DB: db},
		Reports: &services.ReportService{
			DB:        db,
			Messenger: client,
			Limit:     cfg.ReportLimit,
			SendDelay: cfg.SendDelay,
		},
		Cleanup:    &services.CleanupService{DB: db, Messenger: client},
		Stats:      &services.StatsService{DB: db},
		ReportGate: services.NewGate(cfg.ReportCooldown),
		DeleteGate: services.NewGate(cfg.DeleteCooldown),
		UpdateTTL:  cfg.UpdateTTL,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.WebhookURL != "" {
		return runWebhook(ctx, cancel, sigCh, cfg, client, dispatcher)
	}
	return runPolling(ctx, cancel, sigCh, client, dispatcher)
}

// runWebhook registers the webhook with Telegram and serves it over HTTP
// until a shutdown signal arrives.
func runWebhook(ctx context.Context, cancel context.CancelFunc, sigCh chan os.Signal,
	cfg config.Config, client *telegram.Client, d *bot.Dispatcher) error {

	hookURL := cfg.WebhookURL + "/webhook"
	if err := client.SetWebhook(ctx, hookURL); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	log.Info().Str("url", hookURL).Msg("webhook registered")

	engine := gin.New()
	httpapi.RegisterRoutes(engine, d, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server exited with error")
			cancel()
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	}
	return nil
}

// runPolling clears any stale webhook and drives the long-polling loop until
// a shutdown signal arrives.
func runPolling(ctx context.Context, cancel context.CancelFunc, sigCh chan os.Signal,
	client *telegram.Client, d *bot.Dispatcher) error {

	// A registered webhook blocks getUpdates.
	if err := client.SetWebhook(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("could not clear webhook")
	}

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	poller := bot.NewPoller(client, d)
	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("poller: %w", err)
	}
	return nil
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
}
