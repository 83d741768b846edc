package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/safronx/sentinel/internal/config"
	"github.com/safronx/sentinel/internal/database/boltstore"
	"github.com/safronx/sentinel/internal/database/gormstore"
	"github.com/safronx/sentinel/internal/dispatch"
	"github.com/safronx/sentinel/internal/moderation"
	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

// setupLogging applies the configured level and format to the global
// zerolog logger.
func setupLogging(level, format string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// JSON logs in production, pretty console logs otherwise.
	if format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}

func main() {
	// Console logging until the configuration is loaded; the config
	// failure path below needs a working logger.
	setupLogging("info", "console")

	cfg, err := config.Load()
	if err != nil {
		// The missing token/owner id is the only fatal condition.
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	log.Info().Msg("Starting Safronx Sentinel")

	store, err := boltstore.Open(boltstore.Options{Path: cfg.DBPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer store.Close()
	log.Info().Str("path", cfg.DBPath).Msg("Database opened")

	audit, err := gormstore.Open(cfg.AuditDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AuditDBPath).Msg("Failed to open audit database")
	}
	defer audit.Close()

	client := telegram.NewClientWithBaseURL(cfg.BotToken, cfg.APIBaseURL)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	me, err := client.GetMe(startupCtx)
	cancelStartup()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to reach the Bot API")
	}
	log.Info().Str("username", me.Username).Int64("id", me.ID).Msg("Connected to the Bot API")

	registry, err := roles.NewRegistry(store.AdminStore(), cfg.OwnerID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load admin registry")
	}
	grants := roles.DefaultGrants()
	engine := roles.NewEngine(registry, grants, cfg.OwnerID)

	modStore := store.ModerationStore()
	resolver := moderation.NewResolver(registry, client)
	executor := moderation.NewExecutor(engine, resolver, modStore, client, audit, me.ID)

	scheduler := moderation.NewScheduler(modStore, client, audit, moderation.SchedulerConfig{
		Interval:      cfg.MuteScanInterval,
		RetryInterval: cfg.MuteScanRetryInterval,
	})

	dispatcher := dispatch.New(dispatch.Deps{
		API:         client,
		Registry:    registry,
		Engine:      engine,
		Grants:      grants,
		Executor:    executor,
		Resolver:    resolver,
		Audit:       audit,
		BotUsername: me.Username,
		PollTimeout: cfg.PollTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return dispatcher.Run(ctx)
	})

	if cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.Handler(),
		}
		group.Go(func() error {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics listener started")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutting down with error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}
