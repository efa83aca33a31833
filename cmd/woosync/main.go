package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sbozic/woosync/cmd/woosync/config"
	"github.com/sbozic/woosync/internal/api"
	"github.com/sbozic/woosync/internal/category"
	"github.com/sbozic/woosync/internal/decoder"
	"github.com/sbozic/woosync/internal/fetcher"
	"github.com/sbozic/woosync/internal/handler"
	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/notify"
	"github.com/sbozic/woosync/internal/platform"
	"github.com/sbozic/woosync/internal/platform/rabbitmq"
	"github.com/sbozic/woosync/internal/platform/storage"
	"github.com/sbozic/woosync/internal/settings"
	"github.com/sbozic/woosync/internal/state"
	"github.com/sbozic/woosync/internal/woo"

	enginesync "github.com/sbozic/woosync/internal/sync"

	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// UserAgent is user agent header value used when fetching feed file.
	UserAgent = "woosync/0.0.1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// A missing .env file is fine; the environment wins anyway.
	_ = godotenv.Load()

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't parse env variables")
	}

	pgDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open Postgres connection")
	}

	if err := storage.Migrate(pgDB); err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't migrate database")
	}

	store := storage.NewPostgres(pgDB)

	appSettings, err := settings.New(ctx, store)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't load settings")
	}

	appLogger := newAppLogger(logger, store, appSettings)

	runState := state.NewStore()
	guard := state.NewRunGuard(state.RunTTL)

	shop := woo.NewClient(
		cfg.Shop.URL,
		cfg.Shop.ConsumerKey,
		cfg.Shop.ConsumerSecret,
		woo.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)

	categoryEngine := category.NewEngine(shop, store, appLogger)
	imageEngine := images.NewEngine(shop, shop, &http.Client{}, appLogger)
	notifier := notify.NewNotifier(nil, notify.SMTPConfig(cfg.SMTP), appLogger)

	engine := enginesync.NewEngine(
		fetcher.NewFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, UserAgent),
		decoder.Decoder{},
		shop,
		categoryEngine,
		imageEngine,
		store,
		appSettings,
		runState,
		guard,
		notifier,
		appLogger,
	)

	router := api.SetupRouter(api.NewHandler(
		engine,
		categoryEngine,
		imageEngine,
		store,
		store,
		appSettings,
		appLogger,
	))
	server := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	rmqConn := startCommandHandler(ctx, cfg.RabbitMQ, engine, &logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("api listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		return runScheduledSyncs(groupCtx, engine, appSettings, &logger)
	})

	group.Go(func() error {
		return purgeLogsDaily(groupCtx, store, appSettings, &logger)
	})

	logger.Info().Msg("woosync up and running")

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().
			Err(err).
			Msg("service stopped")
	}

	logger.Info().Msg("graceful shutdown start")

	if rmqConn != nil {
		if err := rmqConn.Close(); err != nil {
			logger.Error().
				Err(err).
				Msg("can't close RabbitMQ connection")
		}
	}

	if err := pgDB.Close(); err != nil {
		logger.Error().
			Err(err).
			Msg("can't close Postgres connection")
	}

	logger.Info().Msg("graceful shutdown successful")
}

// newAppLogger builds the engine logger: persisted entries only when
// logging is enabled, level from settings.
func newAppLogger(zl zerolog.Logger, store storage.Postgres, appSettings *settings.Settings) *logstore.Logger {
	var logStore logstore.Store
	if appSettings.GetBool(settings.KeyEnableLogging) {
		logStore = store
	}

	appLogger := logstore.NewLogger(zl, logStore)
	appLogger.SetMinLevel(appSettings.Get(settings.KeyLogLevel))
	return appLogger
}

// startCommandHandler wires the RabbitMQ command consumer; without a
// configured broker the cron schedule and the API remain the only
// triggers.
func startCommandHandler(
	ctx context.Context,
	cfg config.RabbitMQ,
	engine *enginesync.Engine,
	logger *zerolog.Logger,
) *amqp.Connection {
	if cfg.URL == "" {
		logger.Info().Msg("RabbitMQ not configured, command consumer disabled")
		return nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open RabbitMQ connection")
	}

	mq, err := rabbitmq.NewRabbitMQ(conn, cfg.Exchange)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open RabbitMQ channel")
	}

	if err := handler.NewHandler(mq, engine, logger).Start(ctx, cfg.Queue); err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't start consuming")
	}

	return conn
}

// runScheduledSyncs triggers non-manual runs on the operator-configured
// interval. The interval is re-read every cycle so changes apply without
// a restart.
func runScheduledSyncs(
	ctx context.Context,
	engine *enginesync.Engine,
	appSettings *settings.Settings,
	logger *zerolog.Logger,
) error {
	for {
		interval, err := time.ParseDuration(appSettings.Get(settings.KeySyncInterval))
		if err != nil || interval <= 0 {
			interval = 6 * time.Hour
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}

		if err := engine.Run(ctx, false); err != nil {
			if errors.Is(err, platform.ErrAlreadyRunning) {
				logger.Debug().Msg("scheduled sync skipped, a run is in progress")
				continue
			}
			logger.Error().
				Err(err).
				Msg("can't start scheduled sync")
		}
	}
}

// purgeLogsDaily trims persisted log entries past the retention window.
func purgeLogsDaily(
	ctx context.Context,
	store storage.Postgres,
	appSettings *settings.Settings,
	logger *zerolog.Logger,
) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		retention := appSettings.GetInt(settings.KeyLogRetentionDays)
		cutoff := time.Now().UTC().AddDate(0, 0, -retention)

		purged, err := store.Purge(ctx, cutoff)
		if err != nil {
			logger.Error().
				Err(err).
				Msg("can't purge log entries")
			continue
		}
		logger.Info().
			Int64("purged", purged).
			Msg("log retention applied")
	}
}
