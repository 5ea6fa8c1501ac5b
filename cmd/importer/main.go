package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"etsy_importer/internal/config"
	"etsy_importer/internal/domain"
	"etsy_importer/internal/media"
	"etsy_importer/internal/publisher"
	"etsy_importer/internal/scheduler"
	"etsy_importer/internal/service"
	"etsy_importer/internal/source/etsy"
	"etsy_importer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single import and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// A nil interface disables publishing.
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	recordStore := postgres.NewRecordStore(db)
	termStore := postgres.NewTermStore(db)
	attachmentStore := postgres.NewAttachmentStore(db)
	syncStateStore := postgres.NewSyncStateStore(db)
	txManager := postgres.NewTransactionManager(db)

	etsyClient := etsy.New(etsy.Config{
		BaseURL:           cfg.Etsy.BaseURL,
		PageSize:          cfg.Etsy.PageSize,
		MaxPages:          cfg.Etsy.MaxPages,
		Timeout:           cfg.Etsy.Timeout,
		RequestsPerSecond: cfg.Etsy.RequestsPerSecond,
		MaxAttempts:       cfg.Etsy.Retry.MaxAttempts,
		InitialBackoff:    cfg.Etsy.Retry.InitialBackoff,
		MaxBackoff:        cfg.Etsy.Retry.MaxBackoff,
		DownloadTimeout:   cfg.Media.DownloadTimeout,
		MaxDownloadBytes:  cfg.Media.MaxBytes,
	}, logger)

	ingestor := media.NewIngestor(
		etsyClient,
		media.NewFileStore(cfg.Media.RootDir, cfg.Media.PublicURL),
		attachmentStore,
		cfg.Media.Concurrency,
		logger,
	)

	syncService := service.NewSyncService(
		etsyClient,
		recordStore,
		termStore,
		ingestor,
		syncStateStore,
		txManager,
		pub,
		logger,
		cfg.Sync,
	)

	creds := domain.Credentials{StoreID: cfg.Etsy.StoreID, APIKey: cfg.Etsy.APIKey}
	sched := scheduler.NewScheduler(syncService, creds, cfg.Sync.Interval, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		result, err := sched.RunOnce(ctx)
		if err != nil {
			logger.Error("import failed", "error", err)
			os.Exit(1)
		}
		for _, f := range result.Failures {
			logger.Warn("listing not imported", "listing_id", f.ListingID, "stage", f.Stage, "error", f.Cause)
		}
		return
	}

	srv := newServer(cfg.Metrics.Addr, sched, cfg.Media.RootDir, cfg.Media.PublicURL)
	go func() {
		logger.Info("http server listening", "addr", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting etsy importer",
		"store_id", cfg.Etsy.StoreID,
		"interval", cfg.Sync.Interval,
		"dedup_key", cfg.Sync.DedupKey,
		"publisher", pub != nil,
	)

	err = sched.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
