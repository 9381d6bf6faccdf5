package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/activity"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/config"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/eventbus"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/listing"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/live"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/logging"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/options"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/refdata"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/seed"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/server"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := logging.New(logging.Options{Development: cfg.IsDev(), Level: cfg.LogLevel})
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("logger setup failed, falling back to zap production logger", zap.Error(err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	st, err := store.OpenSQLite(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("database ready", zap.String("url", cfg.DatabaseURL))

	ds, err := refdata.Load()
	if err != nil {
		return err
	}
	if cfg.SeedTemplates {
		err = seed.Run(ctx, st, ds, logger)
	} else {
		err = seed.SeedCategories(ctx, st, ds, logger.Named("seed"))
	}
	if err != nil {
		return err
	}

	activityStore := activity.NewSQLStore(st.Driver())
	if err := activityStore.CreateTable(ctx); err != nil {
		return err
	}

	bus := eventbus.New(cfg.BusBuffer, logger)
	queue := eventbus.NewQueueConsumer()
	bus.Subscribe("log", eventbus.NewLogConsumer(logger))
	bus.Subscribe("moderation-queue", queue)
	bus.Start(ctx)
	defer bus.Stop()

	recorder := event.NewActivityRecorder(activityStore)
	recorder.SetPublisher(bus)

	svc := listing.NewService(listing.Config{
		Store:          st,
		Providers:      options.NewShared(refdata.NewProvider(ds, st)),
		Recorder:       recorder,
		Logger:         logger,
		LenientOptions: cfg.LenientOptions,
	})

	sessions := live.NewManager(cfg.Sessions.MaxAge, cfg.Sessions.Idle)
	go sessions.Run(ctx, time.Minute)

	return server.Run(ctx, server.Config{
		Addr:            cfg.Addr(),
		Service:         svc,
		Activity:        activityStore,
		Queue:           queue,
		Sessions:        sessions,
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
}
