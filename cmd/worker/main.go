package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtr002/notify-dispatcher/internal/alarm"
	"github.com/mtr002/notify-dispatcher/internal/api"
	"github.com/mtr002/notify-dispatcher/internal/config"
	"github.com/mtr002/notify-dispatcher/internal/db"
	grpchealth "github.com/mtr002/notify-dispatcher/internal/grpc"
	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/nats"
	"github.com/mtr002/notify-dispatcher/internal/stats"
	"github.com/mtr002/notify-dispatcher/internal/subcache"
	"github.com/mtr002/notify-dispatcher/internal/tracing"
	"github.com/mtr002/notify-dispatcher/internal/transport"
	"github.com/mtr002/notify-dispatcher/internal/websocket"
	"github.com/mtr002/notify-dispatcher/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("notify-dispatcher", "info")
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("notify-dispatcher", cfg.LogLevel)
	logger.Logger.Info().
		Bool("simulated_notification", cfg.SimulatedNotification).
		Int("worker_count", cfg.WorkerCount).
		Msg("Starting notification dispatcher")

	if cfg.TracingEnabled {
		shutdown, err := tracing.InitTracer("notify-dispatcher", os.Stdout)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	cache := subcache.New()
	alarms := alarm.NewManager(cfg.AlarmLogAlways)
	registry := stats.NewRegistry()
	simulated := &stats.Counter{}
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	deps := api.Dependencies{
		Stats:     registry,
		Simulated: simulated,
		Alarms:    alarms,
		Cache:     cache,
		Hub:       hub,
	}

	var syncer *subcache.Syncer
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(db.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
		}

		store := db.NewStore(database)
		deps.Store = store

		syncer, err = subcache.NewSyncer(cache, store, cfg.StatusSyncSchedule)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create status syncer")
		}
		syncer.Start()
	}

	sender := transport.NewHTTPSender(cfg.NotificationTimeout, cfg.MaxResponseSize)
	dispatcher := worker.NewWorker(sender, cache, alarms, registry, hub, worker.Config{
		Simulated:        cfg.SimulatedNotification,
		SimulatedCounter: simulated,
	})

	pool := worker.NewPool(dispatcher, cfg.WorkerCount, cfg.QueueSize)
	pool.Start()
	deps.Pool = pool

	var natsServer *nats.Server
	if cfg.NatsURL != "" {
		natsServer, err = nats.NewServer(cfg.NatsURL, cfg.NatsSubject, pool)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create NATS server")
		}
		if err := natsServer.Subscribe(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to subscribe to NATS")
		}
		logger.Logger.Info().Str("url", cfg.NatsURL).Str("subject", cfg.NatsSubject).Msg("NATS batch intake started")
	}

	lis, err := net.Listen("tcp", cfg.GrpcListenAddr)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to listen")
	}
	healthServer := grpchealth.NewHealthServer(pool)
	go func() {
		if err := healthServer.Serve(lis, 5*time.Second); err != nil {
			logger.Logger.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	server := api.NewServer(cfg.HttpListenAddr, deps)
	go server.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if natsServer != nil {
		natsServer.Close()
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shut down admin API")
	}
	pool.Stop()
	healthServer.Stop(ctx)
	if syncer != nil {
		syncer.Stop(ctx)
	}
	logger.Logger.Info().
		Uint64("simulated_notifications", simulated.Load()).
		Msg("Notification dispatcher stopped")
}
