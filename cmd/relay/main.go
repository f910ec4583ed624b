// Relay server — runs the outbox poller, the three event log workers,
// and the HTTP API in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mysocial-labs/relay/pkg/api"
	"github.com/mysocial-labs/relay/pkg/auth"
	"github.com/mysocial-labs/relay/pkg/cache"
	"github.com/mysocial-labs/relay/pkg/config"
	"github.com/mysocial-labs/relay/pkg/database"
	"github.com/mysocial-labs/relay/pkg/delivery"
	"github.com/mysocial-labs/relay/pkg/encryption"
	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/live"
	"github.com/mysocial-labs/relay/pkg/messaging"
	"github.com/mysocial-labs/relay/pkg/notify"
	"github.com/mysocial-labs/relay/pkg/outbox"
	"github.com/mysocial-labs/relay/pkg/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	slog.Info("Starting relay",
		"database", config.MaskURL(cfg.Database.URL),
		"redis", config.MaskURL(cfg.Redis.URL),
		"brokers", cfg.EventLog.Brokers)

	// Database (runs embedded migrations on connect).
	dbClient, err := database.NewClient(ctx, cfg.Database, logger)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	// Cache.
	cacheClient, err := cache.NewFromURL(cfg.Redis.URL)
	if err != nil {
		slog.Error("Failed to configure cache", "error", err)
		os.Exit(1)
	}
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		slog.Error("Failed to reach cache", "error", err)
		os.Exit(1)
	}

	// Event log producer.
	producer := eventlog.NewProducer(cfg.EventLog.Brokers, logger)
	defer producer.Close()

	st := store.New(dbClient.Pool())
	encryptor := encryption.New(cfg.Server.EncryptionKey)

	// Outbox poller: relays committed database writes onto the log.
	poller := outbox.NewPoller(st, producer, logger)
	poller.Start(ctx)
	defer poller.Stop()

	// Worker consumers.
	brokers := cfg.EventLog.Brokers
	notifySvc := notify.NewService(st, cacheClient, producer, logger)
	notifyConsumer := notify.NewConsumer(brokers, cfg.EventLog.NotifyGroup, notifySvc, logger)

	messagingSvc := messaging.NewService(st, cacheClient, encryptor, logger)
	messagingConsumer := messaging.NewConsumer(brokers, cfg.EventLog.MessagingGroup, messagingSvc, logger)

	deliverySvc := delivery.NewService(st, cfg.Delivery, logger)
	deliveryConsumer := delivery.NewConsumer(brokers, cfg.EventLog.DeliveryGroup, deliverySvc, logger)

	// HTTP API.
	server := api.NewServer(api.Deps{
		Store:     st,
		Cache:     cacheClient,
		Pool:      dbClient.Pool(),
		Producer:  producer,
		Encryptor: encryptor,
		Verifier:  auth.NewWalletVerifier(),
		Tokens:    auth.NewTokenIssuer(cfg.Server.JWTSecret),
		Gateway:   live.NewGateway(st, cacheClient, logger),
		Brokers:   brokers,
		Logger:    logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Echo(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return notifyConsumer.Run(gctx) })
	g.Go(func() error { return messagingConsumer.Run(gctx) })
	g.Go(func() error { return deliveryConsumer.Run(gctx) })
	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	slog.Info("Relay started")

	if err := g.Wait(); err != nil {
		slog.Error("Relay exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
