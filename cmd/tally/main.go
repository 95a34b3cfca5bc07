package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/metrics"
	"tally/internal/ocr"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("tally")

	logger.Info("Starting tally server")

	cfg := cli.LoadAndValidateConfig(logger)
	stores := cli.OpenStores(logger, cfg)
	defer stores.Close()

	// AMQP is optional: without it notifications are stored but no email
	// messages are published.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, notifications stay local", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, notification emails will not be sent")
	}

	analyzer := ocr.FromConfig(cfg.AzureEndpoint, cfg.AzureKey)
	if _, mock := analyzer.(ocr.MockAnalyzer); mock {
		logger.Info("Azure credentials absent, using mock receipt analyzer")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authService := auth.NewService(stores.Users(), stores.PasswordResets(), jwtManager)
	notify := services.NewNotificationService(stores, publisher)
	registry := metrics.New()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Stores:        stores,
		Auth:          authService,
		Transactions:  services.NewTransactionService(stores, notify),
		Analytics:     services.NewAnalyticsService(stores),
		Notifications: notify,
		Processor:     services.NewProcessor(stores, notify),
		Analyzer:      analyzer,
		Metrics:       registry,
		Logger:        logger,
		UploadDir:     cfg.UploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server terminated", "error", err)
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}
