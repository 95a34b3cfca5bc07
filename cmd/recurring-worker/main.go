package main

import (
	"time"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/core"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("recurring-worker")

	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	stores := cli.OpenStores(logger, cfg)
	defer stores.Close()

	// AMQP is optional here too: reminders are stored either way, only
	// email delivery needs the queue.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without email delivery", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	notify := services.NewNotificationService(stores, publisher)
	processor := services.NewProcessor(stores, notify)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Recurring processor configured", "interval", cfg.ProcessInterval)

	runOnce := func(now time.Time) {
		count, err := processor.ProcessDue(ctx, now)
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
		} else if count > 0 {
			logger.Info("Recurring processing complete", "transactions_created", count)
		}

		if err := notify.RecurringReminders(ctx, core.DateOf(now)); err != nil {
			logger.Error("Reminder check failed", "error", err)
		}

		users, err := stores.Users().All(ctx)
		if err != nil {
			logger.Error("Failed listing users for budget alerts", "error", err)
			return
		}
		for _, user := range users {
			if _, err := notify.BudgetAlerts(ctx, user.ID, now); err != nil {
				logger.Error("Budget alert check failed", "error", err, "user_id", user.ID)
			}
		}
	}

	// Catch up immediately on startup, then tick.
	runOnce(time.Now())

	ticker := time.NewTicker(cfg.ProcessInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runOnce(now)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
