package main

import (
	"context"
	"errors"
	"time"

	"finboard/internal/cli"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentWorker)
	logger.Info("Starting finboard-worker",
		"schedule", cfg.ReminderSchedule,
		"window_days", cfg.ReminderWindowDays)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	rates, closeRedis := cli.InitRateService(ctx, logger, cfg, repo)
	defer closeRedis()

	amqpClient := cli.InitAMQP(logger, cfg, false)

	var publisher services.ReminderPublisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	processor := services.NewReminderProcessor(services.NewLiabilityService(repo), publisher, cfg.ReminderWindowDays)
	reminders, err := worker.NewReminderWorker(processor, cfg.ReminderSchedule)
	if err != nil {
		logger.Error("Invalid reminder schedule", applog.FieldError, err)
		return
	}
	if err := reminders.Start(ctx); err != nil {
		logger.Error("Failed to start reminder worker", applog.FieldError, err)
		return
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRateUpdates(ctx, rates.HandleRateUpdate)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Rate update consumption failed", applog.FieldError, err, applog.FieldOperation, applog.OpConsume)
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping rate update consumption - no AMQP client available")
	}

	<-ctx.Done()

	logger.Info("Shutting down worker...", applog.FieldOperation, applog.OpShutdown)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	reminders.Stop(shutdownCtx)
	logger.Info("Worker shutdown complete")
}
