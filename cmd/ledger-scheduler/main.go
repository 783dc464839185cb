package main

import (
	"context"
	"os"
	"time"

	"finledger/internal/amqp"
	"finledger/internal/cli"
	"finledger/internal/config"
	"finledger/internal/log"
	"finledger/internal/notify"
	"finledger/internal/services"
	gsheet "finledger/internal/sheets/google"
	"finledger/internal/store"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-scheduler", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	repo := cli.InitRepository(context.Background(), logger, cfg)
	defer repo.Close()
	stores := repo.Stores()

	sender, closeSender := newSender(logger, cfg, stores.Users)
	defer closeSender()

	dispatcher := notify.NewAsync(sender, cfg.NotifyQueueSize, cfg.NotifyWorkers, logger)

	var milestones store.MilestoneStore
	if cfg.MilestoneDedup {
		milestones = repo
	}
	engine := services.NewGoalProgressEngine(services.SystemClock, milestones, logger)
	sweeper := services.NewSweeper(stores.Goals, engine, dispatcher, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		logger.Info("Draining notifications", log.FieldOperation, log.OpShutdown)
		if err := dispatcher.Close(); err != nil {
			logger.Error("Failed to drain notifications", log.FieldError, err)
		}
	})

	ctx = log.NewContext(ctx, logger)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, cfg.DeadlineSweepInterval, sweepJob("deadline", sweeper.RunDeadlineSweep, logger))
	})
	g.Go(func() error {
		return every(ctx, cfg.ProgressSweepInterval, sweepJob("progress", sweeper.RunProgressSweep, logger))
	})

	if cfg.ReportExportEnabled() {
		writer, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleReportSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		agg := services.NewAggregator(stores, engine, loc, nil, services.WithLogger(logger))
		job := &reportJob{
			publisher: services.NewReportPublisher(stores.Users, agg, writer, logger),
			now:       services.SystemClock,
			loc:       loc,
			logger:    logger.WithComponent(log.ComponentScheduler),
		}
		g.Go(func() error { return every(ctx, cfg.ReportCheckInterval, job.run) })
		logger.Info("Monthly report export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Monthly report export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	logger.Info("Scheduler running",
		"deadline_interval", cfg.DeadlineSweepInterval,
		"progress_interval", cfg.ProgressSweepInterval,
		"milestone_dedup", cfg.MilestoneDedup,
		"timezone", loc.String())

	if err := g.Wait(); err != nil {
		logger.Error("Scheduler stopped", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)
}

// newSender publishes to AMQP when configured and falls back to logging.
func newSender(logger *log.Logger, cfg *config.Config, users notify.UserLookup) (notify.Sender, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - notifications will be logged")
		return notify.NewLogSender(users, logger), func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, logging notifications instead", log.FieldError, err)
		return notify.NewLogSender(users, logger), func() {}
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
	}
}
