package main

import (
	"context"
	"errors"
	"os"
	"time"

	"chitieu/internal/amqp"
	"chitieu/internal/analysis"
	"chitieu/internal/backend"
	"chitieu/internal/cli"
	"chitieu/internal/inference"
	"chitieu/internal/log"
	"chitieu/internal/reminder"
	"chitieu/internal/sheets"
	"chitieu/internal/sheets/google"
	"chitieu/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting chitieu-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	amqpCfg, ok := cfg.AMQP()
	if !ok {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Warn("Worker is not using the sqlite backend, reviews will not be shared with the server",
			"backend", cfg.DataBackend)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Cleanup()

	// The spreadsheet mirror is optional.
	var mirror sheets.ExpenseMirror
	if sheetsCfg, ok := cfg.Sheets(); ok {
		client, err := google.New(context.Background(), sheetsCfg, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", sheetsCfg.SpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	caps, err := inference.New(context.Background(), cfg.Inference(), logger, nil)
	if err != nil {
		logger.Error("Failed to initialize model provider", log.FieldError, err)
		os.Exit(1)
	}
	analyzer := analysis.NewAnalyzer(store.Ledger,
		analysis.WithCommentaryModel(caps.Commentary),
		analysis.WithLogger(logger),
	)

	client, err := amqp.NewClient(amqpCfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	reviews := worker.NewReviewWorker(store.Ledger, analyzer, mirror, cfg.ReviewBatchSize, logger)
	deliver := reminder.NewLogNotifier(logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	logger.Info("Performing startup review check...")
	if err := reviews.StartupReviewCheck(ctx); err != nil {
		// Not fatal: new messages still refresh reviews.
		logger.Error("Failed startup review check", log.FieldError, err)
	}

	go consume(ctx, logger, "expense", func(ctx context.Context) error {
		return client.ConsumeExpenseRecorded(ctx, reviews.HandleExpenseRecorded)
	})
	go consume(ctx, logger, "reminder", func(ctx context.Context) error {
		return client.ConsumeReminders(ctx, func(ctx context.Context, msg *amqp.ReminderMessage) error {
			return deliver.Notify(ctx, msg.User(), msg.Text)
		})
	})

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

func consume(ctx context.Context, logger *log.Logger, queue string, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err, "queue", queue)
	}
}
