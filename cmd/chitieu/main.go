package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"chitieu/internal/amqp"
	"chitieu/internal/analysis"
	"chitieu/internal/backend"
	"chitieu/internal/cache"
	"chitieu/internal/cli"
	apphttp "chitieu/internal/http"
	"chitieu/internal/inference"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
	"chitieu/internal/nlp"
	"chitieu/internal/reminder"
	"chitieu/internal/services"
)

const (
	categoryCacheSize    = 1024
	cacheCleanupInterval = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	caps, err := inference.New(context.Background(), cfg.Inference(), logger, m)
	if err != nil {
		logger.Error("Failed to initialize model provider", log.FieldError, err, log.FieldProvider, cfg.ModelProvider)
		os.Exit(1)
	}

	extractor := nlp.NewExtractor(
		nlp.WithEntityRecognizer(caps.Recognizer),
		nlp.WithCategoryModel(caps.Category),
		nlp.WithDateParser(nlp.NewLocaleDateParser("vi")),
		nlp.WithModelTimeout(cfg.ModelTimeout),
		nlp.WithCategoryCache(categoryCacheSize),
		nlp.WithLogger(logger),
	)

	caches := cache.NewManager()
	caches.OnSweep(func(removed int) {
		if removed > 0 {
			logger.Debug("Expired cache entries removed", "removed", removed)
		}
	})
	if c := extractor.Categories().Cache(); c != nil {
		caches.Register(c)
		m.RegisterCache("category", c)
	}
	caches.StartCleanup(cacheCleanupInterval)

	analyzer := analysis.NewAnalyzer(store.Ledger,
		analysis.WithCommentaryModel(caps.Commentary),
		analysis.WithLogger(logger),
	)

	// AMQP is optional: without it expenses are only stored and reminders
	// are written to the log.
	var (
		publisher services.ExpensePublisher
		notifier  reminder.Notifier = reminder.NewLogNotifier(logger)
	)
	if amqpCfg, ok := cfg.AMQP(); ok {
		client, err := amqp.NewClient(amqpCfg, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without messaging", log.FieldError, err)
		} else {
			publisher = client
			notifier = reminder.NewAMQPNotifier(client)
			logger.Info("Initialized AMQP client", "exchange", amqpCfg.Exchange, "queue", amqpCfg.ExpenseQueue)
		}
	}

	expenses := services.NewExpenseService(store.Ledger, publisher, m, logger)
	assistant := services.NewAssistant(extractor, store.Ledger, expenses, analyzer, services.AssistantConfig{
		LargeExpenseVND:    cfg.LargeExpenseVND,
		ReviewAfterExpense: cfg.ReviewAfterExpense,
	}, m, logger)

	scheduler := reminder.NewScheduler(store.Ledger, store.Ledger, notifier, logger,
		reminder.WithSchedule(cfg.ReminderSchedule),
		reminder.WithObserver(m),
	)
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start reminder scheduler", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, assistant,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m.Handler(), m),
		apphttp.WithRateLimit(cfg.RateLimitRPM),
		apphttp.WithReadiness(store.Ping),
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		<-scheduler.Stop().Done()
		caches.Stop()
		if err := expenses.Close(); err != nil {
			logger.Error("Failed to close expense service", log.FieldError, err)
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Starting chitieu server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldProvider, cfg.ModelProvider,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
