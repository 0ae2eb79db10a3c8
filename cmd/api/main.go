package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hostwise/guestline-ai-platform/cmd/mainconfig"
	"github.com/hostwise/guestline-ai-platform/internal/actor"
	"github.com/hostwise/guestline-ai-platform/internal/api/router"
	"github.com/hostwise/guestline-ai-platform/internal/assistant"
	appconfig "github.com/hostwise/guestline-ai-platform/internal/config"
	"github.com/hostwise/guestline-ai-platform/internal/conversation"
	"github.com/hostwise/guestline-ai-platform/internal/http/handlers"
	"github.com/hostwise/guestline-ai-platform/internal/messaging"
	"github.com/hostwise/guestline-ai-platform/internal/notify"
	"github.com/hostwise/guestline-ai-platform/internal/observability/metrics"
	"github.com/hostwise/guestline-ai-platform/internal/scheduler"
	"github.com/hostwise/guestline-ai-platform/internal/stays"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting guestline-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres. The pgx pool backs the hot-path stores; the stays store
	// keeps the database/sql interface for its joined reads.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	stayStore := stays.NewStore(db)
	eventStore := conversation.NewEventStore(pool)
	draftStore := conversation.NewDraftStore(pool)
	messageStore := messaging.NewStore(pool)
	jobStore := scheduler.NewJobStore(pool)

	configCache := assistant.NewCache(assistant.NewStore(pool), cfg.ConfigCacheTTL)

	// Redis transcript mirror is optional; the orchestrator tolerates a
	// nil store.
	var transcripts *conversation.TranscriptStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transcripts = conversation.NewTranscriptStore(redis.NewClient(opts))
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Outbound senders.
	smsSender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	var emailSender messaging.Sender
	if cfg.EmailProvider == "sendgrid" || (cfg.EmailProvider == "auto" && cfg.SendGridAPIKey != "") {
		if sg := messaging.NewSendGridSender(messaging.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			emailSender = sg
		}
	}
	if emailSender == nil {
		emailSender = messaging.NewSESSender(sesv2.NewFromConfig(awsCfg), messaging.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	outbound := messaging.NewRouter(smsSender, emailSender)

	// Decision engine.
	var llm conversation.LLMClient
	modelID := cfg.BedrockModelID
	if cfg.DecisionProvider == "gemini" {
		modelID = cfg.GeminiModelID
		llm, err = conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
	} else {
		llm = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	// Escalation alerts.
	notifier := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	escalations := notify.NewWorker(notifier, logger)
	escalations.Start(ctx)

	convMetrics := metrics.NewConversationMetrics(prometheus.DefaultRegisterer)
	schedMetrics := metrics.NewSchedulerMetrics(prometheus.DefaultRegisterer)

	threadActors := actor.NewRegistry(logger.Named("thread-actors"))
	propertyActors := actor.NewRegistry(logger.Named("property-actors"))

	orchestrator := conversation.NewOrchestrator(
		threadActors,
		eventStore,
		draftStore,
		stayStore,
		configCache,
		llm,
		outbound,
		logger,
		conversation.WithMessageLog(messageStore),
		conversation.WithTranscriptStore(transcripts),
		conversation.WithEscalationSink(escalations),
		conversation.WithConversationMetrics(convMetrics),
		conversation.WithDecisionModel(cfg.DecisionProvider, modelID),
	)

	// Inbound transport: in-process queue for local development, SQS
	// everywhere else.
	var publisher *conversation.Publisher
	var worker *conversation.Worker
	if cfg.UseMemoryQueue {
		queue := conversation.NewMemoryQueue(256)
		publisher = conversation.NewPublisher(queue, logger)
		worker = conversation.NewWorker(orchestrator, queue, logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	} else {
		queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.IngestQueueURL)
		publisher = conversation.NewPublisher(queue, logger)
		worker = conversation.NewWorker(orchestrator, queue, logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	}
	worker.Start(ctx)

	reminderService := scheduler.NewService(
		propertyActors,
		jobStore,
		stayStore,
		configCache,
		outbound,
		logger,
		scheduler.WithBatchSize(cfg.ReminderBatchSize),
		scheduler.WithMaxAttempts(cfg.ReminderMaxAttempts),
		scheduler.WithRetryBackoff(cfg.ReminderRetryBackoff),
		scheduler.WithSchedulerMetrics(schedMetrics),
	)
	defer reminderService.Close()

	reconciler, err := scheduler.NewReconciler(reminderService, cfg.ReminderSweepInterval, logger)
	if err != nil {
		logger.Error("failed to create reminder reconciler", "error", err)
		os.Exit(1)
	}
	reconciler.Start()

	routerCfg := &router.Config{
		Logger:           logger,
		WebhookHandler:   handlers.NewWebhookHandler(publisher, stayStore, logger),
		ThreadsHandler:   handlers.NewThreadsHandler(orchestrator, logger),
		RemindersHandler: handlers.NewRemindersHandler(reminderService, logger),
		AdminHandler:     handlers.NewAdminHandler(configCache, logger),
		AdminAuthSecret:  cfg.AdminJWTSecret,
		MetricsHandler:   promhttp.Handler(),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	reconciler.Stop()
	cancel()
	worker.Wait()
	escalations.Wait()

	if err := threadActors.Shutdown(shutdownCtx); err != nil {
		logger.Error("thread actors did not drain", "error", err)
	}
	if err := propertyActors.Shutdown(shutdownCtx); err != nil {
		logger.Error("property actors did not drain", "error", err)
	}

	logger.Info("server stopped")
}
