package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	_ "embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/medbook-ai/booking-assistant/internal/api/router"
	"github.com/medbook-ai/booking-assistant/internal/booking"
	"github.com/medbook-ai/booking-assistant/internal/bookings"
	"github.com/medbook-ai/booking-assistant/internal/chat"
	appconfig "github.com/medbook-ai/booking-assistant/internal/config"
	"github.com/medbook-ai/booking-assistant/internal/conversation"
	"github.com/medbook-ai/booking-assistant/internal/http/handlers"
	"github.com/medbook-ai/booking-assistant/internal/knowledge"
	"github.com/medbook-ai/booking-assistant/internal/notify"
	"github.com/medbook-ai/booking-assistant/internal/observability/metrics"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Booking persistence: Postgres when configured, in-memory otherwise.
	var repo bookings.Repository
	var archiveDB *sql.DB
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		repo = bookings.NewPostgresRepository(pool)

		archiveDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Warn("conversation archive disabled", "error", err)
			archiveDB = nil
		} else {
			defer func() { _ = archiveDB.Close() }()
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory booking store")
		repo = bookings.NewInMemoryRepository()
	}

	// Redis holds conversation history, booking sessions, and the knowledge base.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to ping redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	// Email notifications.
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(cfg.SendGridAPIKey, notify.FromIdentity{
			Email: cfg.SendGridFromEmail,
			Name:  cfg.SendGridFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.FromIdentity{
			Email: cfg.SESFromEmail,
			Name:  cfg.SESFromName,
		}, logger); s != nil {
			sender = s
		}
	case "stub":
		sender = notify.NewStubEmailSender(logger)
	}
	if sender == nil {
		logger.Warn("email notifications disabled", "provider", cfg.EmailProvider)
	}

	clinic := notify.Clinic{
		Name:    cfg.ClinicName,
		Phone:   cfg.ClinicPhone,
		Address: cfg.ClinicAddress,
	}
	var notifier bookings.Notifier
	if confirmer := notify.NewBookingConfirmer(sender, clinic, logger); confirmer != nil {
		notifier = confirmer
	}

	bookingSvc := bookings.NewService(repo, notifier, logger)

	// LLM for answering general questions.
	var llm conversation.LLMClient
	var llmModel string
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey != "" {
			client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				logger.Error("failed to create Gemini client", "error", err)
				os.Exit(1)
			}
			llm = client
			llmModel = cfg.GeminiModel
		}
	default:
		if cfg.GroqAPIKey != "" {
			client, err := conversation.NewOpenAILLMClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
			if err != nil {
				logger.Error("failed to create Groq client", "error", err)
				os.Exit(1)
			}
			llm = client
			llmModel = cfg.GroqModel
		}
	}
	if llm == nil {
		logger.Warn("no LLM configured, general questions get a canned fallback")
	}

	// Knowledge base retrieval needs an embeddings provider.
	var knowledgeSvc *knowledge.Service
	if cfg.OpenAIAPIKey != "" {
		store := knowledge.NewStore(openai.NewClient(cfg.OpenAIAPIKey), cfg.EmbeddingModel, logger)
		knowledgeSvc = knowledge.NewService(
			knowledge.NewSplitter(0, 0),
			store,
			knowledge.NewRedisRepository(redisClient),
			logger,
		)
		if err := knowledgeSvc.Reload(ctx); err != nil {
			logger.Warn("failed to reload knowledge base", "error", err)
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, knowledge base disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	chatMetrics := metrics.NewChatMetrics(registry)

	wizard := booking.NewWizard(booking.Rules{
		Types:       booking.AppointmentTypes,
		HorizonDays: cfg.BookingHorizonDays,
		Granularity: cfg.SlotGranularity,
		OpenHour:    cfg.OpenHour,
		CloseHour:   cfg.CloseHour,
	})

	engineCfg := conversation.EngineConfig{
		Redis:    redisClient,
		Wizard:   wizard,
		Bookings: bookingSvc,
		LLM:      llm,
		LLMModel: llmModel,
		Archive:  conversation.NewArchiveStore(archiveDB),
		Metrics:  chatMetrics,
		Logger:   logger,
		Clinic: conversation.ClinicInfo{
			Name:    cfg.ClinicName,
			Phone:   cfg.ClinicPhone,
			Address: cfg.ClinicAddress,
		},
	}
	if knowledgeSvc != nil {
		engineCfg.Knowledge = knowledgeSvc
	}
	engine := conversation.NewEngine(engineCfg)

	orchestrator := conversation.NewOrchestrator(engine, conversation.NewMemoryQueue(128), logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
	)

	var knowledgeHandler *handlers.KnowledgeHandler
	if knowledgeSvc != nil {
		knowledgeHandler = handlers.NewKnowledgeHandler(knowledgeSvc, logger)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		ChatHandler:        chat.NewHandler(orchestrator, widgetJS, logger),
		AdminAuth:          handlers.NewAdminAuthHandler(cfg.AdminPassword, cfg.AdminJWTSecret, cfg.AdminTokenTTL, logger),
		AdminBookings:      handlers.NewAdminBookingsHandler(repo, logger),
		Knowledge:          knowledgeHandler,
		AdminJWTSecret:     cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatRateBurst:      cfg.ChatRateBurst,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
