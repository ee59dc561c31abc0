package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"receptionist/internal/agent"
	"receptionist/internal/artifact"
	"receptionist/internal/classifier"
	appconfig "receptionist/internal/config"
	"receptionist/internal/doctors"
	"receptionist/internal/http/handlers"
	"receptionist/internal/http/router"
	"receptionist/internal/notify"
	"receptionist/internal/observability/metrics"
	"receptionist/internal/schedule"
	"receptionist/internal/visitors"
	"receptionist/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting receptionist API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, falling back to UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}
	validator := schedule.NewSlotValidator(loc, cfg.WorkingHoursStart, cfg.WorkingHoursEnd, time.Now)

	// Storage: postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		store       schedule.Store
		visitorRepo visitors.Repository
		directory   doctors.Directory
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open doctors database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store = schedule.NewPostgresStore(pool, loc)
		visitorRepo = visitors.NewPostgresRepository(pool)
		directory = doctors.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		store = schedule.NewMemoryStore()
		visitorRepo = visitors.NewMemoryRepository()
		directory = doctors.NewMemoryDirectory(
			doctors.Doctor{Name: "John Smith", Specialty: "General Medicine"},
			doctors.Doctor{Name: "Priya Sharma", Specialty: "Cardiology"},
			doctors.Doctor{Name: "Emily Chen", Specialty: "Dermatology"},
		)
	}

	gate := classifier.New(cfg.ClassifierDataFile, logger)

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, email notifications are logged only")
		sender = notify.NewStubEmailSender(logger)
	}
	dispatcher := notify.NewDispatcher(sender, logger)

	var blobs artifact.BlobStore
	if cfg.ArtifactS3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		blobs = artifact.NewS3Store(s3.NewFromConfig(awsCfg), cfg.ArtifactS3Bucket, logger)
	} else {
		local, err := artifact.NewLocalStore(cfg.ArtifactDir)
		if err != nil {
			logger.Error("failed to create artifact directory", "error", err)
			os.Exit(1)
		}
		blobs = local
	}
	confirmer := artifact.NewGenerator(blobs, logger)

	m := metrics.NewReceptionMetrics(nil)

	ledger := schedule.NewLedger(store, validator, directory, gate, dispatcher, confirmer, logger).
		WithMetrics(m)
	finder := schedule.NewNextSlotFinder(store, gate, validator, cfg.SlotDurationMinutes, cfg.AvailabilityDays)
	visitorSvc := visitors.NewService(visitorRepo, blobs, cfg.MaxImageSizeBytes, logger)

	var history agent.HistoryStore
	if cfg.ConversationRedis != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.ConversationRedis,
			Password: cfg.RedisPassword,
		})
		history = agent.NewRedisHistoryStore(rdb, nil)
	} else {
		logger.Warn("REDIS_ADDR not set, conversation history is in-memory only")
		history = agent.NewMemoryHistoryStore()
	}

	registry := agent.NewRegistry(ledger, finder, gate, visitorSvc, logger)

	var orchestrator *agent.Orchestrator
	if cfg.GeminiAPIKey != "" {
		model, err := agent.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, registry.Declarations())
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer model.Close()

		orchestrator = agent.NewOrchestrator(model, registry, history,
			cfg.ModelMaxAttempts, cfg.MaxToolCycles, cfg.ModelCallTimeout, logger).
			WithMetrics(m).
			WithClock(func() time.Time { return time.Now().In(loc) })
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat endpoints are disabled")
	}

	r := router.New(&router.Config{
		Logger:         logger,
		Chat:           handlers.NewChatHandler(orchestrator, logger),
		Appointments:   handlers.NewAppointmentsHandler(ledger, logger),
		Availability:   handlers.NewAvailabilityHandler(finder, gate, logger),
		Visitors:       handlers.NewVisitorsHandler(visitorSvc, logger),
		Doctors:        handlers.NewDoctorsHandler(directory, logger),
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
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

	logger.Info("server stopped")
}
