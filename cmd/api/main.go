package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/campaigns"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/notification/outbox"
	"outreach_backend/internal/outreach"
	outreachrepo "outreach_backend/internal/outreach/repository"
	outreachservice "outreach_backend/internal/outreach/service"
	"outreach_backend/internal/prospects"
	prospectrepo "outreach_backend/internal/prospects/repository"
	prospectservice "outreach_backend/internal/prospects/service"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/signals"
	"outreach_backend/internal/webhook"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	taskClient, closeTaskClient := initTaskClient(cfg, log)
	if closeTaskClient != nil {
		defer closeTaskClient()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	outreachRepo := outreachrepo.New(pool)
	outreachSvc := outreachservice.New(outreachRepo, eventBus, log)
	outreachModule := outreach.NewModule(outreachSvc)

	// Shared validator instance for dependency injection
	val := validator.New()

	prospectRepo := prospectrepo.New(pool)
	prospectSvc := prospectservice.New(prospectRepo, outreachRepo, log)
	prospectSvc.RegisterHandlers(eventBus)
	prospectsModule := prospects.NewModule(prospectSvc, val)

	campaignsModule := campaigns.NewModule(campaigns.NewRepository(pool))

	signalRepo := signals.NewRepository(pool)
	ingestor := signals.NewIngestor(signalRepo, eventBus, log)
	webhookModule := webhook.NewModule(ingestor, taskClient, eventBus, cfg, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationSvc := notification.NewService(outbox.New(pool), log)
	notificationSvc.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			prospectsModule,
			outreachModule,
			campaignsModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initTaskClient wires the asynq enqueue client. Webhook ingestion still
// works without Redis; signals just wait for a worker restart to be
// normalized, so a missing REDIS_URL is a warning rather than fatal.
func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; signal processing tasks disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
