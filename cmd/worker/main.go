package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/email"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/notification/outbox"
	outreachrepo "outreach_backend/internal/outreach/repository"
	outreachservice "outreach_backend/internal/outreach/service"
	prospectrepo "outreach_backend/internal/prospects/repository"
	prospectservice "outreach_backend/internal/prospects/service"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/signals"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Domain wiring (no HTTP handlers required)
	// ========================================================================

	outreachRepo := outreachrepo.New(pool)
	outreachSvc := outreachservice.New(outreachRepo, eventBus, log)

	prospectRepo := prospectrepo.New(pool)
	prospectSvc := prospectservice.New(prospectRepo, outreachRepo, log)
	prospectSvc.RegisterHandlers(eventBus)

	outboxRepo := outbox.New(pool)
	notificationSvc := notification.NewService(outboxRepo, log)
	notificationSvc.RegisterHandlers(eventBus)

	signalRepo := signals.NewRepository(pool)
	normalizer := signals.NewNormalizer(signalRepo, log)
	reconciler := signals.NewReconciler(signalRepo, prospectSvc, outreachSvc, notificationSvc, log)

	var sender email.Sender = email.NoopSender{}
	if cfg.IsEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
		log.Info("smtp sender initialized", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("SMTP not configured; outreach sends will be marked done without delivery")
	}

	sink := notification.NewWebhookSink(cfg)
	if !cfg.IsNotificationEnabled() {
		log.Warn("NOTIFICATION_WEBHOOK_URL not configured; notifications will be dropped")
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	// ========================================================================
	// Dispatchers + task server
	// ========================================================================

	sendDispatcher, err := scheduler.NewSendDispatcher(cfg, pool, cfg.SendDispatchInterval, log)
	if err != nil {
		log.Error("failed to initialize send dispatcher", "error", err)
		panic("failed to initialize send dispatcher: " + err.Error())
	}
	defer func() { _ = sendDispatcher.Close() }()

	outboxDispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = outboxDispatcher.Close() }()

	worker, err := scheduler.NewWorker(cfg, scheduler.WorkerDeps{
		Normalizer:   normalizer,
		Reconciler:   reconciler,
		Outreach:     outreachSvc,
		OutreachRepo: outreachRepo,
		Sender:       sender,
		OutboxRepo:   outboxRepo,
		Sink:         sink,
		Client:       client,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sendDispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		outboxDispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped", "error", err)
	}
	log.Info("worker shut down")
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
