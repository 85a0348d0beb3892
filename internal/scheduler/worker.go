package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"outreach_backend/internal/email"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/notification/outbox"
	"outreach_backend/internal/outreach/domain"
	outreachrepo "outreach_backend/internal/outreach/repository"
	outreachsvc "outreach_backend/internal/outreach/service"
	"outreach_backend/internal/signals"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

const maxSendAttempts = 3

// SignalNormalizer turns a raw signal into normalized entries.
type SignalNormalizer interface {
	Normalize(ctx context.Context, rawSignalID uuid.UUID) (signals.NormalizedSignal, error)
}

// SignalReconciler applies a normalized signal to the channel records.
type SignalReconciler interface {
	Reconcile(ctx context.Context, normalizedSignalID uuid.UUID) ([]signals.ReconcileOutcome, error)
}

// TransitionApplier moves a channel record through the status machine.
type TransitionApplier interface {
	ApplyTransition(ctx context.Context, tenantID, recordID uuid.UUID, newStatus domain.OutreachStatus, causingSignalID *uuid.UUID) (outreachsvc.TransitionResult, error)
}

// SendStore is the slice of the outreach repository the send handler uses.
type SendStore interface {
	GetSend(ctx context.Context, id uuid.UUID) (outreachrepo.ScheduledSend, error)
	MarkSendDone(ctx context.Context, id uuid.UUID) error
	RetrySend(ctx context.Context, id uuid.UUID, lastError string) error
	MarkSendFailed(ctx context.Context, id uuid.UUID, lastError string) error
	MarkSent(ctx context.Context, recordID uuid.UUID, sentAt time.Time) error
}

// OutboxStore is the slice of the outbox repository the delivery handler uses.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// ReconcileEnqueuer chains the reconcile task after normalization.
type ReconcileEnqueuer interface {
	EnqueueSignalReconcile(ctx context.Context, normalizedSignalID, tenantID uuid.UUID) error
}

// WorkerDeps bundles everything the worker's task handlers touch.
type WorkerDeps struct {
	Normalizer   SignalNormalizer
	Reconciler   SignalReconciler
	Outreach     TransitionApplier
	OutreachRepo SendStore
	Sender       email.Sender
	OutboxRepo   OutboxStore
	Sink         notification.Sink
	Client       ReconcileEnqueuer
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	deps   WorkerDeps
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deps WorkerDeps, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		deps:   deps,
		log:    log,
	}

	mux.HandleFunc(TaskSignalNormalize, w.handleSignalNormalize)
	mux.HandleFunc(TaskSignalReconcile, w.handleSignalReconcile)
	mux.HandleFunc(TaskOutreachSendDue, w.handleOutreachSendDue)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleSignalNormalize turns a raw signal into normalized entries and
// chains the reconcile task. Normalization is idempotent, so asynq
// retries of this handler are harmless.
func (w *Worker) handleSignalNormalize(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSignalNormalizePayload(task)
	if err != nil {
		return err
	}
	rawID, err := uuid.Parse(payload.RawSignalID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	sig, err := w.deps.Normalizer.Normalize(ctx, rawID)
	if err != nil {
		return err
	}
	return w.deps.Client.EnqueueSignalReconcile(ctx, sig.ID, tenantID)
}

func (w *Worker) handleSignalReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSignalReconcilePayload(task)
	if err != nil {
		return err
	}
	normalizedID, err := uuid.Parse(payload.NormalizedSignalID)
	if err != nil {
		return err
	}

	outcomes, err := w.deps.Reconciler.Reconcile(ctx, normalizedID)
	if err != nil {
		return err
	}

	var failed int
	for _, outcome := range outcomes {
		if outcome.Result == signals.ReconcileFailed {
			failed++
		}
	}
	w.log.Info("signal reconciled",
		"normalized_signal_id", normalizedID, "entries", len(outcomes), "failed", failed)
	return nil
}

// handleOutreachSendDue delivers one claimed scheduled send. On success
// the channel record moves to SENT_OUTREACH; on failure the send is
// returned to the pending pool until its attempts are spent.
func (w *Worker) handleOutreachSendDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutreachSendDuePayload(task)
	if err != nil {
		return err
	}
	sendID, err := uuid.Parse(payload.SendID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	send, err := w.deps.OutreachRepo.GetSend(ctx, sendID)
	if err != nil {
		return err
	}
	if send.State != outreachrepo.SendStateSending {
		// Cancelled or already handled since it was claimed.
		return nil
	}

	if err := w.deps.Sender.SendOutreach(ctx, send.ToEmail, send.Subject, send.Body); err != nil {
		if send.Attempts >= maxSendAttempts {
			w.log.Error("scheduled send exhausted its attempts",
				"send_id", send.ID, "error", err)
			return w.deps.OutreachRepo.MarkSendFailed(ctx, send.ID, err.Error())
		}
		return w.deps.OutreachRepo.RetrySend(ctx, send.ID, err.Error())
	}

	if err := w.deps.OutreachRepo.MarkSendDone(ctx, send.ID); err != nil {
		return err
	}
	if err := w.deps.OutreachRepo.MarkSent(ctx, send.ChannelRecordID, time.Now()); err != nil {
		w.log.Error("mark record sent failed", "record_id", send.ChannelRecordID, "error", err)
	}

	result, err := w.deps.Outreach.ApplyTransition(ctx, tenantID, send.ChannelRecordID, domain.StatusSentOutreach, nil)
	if err != nil {
		w.log.Error("post-send transition failed", "record_id", send.ChannelRecordID, "error", err)
		return nil
	}
	if result.Outcome == outreachsvc.OutcomeInvalidTransition {
		w.log.Warn("post-send transition rejected",
			"record_id", send.ChannelRecordID, "from", result.From)
	}
	return nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}
	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	rec, err := w.deps.OutboxRepo.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}
	if rec.Status != outbox.StatusEnqueued {
		return nil
	}

	if err := w.deps.OutboxRepo.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := w.deps.Sink.Deliver(ctx, rec.Message); err != nil {
		if rec.Attempts >= 2 {
			return w.deps.OutboxRepo.MarkFailed(ctx, rec.ID, err.Error())
		}
		msg := err.Error()
		return w.deps.OutboxRepo.MarkPending(ctx, rec.ID, &msg)
	}
	return w.deps.OutboxRepo.MarkSucceeded(ctx, rec.ID)
}
