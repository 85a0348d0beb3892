package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
	outreachrepo "outreach_backend/internal/outreach/repository"
	outreachsvc "outreach_backend/internal/outreach/service"
	prospectsrepo "outreach_backend/internal/prospects/repository"
	"outreach_backend/platform/logger"
)

// ReconcileResult classifies what happened to one normalized entry.
type ReconcileResult string

const (
	ReconcileApplied ReconcileResult = "APPLIED"
	ReconcileNoOp    ReconcileResult = "NO_OP"
	ReconcileSkipped ReconcileResult = "SKIPPED"
	ReconcileFailed  ReconcileResult = "FAILED"
)

// Skip reasons recorded on outcomes.
const (
	SkipProspectNotFound  = "prospect not found"
	SkipNoApprovedRecord  = "no approved record on channel"
	SkipInvalidTransition = "transition not allowed"
)

type ReconcileOutcome struct {
	Email  string                `json:"email"`
	Result ReconcileResult       `json:"result"`
	Reason string                `json:"reason,omitempty"`
	From   domain.OutreachStatus `json:"from,omitempty"`
	To     domain.OutreachStatus `json:"to,omitempty"`
}

// ProspectDirectory resolves prospects and maintains their rollup status.
// Implemented by the prospects service.
type ProspectDirectory interface {
	FindByEmail(ctx context.Context, tenantID, sdrID uuid.UUID, email string) (prospectsrepo.Prospect, error)
	RecomputeOverall(ctx context.Context, tenantID, prospectID uuid.UUID) (domain.OverallStatus, error)
}

// StatusStore is the slice of the outreach service the reconciler drives.
type StatusStore interface {
	AuthoritativeRecord(ctx context.Context, tenantID, prospectID uuid.UUID, channel domain.Channel) (outreachrepo.ChannelRecord, error)
	ApplyTransition(ctx context.Context, tenantID, recordID uuid.UUID, newStatus domain.OutreachStatus, causingSignalID *uuid.UUID) (outreachsvc.TransitionResult, error)
	CancelPendingSends(ctx context.Context, recordID uuid.UUID) (int64, error)
}

// StatusNotification tells the owning SDR a prospect reached a notable
// status.
type StatusNotification struct {
	TenantID     uuid.UUID
	SDRID        uuid.UUID
	ProspectID   uuid.UUID
	ProspectName string
	Company      string
	Channel      domain.Channel
	Status       domain.OutreachStatus
}

// Notifier delivers status notifications. Delivery is fire and forget
// from the reconciler's point of view.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, n StatusNotification) error
}

// NormalizedSource is the slice of the signal repository the reconciler
// reads from and records outcomes into.
type NormalizedSource interface {
	GetNormalized(ctx context.Context, id uuid.UUID) (NormalizedSignal, error)
	RecordOutcomes(ctx context.Context, id uuid.UUID, outcomes []ReconcileOutcome) error
}

type Reconciler struct {
	repo      NormalizedSource
	prospects ProspectDirectory
	store     StatusStore
	notifier  Notifier
	log       *logger.Logger

	maxAttempts     uint64
	initialInterval time.Duration
}

func NewReconciler(repo NormalizedSource, prospects ProspectDirectory, store StatusStore, notifier Notifier, log *logger.Logger) *Reconciler {
	return &Reconciler{
		repo:            repo,
		prospects:       prospects,
		store:           store,
		notifier:        notifier,
		log:             log,
		maxAttempts:     3,
		initialInterval: 500 * time.Millisecond,
	}
}

// Reconcile applies every entry of a normalized signal to the matching
// channel outreach records. One entry's failure never aborts the others:
// each entry is retried with exponential backoff and, if it still fails,
// recorded as FAILED while the fan-out continues. The outcomes are
// persisted on the normalized signal and returned.
func (r *Reconciler) Reconcile(ctx context.Context, normalizedSignalID uuid.UUID) ([]ReconcileOutcome, error) {
	sig, err := r.repo.GetNormalized(ctx, normalizedSignalID)
	if err != nil {
		return nil, fmt.Errorf("load normalized signal: %w", err)
	}

	outcomes := make([]ReconcileOutcome, 0, len(sig.Entries))
	for _, entry := range sig.Entries {
		outcome := r.reconcileWithRetry(ctx, sig, entry)
		outcomes = append(outcomes, outcome)
	}

	if err := r.repo.RecordOutcomes(ctx, sig.ID, outcomes); err != nil {
		return nil, fmt.Errorf("record reconcile outcomes: %w", err)
	}
	return outcomes, nil
}

func (r *Reconciler) reconcileWithRetry(ctx context.Context, sig NormalizedSignal, entry NormalizedEntry) ReconcileOutcome {
	var outcome ReconcileOutcome

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.maxAttempts-1), ctx)

	err := backoff.Retry(func() error {
		var attemptErr error
		outcome, attemptErr = r.reconcileEntry(ctx, sig, entry)
		return attemptErr
	}, policy)
	if err != nil {
		r.log.Error("reconcile entry failed after retries",
			"normalized_signal_id", sig.ID, "email", entry.Email, "error", err)
		return ReconcileOutcome{Email: entry.Email, Result: ReconcileFailed, Reason: err.Error()}
	}
	return outcome
}

func (r *Reconciler) reconcileEntry(ctx context.Context, sig NormalizedSignal, entry NormalizedEntry) (ReconcileOutcome, error) {
	prospect, err := r.prospects.FindByEmail(ctx, sig.TenantID, sig.SDRID, entry.Email)
	if err != nil {
		if errors.Is(err, prospectsrepo.ErrNotFound) {
			return ReconcileOutcome{Email: entry.Email, Result: ReconcileSkipped, Reason: SkipProspectNotFound}, nil
		}
		return ReconcileOutcome{}, fmt.Errorf("resolve prospect: %w", err)
	}

	rec, err := r.store.AuthoritativeRecord(ctx, sig.TenantID, prospect.ID, domain.ChannelEmail)
	if err != nil {
		if errors.Is(err, outreachrepo.ErrNotFound) {
			return ReconcileOutcome{Email: entry.Email, Result: ReconcileSkipped, Reason: SkipNoApprovedRecord}, nil
		}
		return ReconcileOutcome{}, fmt.Errorf("load authoritative record: %w", err)
	}

	target, ok := domain.TargetStatus(entry.Interaction)
	if !ok {
		return ReconcileOutcome{Email: entry.Email, Result: ReconcileSkipped,
			Reason: fmt.Sprintf("no target status for interaction %s", entry.Interaction)}, nil
	}

	result, err := r.store.ApplyTransition(ctx, sig.TenantID, rec.ID, target, &sig.ID)
	if err != nil {
		return ReconcileOutcome{}, fmt.Errorf("apply transition: %w", err)
	}

	switch result.Outcome {
	case outreachsvc.OutcomeNoOp:
		return ReconcileOutcome{Email: entry.Email, Result: ReconcileNoOp, From: result.From, To: result.To}, nil
	case outreachsvc.OutcomeInvalidTransition:
		return ReconcileOutcome{Email: entry.Email, Result: ReconcileSkipped,
			Reason: SkipInvalidTransition, From: result.From, To: result.To}, nil
	}

	if target == domain.StatusActiveConvo {
		// A live conversation makes queued automated touches unwelcome.
		if _, err := r.store.CancelPendingSends(ctx, rec.ID); err != nil {
			r.log.Error("cancel pending sends failed",
				"record_id", rec.ID, "error", err)
		}
	}

	if _, err := r.prospects.RecomputeOverall(ctx, sig.TenantID, prospect.ID); err != nil {
		r.log.Error("overall status recompute failed",
			"prospect_id", prospect.ID, "error", err)
	}

	if target.IsNotable() && r.notifier != nil {
		company := ""
		if prospect.Company != nil {
			company = *prospect.Company
		}
		notifyErr := r.notifier.NotifyStatusChange(ctx, StatusNotification{
			TenantID:     sig.TenantID,
			SDRID:        sig.SDRID,
			ProspectID:   prospect.ID,
			ProspectName: prospect.FullName,
			Company:      company,
			Channel:      domain.ChannelEmail,
			Status:       target,
		})
		if notifyErr != nil {
			r.log.Error("status notification failed",
				"prospect_id", prospect.ID, "status", target, "error", notifyErr)
		}
	}

	return ReconcileOutcome{Email: entry.Email, Result: ReconcileApplied, From: result.From, To: result.To}, nil
}
