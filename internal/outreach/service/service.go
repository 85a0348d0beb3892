// Package service implements the channel outreach status store. All
// status movement goes through ApplyTransition so the transition table
// and the audit trail stay in agreement.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

type TransitionOutcome string

const (
	OutcomeApplied           TransitionOutcome = "APPLIED"
	OutcomeNoOp              TransitionOutcome = "NO_OP"
	OutcomeInvalidTransition TransitionOutcome = "INVALID_TRANSITION"
)

// TransitionResult reports what ApplyTransition did. InvalidTransition is
// an outcome rather than an error: callers fanning out over many records
// treat it as a skip, not a failure.
type TransitionResult struct {
	Outcome TransitionOutcome
	From    domain.OutreachStatus
	To      domain.OutreachStatus
	Reason  string
}

// Store is the repository surface the service drives. Implemented by
// *repository.Repository; narrowed to an interface so transition
// semantics can be tested without a database.
type Store interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (repository.ChannelRecord, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, from, to domain.OutreachStatus, causingSignalID *uuid.UUID) (repository.StatusChangeRecord, error)
	Create(ctx context.Context, params repository.CreateRecordParams) (repository.ChannelRecord, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (repository.ChannelRecord, error)
	AuthoritativeRecord(ctx context.Context, tenantID, prospectID uuid.UUID, channel domain.Channel) (repository.ChannelRecord, error)
	ListStatusChanges(ctx context.Context, tenantID, recordID uuid.UUID) ([]repository.StatusChangeRecord, error)
	ScheduleSend(ctx context.Context, params repository.ScheduleSendParams) (repository.ScheduledSend, error)
	CancelPendingSends(ctx context.Context, recordID uuid.UUID) (int64, error)
}

type Service struct {
	repo Store
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// ApplyTransition moves a channel record to newStatus under a row lock.
// The status update and its audit entry commit atomically. A request for
// the record's current status is a no-op, and a target the transition
// table does not allow from the current status is rejected without
// mutating anything.
func (s *Service) ApplyTransition(ctx context.Context, tenantID, recordID uuid.UUID, newStatus domain.OutreachStatus, causingSignalID *uuid.UUID) (TransitionResult, error) {
	if !newStatus.IsKnown() {
		return TransitionResult{}, apperr.Validation(fmt.Sprintf("unknown outreach status %q", newStatus))
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := s.repo.GetForUpdate(ctx, tx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TransitionResult{}, apperr.NotFound("channel outreach record not found")
		}
		return TransitionResult{}, fmt.Errorf("load record for transition: %w", err)
	}
	if rec.TenantID != tenantID {
		return TransitionResult{}, apperr.NotFound("channel outreach record not found")
	}

	current := rec.CurrentStatus()
	if current == newStatus {
		return TransitionResult{Outcome: OutcomeNoOp, From: current, To: newStatus}, nil
	}

	table := domain.Transitions(rec.Channel)
	if !table.IsValidTransition(current, newStatus) {
		return TransitionResult{
			Outcome: OutcomeInvalidTransition,
			From:    current,
			To:      newStatus,
			Reason:  fmt.Sprintf("%s does not follow %s on %s", newStatus, current, rec.Channel),
		}, nil
	}

	if _, err := s.repo.UpdateStatusTx(ctx, tx, recordID, current, newStatus, causingSignalID); err != nil {
		return TransitionResult{}, fmt.Errorf("apply transition: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return TransitionResult{}, fmt.Errorf("commit transition: %w", err)
	}

	s.log.StatusTransition(recordID.String(), string(current), string(newStatus))
	s.bus.Publish(ctx, domainevents.NewProspectStatusChanged(
		rec.TenantID, rec.SDRID, rec.ProspectID, rec.ID, rec.Channel, current, newStatus, causingSignalID,
	))

	return TransitionResult{Outcome: OutcomeApplied, From: current, To: newStatus}, nil
}

type CreateRecordInput struct {
	SDRID      uuid.UUID
	ProspectID uuid.UUID
	CampaignID *uuid.UUID
	Channel    domain.Channel
	Approved   bool
	Subject    *string
	Body       *string
}

func (s *Service) CreateRecord(ctx context.Context, tenantID uuid.UUID, in CreateRecordInput) (repository.ChannelRecord, error) {
	if !in.Channel.IsKnown() {
		return repository.ChannelRecord{}, apperr.Validation(fmt.Sprintf("unknown channel %q", in.Channel))
	}

	sendStatus := repository.SendStatusDraft
	if in.Approved {
		// A prospect carries at most one approved record per channel.
		if _, err := s.repo.AuthoritativeRecord(ctx, tenantID, in.ProspectID, in.Channel); err == nil {
			return repository.ChannelRecord{}, apperr.Conflict("prospect already has an approved record on this channel")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return repository.ChannelRecord{}, fmt.Errorf("check authoritative record: %w", err)
		}
		sendStatus = repository.SendStatusApproved
	}

	rec, err := s.repo.Create(ctx, repository.CreateRecordParams{
		TenantID:   tenantID,
		SDRID:      in.SDRID,
		ProspectID: in.ProspectID,
		CampaignID: in.CampaignID,
		Channel:    in.Channel,
		SendStatus: sendStatus,
		Subject:    in.Subject,
		Body:       in.Body,
	})
	if err != nil {
		return repository.ChannelRecord{}, fmt.Errorf("create channel record: %w", err)
	}
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, tenantID, recordID uuid.UUID) (repository.ChannelRecord, error) {
	rec, err := s.repo.GetByID(ctx, tenantID, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ChannelRecord{}, apperr.NotFound("channel outreach record not found")
	}
	return rec, err
}

// NextStatuses lists the statuses the record may legally move to, for
// populating pickers in the client.
func (s *Service) NextStatuses(ctx context.Context, tenantID, recordID uuid.UUID) ([]domain.OutreachStatus, error) {
	rec, err := s.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	return domain.Transitions(rec.Channel).NextValidStatuses(rec.CurrentStatus()), nil
}

func (s *Service) ListStatusChanges(ctx context.Context, tenantID, recordID uuid.UUID) ([]repository.StatusChangeRecord, error) {
	if _, err := s.GetRecord(ctx, tenantID, recordID); err != nil {
		return nil, err
	}
	return s.repo.ListStatusChanges(ctx, tenantID, recordID)
}

type ScheduleSendInput struct {
	RecordID uuid.UUID
	ToEmail  string
	Subject  string
	Body     string
	RunAt    time.Time
}

// ScheduleSend queues an email for future delivery on an approved record.
func (s *Service) ScheduleSend(ctx context.Context, tenantID uuid.UUID, in ScheduleSendInput) (repository.ScheduledSend, error) {
	rec, err := s.GetRecord(ctx, tenantID, in.RecordID)
	if err != nil {
		return repository.ScheduledSend{}, err
	}
	if rec.Channel != domain.ChannelEmail {
		return repository.ScheduledSend{}, apperr.Validation("scheduled sends are only supported on the email channel")
	}
	if rec.SendStatus == repository.SendStatusDraft {
		return repository.ScheduledSend{}, apperr.Conflict("record must be approved before scheduling a send")
	}
	if rec.CurrentStatus().IsTerminal() {
		return repository.ScheduledSend{}, apperr.Conflict(fmt.Sprintf("record is in terminal status %s", rec.CurrentStatus()))
	}

	send, err := s.repo.ScheduleSend(ctx, repository.ScheduleSendParams{
		TenantID:        tenantID,
		ChannelRecordID: in.RecordID,
		ToEmail:         in.ToEmail,
		Subject:         in.Subject,
		Body:            in.Body,
		RunAt:           in.RunAt,
	})
	if err != nil {
		return repository.ScheduledSend{}, fmt.Errorf("schedule send: %w", err)
	}

	// Queuing is itself a lifecycle step. Records that already moved past
	// QUEUED_FOR_OUTREACH (a follow-up send) stay where they are.
	result, err := s.ApplyTransition(ctx, tenantID, in.RecordID, domain.StatusQueuedForOutreach, nil)
	if err != nil {
		s.log.Error("queued transition failed after scheduling send",
			"record_id", in.RecordID, "error", err)
	} else if result.Outcome == OutcomeInvalidTransition {
		s.log.Info("record already past queued, leaving status",
			"record_id", in.RecordID, "status", result.From)
	}

	return send, nil
}

// CancelPendingSends removes all not-yet-dispatched sends for a record.
func (s *Service) CancelPendingSends(ctx context.Context, recordID uuid.UUID) (int64, error) {
	n, err := s.repo.CancelPendingSends(ctx, recordID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending sends: %w", err)
	}
	if n > 0 {
		s.log.Info("cancelled pending scheduled sends", "record_id", recordID, "count", n)
	}
	return n, nil
}

// AuthoritativeStatus reports the current status of the prospect's
// approved record on a channel, or UNKNOWN when none exists.
func (s *Service) AuthoritativeStatus(ctx context.Context, tenantID, prospectID uuid.UUID, channel domain.Channel) (domain.OutreachStatus, error) {
	rec, err := s.repo.AuthoritativeRecord(ctx, tenantID, prospectID, channel)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.StatusUnknown, nil
	}
	if err != nil {
		return domain.StatusUnknown, err
	}
	return rec.CurrentStatus(), nil
}

// AuthoritativeRecord exposes the approved record lookup for callers that
// need the record itself, such as the signal reconciler.
func (s *Service) AuthoritativeRecord(ctx context.Context, tenantID, prospectID uuid.UUID, channel domain.Channel) (repository.ChannelRecord, error) {
	return s.repo.AuthoritativeRecord(ctx, tenantID, prospectID, channel)
}
