// Package notification turns domain happenings into SDR-facing messages.
// Messages are written to a durable outbox; a dispatcher delivers them
// asynchronously so notification trouble never blocks the caller.
package notification

import (
	"context"
	"fmt"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/internal/notification/outbox"
	"outreach_backend/internal/signals"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

// OutboxWriter is the slice of the outbox repository the service needs.
type OutboxWriter interface {
	Enqueue(ctx context.Context, params outbox.EnqueueParams) (outbox.Record, error)
}

type Service struct {
	outbox OutboxWriter
	log    *logger.Logger
}

func NewService(outboxRepo OutboxWriter, log *logger.Logger) *Service {
	return &Service{outbox: outboxRepo, log: log}
}

// NotifyStatusChange queues a message about a prospect reaching a notable
// status. Satisfies the reconciler's Notifier interface.
func (s *Service) NotifyStatusChange(ctx context.Context, n signals.StatusNotification) error {
	message := StatusMessage(n.ProspectName, n.Company, n.Channel, n.Status)
	rec, err := s.outbox.Enqueue(ctx, outbox.EnqueueParams{
		TenantID: n.TenantID,
		SDRID:    n.SDRID,
		Kind:     outbox.KindStatusChange,
		Message:  message,
	})
	if err != nil {
		return fmt.Errorf("enqueue status notification: %w", err)
	}
	s.log.Info("status notification queued",
		"outbox_id", rec.ID, "prospect_id", n.ProspectID, "status", n.Status)
	return nil
}

// RegisterHandlers subscribes the service to bus events it reacts to.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(domainevents.EventProspectStatusChanged, events.HandlerFunc(s.handleStatusChanged))
	bus.Subscribe(domainevents.EventAccountDisconnected, events.HandlerFunc(s.handleAccountDisconnected))
}

// handleStatusChanged notifies the SDR when a transition lands on a
// notable status. Signal-driven transitions carry a causing signal id and
// are skipped here: the reconciler already notifies those with the
// prospect's name and company attached.
func (s *Service) handleStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(domainevents.ProspectStatusChanged)
	if !ok {
		return nil
	}
	if changed.CausingSignalID != nil || !changed.ToStatus.IsNotable() {
		return nil
	}

	rec, err := s.outbox.Enqueue(ctx, outbox.EnqueueParams{
		TenantID: changed.TenantID,
		SDRID:    changed.SDRID,
		Kind:     outbox.KindStatusChange,
		Message:  StatusMessage("", "", changed.Channel, changed.ToStatus),
	})
	if err != nil {
		return fmt.Errorf("enqueue status notification: %w", err)
	}
	s.log.Info("status notification queued",
		"outbox_id", rec.ID, "prospect_id", changed.ProspectID, "status", changed.ToStatus)
	return nil
}

func (s *Service) handleAccountDisconnected(ctx context.Context, event events.Event) error {
	disconnected, ok := event.(domainevents.AccountDisconnected)
	if !ok {
		return nil
	}

	_, err := s.outbox.Enqueue(ctx, outbox.EnqueueParams{
		TenantID: disconnected.TenantID,
		SDRID:    disconnected.SDRID,
		Kind:     outbox.KindAccountDisconnect,
		Message:  AccountDisconnectedMessage(disconnected.AccountID),
	})
	if err != nil {
		return fmt.Errorf("enqueue disconnect notification: %w", err)
	}
	return nil
}
