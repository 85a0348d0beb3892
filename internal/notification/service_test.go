package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/internal/notification/outbox"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/signals"
	"outreach_backend/platform/logger"
)

type fakeOutbox struct {
	records []outbox.EnqueueParams
}

func (f *fakeOutbox) Enqueue(_ context.Context, params outbox.EnqueueParams) (outbox.Record, error) {
	f.records = append(f.records, params)
	return outbox.Record{ID: uuid.New(), TenantID: params.TenantID, Message: params.Message}, nil
}

func TestNotifyStatusChangeWritesOutboxRow(t *testing.T) {
	ob := &fakeOutbox{}
	svc := NewService(ob, logger.New("test"))
	company := "Example Corp"

	err := svc.NotifyStatusChange(context.Background(), signals.StatusNotification{
		TenantID:     uuid.New(),
		SDRID:        uuid.New(),
		ProspectID:   uuid.New(),
		ProspectName: "Pat Example",
		Company:      company,
		Channel:      domain.ChannelEmail,
		Status:       domain.StatusActiveConvo,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(ob.records) != 1 {
		t.Fatalf("records = %d, want 1", len(ob.records))
	}
	rec := ob.records[0]
	if rec.Kind != outbox.KindStatusChange {
		t.Fatalf("kind = %s", rec.Kind)
	}
	if !strings.Contains(rec.Message, "Pat Example") || !strings.Contains(rec.Message, "Example Corp") {
		t.Fatalf("message = %q, want prospect and company named", rec.Message)
	}
}

func TestStatusMessagePerNotableStatus(t *testing.T) {
	for _, status := range []domain.OutreachStatus{domain.StatusActiveConvo, domain.StatusScheduling, domain.StatusDemoSet} {
		msg := StatusMessage("Pat", "", domain.ChannelEmail, status)
		if msg == "" {
			t.Fatalf("empty message for %s", status)
		}
		if !strings.Contains(msg, "Pat") {
			t.Fatalf("message for %s does not name the prospect: %q", status, msg)
		}
	}
}

func TestStatusMessageFallsBackWithoutName(t *testing.T) {
	msg := StatusMessage("", "", domain.ChannelEmail, domain.StatusActiveConvo)
	if !strings.HasPrefix(msg, "A prospect") {
		t.Fatalf("message = %q", msg)
	}
}

func TestHandleStatusChangedNotableEnqueues(t *testing.T) {
	ob := &fakeOutbox{}
	svc := NewService(ob, logger.New("test"))
	sdrID := uuid.New()

	event := domainevents.NewProspectStatusChanged(uuid.New(), sdrID, uuid.New(), uuid.New(),
		domain.ChannelEmail, domain.StatusSentOutreach, domain.StatusDemoSet, nil)
	if err := svc.handleStatusChanged(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(ob.records) != 1 {
		t.Fatalf("records = %d, want 1", len(ob.records))
	}
	rec := ob.records[0]
	if rec.Kind != outbox.KindStatusChange || rec.SDRID != sdrID {
		t.Fatalf("record = %+v", rec)
	}
	if !strings.Contains(rec.Message, "demo") {
		t.Fatalf("message = %q", rec.Message)
	}
}

func TestHandleStatusChangedSkipsNonNotable(t *testing.T) {
	ob := &fakeOutbox{}
	svc := NewService(ob, logger.New("test"))

	event := domainevents.NewProspectStatusChanged(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
		domain.ChannelEmail, domain.StatusQueuedForOutreach, domain.StatusSentOutreach, nil)
	if err := svc.handleStatusChanged(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ob.records) != 0 {
		t.Fatalf("records = %d, want none", len(ob.records))
	}
}

func TestHandleStatusChangedSkipsSignalDriven(t *testing.T) {
	ob := &fakeOutbox{}
	svc := NewService(ob, logger.New("test"))
	signalID := uuid.New()

	event := domainevents.NewProspectStatusChanged(uuid.New(), uuid.New(), uuid.New(), uuid.New(),
		domain.ChannelEmail, domain.StatusSentOutreach, domain.StatusActiveConvo, &signalID)
	if err := svc.handleStatusChanged(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ob.records) != 0 {
		t.Fatalf("records = %d, want none", len(ob.records))
	}
}

func TestHandleAccountDisconnectedWritesOutboxRow(t *testing.T) {
	ob := &fakeOutbox{}
	svc := NewService(ob, logger.New("test"))

	event := domainevents.NewAccountDisconnected(uuid.New(), uuid.New(), "acc-42")
	if err := svc.handleAccountDisconnected(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(ob.records) != 1 || ob.records[0].Kind != outbox.KindAccountDisconnect {
		t.Fatalf("records = %+v", ob.records)
	}
	if !strings.Contains(ob.records[0].Message, "acc-42") {
		t.Fatalf("message = %q, want the account named", ob.records[0].Message)
	}
}
