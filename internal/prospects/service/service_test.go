package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/prospects/repository"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

type fakeStore struct {
	prospects map[uuid.UUID]*repository.Prospect
	updates   []domain.OverallStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{prospects: map[uuid.UUID]*repository.Prospect{}}
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateProspectParams) (repository.Prospect, error) {
	p := repository.Prospect{
		ID:            uuid.New(),
		TenantID:      params.TenantID,
		SDRID:         params.SDRID,
		FullName:      params.FullName,
		Email:         params.Email,
		Phone:         params.Phone,
		Company:       params.Company,
		OverallStatus: domain.OverallProspected,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.prospects[p.ID] = &p
	return p, nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (repository.Prospect, error) {
	p, ok := f.prospects[id]
	if !ok || p.TenantID != tenantID {
		return repository.Prospect{}, repository.ErrNotFound
	}
	return *p, nil
}

func (f *fakeStore) FindByEmail(_ context.Context, tenantID, sdrID uuid.UUID, email string) (repository.Prospect, error) {
	for _, p := range f.prospects {
		if p.TenantID == tenantID && p.SDRID == sdrID && p.Email != nil && *p.Email == email {
			return *p, nil
		}
	}
	return repository.Prospect{}, repository.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, _ repository.ListFilter) ([]repository.Prospect, error) {
	var out []repository.Prospect
	for _, p := range f.prospects {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateOverallStatus(_ context.Context, id uuid.UUID, status domain.OverallStatus) error {
	p, ok := f.prospects[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.OverallStatus = status
	f.updates = append(f.updates, status)
	return nil
}

func (f *fakeStore) Snooze(_ context.Context, tenantID, id uuid.UUID, until time.Time, reason *string) error {
	p, ok := f.prospects[id]
	if !ok || p.TenantID != tenantID {
		return repository.ErrNotFound
	}
	p.HiddenUntil = &until
	p.HiddenReason = reason
	return nil
}

func (f *fakeStore) Unsnooze(_ context.Context, tenantID, id uuid.UUID) error {
	p, ok := f.prospects[id]
	if !ok || p.TenantID != tenantID {
		return repository.ErrNotFound
	}
	p.HiddenUntil = nil
	p.HiddenReason = nil
	return nil
}

type fakeChannels struct {
	statuses []domain.OutreachStatus
}

func (f *fakeChannels) ChannelStatuses(_ context.Context, _, _ uuid.UUID) ([]domain.OutreachStatus, error) {
	return f.statuses, nil
}

func seedProspect(t *testing.T, store *fakeStore, tenantID uuid.UUID) repository.Prospect {
	t.Helper()
	email := "pat@example.com"
	p, err := store.Create(context.Background(), repository.CreateProspectParams{
		TenantID: tenantID,
		SDRID:    uuid.New(),
		FullName: "Pat Example",
		Email:    &email,
	})
	if err != nil {
		t.Fatalf("seed prospect: %v", err)
	}
	return p
}

func TestRecomputeOverallPicksMostAdvancedChannel(t *testing.T) {
	store := newFakeStore()
	channels := &fakeChannels{statuses: []domain.OutreachStatus{
		domain.StatusSentOutreach,
		domain.StatusActiveConvo,
	}}
	svc := New(store, channels, logger.New("test"))
	tenantID := uuid.New()
	p := seedProspect(t, store, tenantID)

	overall, err := svc.RecomputeOverall(context.Background(), tenantID, p.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if overall != domain.OverallActiveConvo {
		t.Fatalf("overall = %s, want %s", overall, domain.OverallActiveConvo)
	}
	if got := store.prospects[p.ID].OverallStatus; got != domain.OverallActiveConvo {
		t.Fatalf("stored overall = %s", got)
	}
}

func TestRecomputeOverallWritesOnlyOnChange(t *testing.T) {
	store := newFakeStore()
	channels := &fakeChannels{statuses: []domain.OutreachStatus{domain.StatusAccepted}}
	svc := New(store, channels, logger.New("test"))
	tenantID := uuid.New()
	p := seedProspect(t, store, tenantID)

	for i := 0; i < 3; i++ {
		if _, err := svc.RecomputeOverall(context.Background(), tenantID, p.ID); err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
	}
	if len(store.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(store.updates))
	}
}

func TestRecomputeOverallUnknownProspectIsNotFound(t *testing.T) {
	svc := New(newFakeStore(), &fakeChannels{}, logger.New("test"))

	_, err := svc.RecomputeOverall(context.Background(), uuid.New(), uuid.New())
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestStatusChangedEventTriggersRecompute(t *testing.T) {
	store := newFakeStore()
	channels := &fakeChannels{statuses: []domain.OutreachStatus{domain.StatusDemoSet}}
	svc := New(store, channels, logger.New("test"))
	tenantID := uuid.New()
	p := seedProspect(t, store, tenantID)

	bus := events.NewInMemoryBus(logger.New("test"))
	svc.RegisterHandlers(bus)

	event := domainevents.NewProspectStatusChanged(tenantID, p.SDRID, p.ID, uuid.New(),
		domain.ChannelLinkedIn, domain.StatusScheduling, domain.StatusDemoSet, nil)
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := store.prospects[p.ID].OverallStatus; got != domain.OverallDemo {
		t.Fatalf("overall after event = %s, want %s", got, domain.OverallDemo)
	}
}
