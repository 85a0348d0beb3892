package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
	outreachrepo "outreach_backend/internal/outreach/repository"
	outreachsvc "outreach_backend/internal/outreach/service"
	prospectsrepo "outreach_backend/internal/prospects/repository"
	"outreach_backend/platform/logger"
)

type fakeSource struct {
	signal   NormalizedSignal
	outcomes []ReconcileOutcome
}

func (f *fakeSource) GetNormalized(_ context.Context, id uuid.UUID) (NormalizedSignal, error) {
	if id != f.signal.ID {
		return NormalizedSignal{}, ErrNormalizedNotFound
	}
	return f.signal, nil
}

func (f *fakeSource) RecordOutcomes(_ context.Context, _ uuid.UUID, outcomes []ReconcileOutcome) error {
	f.outcomes = outcomes
	return nil
}

type fakeDirectory struct {
	prospects  map[string]prospectsrepo.Prospect
	recomputed []uuid.UUID
}

func (f *fakeDirectory) FindByEmail(_ context.Context, _, _ uuid.UUID, email string) (prospectsrepo.Prospect, error) {
	p, ok := f.prospects[email]
	if !ok {
		return prospectsrepo.Prospect{}, prospectsrepo.ErrNotFound
	}
	return p, nil
}

func (f *fakeDirectory) RecomputeOverall(_ context.Context, _, prospectID uuid.UUID) (domain.OverallStatus, error) {
	f.recomputed = append(f.recomputed, prospectID)
	return domain.OverallSentOutreach, nil
}

type appliedCall struct {
	recordID uuid.UUID
	to       domain.OutreachStatus
}

type fakeStore struct {
	records   map[uuid.UUID]outreachrepo.ChannelRecord // keyed by prospect ID
	applied   []appliedCall
	cancelled []uuid.UUID
	failures  int // fail this many ApplyTransition calls before succeeding
}

func (f *fakeStore) AuthoritativeRecord(_ context.Context, _, prospectID uuid.UUID, _ domain.Channel) (outreachrepo.ChannelRecord, error) {
	rec, ok := f.records[prospectID]
	if !ok {
		return outreachrepo.ChannelRecord{}, outreachrepo.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) ApplyTransition(_ context.Context, _, recordID uuid.UUID, newStatus domain.OutreachStatus, _ *uuid.UUID) (outreachsvc.TransitionResult, error) {
	if f.failures > 0 {
		f.failures--
		return outreachsvc.TransitionResult{}, errors.New("connection reset")
	}

	var rec outreachrepo.ChannelRecord
	for _, r := range f.records {
		if r.ID == recordID {
			rec = r
		}
	}
	current := rec.CurrentStatus()
	if current == newStatus {
		return outreachsvc.TransitionResult{Outcome: outreachsvc.OutcomeNoOp, From: current, To: newStatus}, nil
	}
	if !domain.Transitions(rec.Channel).IsValidTransition(current, newStatus) {
		return outreachsvc.TransitionResult{Outcome: outreachsvc.OutcomeInvalidTransition, From: current, To: newStatus}, nil
	}
	f.applied = append(f.applied, appliedCall{recordID: recordID, to: newStatus})
	return outreachsvc.TransitionResult{Outcome: outreachsvc.OutcomeApplied, From: current, To: newStatus}, nil
}

func (f *fakeStore) CancelPendingSends(_ context.Context, recordID uuid.UUID) (int64, error) {
	f.cancelled = append(f.cancelled, recordID)
	return 1, nil
}

type fakeNotifier struct {
	notifications []StatusNotification
}

func (f *fakeNotifier) NotifyStatusChange(_ context.Context, n StatusNotification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func statusPtr(s domain.OutreachStatus) *domain.OutreachStatus { return &s }

func newTestReconciler(src *fakeSource, dir *fakeDirectory, store *fakeStore, notifier *fakeNotifier) *Reconciler {
	r := NewReconciler(src, dir, store, notifier, logger.New("test"))
	r.initialInterval = time.Millisecond
	return r
}

func TestReconcileAppliesEntryAndRecomputesOverall(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID, recordID := uuid.New(), uuid.New()

	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{{Email: "p@x.com", Interaction: domain.InteractionOpened, Sequence: domain.SequenceInProgress}},
	}}
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID, FullName: "Pat Example"},
	}}
	store := &fakeStore{records: map[uuid.UUID]outreachrepo.ChannelRecord{
		prospectID: {ID: recordID, TenantID: tenantID, ProspectID: prospectID, Channel: domain.ChannelEmail, OutreachStatus: statusPtr(domain.StatusSentOutreach)},
	}}
	notifier := &fakeNotifier{}

	outcomes, err := newTestReconciler(src, dir, store, notifier).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Result != ReconcileApplied {
		t.Fatalf("outcomes = %+v, want one APPLIED", outcomes)
	}
	if len(store.applied) != 1 || store.applied[0].to != domain.StatusEmailOpened {
		t.Fatalf("applied = %+v, want EMAIL_OPENED on the record", store.applied)
	}
	if len(dir.recomputed) != 1 || dir.recomputed[0] != prospectID {
		t.Fatalf("recomputed = %v, want the prospect once", dir.recomputed)
	}
	if len(notifier.notifications) != 0 {
		t.Fatalf("EMAIL_OPENED is not notable, got notifications %+v", notifier.notifications)
	}
	if src.outcomes == nil {
		t.Fatal("outcomes were not recorded on the signal")
	}
}

func TestReconcileSkipsUnknownProspectAndContinues(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID, recordID := uuid.New(), uuid.New()

	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{
			{Email: "ghost@x.com", Interaction: domain.InteractionOpened},
			{Email: "p@x.com", Interaction: domain.InteractionOpened},
		},
	}}
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID, FullName: "Pat Example"},
	}}
	store := &fakeStore{records: map[uuid.UUID]outreachrepo.ChannelRecord{
		prospectID: {ID: recordID, Channel: domain.ChannelEmail, ProspectID: prospectID, OutreachStatus: statusPtr(domain.StatusSentOutreach)},
	}}

	outcomes, err := newTestReconciler(src, dir, store, &fakeNotifier{}).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcomes[0].Result != ReconcileSkipped || outcomes[0].Reason != SkipProspectNotFound {
		t.Fatalf("first outcome = %+v, want skip for unknown prospect", outcomes[0])
	}
	if outcomes[1].Result != ReconcileApplied {
		t.Fatalf("second outcome = %+v, want APPLIED despite earlier skip", outcomes[1])
	}
}

func TestReconcileSkipsWhenNoApprovedRecord(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID := uuid.New()

	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{{Email: "p@x.com", Interaction: domain.InteractionReplied}},
	}}
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID},
	}}
	store := &fakeStore{records: map[uuid.UUID]outreachrepo.ChannelRecord{}}

	outcomes, err := newTestReconciler(src, dir, store, &fakeNotifier{}).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcomes[0].Result != ReconcileSkipped || outcomes[0].Reason != SkipNoApprovedRecord {
		t.Fatalf("outcome = %+v, want skip for missing record", outcomes[0])
	}
}

func TestReconcileStaleSignalIsSkippedNotFailed(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID, recordID := uuid.New(), uuid.New()

	// The prospect already replied; a late "opened" signal must not move
	// the status backwards.
	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{{Email: "p@x.com", Interaction: domain.InteractionOpened}},
	}}
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID},
	}}
	store := &fakeStore{records: map[uuid.UUID]outreachrepo.ChannelRecord{
		prospectID: {ID: recordID, Channel: domain.ChannelEmail, ProspectID: prospectID, OutreachStatus: statusPtr(domain.StatusActiveConvo)},
	}}

	outcomes, err := newTestReconciler(src, dir, store, &fakeNotifier{}).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcomes[0].Result != ReconcileSkipped || outcomes[0].Reason != SkipInvalidTransition {
		t.Fatalf("outcome = %+v, want invalid-transition skip", outcomes[0])
	}
	if len(store.applied) != 0 {
		t.Fatalf("nothing should have been applied, got %+v", store.applied)
	}
}

func TestReconcileRepliedNotifiesAndCancelsPendingSends(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID, recordID := uuid.New(), uuid.New()
	company := "Example Corp"

	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{{Email: "p@x.com", Interaction: domain.InteractionReplied, Sequence: domain.SequenceCompleted}},
	}}
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID, FullName: "Pat Example", Company: &company},
	}}
	store := &fakeStore{records: map[uuid.UUID]outreachrepo.ChannelRecord{
		prospectID: {ID: recordID, Channel: domain.ChannelEmail, ProspectID: prospectID, OutreachStatus: statusPtr(domain.StatusSentOutreach)},
	}}
	notifier := &fakeNotifier{}

	outcomes, err := newTestReconciler(src, dir, store, notifier).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcomes[0].Result != ReconcileApplied || outcomes[0].To != domain.StatusActiveConvo {
		t.Fatalf("outcome = %+v, want ACTIVE_CONVO applied", outcomes[0])
	}
	if len(store.cancelled) != 1 || store.cancelled[0] != recordID {
		t.Fatalf("cancelled = %v, want the record's pending sends cancelled", store.cancelled)
	}
	if len(notifier.notifications) != 1 {
		t.Fatalf("notifications = %+v, want exactly one", notifier.notifications)
	}
	if n := notifier.notifications[0]; n.Status != domain.StatusActiveConvo || n.ProspectName != "Pat Example" {
		t.Fatalf("notification = %+v", n)
	}
}

func TestReconcileRetriesTransientFailures(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID, recordID := uuid.New(), uuid.New()

	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{{Email: "p@x.com", Interaction: domain.InteractionOpened}},
	}}
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID},
	}}
	store := &fakeStore{
		failures: 2,
		records: map[uuid.UUID]outreachrepo.ChannelRecord{
			prospectID: {ID: recordID, Channel: domain.ChannelEmail, ProspectID: prospectID, OutreachStatus: statusPtr(domain.StatusSentOutreach)},
		},
	}

	outcomes, err := newTestReconciler(src, dir, store, &fakeNotifier{}).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcomes[0].Result != ReconcileApplied {
		t.Fatalf("outcome = %+v, want APPLIED on the third attempt", outcomes[0])
	}
}

func TestReconcileRecordsFailureAfterRetriesExhausted(t *testing.T) {
	tenantID, sdrID := uuid.New(), uuid.New()
	prospectID, recordID := uuid.New(), uuid.New()

	src := &fakeSource{signal: NormalizedSignal{
		ID: uuid.New(), TenantID: tenantID, SDRID: sdrID,
		Entries: []NormalizedEntry{
			{Email: "p@x.com", Interaction: domain.InteractionOpened},
			{Email: "q@x.com", Interaction: domain.InteractionOpened},
		},
	}}
	qID, qRecordID := uuid.New(), uuid.New()
	dir := &fakeDirectory{prospects: map[string]prospectsrepo.Prospect{
		"p@x.com": {ID: prospectID, TenantID: tenantID},
		"q@x.com": {ID: qID, TenantID: tenantID},
	}}
	store := &fakeStore{
		failures: 3, // first entry exhausts all its attempts
		records: map[uuid.UUID]outreachrepo.ChannelRecord{
			prospectID: {ID: recordID, Channel: domain.ChannelEmail, ProspectID: prospectID, OutreachStatus: statusPtr(domain.StatusSentOutreach)},
			qID:        {ID: qRecordID, Channel: domain.ChannelEmail, ProspectID: qID, OutreachStatus: statusPtr(domain.StatusSentOutreach)},
		},
	}

	outcomes, err := newTestReconciler(src, dir, store, &fakeNotifier{}).Reconcile(context.Background(), src.signal.ID)
	if err != nil {
		t.Fatalf("reconcile must not fail the batch: %v", err)
	}
	if outcomes[0].Result != ReconcileFailed {
		t.Fatalf("first outcome = %+v, want FAILED", outcomes[0])
	}
	if outcomes[1].Result != ReconcileApplied {
		t.Fatalf("second outcome = %+v, want APPLIED after the first failed", outcomes[1])
	}
}
