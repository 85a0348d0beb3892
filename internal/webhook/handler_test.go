package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/signals"
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

type fakeIngestor struct {
	seen     map[string]uuid.UUID // content hash -> signal id
	payloads [][]byte
}

func (f *fakeIngestor) IngestRaw(_ context.Context, _, _ uuid.UUID, _ signals.Source, payload []byte) (signals.RawSignal, bool, error) {
	if f.seen == nil {
		f.seen = map[string]uuid.UUID{}
	}
	hash, err := signals.ContentHash(payload)
	if err != nil {
		return signals.RawSignal{}, false, err
	}
	if id, ok := f.seen[hash]; ok {
		return signals.RawSignal{ID: id}, false, nil
	}
	id := uuid.New()
	f.seen[hash] = id
	f.payloads = append(f.payloads, payload)
	return signals.RawSignal{ID: id}, true, nil
}

type fakeEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueSignalNormalize(_ context.Context, rawSignalID, _ uuid.UUID) error {
	f.enqueued = append(f.enqueued, rawSignalID)
	return nil
}

func deltaBody(t *testing.T, deltas ...Delta) string {
	t.Helper()
	body, err := json.Marshal(DeltaEnvelope{Deltas: deltas})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return string(body)
}

func metadataFor(t *testing.T, tenantID, sdrID uuid.UUID, email string) DeltaMetadata {
	t.Helper()
	payload, err := json.Marshal(MetadataPayload{TenantID: tenantID, SDRID: sdrID, Email: email})
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	return DeltaMetadata{Payload: string(payload)}
}

func newTestServer(t *testing.T) (*gin.Engine, *fakeIngestor, *fakeEnqueuer, platformevents.Bus) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ingestor := &fakeIngestor{}
	enqueuer := &fakeEnqueuer{}
	bus := platformevents.NewInMemoryBus(logger.New("test"))
	handler := NewHandler(ingestor, enqueuer, bus, logger.New("test"))

	engine := gin.New()
	engine.GET("/webhooks/email", handler.Challenge)
	engine.POST("/webhooks/email", handler.ReceiveDeltas)
	return engine, ingestor, enqueuer, bus
}

func postDeltas(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestReceiveDeltasIngestsAndEnqueues(t *testing.T) {
	engine, ingestor, enqueuer, _ := newTestServer(t)
	tenantID, sdrID := uuid.New(), uuid.New()

	body := deltaBody(t, Delta{
		Type:       DeltaMessageOpened,
		ObjectData: ObjectData{AccountID: "acc-1", Metadata: metadataFor(t, tenantID, sdrID, "p@x.com")},
	})

	rec := postDeltas(engine, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var receipt deltaReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("parse receipt: %v", err)
	}
	if receipt.Accepted != 1 || receipt.Rejected != 0 {
		t.Fatalf("receipt = %+v, want 1 accepted", receipt)
	}
	if len(ingestor.payloads) != 1 {
		t.Fatalf("ingested payloads = %d, want 1", len(ingestor.payloads))
	}
	if len(enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1 normalize task", len(enqueuer.enqueued))
	}
}

func TestReceiveDeltasCountsDuplicates(t *testing.T) {
	engine, _, enqueuer, _ := newTestServer(t)
	tenantID, sdrID := uuid.New(), uuid.New()

	body := deltaBody(t, Delta{
		Type:       DeltaMessageOpened,
		ObjectData: ObjectData{Metadata: metadataFor(t, tenantID, sdrID, "p@x.com")},
	})

	postDeltas(engine, body)
	rec := postDeltas(engine, body)

	var receipt deltaReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("parse receipt: %v", err)
	}
	if receipt.Duplicates != 1 || receipt.Accepted != 0 {
		t.Fatalf("receipt = %+v, want the redelivery counted as duplicate", receipt)
	}
	if len(enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued = %d, duplicates must not enqueue again", len(enqueuer.enqueued))
	}
}

func TestReceiveDeltasSkipsMalformedDeltaAndKeepsRest(t *testing.T) {
	engine, _, _, _ := newTestServer(t)
	tenantID, sdrID := uuid.New(), uuid.New()

	body := deltaBody(t,
		Delta{Type: DeltaMessageOpened}, // no metadata payload
		Delta{Type: DeltaThreadReplied, ObjectData: ObjectData{Metadata: metadataFor(t, tenantID, sdrID, "p@x.com")}},
	)

	rec := postDeltas(engine, body)
	var receipt deltaReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("parse receipt: %v", err)
	}
	if receipt.Rejected != 1 || receipt.Accepted != 1 {
		t.Fatalf("receipt = %+v, want 1 rejected and 1 accepted", receipt)
	}
}

func TestReceiveDeltasPublishesAccountDisconnected(t *testing.T) {
	engine, ingestor, _, bus := newTestServer(t)
	tenantID, sdrID := uuid.New(), uuid.New()

	received := make(chan platformevents.Event, 1)
	bus.Subscribe("webhook.account.disconnected", platformevents.HandlerFunc(
		func(_ context.Context, event platformevents.Event) error {
			received <- event
			return nil
		}))

	body := deltaBody(t, Delta{
		Type:       DeltaAccountInvalid,
		ObjectData: ObjectData{AccountID: "acc-9", Metadata: metadataFor(t, tenantID, sdrID, "")},
	})

	rec := postDeltas(engine, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Publish runs handlers on goroutines.
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("account.invalid did not publish an event")
	}
	if len(ingestor.payloads) != 0 {
		t.Fatal("account.invalid must not be stored as an interaction signal")
	}
}

func TestDeltaParseMetadataNamesMissingField(t *testing.T) {
	_, err := (Delta{Type: DeltaMessageOpened}).ParseMetadata()
	if err == nil || !strings.Contains(err.Error(), "object_data.metadata.payload") {
		t.Fatalf("err = %v, want it to name the missing field", err)
	}

	meta, _ := json.Marshal(MetadataPayload{SDRID: uuid.New(), Email: "p@x.com"})
	_, err = (Delta{Type: DeltaMessageOpened, ObjectData: ObjectData{Metadata: DeltaMetadata{Payload: string(meta)}}}).ParseMetadata()
	if err == nil || !strings.Contains(err.Error(), "tenant_id") {
		t.Fatalf("err = %v, want it to name tenant_id", err)
	}
}
