package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/internal/signals"
	"outreach_backend/platform/events"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"
)

// SignalIngestor stores raw signals with content-hash dedup.
type SignalIngestor interface {
	IngestRaw(ctx context.Context, tenantID, sdrID uuid.UUID, source signals.Source, payload []byte) (signals.RawSignal, bool, error)
}

// TaskEnqueuer schedules the normalize step for a freshly stored signal.
type TaskEnqueuer interface {
	EnqueueSignalNormalize(ctx context.Context, rawSignalID, tenantID uuid.UUID) error
}

type Handler struct {
	ingestor SignalIngestor
	tasks    TaskEnqueuer
	bus      events.Bus
	log      *logger.Logger
}

func NewHandler(ingestor SignalIngestor, tasks TaskEnqueuer, bus events.Bus, log *logger.Logger) *Handler {
	return &Handler{ingestor: ingestor, tasks: tasks, bus: bus, log: log}
}

// Challenge answers the provider's endpoint verification handshake by
// echoing the challenge token. No signature is involved at this stage.
func (h *Handler) Challenge(c *gin.Context) {
	challenge := c.Query("challenge")
	if challenge == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing challenge parameter", nil)
		return
	}
	c.String(http.StatusOK, challenge)
}

type deltaReceipt struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// ReceiveDeltas ingests a signed batch of provider deltas. Each delta is
// ingested independently; a malformed delta is counted and skipped so
// the provider never re-delivers the whole batch over one bad entry.
func (h *Handler) ReceiveDeltas(c *gin.Context) {
	var envelope DeltaEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "malformed delta envelope", err.Error())
		return
	}
	if len(envelope.Deltas) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "envelope is missing field deltas", nil)
		return
	}

	var receipt deltaReceipt
	for _, delta := range envelope.Deltas {
		meta, err := delta.ParseMetadata()
		if err != nil {
			h.log.Warn("rejected malformed delta", "type", delta.Type, "error", err)
			receipt.Rejected++
			continue
		}

		if delta.Type == DeltaAccountInvalid {
			h.bus.Publish(c.Request.Context(), domainevents.NewAccountDisconnected(
				meta.TenantID, meta.SDRID, delta.ObjectData.AccountID))
			receipt.Accepted++
			continue
		}

		payload, err := json.Marshal(map[string]string{"type": delta.Type, "email": meta.Email})
		if err != nil {
			receipt.Rejected++
			continue
		}

		sig, isNew, err := h.ingestor.IngestRaw(c.Request.Context(), meta.TenantID, meta.SDRID, signals.SourceEmailWebhook, payload)
		if err != nil {
			h.log.Error("delta ingestion failed", "type", delta.Type, "error", err)
			receipt.Rejected++
			continue
		}
		if !isNew {
			receipt.Duplicates++
			continue
		}

		if err := h.tasks.EnqueueSignalNormalize(c.Request.Context(), sig.ID, meta.TenantID); err != nil {
			h.log.Error("enqueue normalize failed", "signal_id", sig.ID, "error", err)
		}
		receipt.Accepted++
	}

	httpkit.OK(c, receipt)
}

type batchReceipt struct {
	SignalID  uuid.UUID `json:"signalId"`
	Duplicate bool      `json:"duplicate"`
	Rows      int       `json:"rows"`
}

// SubmitBatchAnalytics ingests an authenticated analytics pull as one raw
// signal. Submitting the same pull twice returns the original signal id.
func (h *Handler) SubmitBatchAnalytics(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	var req BatchAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid analytics batch", err.Error())
		return
	}

	payload, err := req.signalPayload()
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	sig, isNew, err := h.ingestor.IngestRaw(c.Request.Context(), tenantID, req.SDRID, signals.SourceBatchAnalytics, payload)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	if isNew {
		if err := h.tasks.EnqueueSignalNormalize(c.Request.Context(), sig.ID, tenantID); err != nil {
			h.log.Error("enqueue normalize failed", "signal_id", sig.ID, "error", err)
		}
	}

	status := http.StatusAccepted
	if !isNew {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, batchReceipt{SignalID: sig.ID, Duplicate: !isNew, Rows: len(req.Rows)})
}
