// Package signals ingests raw third-party interaction signals, normalizes
// them into per-prospect entries, and reconciles those entries onto the
// channel outreach records.
package signals

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

type Ingestor struct {
	repo *Repository
	bus  events.Bus
	log  *logger.Logger
}

func NewIngestor(repo *Repository, bus events.Bus, log *logger.Logger) *Ingestor {
	return &Ingestor{repo: repo, bus: bus, log: log}
}

// IngestRaw stores one raw signal keyed by the content hash of its
// canonical JSON. Re-submitting an identical payload for the same tenant
// and SDR returns the already-stored signal with isNew false, so provider
// webhook retries never produce duplicate work.
func (i *Ingestor) IngestRaw(ctx context.Context, tenantID, sdrID uuid.UUID, source Source, payload []byte) (RawSignal, bool, error) {
	hash, err := ContentHash(payload)
	if err != nil {
		return RawSignal{}, false, apperr.Wrap(apperr.KindValidation, "signal payload is not valid JSON", err)
	}

	sig, isNew, err := i.repo.InsertRaw(ctx, tenantID, sdrID, source, payload, hash)
	if err != nil {
		return RawSignal{}, false, fmt.Errorf("store raw signal: %w", err)
	}

	if isNew {
		i.log.Info("raw signal ingested",
			"signal_id", sig.ID, "source", source, "content_hash", hash)
		i.bus.Publish(ctx, domainevents.NewSignalIngested(tenantID, sdrID, sig.ID, string(source)))
	} else {
		i.log.Debug("duplicate signal ignored",
			"signal_id", sig.ID, "source", source, "content_hash", hash)
	}
	return sig, isNew, nil
}
