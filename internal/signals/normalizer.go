package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// batchPayload is the shape of a provider analytics pull: one row of
// cumulative counters per prospect email.
type batchPayload struct {
	Rows []batchRow `json:"rows"`
}

type batchRow struct {
	Email      string `json:"email"`
	OpenCount  int    `json:"open_count"`
	ClickCount int    `json:"click_count"`
	ReplyCount int    `json:"reply_count"`
	HasReplied bool   `json:"has_replied"`
	IsBounced  bool   `json:"is_bounced"`
}

// webhookPayload is the shape a single provider delta is stored as.
type webhookPayload struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

type Normalizer struct {
	repo *Repository
	log  *logger.Logger
}

func NewNormalizer(repo *Repository, log *logger.Logger) *Normalizer {
	return &Normalizer{repo: repo, log: log}
}

// Normalize converts a stored raw signal into per-prospect entries and
// persists them. Running twice on the same raw signal returns the entries
// produced the first time.
func (n *Normalizer) Normalize(ctx context.Context, rawSignalID uuid.UUID) (NormalizedSignal, error) {
	raw, err := n.repo.GetRaw(ctx, rawSignalID)
	if err != nil {
		if errors.Is(err, ErrRawNotFound) {
			return NormalizedSignal{}, apperr.NotFound("raw signal not found")
		}
		return NormalizedSignal{}, fmt.Errorf("load raw signal: %w", err)
	}

	if existing, err := n.repo.GetNormalizedByRawID(ctx, raw.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNormalizedNotFound) {
		return NormalizedSignal{}, fmt.Errorf("check normalized signal: %w", err)
	}

	entries, err := NormalizeEntries(raw)
	if err != nil {
		return NormalizedSignal{}, err
	}

	sig, err := n.repo.InsertNormalized(ctx, raw, entries)
	if err != nil {
		return NormalizedSignal{}, fmt.Errorf("store normalized signal: %w", err)
	}
	n.log.Info("signal normalized",
		"raw_signal_id", raw.ID, "normalized_signal_id", sig.ID, "entries", len(entries))
	return sig, nil
}

// NormalizeEntries derives per-prospect entries from a raw signal payload.
// Pure: no storage access.
func NormalizeEntries(raw RawSignal) ([]NormalizedEntry, error) {
	switch raw.Source {
	case SourceBatchAnalytics:
		var payload batchPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed analytics payload", err)
		}
		entries := make([]NormalizedEntry, 0, len(payload.Rows))
		for _, row := range payload.Rows {
			if row.Email == "" {
				continue
			}
			entries = append(entries, normalizeRow(row))
		}
		return entries, nil

	case SourceEmailWebhook:
		var payload webhookPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed webhook payload", err)
		}
		if payload.Email == "" {
			return nil, apperr.Validation("webhook payload is missing field email")
		}
		entry, ok := normalizeDelta(payload)
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unrecognized delta type %q", payload.Type))
		}
		return []NormalizedEntry{entry}, nil

	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown signal source %q", raw.Source))
	}
}

// normalizeRow classifies one analytics row. Deeper engagement wins:
// replied over clicked over opened over sent. A bounce overrides the
// interaction and marks the sequence bounced unless the prospect replied,
// since a reply proves the mailbox is live.
func normalizeRow(row batchRow) NormalizedEntry {
	entry := NormalizedEntry{Email: strings.ToLower(row.Email)}

	switch {
	case row.HasReplied || row.ReplyCount > 0:
		entry.Interaction = domain.InteractionReplied
		entry.Sequence = domain.SequenceCompleted
	case row.IsBounced:
		entry.Interaction = domain.InteractionBounced
		entry.Sequence = domain.SequenceBounced
	case row.ClickCount > 0:
		entry.Interaction = domain.InteractionClicked
		entry.Sequence = domain.SequenceInProgress
	case row.OpenCount > 0:
		entry.Interaction = domain.InteractionOpened
		entry.Sequence = domain.SequenceInProgress
	default:
		entry.Interaction = domain.InteractionSent
		entry.Sequence = domain.SequenceInProgress
	}
	return entry
}

func normalizeDelta(payload webhookPayload) (NormalizedEntry, bool) {
	entry := NormalizedEntry{Email: strings.ToLower(payload.Email), Sequence: domain.SequenceInProgress}

	switch payload.Type {
	case "message.created":
		entry.Interaction = domain.InteractionSent
	case "message.opened":
		entry.Interaction = domain.InteractionOpened
	case "message.link_clicked":
		entry.Interaction = domain.InteractionClicked
	case "thread.replied":
		entry.Interaction = domain.InteractionReplied
		entry.Sequence = domain.SequenceCompleted
	case "message.bounced":
		entry.Interaction = domain.InteractionBounced
		entry.Sequence = domain.SequenceBounced
	default:
		return NormalizedEntry{}, false
	}
	return entry, true
}
