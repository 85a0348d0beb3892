package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"outreach_backend/platform/apperr"
)

// Delta types the provider sends.
const (
	DeltaMessageCreated     = "message.created"
	DeltaMessageOpened      = "message.opened"
	DeltaMessageLinkClicked = "message.link_clicked"
	DeltaThreadReplied      = "thread.replied"
	DeltaMessageBounced     = "message.bounced"
	DeltaAccountInvalid     = "account.invalid"
)

// DeltaEnvelope is the provider's webhook body: a batch of deltas.
type DeltaEnvelope struct {
	Deltas []Delta `json:"deltas"`
}

type Delta struct {
	Type       string     `json:"type"`
	ObjectData ObjectData `json:"object_data"`
}

type ObjectData struct {
	AccountID string        `json:"account_id"`
	Metadata  DeltaMetadata `json:"metadata"`
}

// DeltaMetadata carries our own routing data, round-tripped through the
// provider as an opaque JSON string.
type DeltaMetadata struct {
	Payload string `json:"payload"`
}

// MetadataPayload identifies whose interaction a delta describes.
type MetadataPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
	SDRID    uuid.UUID `json:"sdr_id"`
	Email    string    `json:"email"`
}

// ParseMetadata extracts and validates the routing payload of a delta.
// Errors name the missing field so provider misconfigurations are
// diagnosable from the response alone.
func (d Delta) ParseMetadata() (MetadataPayload, error) {
	if d.Type == "" {
		return MetadataPayload{}, apperr.Validation("delta is missing field type")
	}
	if d.ObjectData.Metadata.Payload == "" {
		return MetadataPayload{}, apperr.Validation("delta is missing field object_data.metadata.payload")
	}

	var payload MetadataPayload
	if err := json.Unmarshal([]byte(d.ObjectData.Metadata.Payload), &payload); err != nil {
		return MetadataPayload{}, apperr.Wrap(apperr.KindValidation, "delta metadata payload is not valid JSON", err)
	}
	if payload.TenantID == uuid.Nil {
		return MetadataPayload{}, apperr.Validation("delta metadata is missing field tenant_id")
	}
	if payload.SDRID == uuid.Nil {
		return MetadataPayload{}, apperr.Validation("delta metadata is missing field sdr_id")
	}
	if d.Type != DeltaAccountInvalid && payload.Email == "" {
		return MetadataPayload{}, apperr.Validation("delta metadata is missing field email")
	}
	return payload, nil
}

// BatchAnalyticsRequest is the internal analytics submission: cumulative
// engagement counters per prospect, pulled from the sending provider.
type BatchAnalyticsRequest struct {
	SDRID uuid.UUID          `json:"sdrId" binding:"required"`
	Rows  []BatchAnalyticsRow `json:"rows" binding:"required,min=1,dive"`
}

type BatchAnalyticsRow struct {
	Email      string `json:"email" binding:"required,email"`
	OpenCount  int    `json:"open_count" binding:"min=0"`
	ClickCount int    `json:"click_count" binding:"min=0"`
	ReplyCount int    `json:"reply_count" binding:"min=0"`
	HasReplied bool   `json:"has_replied"`
	IsBounced  bool   `json:"is_bounced"`
}

func (r BatchAnalyticsRequest) signalPayload() ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"rows": r.Rows})
	if err != nil {
		return nil, fmt.Errorf("marshal analytics payload: %w", err)
	}
	return payload, nil
}
