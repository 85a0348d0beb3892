// Package events defines the domain events exchanged between modules
// over the in-process bus.
package events

import (
	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/platform/events"
)

const (
	EventProspectStatusChanged = "outreach.prospect.status_changed"
	EventSignalIngested        = "signals.raw.ingested"
	EventAccountDisconnected   = "webhook.account.disconnected"
)

// ProspectStatusChanged is published after a channel outreach record
// successfully moves to a new status.
type ProspectStatusChanged struct {
	events.BaseEvent
	TenantID        uuid.UUID             `json:"tenantId"`
	SDRID           uuid.UUID             `json:"sdrId"`
	ProspectID      uuid.UUID             `json:"prospectId"`
	ChannelRecordID uuid.UUID             `json:"channelRecordId"`
	Channel         domain.Channel        `json:"channel"`
	FromStatus      domain.OutreachStatus `json:"fromStatus"`
	ToStatus        domain.OutreachStatus `json:"toStatus"`
	CausingSignalID *uuid.UUID            `json:"causingSignalId,omitempty"`
}

func NewProspectStatusChanged(tenantID, sdrID, prospectID, recordID uuid.UUID, channel domain.Channel, from, to domain.OutreachStatus, causingSignalID *uuid.UUID) ProspectStatusChanged {
	return ProspectStatusChanged{
		BaseEvent:       events.NewBaseEvent(),
		TenantID:        tenantID,
		SDRID:           sdrID,
		ProspectID:      prospectID,
		ChannelRecordID: recordID,
		Channel:         channel,
		FromStatus:      from,
		ToStatus:        to,
		CausingSignalID: causingSignalID,
	}
}

func (ProspectStatusChanged) EventName() string { return EventProspectStatusChanged }

// SignalIngested is published when a raw interaction signal is stored for
// the first time. Duplicate submissions do not emit the event again.
type SignalIngested struct {
	events.BaseEvent
	TenantID    uuid.UUID `json:"tenantId"`
	SDRID       uuid.UUID `json:"sdrId"`
	RawSignalID uuid.UUID `json:"rawSignalId"`
	Source      string    `json:"source"`
}

func NewSignalIngested(tenantID, sdrID, rawID uuid.UUID, source string) SignalIngested {
	return SignalIngested{
		BaseEvent:   events.NewBaseEvent(),
		TenantID:    tenantID,
		SDRID:       sdrID,
		RawSignalID: rawID,
		Source:      source,
	}
}

func (SignalIngested) EventName() string { return EventSignalIngested }

// AccountDisconnected is published when the email provider reports that a
// connected mailbox became invalid and needs to be re-linked.
type AccountDisconnected struct {
	events.BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	SDRID     uuid.UUID `json:"sdrId"`
	AccountID string    `json:"accountId"`
}

func NewAccountDisconnected(tenantID, sdrID uuid.UUID, accountID string) AccountDisconnected {
	return AccountDisconnected{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenantID,
		SDRID:     sdrID,
		AccountID: accountID,
	}
}

func (AccountDisconnected) EventName() string { return EventAccountDisconnected }
