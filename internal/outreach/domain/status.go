// Package domain provides core business rules for the outreach bounded context:
// the per-channel status vocabulary, the legal-transition tables, and the
// cross-channel overall-status rollup.
package domain

// Channel identifies an outreach channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelLinkedIn Channel = "LINKEDIN"
)

// KnownChannels lists every channel the engine reconciles.
var KnownChannels = []Channel{ChannelEmail, ChannelLinkedIn}

// IsKnown reports whether c is a channel the engine understands.
func (c Channel) IsKnown() bool {
	for _, known := range KnownChannels {
		if c == known {
			return true
		}
	}
	return false
}

// OutreachStatus is the per-channel lifecycle state of one prospect's
// contact attempt. The zero value is not meaningful; records with no
// status yet are stored as NULL and surfaced as StatusUnknown.
type OutreachStatus string

const (
	StatusUnknown           OutreachStatus = "UNKNOWN"
	StatusProspected        OutreachStatus = "PROSPECTED"
	StatusNotSent           OutreachStatus = "NOT_SENT"
	StatusQueuedForOutreach OutreachStatus = "QUEUED_FOR_OUTREACH"
	StatusSentOutreach      OutreachStatus = "SENT_OUTREACH"
	StatusEmailOpened       OutreachStatus = "EMAIL_OPENED"
	StatusAccepted          OutreachStatus = "ACCEPTED"
	StatusActiveConvo       OutreachStatus = "ACTIVE_CONVO"
	StatusScheduling        OutreachStatus = "SCHEDULING"
	StatusNotInterested     OutreachStatus = "NOT_INTERESTED"
	StatusUnsubscribed      OutreachStatus = "UNSUBSCRIBED"
	StatusBounced           OutreachStatus = "BOUNCED"
	StatusDemoSet           OutreachStatus = "DEMO_SET"
	StatusDemoWon           OutreachStatus = "DEMO_WON"
	StatusDemoLost          OutreachStatus = "DEMO_LOST"
)

// statusDescriptions is the human-readable label per status, used in
// notification templates and the audit listing API.
var statusDescriptions = map[OutreachStatus]string{
	StatusUnknown:           "Unknown",
	StatusProspected:        "Prospected",
	StatusNotSent:           "Not sent",
	StatusQueuedForOutreach: "Queued for outreach",
	StatusSentOutreach:      "Outreach sent",
	StatusEmailOpened:       "Opened",
	StatusAccepted:          "Accepted",
	StatusActiveConvo:       "Active conversation",
	StatusScheduling:        "Scheduling a call",
	StatusNotInterested:     "Not interested",
	StatusUnsubscribed:      "Unsubscribed",
	StatusBounced:           "Bounced",
	StatusDemoSet:           "Demo set",
	StatusDemoWon:           "Demo won",
	StatusDemoLost:          "Demo lost",
}

// Describe returns the human-readable label for a status.
func (s OutreachStatus) Describe() string {
	if label, ok := statusDescriptions[s]; ok {
		return label
	}
	return string(s)
}

// IsKnown reports whether s is a recognized status value.
func (s OutreachStatus) IsKnown() bool {
	_, ok := statusDescriptions[s]
	return ok
}

// terminalStatuses are states with no outgoing edges; once reached the
// channel record never transitions again.
var terminalStatuses = map[OutreachStatus]bool{
	StatusNotInterested: true,
	StatusUnsubscribed:  true,
	StatusBounced:       true,
	StatusDemoWon:       true,
	StatusDemoLost:      true,
}

// IsTerminal reports whether the status admits no further transitions.
func (s OutreachStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// notableStatuses are the transition targets that warrant an SDR-facing
// notification when landed on via reconciliation.
var notableStatuses = map[OutreachStatus]bool{
	StatusActiveConvo: true,
	StatusScheduling:  true,
	StatusDemoSet:     true,
}

// IsNotable reports whether landing on s should notify the owning SDR.
func (s OutreachStatus) IsNotable() bool {
	return notableStatuses[s]
}

// InteractionState is the channel-agnostic classification of a third-party
// interaction signal, ordered by engagement depth.
type InteractionState string

const (
	InteractionSent    InteractionState = "EMAIL_SENT"
	InteractionOpened  InteractionState = "EMAIL_OPENED"
	InteractionClicked InteractionState = "EMAIL_CLICKED"
	InteractionReplied InteractionState = "EMAIL_REPLIED"
	InteractionBounced InteractionState = "EMAIL_BOUNCED"
)

// SequenceState describes where the prospect sits in the provider's sequence.
type SequenceState string

const (
	SequenceInProgress SequenceState = "IN_PROGRESS"
	SequenceCompleted  SequenceState = "COMPLETED"
	SequenceBounced    SequenceState = "BOUNCED"
)

// interactionTargets maps a normalized interaction state to the candidate
// outreach status the reconciler attempts to apply.
var interactionTargets = map[InteractionState]OutreachStatus{
	InteractionSent:    StatusSentOutreach,
	InteractionOpened:  StatusEmailOpened,
	InteractionClicked: StatusAccepted,
	InteractionReplied: StatusActiveConvo,
	InteractionBounced: StatusBounced,
}

// TargetStatus returns the candidate outreach status for an interaction
// state, and false for unrecognized states.
func TargetStatus(state InteractionState) (OutreachStatus, bool) {
	target, ok := interactionTargets[state]
	return target, ok
}
