package domain

// statusSet is a set of outreach statuses.
type statusSet map[OutreachStatus]struct{}

func setOf(statuses ...OutreachStatus) statusSet {
	set := make(statusSet, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// emailNextStatuses is the forward ("reachable-to") map for the email
// channel: for each source status, the set of legal next statuses. The
// graph is a DAG rooted at UNKNOWN; terminal statuses have no entry.
//
// From UNKNOWN both the not-yet-sent and already-sent paths are reachable
// so that backfilled records can be moved to wherever the provider says
// they actually are.
var emailNextStatuses = map[OutreachStatus]statusSet{
	StatusUnknown:           setOf(StatusProspected, StatusNotSent, StatusQueuedForOutreach, StatusSentOutreach),
	StatusProspected:        setOf(StatusNotSent, StatusQueuedForOutreach, StatusSentOutreach),
	StatusNotSent:           setOf(StatusQueuedForOutreach, StatusSentOutreach),
	StatusQueuedForOutreach: setOf(StatusSentOutreach),
	StatusSentOutreach:      setOf(StatusEmailOpened, StatusAccepted, StatusActiveConvo, StatusUnsubscribed, StatusBounced),
	StatusEmailOpened:       setOf(StatusAccepted, StatusActiveConvo, StatusScheduling, StatusNotInterested, StatusUnsubscribed, StatusDemoSet),
	StatusAccepted:          setOf(StatusActiveConvo, StatusScheduling, StatusNotInterested, StatusUnsubscribed, StatusDemoSet),
	StatusActiveConvo:       setOf(StatusScheduling, StatusNotInterested, StatusUnsubscribed, StatusDemoSet),
	StatusScheduling:        setOf(StatusNotInterested, StatusUnsubscribed, StatusDemoSet),
	StatusDemoSet:           setOf(StatusDemoWon, StatusDemoLost),
}

// emailSourceStatuses is the reverse ("reachable-from") map for the email
// channel: for each target status, the set of source statuses from which
// the transition is legal. Kept as literal data alongside the forward map;
// the two must stay mutually consistent (enforced by tests).
var emailSourceStatuses = map[OutreachStatus]statusSet{
	StatusProspected:        setOf(StatusUnknown),
	StatusNotSent:           setOf(StatusUnknown, StatusProspected),
	StatusQueuedForOutreach: setOf(StatusUnknown, StatusProspected, StatusNotSent),
	StatusSentOutreach:      setOf(StatusUnknown, StatusProspected, StatusNotSent, StatusQueuedForOutreach),
	StatusEmailOpened:       setOf(StatusSentOutreach),
	StatusAccepted:          setOf(StatusSentOutreach, StatusEmailOpened),
	StatusActiveConvo:       setOf(StatusSentOutreach, StatusEmailOpened, StatusAccepted),
	StatusScheduling:        setOf(StatusEmailOpened, StatusAccepted, StatusActiveConvo),
	StatusNotInterested:     setOf(StatusEmailOpened, StatusAccepted, StatusActiveConvo, StatusScheduling),
	StatusUnsubscribed:      setOf(StatusSentOutreach, StatusEmailOpened, StatusAccepted, StatusActiveConvo, StatusScheduling),
	StatusBounced:           setOf(StatusSentOutreach),
	StatusDemoSet:           setOf(StatusEmailOpened, StatusAccepted, StatusActiveConvo, StatusScheduling),
	StatusDemoWon:           setOf(StatusDemoSet),
	StatusDemoLost:          setOf(StatusDemoSet),
}

// linkedinNextStatuses is the forward map for the LinkedIn channel. No open
// tracking and no bounces; ACCEPTED means the connection request was accepted.
var linkedinNextStatuses = map[OutreachStatus]statusSet{
	StatusUnknown:           setOf(StatusProspected, StatusNotSent, StatusQueuedForOutreach, StatusSentOutreach),
	StatusProspected:        setOf(StatusNotSent, StatusQueuedForOutreach, StatusSentOutreach),
	StatusNotSent:           setOf(StatusQueuedForOutreach, StatusSentOutreach),
	StatusQueuedForOutreach: setOf(StatusSentOutreach),
	StatusSentOutreach:      setOf(StatusAccepted, StatusActiveConvo, StatusNotInterested),
	StatusAccepted:          setOf(StatusActiveConvo, StatusScheduling, StatusNotInterested, StatusDemoSet),
	StatusActiveConvo:       setOf(StatusScheduling, StatusNotInterested, StatusDemoSet),
	StatusScheduling:        setOf(StatusNotInterested, StatusDemoSet),
	StatusDemoSet:           setOf(StatusDemoWon, StatusDemoLost),
}

// linkedinSourceStatuses is the reverse map for the LinkedIn channel.
var linkedinSourceStatuses = map[OutreachStatus]statusSet{
	StatusProspected:        setOf(StatusUnknown),
	StatusNotSent:           setOf(StatusUnknown, StatusProspected),
	StatusQueuedForOutreach: setOf(StatusUnknown, StatusProspected, StatusNotSent),
	StatusSentOutreach:      setOf(StatusUnknown, StatusProspected, StatusNotSent, StatusQueuedForOutreach),
	StatusAccepted:          setOf(StatusSentOutreach),
	StatusActiveConvo:       setOf(StatusSentOutreach, StatusAccepted),
	StatusScheduling:        setOf(StatusAccepted, StatusActiveConvo),
	StatusNotInterested:     setOf(StatusSentOutreach, StatusAccepted, StatusActiveConvo, StatusScheduling),
	StatusDemoSet:           setOf(StatusAccepted, StatusActiveConvo, StatusScheduling),
	StatusDemoWon:           setOf(StatusDemoSet),
	StatusDemoLost:          setOf(StatusDemoSet),
}

// TransitionTable holds the static legal-transition maps for one channel.
// Constructed once at startup and never mutated.
type TransitionTable struct {
	channel Channel
	next    map[OutreachStatus]statusSet
	sources map[OutreachStatus]statusSet
}

var transitionTables = map[Channel]*TransitionTable{
	ChannelEmail:    {channel: ChannelEmail, next: emailNextStatuses, sources: emailSourceStatuses},
	ChannelLinkedIn: {channel: ChannelLinkedIn, next: linkedinNextStatuses, sources: linkedinSourceStatuses},
}

// Transitions returns the transition table for a channel. Unrecognized
// channels fall back to the email table.
func Transitions(channel Channel) *TransitionTable {
	if table, ok := transitionTables[channel]; ok {
		return table
	}
	return transitionTables[ChannelEmail]
}

// Channel returns the channel this table governs.
func (t *TransitionTable) Channel() Channel {
	return t.channel
}

// IsValidTransition reports whether moving from one status to another is
// legal on this channel. from==to is not a legal transition; callers must
// treat it as a no-op before consulting the table.
func (t *TransitionTable) IsValidTransition(from, to OutreachStatus) bool {
	if from == to {
		return false
	}
	nexts, ok := t.next[from]
	if !ok {
		return false
	}
	_, ok = nexts[to]
	return ok
}

// NextValidStatuses returns the legal next statuses from a source status,
// in no particular order. Terminal statuses yield an empty slice.
func (t *TransitionTable) NextValidStatuses(from OutreachStatus) []OutreachStatus {
	nexts := t.next[from]
	result := make([]OutreachStatus, 0, len(nexts))
	for s := range nexts {
		result = append(result, s)
	}
	return result
}

// SourceStatuses returns the statuses from which a target is reachable.
func (t *TransitionTable) SourceStatuses(to OutreachStatus) []OutreachStatus {
	sources := t.sources[to]
	result := make([]OutreachStatus, 0, len(sources))
	for s := range sources {
		result = append(result, s)
	}
	return result
}

// forwardEdges exposes the forward map for consistency checks in tests.
func (t *TransitionTable) forwardEdges() map[OutreachStatus]statusSet { return t.next }

// reverseEdges exposes the reverse map for consistency checks in tests.
func (t *TransitionTable) reverseEdges() map[OutreachStatus]statusSet { return t.sources }
