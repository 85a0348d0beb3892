package domain

// OverallStatus is the cross-channel rollup shown to the end user. It is
// never stored per channel; it is derived from the channel statuses.
type OverallStatus string

const (
	OverallProspected    OverallStatus = "PROSPECTED"
	OverallNotInterested OverallStatus = "NOT_INTERESTED"
	OverallSentOutreach  OverallStatus = "SENT_OUTREACH"
	OverallAccepted      OverallStatus = "ACCEPTED"
	OverallActiveConvo   OverallStatus = "ACTIVE_CONVO"
	OverallDemo          OverallStatus = "DEMO"
)

// overallRank orders the rollup vocabulary by pipeline progress. When
// channels disagree the most advanced wins. The order is a policy choice,
// kept in one place so product can adjust it.
var overallRank = map[OverallStatus]int{
	OverallProspected:    0,
	OverallNotInterested: 1,
	OverallSentOutreach:  2,
	OverallAccepted:      3,
	OverallActiveConvo:   4,
	OverallDemo:          5,
}

// collapseToOverall maps every channel substatus into the shared rollup
// vocabulary. Opened collapses to SENT_OUTREACH (an open is not engagement);
// bounces likewise record that outreach went out. Scheduling collapses into
// ACTIVE_CONVO, and all demo outcomes into DEMO.
var collapseToOverall = map[OutreachStatus]OverallStatus{
	StatusUnknown:           OverallProspected,
	StatusProspected:        OverallProspected,
	StatusNotSent:           OverallProspected,
	StatusQueuedForOutreach: OverallSentOutreach,
	StatusSentOutreach:      OverallSentOutreach,
	StatusEmailOpened:       OverallSentOutreach,
	StatusBounced:           OverallSentOutreach,
	StatusAccepted:          OverallAccepted,
	StatusActiveConvo:       OverallActiveConvo,
	StatusScheduling:        OverallActiveConvo,
	StatusDemoSet:           OverallDemo,
	StatusDemoWon:           OverallDemo,
	StatusDemoLost:          OverallDemo,
	StatusNotInterested:     OverallNotInterested,
	StatusUnsubscribed:      OverallNotInterested,
}

// Collapse maps one channel status into the rollup vocabulary.
func Collapse(status OutreachStatus) OverallStatus {
	if overall, ok := collapseToOverall[status]; ok {
		return overall
	}
	return OverallProspected
}

// DeriveOverall computes the rollup status for a prospect from its current
// per-channel statuses. Channels without a status are simply absent from
// the slice. Pure function: same inputs, same output, no writes.
func DeriveOverall(channelStatuses []OutreachStatus) OverallStatus {
	best := OverallProspected
	for _, status := range channelStatuses {
		candidate := Collapse(status)
		if overallRank[candidate] > overallRank[best] {
			best = candidate
		}
	}
	return best
}
