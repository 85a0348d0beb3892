package notification

import (
	"fmt"

	"outreach_backend/internal/outreach/domain"
)

// StatusMessage renders the SDR-facing text for a prospect landing on a
// notable status.
func StatusMessage(prospectName, company string, channel domain.Channel, status domain.OutreachStatus) string {
	who := prospectName
	if who == "" {
		who = "A prospect"
	}
	if company != "" {
		who = fmt.Sprintf("%s (%s)", who, company)
	}

	switch status {
	case domain.StatusActiveConvo:
		return fmt.Sprintf("%s replied on %s. You have an active conversation.", who, channelLabel(channel))
	case domain.StatusScheduling:
		return fmt.Sprintf("%s is scheduling a call with you.", who)
	case domain.StatusDemoSet:
		return fmt.Sprintf("%s booked a demo. Nice work.", who)
	default:
		return fmt.Sprintf("%s moved to %s on %s.", who, status.Describe(), channelLabel(channel))
	}
}

// AccountDisconnectedMessage tells the SDR their mailbox stopped working.
func AccountDisconnectedMessage(accountID string) string {
	return fmt.Sprintf("Your connected email account (%s) was disconnected by the provider. Outreach is paused until you reconnect it.", accountID)
}

func channelLabel(channel domain.Channel) string {
	switch channel {
	case domain.ChannelEmail:
		return "email"
	case domain.ChannelLinkedIn:
		return "LinkedIn"
	default:
		return string(channel)
	}
}
