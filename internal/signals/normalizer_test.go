package signals

import (
	"encoding/json"
	"testing"

	"outreach_backend/internal/outreach/domain"
)

func batchSignal(t *testing.T, rows []batchRow) RawSignal {
	t.Helper()
	payload, err := json.Marshal(batchPayload{Rows: rows})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return RawSignal{Source: SourceBatchAnalytics, Payload: payload}
}

func TestNormalizeBatchRowPrecedence(t *testing.T) {
	cases := []struct {
		name            string
		row             batchRow
		wantInteraction domain.InteractionState
		wantSequence    domain.SequenceState
	}{
		{
			name:            "reply beats everything",
			row:             batchRow{Email: "p@x.com", OpenCount: 5, ClickCount: 3, ReplyCount: 1, IsBounced: true},
			wantInteraction: domain.InteractionReplied,
			wantSequence:    domain.SequenceCompleted,
		},
		{
			name:            "reply flag counts without a reply total",
			row:             batchRow{Email: "p@x.com", OpenCount: 2, HasReplied: true, IsBounced: true},
			wantInteraction: domain.InteractionReplied,
			wantSequence:    domain.SequenceCompleted,
		},
		{
			name:            "bounce overrides clicks when there is no reply",
			row:             batchRow{Email: "p@x.com", OpenCount: 2, ClickCount: 1, IsBounced: true},
			wantInteraction: domain.InteractionBounced,
			wantSequence:    domain.SequenceBounced,
		},
		{
			name:            "click beats open",
			row:             batchRow{Email: "p@x.com", OpenCount: 4, ClickCount: 1},
			wantInteraction: domain.InteractionClicked,
			wantSequence:    domain.SequenceInProgress,
		},
		{
			name:            "open beats sent",
			row:             batchRow{Email: "p@x.com", OpenCount: 1},
			wantInteraction: domain.InteractionOpened,
			wantSequence:    domain.SequenceInProgress,
		},
		{
			name:            "bare row is a send",
			row:             batchRow{Email: "p@x.com"},
			wantInteraction: domain.InteractionSent,
			wantSequence:    domain.SequenceInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := NormalizeEntries(batchSignal(t, []batchRow{tc.row}))
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0].Interaction != tc.wantInteraction {
				t.Errorf("interaction = %s, want %s", entries[0].Interaction, tc.wantInteraction)
			}
			if entries[0].Sequence != tc.wantSequence {
				t.Errorf("sequence = %s, want %s", entries[0].Sequence, tc.wantSequence)
			}
		})
	}
}

func TestNormalizeLowercasesEmails(t *testing.T) {
	entries, err := NormalizeEntries(batchSignal(t, []batchRow{{Email: "Jane.Doe@Example.COM", OpenCount: 1}}))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if entries[0].Email != "jane.doe@example.com" {
		t.Fatalf("email = %s, want lowercase", entries[0].Email)
	}
}

func TestNormalizeSkipsRowsWithoutEmail(t *testing.T) {
	entries, err := NormalizeEntries(batchSignal(t, []batchRow{
		{Email: "", OpenCount: 3},
		{Email: "p@x.com", OpenCount: 1},
	}))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the empty-email row to be dropped, got %d entries", len(entries))
	}
}

func TestNormalizeWebhookDeltas(t *testing.T) {
	cases := map[string]domain.InteractionState{
		"message.created":      domain.InteractionSent,
		"message.opened":       domain.InteractionOpened,
		"message.link_clicked": domain.InteractionClicked,
		"thread.replied":       domain.InteractionReplied,
		"message.bounced":      domain.InteractionBounced,
	}
	for deltaType, want := range cases {
		payload, _ := json.Marshal(webhookPayload{Type: deltaType, Email: "p@x.com"})
		entries, err := NormalizeEntries(RawSignal{Source: SourceEmailWebhook, Payload: payload})
		if err != nil {
			t.Fatalf("normalize %s: %v", deltaType, err)
		}
		if entries[0].Interaction != want {
			t.Errorf("%s: interaction = %s, want %s", deltaType, entries[0].Interaction, want)
		}
	}
}

func TestNormalizeWebhookMissingEmailFails(t *testing.T) {
	payload, _ := json.Marshal(webhookPayload{Type: "message.opened"})
	if _, err := NormalizeEntries(RawSignal{Source: SourceEmailWebhook, Payload: payload}); err == nil {
		t.Fatal("expected error for missing email")
	}
}

func TestNormalizeUnknownDeltaTypeFails(t *testing.T) {
	payload, _ := json.Marshal(webhookPayload{Type: "message.starred", Email: "p@x.com"})
	if _, err := NormalizeEntries(RawSignal{Source: SourceEmailWebhook, Payload: payload}); err == nil {
		t.Fatal("expected error for unknown delta type")
	}
}
