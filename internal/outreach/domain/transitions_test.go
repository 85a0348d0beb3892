package domain

import "testing"

func TestForwardAndReverseMapsAreMutuallyConsistent(t *testing.T) {
	for _, channel := range KnownChannels {
		table := Transitions(channel)

		for from, nexts := range table.forwardEdges() {
			for to := range nexts {
				sources, ok := table.reverseEdges()[to]
				if !ok {
					t.Fatalf("%s: edge %s->%s present in forward map but %s has no reverse entry", channel, from, to, to)
				}
				if _, ok := sources[from]; !ok {
					t.Fatalf("%s: edge %s->%s present in forward map but missing from reverse map", channel, from, to)
				}
			}
		}

		for to, sources := range table.reverseEdges() {
			for from := range sources {
				nexts, ok := table.forwardEdges()[from]
				if !ok {
					t.Fatalf("%s: edge %s->%s present in reverse map but %s has no forward entry", channel, from, to, from)
				}
				if _, ok := nexts[to]; !ok {
					t.Fatalf("%s: edge %s->%s present in reverse map but missing from forward map", channel, from, to)
				}
			}
		}
	}
}

func TestIsValidTransitionMatchesForwardMap(t *testing.T) {
	table := Transitions(ChannelEmail)

	for from, nexts := range table.forwardEdges() {
		for to := range nexts {
			if !table.IsValidTransition(from, to) {
				t.Fatalf("expected %s->%s to be valid", from, to)
			}
		}
	}

	if table.IsValidTransition(StatusActiveConvo, StatusEmailOpened) {
		t.Fatal("expected regression ACTIVE_CONVO->EMAIL_OPENED to be invalid")
	}
	if table.IsValidTransition(StatusDemoWon, StatusDemoSet) {
		t.Fatal("expected transition out of terminal DEMO_WON to be invalid")
	}
}

func TestSameStatusIsNeverAValidTransition(t *testing.T) {
	table := Transitions(ChannelEmail)
	for status := range statusDescriptions {
		if table.IsValidTransition(status, status) {
			t.Fatalf("expected %s->%s to be rejected", status, status)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, channel := range KnownChannels {
		table := Transitions(channel)
		for status := range terminalStatuses {
			if nexts := table.NextValidStatuses(status); len(nexts) != 0 {
				t.Fatalf("%s: terminal status %s has outgoing edges %v", channel, status, nexts)
			}
		}
	}
}

func TestTransitionGraphIsAcyclic(t *testing.T) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)

	for _, channel := range KnownChannels {
		table := Transitions(channel)
		state := map[OutreachStatus]int{}

		var visit func(s OutreachStatus) bool
		visit = func(s OutreachStatus) bool {
			switch state[s] {
			case visiting:
				return false
			case done:
				return true
			}
			state[s] = visiting
			for next := range table.forwardEdges()[s] {
				if !visit(next) {
					return false
				}
			}
			state[s] = done
			return true
		}

		for from := range table.forwardEdges() {
			if !visit(from) {
				t.Fatalf("%s: transition graph contains a cycle through %s", channel, from)
			}
		}
	}
}

func TestUnknownReachesBothUnsentAndSentPaths(t *testing.T) {
	table := Transitions(ChannelEmail)

	if !table.IsValidTransition(StatusUnknown, StatusNotSent) {
		t.Fatal("expected UNKNOWN->NOT_SENT for backfilled unsent records")
	}
	if !table.IsValidTransition(StatusUnknown, StatusSentOutreach) {
		t.Fatal("expected UNKNOWN->SENT_OUTREACH for backfilled already-sent records")
	}
}

func TestSourceStatusesForActiveConvo(t *testing.T) {
	table := Transitions(ChannelEmail)
	sources := table.SourceStatuses(StatusActiveConvo)

	expected := map[OutreachStatus]bool{
		StatusSentOutreach: true,
		StatusEmailOpened:  true,
		StatusAccepted:     true,
	}
	if len(sources) != len(expected) {
		t.Fatalf("expected %d sources for ACTIVE_CONVO, got %v", len(expected), sources)
	}
	for _, s := range sources {
		if !expected[s] {
			t.Fatalf("unexpected source %s for ACTIVE_CONVO", s)
		}
	}
}

func TestInteractionTargetMapping(t *testing.T) {
	cases := []struct {
		state  InteractionState
		target OutreachStatus
	}{
		{InteractionSent, StatusSentOutreach},
		{InteractionOpened, StatusEmailOpened},
		{InteractionClicked, StatusAccepted},
		{InteractionReplied, StatusActiveConvo},
		{InteractionBounced, StatusBounced},
	}

	for _, tc := range cases {
		target, ok := TargetStatus(tc.state)
		if !ok {
			t.Fatalf("expected a target status for %s", tc.state)
		}
		if target != tc.target {
			t.Fatalf("expected %s to target %s, got %s", tc.state, tc.target, target)
		}
	}

	if _, ok := TargetStatus(InteractionState("EMAIL_FORWARDED")); ok {
		t.Fatal("expected unrecognized interaction state to have no target")
	}
}
