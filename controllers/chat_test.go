package controllers

import "testing"

func TestConversationParts(t *testing.T) {
	parts, ok := conversationParts("3_7")
	if !ok || parts[0] != "3" || parts[1] != "7" {
		t.Fatalf("expected [3 7], got %v ok=%v", parts, ok)
	}
	for _, bad := range []string{"", "3", "3_", "_7", "3_7_9"} {
		if _, ok := conversationParts(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestIsParticipant(t *testing.T) {
	if !isParticipant("3_7", "3") || !isParticipant("3_7", "7") {
		t.Fatalf("both members of the pair are participants")
	}
	if isParticipant("3_7", "5") {
		t.Fatalf("outsider must not be a participant")
	}
	if isParticipant("bogus", "3") {
		t.Fatalf("malformed id must never grant access")
	}
}
