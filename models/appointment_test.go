package models

import (
	"testing"
	"time"
)

func TestAppointmentTransitions(t *testing.T) {
	allowed := [][2]string{
		{AppointmentPending, AppointmentApproved},
		{AppointmentPending, AppointmentRejected},
		{AppointmentPending, AppointmentCancelled},
		{AppointmentApproved, AppointmentCompleted},
		{AppointmentApproved, AppointmentCancelled},
		{AppointmentApproved, AppointmentMissed},
	}
	for _, tr := range allowed {
		if !ValidAppointmentTransition(tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	blocked := [][2]string{
		{AppointmentRejected, AppointmentApproved},
		{AppointmentCompleted, AppointmentPending},
		{AppointmentPending, AppointmentCompleted},
		{AppointmentCancelled, AppointmentApproved},
	}
	for _, tr := range blocked {
		if ValidAppointmentTransition(tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be blocked", tr[0], tr[1])
		}
	}
}

func TestChatEnabled(t *testing.T) {
	if !ChatEnabled(AppointmentApproved) || !ChatEnabled(AppointmentCompleted) {
		t.Fatalf("approved and completed appointments must enable chat")
	}
	for _, s := range []string{AppointmentPending, AppointmentRejected, AppointmentCancelled, AppointmentMissed} {
		if ChatEnabled(s) {
			t.Errorf("status %s must not enable chat", s)
		}
	}
}

func TestStartsAt(t *testing.T) {
	a := Appointment{Date: "2026-09-01", Time: "14:30"}
	got, err := a.StartsAt(time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	bad := Appointment{Date: "tomorrow", Time: "noon"}
	if _, err := bad.StartsAt(time.UTC); err == nil {
		t.Fatalf("expected error for malformed schedule")
	}
}

func TestPairConversationID(t *testing.T) {
	if PairConversationID(3, 7) != PairConversationID(7, 3) {
		t.Fatalf("conversation id must not depend on argument order")
	}
	if PairConversationID(3, 7) != "3_7" {
		t.Fatalf("unexpected id: %s", PairConversationID(3, 7))
	}
}
