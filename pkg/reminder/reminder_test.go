package reminder

import (
	"testing"
	"time"
)

func TestDueThresholdWindows(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		minutesOut float64
		want       int
		due        bool
	}{
		{15, 15, true},
		{14.5, 15, true},
		{13.5, 0, false}, // between windows
		{10, 10, true},
		{9.2, 10, true},
		{5, 5, true},
		{4.5, 5, true},
		{3, 0, false},
		{0.5, 0, false}, // under a minute: no threshold matches
		{-2, 0, false},  // already started
		{30, 0, false},  // too early
	}
	for _, c := range cases {
		startsAt := now.Add(time.Duration(c.minutesOut * float64(time.Minute)))
		got, due := DueThreshold(startsAt, now)
		if due != c.due || got != c.want {
			t.Errorf("minutesOut=%.1f: got (%d,%v), want (%d,%v)", c.minutesOut, got, due, c.want, c.due)
		}
	}
}

func TestMarkFiredOncePerThreshold(t *testing.T) {
	s := NewScanner(nil, time.Second, nil)
	if !s.markFired(7, 15) {
		t.Fatalf("first firing must be allowed")
	}
	if s.markFired(7, 15) {
		t.Fatalf("repeat firing for same appointment+threshold must be blocked")
	}
	if !s.markFired(7, 10) {
		t.Fatalf("different threshold for same appointment must fire")
	}
	if !s.markFired(8, 15) {
		t.Fatalf("same threshold for different appointment must fire")
	}
}

func TestReminderText(t *testing.T) {
	if ReminderText(5) != "Appointment starting in 5 minutes!" {
		t.Fatalf("unexpected 5min text: %s", ReminderText(5))
	}
	if ReminderText(15) != "Appointment starting in 15 minutes" {
		t.Fatalf("unexpected 15min text: %s", ReminderText(15))
	}
}
