package reminder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"carebridge/models"

	"gorm.io/gorm"
)

// Thresholds are the minutes-before-start marks at which a reminder fires.
var Thresholds = []int{15, 10, 5}

// DueThreshold returns the threshold an appointment starting at startsAt has
// just crossed, if any. A threshold t is due while minutes-until lies in
// (t-2, t]; past-start appointments never fire.
func DueThreshold(startsAt, now time.Time) (int, bool) {
	minutesUntil := int(startsAt.Sub(now).Minutes())
	for _, t := range Thresholds {
		if minutesUntil <= t && minutesUntil > t-2 && minutesUntil > 0 {
			return t, true
		}
	}
	return 0, false
}

// ReminderText phrases the countdown the way the dashboards display it.
func ReminderText(threshold int) string {
	if threshold <= 5 {
		return fmt.Sprintf("Appointment starting in %d minutes!", threshold)
	}
	return fmt.Sprintf("Appointment starting in %d minutes", threshold)
}

// Scanner walks approved appointments on a fixed tick and fires 15/10/5
// minute reminders, each at most once per appointment. A fired reminder
// becomes a Notification for both participants plus a system chat message in
// their conversation (via announce).
type Scanner struct {
	db       *gorm.DB
	interval time.Duration
	loc      *time.Location
	announce func(conversationID, appointmentID, text string)

	mu    sync.Mutex
	fired map[string]bool
}

func NewScanner(db *gorm.DB, interval time.Duration, announce func(conversationID, appointmentID, text string)) *Scanner {
	return &Scanner{
		db:       db,
		interval: interval,
		loc:      time.Local,
		announce: announce,
		fired:    map[string]bool{},
	}
}

// Run blocks until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.checkOnce(now)
		}
	}
}

func (s *Scanner) checkOnce(now time.Time) {
	var appts []models.Appointment
	if err := s.db.Where("status = ?", models.AppointmentApproved).Find(&appts).Error; err != nil {
		log.Printf("[reminder] query failed: %v", err)
		return
	}

	for i := range appts {
		apt := &appts[i]
		startsAt, err := apt.StartsAt(s.loc)
		if err != nil {
			log.Printf("[reminder] %v", err)
			continue
		}
		threshold, ok := DueThreshold(startsAt, now)
		if !ok {
			continue
		}
		if !s.markFired(apt.ID, threshold) {
			continue
		}
		s.fire(apt, threshold)
	}
}

// markFired records the appointment/threshold pair; false means it already
// fired earlier.
func (s *Scanner) markFired(appointmentID uint, threshold int) bool {
	key := fmt.Sprintf("%d:%d", appointmentID, threshold)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired[key] {
		return false
	}
	s.fired[key] = true
	return true
}

func (s *Scanner) fire(apt *models.Appointment, threshold int) {
	text := ReminderText(threshold)
	refID := fmt.Sprintf("%d", apt.ID)

	for _, uid := range []uint{apt.PatientID, apt.DoctorID} {
		n := models.Notification{
			UserID: uid,
			Kind:   models.NotificationReminder,
			Title:  text,
			Body:   fmt.Sprintf("Scheduled for %s at %s", apt.Date, apt.Time),
			RefID:  refID,
		}
		if err := s.db.Create(&n).Error; err != nil {
			log.Printf("[reminder] notification insert failed: %v", err)
		}
	}

	if s.announce != nil {
		convID := models.PairConversationID(apt.PatientID, apt.DoctorID)
		s.announce(convID, refID, text)
	}
	log.Printf("[reminder] appointment=%d threshold=%dmin", apt.ID, threshold)
}
