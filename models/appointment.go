package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	AppointmentPending   = "pending"
	AppointmentApproved  = "approved"
	AppointmentRejected  = "rejected"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentMissed    = "missed"
)

type Appointment struct {
	gorm.Model
	PatientID uint   `gorm:"index;not null"`
	DoctorID  uint   `gorm:"index;not null"`
	Date      string `gorm:"size:10;not null"` // YYYY-MM-DD
	Time      string `gorm:"size:5;not null"`  // HH:MM, 24h
	Reason    string `gorm:"size:500"`
	Status    string `gorm:"size:20;not null;default:'pending';index"`
	Note      string `gorm:"size:1000"` // approval/rejection note from the doctor
	Feedback  string `gorm:"size:1000"`
	Rating    int
}

// allowed status transitions; booking starts at pending
var appointmentTransitions = map[string][]string{
	AppointmentPending:  {AppointmentApproved, AppointmentRejected, AppointmentCancelled},
	AppointmentApproved: {AppointmentCompleted, AppointmentCancelled, AppointmentMissed},
}

func ValidAppointmentTransition(from, to string) bool {
	for _, s := range appointmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ChatEnabled reports whether a given appointment status unlocks messaging
// between its participants.
func ChatEnabled(status string) bool {
	return status == AppointmentApproved || status == AppointmentCompleted
}

// StartsAt parses the Date and Time fields into a wall-clock instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment %d has invalid schedule %q %q: %w", a.ID, a.Date, a.Time, err)
	}
	return t, nil
}
