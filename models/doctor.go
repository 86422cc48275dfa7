package models

import "gorm.io/gorm"

const (
	EnrollmentPending  = "pending"
	EnrollmentApproved = "approved"
	EnrollmentRejected = "rejected"
)

// DoctorProfile holds the enrollment data a user submits to practice on the
// platform. Only approved profiles are listed to patients.
type DoctorProfile struct {
	gorm.Model
	UserID          uint   `gorm:"uniqueIndex;not null"`
	Specialization  string `gorm:"size:120;not null"`
	Qualifications  string `gorm:"size:500"`
	ExperienceYears int
	ConsultationFee float64
	Bio             string `gorm:"size:1000"`
	Status          string `gorm:"size:20;not null;default:'pending';index"`
}
