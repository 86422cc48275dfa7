package models

import "gorm.io/gorm"

// MedicalRecord indexes a document in a patient's file. Chat uploads with a
// medical-document extension are mirrored here so they stay reachable after
// the conversation scrolls away.
type MedicalRecord struct {
	gorm.Model
	PatientID        uint   `gorm:"index;not null"`
	RecordType       string `gorm:"size:40;not null;default:'other'"`
	Title            string `gorm:"size:200;not null"`
	Description      string `gorm:"size:500"`
	FilePath         string `gorm:"size:500;not null"`
	OriginalFilename string `gorm:"size:255"`
	FileSize         int64
	UploadedBy       uint
	AppointmentID    string `gorm:"size:20;index"` // set when filed against a visit
	Source           string `gorm:"size:20"`       // "chat" or "upload"
	ConversationID   string `gorm:"size:50;index"`
}
