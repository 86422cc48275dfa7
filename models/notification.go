package models

import "gorm.io/gorm"

const (
	NotificationAppointment = "appointment"
	NotificationReminder    = "reminder"
	NotificationSystem      = "system"
)

type Notification struct {
	gorm.Model
	UserID uint   `gorm:"index;not null"`
	Kind   string `gorm:"size:20;not null;default:'system'"`
	Title  string `gorm:"size:200;not null"`
	Body   string `gorm:"size:1000"`
	RefID  string `gorm:"size:50"` // appointment or conversation the notice points at
	Read   bool   `gorm:"default:false"`
}
