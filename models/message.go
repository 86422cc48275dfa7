package models

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// ChatMessage is one communication inside a doctor-patient conversation.
// Identity is a uuid string, stable across the push and pull delivery paths,
// and unique within a conversation. Messages are never hard-deleted; the
// Deleted flag flips instead.
type ChatMessage struct {
	ID             string    `gorm:"size:36;primaryKey" json:"id"`
	ConversationID string    `gorm:"size:50;index;not null" json:"conversation_id"`
	AppointmentID  string    `gorm:"size:20;index" json:"appointment_id,omitempty"`
	SenderID       string    `gorm:"size:20;not null" json:"sender_id"`
	SenderName     string    `gorm:"size:120" json:"sender_name,omitempty"`
	SenderRole     string    `gorm:"size:20;not null" json:"sender_role"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	MessageType    string    `gorm:"size:20;not null;default:'text'" json:"message_type"`
	FileURL        string    `gorm:"size:500" json:"file_url,omitempty"`
	ReadBy         []string  `gorm:"serializer:json" json:"read_by"`
	Timestamp      time.Time `gorm:"index;autoCreateTime" json:"timestamp"`
	Deleted        bool      `gorm:"default:false" json:"deleted"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ReadByUser reports whether uid already acknowledged the message.
func (m *ChatMessage) ReadByUser(uid string) bool {
	for _, r := range m.ReadBy {
		if r == uid {
			return true
		}
	}
	return false
}

// PairConversationID derives the stable thread identifier for a user pair.
// IDs are sorted so either participant produces the same value.
func PairConversationID(a, b uint) string {
	x, y := strconv.Itoa(int(a)), strconv.Itoa(int(b))
	parts := []string{x, y}
	sort.Strings(parts)
	return parts[0] + "_" + parts[1]
}
