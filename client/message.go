package client

import (
	"encoding/json"
	"time"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message mirrors the backend chat record. Identity is stable across the
// push and pull delivery paths and unique within a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AppointmentID  string    `json:"appointment_id,omitempty"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	SenderRole     string    `json:"sender_role"`
	Message        string    `json:"message"`
	MessageType    string    `json:"message_type"`
	FileURL        string    `json:"file_url,omitempty"`
	ReadBy         []string  `json:"read_by"`
	Timestamp      time.Time `json:"timestamp"`
	Deleted        bool      `json:"deleted"`
}

// AppointmentSummary is the per-appointment slice of a conversation entry.
type AppointmentSummary struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Conversation is one thread with a single partner, as listed by the
// conversations endpoint.
type Conversation struct {
	ConversationID          string               `json:"conversation_id"`
	PartnerID               string               `json:"partner_id"`
	PartnerName             string               `json:"partner_name"`
	PartnerRole             string               `json:"partner_role"`
	PartnerMobile           string               `json:"partner_mobile"`
	LastMessage             string               `json:"last_message"`
	LastMessageTime         time.Time            `json:"last_message_time"`
	UnreadCount             int                  `json:"unread_count"`
	ChatEnabled             bool                 `json:"chat_enabled"`
	Appointments            []AppointmentSummary `json:"appointments"`
	TotalAppointments       int                  `json:"total_appointments"`
	ActiveAppointmentID     string               `json:"active_appointment_id"`
	ActiveAppointmentStatus string               `json:"active_appointment_status"`
}

// DecodeFrame parses one socket frame into a Message. Several payload
// shapes have been emitted by backend versions over time, so the decoder
// sniffs in order: a typed envelope {"type":"message","message":{...}},
// a bare message object (has a "message" field), then anything carrying a
// "sender_id". Frames matching none of these are dropped, not rejected.
func DecodeFrame(data []byte) (Message, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Message{}, false
	}
	if raw, ok := probe["type"]; ok {
		var kind string
		if json.Unmarshal(raw, &kind) == nil && kind == "message" {
			if inner, ok := probe["message"]; ok {
				return decodeMessage(inner)
			}
			return Message{}, false
		}
	}
	if _, ok := probe["message"]; ok {
		return decodeMessage(data)
	}
	if _, ok := probe["sender_id"]; ok {
		return decodeMessage(data)
	}
	return Message{}, false
}

func decodeMessage(data []byte) (Message, bool) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, false
	}
	if m.ID == "" {
		// older backends keyed messages on "_id"
		var legacy struct {
			ID string `json:"_id"`
		}
		if json.Unmarshal(data, &legacy) == nil {
			m.ID = legacy.ID
		}
	}
	if m.ID == "" {
		return Message{}, false
	}
	return m, true
}
