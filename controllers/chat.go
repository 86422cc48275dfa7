package controllers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"carebridge/middleware"
	"carebridge/models"
	"carebridge/pkg/cache"
	"carebridge/pkg/config"
	"carebridge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// conversationParts splits a "<a>_<b>" conversation id into its two user
// ids. Anything else is malformed.
func conversationParts(conversationID string) ([]string, bool) {
	parts := strings.Split(conversationID, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	return parts, true
}

func isParticipant(conversationID, uid string) bool {
	parts, ok := conversationParts(conversationID)
	if !ok {
		return false
	}
	return parts[0] == uid || parts[1] == uid
}

// senderNameFor resolves a user id to a display name through the default
// cache; every history read would otherwise hit the users table per message.
func senderNameFor(db *gorm.DB, uid string) string {
	if uid == models.RoleSystem {
		return "System"
	}
	key := cache.KeyFromStrings("sender-name", uid)
	if name, ok := cache.Default().GetString(key); ok {
		return name
	}
	name := "Unknown"
	id, err := strconv.Atoi(uid)
	if err == nil {
		var user models.User
		if err := db.First(&user, id).Error; err == nil {
			name = user.Name
		}
	}
	cache.Default().Set(key, name, time.Duration(config.SenderCacheTTLSeconds)*time.Second)
	return name
}

// PostSystemMessage drops a system-sender message into a conversation and
// pushes it to attached sockets. Used for appointment status changes and
// reminders.
func PostSystemMessage(db *gorm.DB, hub *Hub, conversationID, appointmentID, text string) {
	msg := models.ChatMessage{
		ConversationID: conversationID,
		AppointmentID:  appointmentID,
		SenderID:       models.RoleSystem,
		SenderName:     "System",
		SenderRole:     models.RoleSystem,
		Message:        text,
		MessageType:    models.MessageTypeSystem,
		ReadBy:         []string{},
		Timestamp:      time.Now().UTC(),
	}
	if err := db.Create(&msg).Error; err != nil {
		log.Printf("[chat] system message insert failed: %v", err)
		return
	}
	hub.Broadcast(conversationID, &msg)
}

// ListConversations returns one entry per partner the caller has
// appointments with: partner identity, enablement, last message summary,
// unread count and the appointment history backing the thread.
func ListConversations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uidStr := uidRaw.(string)
		uid64, _ := strconv.ParseUint(uidStr, 10, 64)
		uid := uint(uid64)

		var appts []models.Appointment
		if err := db.Where("patient_id = ? OR doctor_id = ?", uid, uid).Find(&appts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		// group by partner: one conversation per doctor-patient pair
		partnerAppts := map[uint][]models.Appointment{}
		for _, apt := range appts {
			partner := apt.DoctorID
			if apt.PatientID != uid {
				partner = apt.PatientID
			}
			if partner == 0 || partner == uid {
				continue
			}
			partnerAppts[partner] = append(partnerAppts[partner], apt)
		}

		type convEntry struct {
			payload  gin.H
			lastTime time.Time
		}
		entries := make([]convEntry, 0, len(partnerAppts))

		for partner, apts := range partnerAppts {
			conversationID := models.PairConversationID(uid, partner)

			var partnerUser models.User
			partnerName, partnerRole, partnerMobile := "Unknown", models.RolePatient, ""
			if err := db.First(&partnerUser, partner).Error; err == nil {
				partnerName = partnerUser.Name
				partnerRole = partnerUser.Role
				partnerMobile = partnerUser.Mobile
			}

			var lastMsg models.ChatMessage
			hasLast := db.Where("conversation_id = ? AND deleted = ?", conversationID, false).
				Order("timestamp DESC").First(&lastMsg).Error == nil

			var unread int64
			db.Model(&models.ChatMessage{}).
				Where("conversation_id = ? AND deleted = ? AND sender_id <> ?", conversationID, false, uidStr).
				Where("read_by NOT LIKE ?", `%"`+uidStr+`"%`).
				Count(&unread)

			chatEnabled := false
			var latest, latestApproved *models.Appointment
			summaries := make([]gin.H, 0, len(apts))
			for i := range apts {
				apt := &apts[i]
				if models.ChatEnabled(apt.Status) {
					chatEnabled = true
					if latestApproved == nil || apt.Date > latestApproved.Date {
						latestApproved = apt
					}
				}
				if latest == nil || apt.Date > latest.Date {
					latest = apt
				}
				summaries = append(summaries, gin.H{
					"id":     apt.ID,
					"status": apt.Status,
					"date":   apt.Date,
					"time":   apt.Time,
				})
			}
			active := latestApproved
			if active == nil {
				active = latest
			}

			lastText := "No messages yet"
			var lastTime time.Time
			if hasLast {
				lastText = lastMsg.Message
				lastTime = lastMsg.Timestamp
			} else if active != nil {
				if t, err := active.StartsAt(time.Local); err == nil {
					lastTime = t
				}
			}

			payload := gin.H{
				"conversation_id":    conversationID,
				"partner_id":         strconv.Itoa(int(partner)),
				"partner_name":       partnerName,
				"partner_role":       partnerRole,
				"partner_mobile":     partnerMobile,
				"last_message":       lastText,
				"last_message_time":  lastTime,
				"unread_count":       unread,
				"chat_enabled":       chatEnabled,
				"appointments":       summaries,
				"total_appointments": len(apts),
			}
			if active != nil {
				payload["active_appointment_id"] = strconv.Itoa(int(active.ID))
				payload["active_appointment_status"] = active.Status
			}
			entries = append(entries, convEntry{payload: payload, lastTime: lastTime})
		}

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[j].lastTime.Before(entries[i].lastTime)
		})

		result := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			result = append(result, e.payload)
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetMessages returns the full ordered history of one conversation.
func GetMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid := uidRaw.(string)
		conversationID := c.Param("conversation_id")

		if _, ok := conversationParts(conversationID); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid conversation id"})
			return
		}
		if !isParticipant(conversationID, uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not part of this conversation"})
			return
		}

		var msgs []models.ChatMessage
		if err := db.Where("conversation_id = ? AND deleted = ?", conversationID, false).
			Order("timestamp ASC").Find(&msgs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		result := make([]models.ChatMessage, 0, len(msgs))
		for _, m := range msgs {
			if strings.TrimSpace(m.Message) == "" {
				continue
			}
			if m.SenderName == "" {
				m.SenderName = senderNameFor(db, m.SenderID)
			}
			result = append(result, m)
		}
		c.JSON(http.StatusOK, result)
	}
}

// SendMessage creates one message over REST and pushes it to attached
// sockets. The response body is the stored record, so the sender can append
// it locally without waiting for its own socket echo.
func SendMessage(db *gorm.DB, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid := uidRaw.(string)
		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)
		conversationID := c.Param("conversation_id")

		if !isParticipant(conversationID, uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not part of this conversation"})
			return
		}

		var body struct {
			Message       string `json:"message"`
			MessageType   string `json:"message_type"`
			FileURL       string `json:"file_url"`
			AppointmentID string `json:"appointment_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "message is required"})
			return
		}
		if !middleware.DuplicateGuard(uid, body.Message) {
			c.JSON(http.StatusTooManyRequests, gin.H{"msg": "duplicate message"})
			return
		}
		if body.MessageType == "" {
			body.MessageType = models.MessageTypeText
		}

		msg := models.ChatMessage{
			ConversationID: conversationID,
			AppointmentID:  body.AppointmentID,
			SenderID:       uid,
			SenderName:     senderNameFor(db, uid),
			SenderRole:     role,
			Message:        body.Message,
			MessageType:    body.MessageType,
			FileURL:        body.FileURL,
			ReadBy:         []string{uid},
			Timestamp:      time.Now().UTC(),
		}
		if err := db.Create(&msg).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save message"})
			return
		}

		hub.Broadcast(conversationID, &msg)
		c.JSON(http.StatusOK, msg)
	}
}

// MarkAllRead adds the caller to read_by of every message they have not
// acknowledged yet, excluding their own.
func MarkAllRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid := uidRaw.(string)
		conversationID := c.Param("conversation_id")

		if !isParticipant(conversationID, uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not part of this conversation"})
			return
		}

		var msgs []models.ChatMessage
		if err := db.Where("conversation_id = ? AND sender_id <> ?", conversationID, uid).
			Where("read_by NOT LIKE ?", `%"`+uid+`"%`).Find(&msgs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		modified := 0
		for i := range msgs {
			if msgs[i].ReadByUser(uid) {
				continue
			}
			msgs[i].ReadBy = append(msgs[i].ReadBy, uid)
			if err := db.Model(&msgs[i]).Update("read_by", msgs[i].ReadBy).Error; err != nil {
				log.Printf("[chat] mark read failed for %s: %v", msgs[i].ID, err)
				continue
			}
			modified++
		}
		c.JSON(http.StatusOK, gin.H{"modified_count": modified})
	}
}

// UploadChatFile accepts a multipart upload (field "file"), stores it under
// the conversation's directory, records it as a file-type message and
// broadcasts it. Medical-document extensions are mirrored into the
// patient's records.
func UploadChatFile(db *gorm.DB, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid := uidRaw.(string)
		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)
		conversationID := c.Param("conversation_id")

		if !isParticipant(conversationID, uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not part of this conversation"})
			return
		}

		release := middleware.AcquireUserSlot(uid)
		defer release()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "file field is required"})
			return
		}

		chatDir := filepath.Join(config.UploadDir, "chat", conversationID)
		if err := os.MkdirAll(chatDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to prepare storage"})
			return
		}

		storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
		dst := filepath.Join(chatDir, storedName)
		if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save file"})
			return
		}
		fileURL := fmt.Sprintf("/chat/download/%s/%s", conversationID, storedName)

		msgType := models.MessageTypeFile
		if utils.IsImage(fileHeader.Filename) {
			msgType = models.MessageTypeImage
		}
		msg := models.ChatMessage{
			ConversationID: conversationID,
			SenderID:       uid,
			SenderName:     senderNameFor(db, uid),
			SenderRole:     role,
			Message:        fileHeader.Filename,
			MessageType:    msgType,
			FileURL:        fileURL,
			ReadBy:         []string{uid},
			Timestamp:      time.Now().UTC(),
		}
		if err := db.Create(&msg).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save message"})
			return
		}

		if utils.IsMedicalDocument(fileHeader.Filename) {
			mirrorToMedicalRecords(db, conversationID, uid, role, fileHeader.Filename, fileURL, fileHeader.Size)
		}

		hub.Broadcast(conversationID, &msg)
		c.JSON(http.StatusOK, msg)
	}
}

// mirrorToMedicalRecords files a chat upload into the patient's record list.
// The patient is the non-doctor participant; best-effort, failures only log.
func mirrorToMedicalRecords(db *gorm.DB, conversationID, uid, role, filename, fileURL string, size int64) {
	parts, ok := conversationParts(conversationID)
	if !ok {
		return
	}
	patientID := uid
	if role == models.RoleDoctor {
		patientID = parts[0]
		if parts[0] == uid {
			patientID = parts[1]
		}
	}
	pid, err := strconv.Atoi(patientID)
	if err != nil {
		return
	}
	uploader, _ := strconv.Atoi(uid)
	rec := models.MedicalRecord{
		PatientID:        uint(pid),
		RecordType:       "other",
		Title:            "Chat: " + filename,
		Description:      "Document shared in a chat conversation",
		FilePath:         fileURL,
		OriginalFilename: filename,
		FileSize:         size,
		UploadedBy:       uint(uploader),
		Source:           "chat",
		ConversationID:   conversationID,
	}
	if err := db.Create(&rec).Error; err != nil {
		log.Printf("[chat] medical record mirror failed: %v", err)
	}
}

// DownloadChatFile serves a stored chat upload.
func DownloadChatFile() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversation_id")
		fileName := filepath.Base(c.Param("file_name"))
		if _, ok := conversationParts(conversationID); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid conversation id"})
			return
		}
		path := filepath.Join(config.UploadDir, "chat", conversationID, fileName)
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "file not found"})
			return
		}
		c.File(path)
	}
}
