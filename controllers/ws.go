package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"carebridge/middleware"
	"carebridge/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

// wsInbound is the frame a participant sends over the live socket. Sender
// identity always comes from the token, never from the frame.
type wsInbound struct {
	AppointmentID string `json:"appointment_id"`
	Message       string `json:"message"`
	MessageType   string `json:"message_type"`
	FileURL       string `json:"file_url"`
}

// ChatWS is the live push channel for one conversation. Authenticated via
// ?token=JWT (browsers cannot set headers on websocket dials). Every frame
// received is persisted and broadcast to all attached participants,
// including the sender.
func ChatWS(db *gorm.DB, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.Query("token"))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
			return
		}
		uid, role, _, err := middleware.ParseToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		conversationID := c.Param("conversation_id")
		if !isParticipant(conversationID, uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not part of this conversation"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}
		defer conn.Close()

		// Keepalive: read deadline refreshed by pongs
		conn.SetReadLimit(1 << 20) // 1MB
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})

		hub.Add(conversationID, conn)
		defer hub.Remove(conversationID, conn)
		log.Printf("[ws] connected user=%s conversation=%s", uid, conversationID)

		senderName := senderNameFor(db, uid)

		for {
			if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
				return
			}
			mt, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("[ws] read closed user=%s: %v", uid, err)
				return
			}
			if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
				continue
			}

			var in wsInbound
			if err := json.Unmarshal(data, &in); err != nil || strings.TrimSpace(in.Message) == "" {
				// tolerate malformed frames, the poll channel covers gaps
				continue
			}
			if in.MessageType == "" {
				in.MessageType = models.MessageTypeText
			}

			msg := models.ChatMessage{
				ConversationID: conversationID,
				AppointmentID:  in.AppointmentID,
				SenderID:       uid,
				SenderName:     senderName,
				SenderRole:     role,
				Message:        in.Message,
				MessageType:    in.MessageType,
				FileURL:        in.FileURL,
				ReadBy:         []string{uid},
				Timestamp:      time.Now().UTC(),
			}
			if err := db.Create(&msg).Error; err != nil {
				log.Printf("[ws] persist failed: %v", err)
				continue
			}

			hub.Broadcast(conversationID, &msg)
		}
	}
}
