package chat

import (
	"carebridge/controllers"
	"carebridge/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterPublic wires the endpoints that cannot carry a bearer header:
// the websocket (token travels as a query param) and file downloads.
func RegisterPublic(r *gin.Engine, db *gorm.DB, hub *controllers.Hub) {
	r.GET("/chat/ws/:conversation_id", controllers.ChatWS(db, hub))
	r.GET("/chat/download/:conversation_id/:file_name", controllers.DownloadChatFile())
}

// Register wires the authenticated REST chat surface.
func Register(g *gin.RouterGroup, db *gorm.DB, hub *controllers.Hub) {
	g.GET("/chat/conversations", controllers.ListConversations(db))
	g.GET("/chat/messages/:conversation_id", controllers.GetMessages(db))
	g.POST("/chat/messages/:conversation_id", middleware.RateLimit(), controllers.SendMessage(db, hub))
	g.PUT("/chat/messages/:conversation_id/read", controllers.MarkAllRead(db))
	g.POST("/chat/upload/:conversation_id", controllers.UploadChatFile(db, hub))
}
