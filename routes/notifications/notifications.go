package notifications

import (
	"carebridge/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register wires the notification inbox (protected group).
func Register(g *gin.RouterGroup, db *gorm.DB) {
	g.GET("/notifications", controllers.ListNotifications(db))
	g.PUT("/notifications/:notification_id/read", controllers.MarkNotificationRead(db))
	g.DELETE("/notifications/:notification_id", controllers.DeleteNotification(db))
	g.DELETE("/notifications", controllers.ClearNotifications(db))
}
