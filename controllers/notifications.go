package controllers

import (
	"net/http"
	"strconv"

	"carebridge/middleware"
	"carebridge/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		var notes []models.Notification
		if err := db.Where("user_id = ?", uid).Order("created_at DESC").Limit(100).Find(&notes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		result := make([]gin.H, 0, len(notes))
		for _, n := range notes {
			result = append(result, gin.H{
				"id":         n.ID,
				"kind":       n.Kind,
				"title":      n.Title,
				"body":       n.Body,
				"ref_id":     n.RefID,
				"read":       n.Read,
				"created_at": n.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, result)
	}
}

func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))
		id, _ := strconv.Atoi(c.Param("notification_id"))

		res := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", id, uid).
			Update("read", true)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"msg": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "marked read"})
	}
}

func DeleteNotification(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))
		id, _ := strconv.Atoi(c.Param("notification_id"))

		res := db.Where("id = ? AND user_id = ?", id, uid).Delete(&models.Notification{})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"msg": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
	}
}

func ClearNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		if err := db.Where("user_id = ?", uid).Delete(&models.Notification{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "cleared"})
	}
}
