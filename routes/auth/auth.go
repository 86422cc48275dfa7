package auth

import (
	"carebridge/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterPublic registers public auth routes: /auth/register, /auth/login
func RegisterPublic(r *gin.Engine, db *gorm.DB) {
	r.POST("/auth/register", controllers.Register(db))
	r.POST("/auth/login", controllers.Login(db))
}

// RegisterProtected registers protected auth routes (logout, identity)
func RegisterProtected(g *gin.RouterGroup, db *gorm.DB) {
	g.POST("/auth/logout", controllers.Logout())
	g.GET("/auth/me", controllers.Me(db))
}
