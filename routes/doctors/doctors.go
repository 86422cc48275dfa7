package doctors

import (
	"carebridge/controllers"
	"carebridge/middleware"
	"carebridge/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register wires doctor discovery and enrollment (protected group).
func Register(g *gin.RouterGroup, db *gorm.DB) {
	g.GET("/doctors", controllers.ListDoctors(db))
	g.GET("/doctors/enrollment-status", controllers.EnrollmentStatus(db))
	g.GET("/doctors/:doctor_id", controllers.GetDoctor(db))
	g.POST("/doctors/enroll", controllers.EnrollDoctor(db))
	g.PUT("/doctors/:doctor_id/verify", middleware.RequireRole(models.RoleDoctor), controllers.VerifyDoctor(db))
}
