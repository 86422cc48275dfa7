package appointments

import (
	"carebridge/controllers"
	"carebridge/middleware"
	"carebridge/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register wires the appointment lifecycle (protected group).
func Register(g *gin.RouterGroup, db *gorm.DB, hub *controllers.Hub) {
	g.POST("/appointments", middleware.RateLimit(), controllers.BookAppointment(db, hub))
	g.GET("/appointments", controllers.ListAppointments(db))
	g.GET("/appointments/:appointment_id", controllers.GetAppointment(db))
	g.PUT("/appointments/:appointment_id/approve", controllers.TransitionAppointment(db, hub, models.AppointmentApproved))
	g.PUT("/appointments/:appointment_id/reject", controllers.TransitionAppointment(db, hub, models.AppointmentRejected))
	g.PUT("/appointments/:appointment_id/complete", controllers.TransitionAppointment(db, hub, models.AppointmentCompleted))
	g.PUT("/appointments/:appointment_id/cancel", controllers.TransitionAppointment(db, hub, models.AppointmentCancelled))
	g.PUT("/appointments/:appointment_id/missed", controllers.TransitionAppointment(db, hub, models.AppointmentMissed))
	g.POST("/appointments/:appointment_id/feedback", controllers.SubmitFeedback(db))
}
