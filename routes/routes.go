package routes

import (
	"net/http"

	"carebridge/controllers"
	"carebridge/middleware"
	"carebridge/pkg/fhir"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apptRoutes "carebridge/routes/appointments"
	authRoutes "carebridge/routes/auth"
	chatRoutes "carebridge/routes/chat"
	doctorRoutes "carebridge/routes/doctors"
	fhirRoutes "carebridge/routes/fhirproxy"
	recordRoutes "carebridge/routes/medicalrecords"
	notifRoutes "carebridge/routes/notifications"
	profileRoutes "carebridge/routes/profile"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, hub *controllers.Hub, fhirClient *fhir.Client) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "carebridge backend running"})
	})

	chatRoutes.RegisterPublic(r, db, hub)
	authRoutes.RegisterPublic(r, db)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	authRoutes.RegisterProtected(protected, db)
	profileRoutes.Register(protected, db)
	chatRoutes.Register(protected, db, hub)
	apptRoutes.Register(protected, db, hub)
	doctorRoutes.Register(protected, db)
	recordRoutes.Register(protected, db)
	notifRoutes.Register(protected, db)
	fhirRoutes.Register(protected, fhirClient)
}
