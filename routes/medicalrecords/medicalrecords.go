package medicalrecords

import (
	"carebridge/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register wires the patient record file (protected group).
func Register(g *gin.RouterGroup, db *gorm.DB) {
	g.GET("/medical-records", controllers.ListMedicalRecords(db))
	g.GET("/medical-records/by-appointment/:appointment_id", controllers.MedicalRecordsByAppointment(db))
	g.GET("/medical-records/download/:patient_id/:file_name", controllers.DownloadMedicalRecord())
	g.GET("/medical-records/:record_id", controllers.GetMedicalRecord(db))
	g.POST("/medical-records/upload", controllers.UploadMedicalRecord(db))
}
