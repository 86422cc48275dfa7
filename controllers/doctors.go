package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"carebridge/middleware"
	"carebridge/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func doctorPayload(db *gorm.DB, p *models.DoctorProfile) gin.H {
	name := ""
	var user models.User
	if err := db.First(&user, p.UserID).Error; err == nil {
		name = user.Name
	}
	return gin.H{
		"id":               p.ID,
		"user_id":          p.UserID,
		"name":             name,
		"specialization":   p.Specialization,
		"qualifications":   p.Qualifications,
		"experience_years": p.ExperienceYears,
		"consultation_fee": p.ConsultationFee,
		"bio":              p.Bio,
		"status":           p.Status,
	}
}

// EnrollDoctor creates or updates the caller's practice profile; status
// resets to pending on every resubmission so changed credentials get
// re-reviewed.
func EnrollDoctor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		var body struct {
			Specialization  string  `json:"specialization"`
			Qualifications  string  `json:"qualifications"`
			ExperienceYears int     `json:"experience_years"`
			ConsultationFee float64 `json:"consultation_fee"`
			Bio             string  `json:"bio"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Specialization) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "specialization is required"})
			return
		}

		var profile models.DoctorProfile
		err := db.Where("user_id = ?", uid).First(&profile).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		profile.UserID = uint(uid)
		profile.Specialization = body.Specialization
		profile.Qualifications = body.Qualifications
		profile.ExperienceYears = body.ExperienceYears
		profile.ConsultationFee = body.ConsultationFee
		profile.Bio = body.Bio
		profile.Status = models.EnrollmentPending

		if err := db.Save(&profile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save enrollment"})
			return
		}

		// the account becomes a doctor account once enrolled
		db.Model(&models.User{}).Where("id = ?", uid).Update("role", models.RoleDoctor)

		c.JSON(http.StatusCreated, doctorPayload(db, &profile))
	}
}

// EnrollmentStatus reports the caller's own profile state.
func EnrollmentStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		var profile models.DoctorProfile
		if err := db.Where("user_id = ?", uid).First(&profile).Error; err != nil {
			c.JSON(http.StatusOK, gin.H{"enrolled": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"enrolled": true, "status": profile.Status})
	}
}

// ListDoctors returns approved doctors, optionally filtered by
// specialization or name substring.
func ListDoctors(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		spec := strings.TrimSpace(c.Query("specialization"))
		q := strings.ToLower(strings.TrimSpace(c.Query("q")))

		tx := db.Where("status = ?", models.EnrollmentApproved)
		if spec != "" {
			tx = tx.Where("specialization = ?", spec)
		}
		var profiles []models.DoctorProfile
		if err := tx.Find(&profiles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		result := make([]gin.H, 0, len(profiles))
		for i := range profiles {
			payload := doctorPayload(db, &profiles[i])
			if q != "" {
				name, _ := payload["name"].(string)
				if !strings.Contains(strings.ToLower(name), q) {
					continue
				}
			}
			result = append(result, payload)
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetDoctor returns one doctor's public profile.
func GetDoctor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("doctor_id"))
		var profile models.DoctorProfile
		if err := db.First(&profile, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "doctor not found"})
			return
		}
		c.JSON(http.StatusOK, doctorPayload(db, &profile))
	}
}

// VerifyDoctor approves or rejects an enrollment. Guarded by role at the
// route level; the platform treats any doctor-role reviewer as staff.
func VerifyDoctor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("doctor_id"))

		var body struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err != nil ||
			(body.Status != models.EnrollmentApproved && body.Status != models.EnrollmentRejected) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "status must be approved or rejected"})
			return
		}

		var profile models.DoctorProfile
		if err := db.First(&profile, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "doctor not found"})
			return
		}
		profile.Status = body.Status
		if err := db.Save(&profile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to update status"})
			return
		}

		n := models.Notification{
			UserID: profile.UserID,
			Kind:   models.NotificationSystem,
			Title:  "Enrollment " + body.Status,
			Body:   "Your doctor enrollment has been " + body.Status + ".",
		}
		_ = db.Create(&n).Error

		c.JSON(http.StatusOK, doctorPayload(db, &profile))
	}
}
