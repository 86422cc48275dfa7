package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carebridge/middleware"
	"carebridge/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func appointmentPayload(db *gorm.DB, a *models.Appointment) gin.H {
	return gin.H{
		"id":           a.ID,
		"patient_id":   a.PatientID,
		"patient_name": senderNameFor(db, strconv.Itoa(int(a.PatientID))),
		"doctor_id":    a.DoctorID,
		"doctor_name":  senderNameFor(db, strconv.Itoa(int(a.DoctorID))),
		"date":         a.Date,
		"time":         a.Time,
		"reason":       a.Reason,
		"status":       a.Status,
		"note":         a.Note,
		"created_at":   a.CreatedAt,
	}
}

// BookAppointment creates a pending appointment with an approved doctor.
// The booking implicitly creates the patient-doctor conversation, announced
// via a system message.
func BookAppointment(db *gorm.DB, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		var body struct {
			DoctorID uint   `json:"doctor_id"`
			Date     string `json:"date"`
			Time     string `json:"time"`
			Reason   string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.DoctorID == 0 || body.Date == "" || body.Time == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "doctor_id, date and time are required"})
			return
		}

		var profile models.DoctorProfile
		if err := db.Where("user_id = ? AND status = ?", body.DoctorID, models.EnrollmentApproved).
			First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "doctor not found or not approved"})
			return
		}
		if uint(uid) == body.DoctorID {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "cannot book an appointment with yourself"})
			return
		}

		apt := models.Appointment{
			PatientID: uint(uid),
			DoctorID:  body.DoctorID,
			Date:      body.Date,
			Time:      body.Time,
			Reason:    body.Reason,
			Status:    models.AppointmentPending,
		}
		if _, err := apt.StartsAt(time.Local); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "date must be YYYY-MM-DD and time HH:MM"})
			return
		}
		if err := db.Create(&apt).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to book appointment"})
			return
		}

		notifyAppointment(db, hub, &apt, apt.DoctorID,
			"New appointment request",
			fmt.Sprintf("Appointment requested for %s at %s", apt.Date, apt.Time))

		c.JSON(http.StatusCreated, appointmentPayload(db, &apt))
	}
}

// ListAppointments returns the caller's appointments, newest first,
// optionally filtered by status.
func ListAppointments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		tx := db.Where("patient_id = ? OR doctor_id = ?", uid, uid)
		if s := strings.TrimSpace(c.Query("status")); s != "" {
			tx = tx.Where("status = ?", s)
		}
		var appts []models.Appointment
		if err := tx.Order("date DESC, time DESC").Find(&appts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		result := make([]gin.H, 0, len(appts))
		for i := range appts {
			result = append(result, appointmentPayload(db, &appts[i]))
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetAppointment returns one appointment visible to its participants.
func GetAppointment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))
		id, _ := strconv.Atoi(c.Param("appointment_id"))

		var apt models.Appointment
		if err := db.First(&apt, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "appointment not found"})
			return
		}
		if apt.PatientID != uint(uid) && apt.DoctorID != uint(uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not your appointment"})
			return
		}
		c.JSON(http.StatusOK, appointmentPayload(db, &apt))
	}
}

// TransitionAppointment moves an appointment to a new status, enforcing the
// lifecycle and the actor allowed to drive each edge. Every transition
// notifies the counterparty and lands as a system message in the pair's
// conversation.
func TransitionAppointment(db *gorm.DB, hub *Hub, target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))
		id, _ := strconv.Atoi(c.Param("appointment_id"))

		var body struct {
			Note string `json:"note"`
		}
		_ = c.ShouldBindJSON(&body)

		var apt models.Appointment
		if err := db.First(&apt, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "appointment not found"})
			return
		}
		if apt.PatientID != uint(uid) && apt.DoctorID != uint(uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not your appointment"})
			return
		}

		// approve/reject/complete/missed are the doctor's edges; cancel is
		// open to both sides
		switch target {
		case models.AppointmentApproved, models.AppointmentRejected,
			models.AppointmentCompleted, models.AppointmentMissed:
			if apt.DoctorID != uint(uid) {
				c.JSON(http.StatusForbidden, gin.H{"msg": "only the doctor can do that"})
				return
			}
		}

		if !models.ValidAppointmentTransition(apt.Status, target) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": fmt.Sprintf("cannot move %s appointment to %s", apt.Status, target)})
			return
		}

		apt.Status = target
		if body.Note != "" {
			apt.Note = body.Note
		}
		if err := db.Save(&apt).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to update appointment"})
			return
		}

		counterparty := apt.PatientID
		if uint(uid) == apt.PatientID {
			counterparty = apt.DoctorID
		}
		notifyAppointment(db, hub, &apt, counterparty,
			"Appointment "+target,
			fmt.Sprintf("Appointment on %s at %s is now %s", apt.Date, apt.Time, target))

		c.JSON(http.StatusOK, appointmentPayload(db, &apt))
	}
}

// SubmitFeedback stores a 1-5 rating with optional comments on a completed
// appointment; patient only.
func SubmitFeedback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))
		id, _ := strconv.Atoi(c.Param("appointment_id"))

		var body struct {
			Rating   int    `json:"rating"`
			Feedback string `json:"feedback"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Rating < 1 || body.Rating > 5 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "rating must be between 1 and 5"})
			return
		}

		var apt models.Appointment
		if err := db.First(&apt, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "appointment not found"})
			return
		}
		if apt.PatientID != uint(uid) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "only the patient can leave feedback"})
			return
		}
		if apt.Status != models.AppointmentCompleted {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "feedback requires a completed appointment"})
			return
		}

		apt.Rating = body.Rating
		apt.Feedback = body.Feedback
		if err := db.Save(&apt).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save feedback"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "feedback saved"})
	}
}

// notifyAppointment writes a Notification row for target and mirrors the
// event as a system message into the pair's conversation.
func notifyAppointment(db *gorm.DB, hub *Hub, apt *models.Appointment, target uint, title, body string) {
	n := models.Notification{
		UserID: target,
		Kind:   models.NotificationAppointment,
		Title:  title,
		Body:   body,
		RefID:  strconv.Itoa(int(apt.ID)),
	}
	_ = db.Create(&n).Error

	convID := models.PairConversationID(apt.PatientID, apt.DoctorID)
	PostSystemMessage(db, hub, convID, strconv.Itoa(int(apt.ID)), body)
}
