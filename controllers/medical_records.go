package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"carebridge/middleware"
	"carebridge/models"
	"carebridge/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func recordPayload(db *gorm.DB, rec *models.MedicalRecord) gin.H {
	return gin.H{
		"id":                rec.ID,
		"patient_id":        rec.PatientID,
		"patient_name":      senderNameFor(db, strconv.Itoa(int(rec.PatientID))),
		"record_type":       rec.RecordType,
		"title":             rec.Title,
		"description":       rec.Description,
		"file_path":         rec.FilePath,
		"original_filename": rec.OriginalFilename,
		"file_size":         rec.FileSize,
		"appointment_id":    rec.AppointmentID,
		"uploaded_by":       rec.UploadedBy,
		"source":            rec.Source,
		"conversation_id":   rec.ConversationID,
		"created_at":        rec.CreatedAt,
	}
}

// recordPatientID resolves which patient a new record is filed under.
// Patients may only file for themselves; doctors may file for a patient
// they name.
func recordPatientID(role, uid, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == uid {
		return uid, true
	}
	if role == models.RoleDoctor {
		return requested, true
	}
	return "", false
}

// recordDownloadAllowed gates file access: patients reach their own files,
// doctors reach their patients'.
func recordDownloadAllowed(role, uid, patientID string) bool {
	return role == models.RoleDoctor || uid == patientID
}

// treatsPatient reports whether the doctor has any appointment with the
// patient, which is what scopes a doctor's view of records.
func treatsPatient(db *gorm.DB, doctorID int, patientID uint) bool {
	var n int64
	db.Model(&models.Appointment{}).
		Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).
		Count(&n)
	return n > 0
}

// ListMedicalRecords returns the caller's record file: patients see their
// own, doctors see records of every patient they have appointments with.
func ListMedicalRecords(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uidStr := uidRaw.(string)
		uid, _ := strconv.Atoi(uidStr)
		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)

		var recs []models.MedicalRecord
		tx := db.Order("created_at DESC")
		if role == models.RoleDoctor {
			patients := db.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", uid)
			tx = tx.Where("patient_id IN (?)", patients)
		} else {
			tx = tx.Where("patient_id = ?", uid)
		}
		if err := tx.Find(&recs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		result := make([]gin.H, 0, len(recs))
		for i := range recs {
			result = append(result, recordPayload(db, &recs[i]))
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetMedicalRecord returns one record to its patient or to a doctor who
// treats that patient.
func GetMedicalRecord(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))
		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)
		id, _ := strconv.Atoi(c.Param("record_id"))

		var rec models.MedicalRecord
		if err := db.First(&rec, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "record not found"})
			return
		}
		if rec.PatientID != uint(uid) && !(role == models.RoleDoctor && treatsPatient(db, uid, rec.PatientID)) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "not your record"})
			return
		}
		c.JSON(http.StatusOK, recordPayload(db, &rec))
	}
}

// MedicalRecordsByAppointment lists the records filed against one visit,
// for its participants.
func MedicalRecordsByAppointment(db *gorm.DB) gin.HandlerFunc {
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

		var recs []models.MedicalRecord
		if err := db.Where("appointment_id = ?", strconv.Itoa(id)).
			Order("created_at DESC").Find(&recs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		result := make([]gin.H, 0, len(recs))
		for i := range recs {
			result = append(result, recordPayload(db, &recs[i]))
		}
		c.JSON(http.StatusOK, result)
	}
}

// UploadMedicalRecord accepts a multipart document (field "file") with a
// title and files it under the patient's records, optionally linked to an
// appointment.
func UploadMedicalRecord(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid := uidRaw.(string)
		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)

		patientID, ok := recordPatientID(role, uid, c.PostForm("patient_id"))
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"msg": "you can only upload records for yourself"})
			return
		}
		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "title is required"})
			return
		}
		recordType := c.PostForm("record_type")
		if recordType == "" {
			recordType = "other"
		}

		release := middleware.AcquireUserSlot(uid)
		defer release()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "file field is required"})
			return
		}

		dir := filepath.Join(config.UploadDir, "medical_records", patientID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to prepare storage"})
			return
		}
		storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
		if err := c.SaveUploadedFile(fileHeader, filepath.Join(dir, storedName)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save file"})
			return
		}

		pid, _ := strconv.Atoi(patientID)
		uploader, _ := strconv.Atoi(uid)
		rec := models.MedicalRecord{
			PatientID:        uint(pid),
			RecordType:       recordType,
			Title:            title,
			Description:      c.PostForm("description"),
			FilePath:         fmt.Sprintf("/medical-records/download/%s/%s", patientID, storedName),
			OriginalFilename: fileHeader.Filename,
			FileSize:         fileHeader.Size,
			UploadedBy:       uint(uploader),
			AppointmentID:    strings.TrimSpace(c.PostForm("appointment_id")),
			Source:           "upload",
		}
		if err := db.Create(&rec).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save record"})
			return
		}
		c.JSON(http.StatusCreated, recordPayload(db, &rec))
	}
}

// DownloadMedicalRecord serves a stored record file.
func DownloadMedicalRecord() gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := uidRaw.(string)
		roleRaw, _ := c.Get(middleware.ContextRoleKey)
		role, _ := roleRaw.(string)
		patientID := c.Param("patient_id")
		fileName := filepath.Base(c.Param("file_name"))

		if !recordDownloadAllowed(role, uid, patientID) {
			c.JSON(http.StatusForbidden, gin.H{"msg": "access denied"})
			return
		}
		path := filepath.Join(config.UploadDir, "medical_records", patientID, fileName)
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "file not found"})
			return
		}
		c.File(path)
	}
}
