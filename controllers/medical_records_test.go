package controllers

import (
	"testing"

	"carebridge/models"
)

func TestRecordPatientID(t *testing.T) {
	// patients file for themselves, with or without naming themselves
	if pid, ok := recordPatientID(models.RolePatient, "4", ""); !ok || pid != "4" {
		t.Fatalf("blank patient_id should default to the caller, got %q ok=%v", pid, ok)
	}
	if pid, ok := recordPatientID(models.RolePatient, "4", "4"); !ok || pid != "4" {
		t.Fatalf("self patient_id should be accepted, got %q ok=%v", pid, ok)
	}
	// a patient naming someone else is refused
	if _, ok := recordPatientID(models.RolePatient, "4", "9"); ok {
		t.Fatalf("patient must not file records for another patient")
	}
	// doctors file for the patient they name
	if pid, ok := recordPatientID(models.RoleDoctor, "2", "9"); !ok || pid != "9" {
		t.Fatalf("doctor should file for the named patient, got %q ok=%v", pid, ok)
	}
	if pid, ok := recordPatientID(models.RoleDoctor, "2", ""); !ok || pid != "2" {
		t.Fatalf("doctor with no patient named files under self, got %q ok=%v", pid, ok)
	}
}

func TestRecordDownloadAllowed(t *testing.T) {
	if !recordDownloadAllowed(models.RolePatient, "4", "4") {
		t.Fatalf("patient must reach their own files")
	}
	if recordDownloadAllowed(models.RolePatient, "4", "9") {
		t.Fatalf("patient must not reach another patient's files")
	}
	if !recordDownloadAllowed(models.RoleDoctor, "2", "9") {
		t.Fatalf("doctor must reach patient files")
	}
}
