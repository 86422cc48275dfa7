package utils

import (
	"path/filepath"
	"strings"
)

// HasLetter returns true if s contains at least one ASCII letter (a-zA-Z)
func HasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return true
		}
	}
	return false
}

// HasNumber returns true if s contains at least one ASCII digit (0-9)
func HasNumber(s string) bool {
	for _, r := range s {
		if '0' <= r && r <= '9' {
			return true
		}
	}
	return false
}

var medicalDocumentExts = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// IsMedicalDocument reports whether a chat upload should also be filed into
// the patient's medical records, judged by extension.
func IsMedicalDocument(filename string) bool {
	return medicalDocumentExts[strings.ToLower(filepath.Ext(filename))]
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// IsImage reports whether an upload should be rendered inline as an image
// message rather than a file attachment.
func IsImage(filename string) bool {
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}
