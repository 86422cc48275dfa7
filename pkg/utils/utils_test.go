package utils

import "testing"

func TestPasswordChecks(t *testing.T) {
	if !HasLetter("abc1") || !HasNumber("abc1") {
		t.Fatalf("expected abc1 to have both letter and number")
	}
	if HasLetter("1234") {
		t.Fatalf("expected no letter in 1234")
	}
	if HasNumber("abcd") {
		t.Fatalf("expected no number in abcd")
	}
}

func TestIsMedicalDocument(t *testing.T) {
	for _, name := range []string{"scan.PDF", "report.pdf", "xray.jpeg", "labs.xlsx"} {
		if !IsMedicalDocument(name) {
			t.Errorf("expected %s to count as a medical document", name)
		}
	}
	for _, name := range []string{"notes.txt", "video.mp4", "archive"} {
		if IsMedicalDocument(name) {
			t.Errorf("expected %s not to count as a medical document", name)
		}
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("photo.PNG") || IsImage("doc.pdf") {
		t.Fatalf("image extension detection is wrong")
	}
}
