package alert

import (
	"testing"
	"time"
)

func TestInputValidate(t *testing.T) {
	valid := Input{Title: "Surto de cólera em Cabinda", Message: "Evite água não tratada.", Severity: SeverityHigh}
	if violations := valid.Validate(); len(violations) != 0 {
		t.Errorf("Expected valid input, got %v", violations)
	}

	if _, ok := (Input{Message: "m"}).Validate()["title"]; !ok {
		t.Error("Expected violation for missing title")
	}
	if _, ok := (Input{Title: "t"}).Validate()["message"]; !ok {
		t.Error("Expected violation for missing message")
	}
	if _, ok := (Input{Title: "t", Message: "m", Severity: "extreme"}).Validate()["severity"]; !ok {
		t.Error("Expected violation for unknown severity")
	}
}

func TestNewDefaults(t *testing.T) {
	a := New(Input{Title: "t", Message: "m"}, 5)

	if a.Severity != SeverityMedium {
		t.Errorf("Expected default severity medium, got %q", a.Severity)
	}
	if !a.IsActive {
		t.Error("Expected alerts active by default")
	}
	if a.CreatedBy != 5 {
		t.Errorf("Expected creator 5, got %d", a.CreatedBy)
	}
	if a.ExpiresAt != nil {
		t.Error("Expected no expiry by default")
	}
}

func TestApplyInputKeepsSeverityWhenAbsent(t *testing.T) {
	a := New(Input{Title: "t", Message: "m", Severity: SeverityCritical}, 1)

	expires := time.Now().Add(48 * time.Hour)
	a.ApplyInput(Input{Title: "t2", Message: "m2", ExpiresAt: &expires})

	if a.Severity != SeverityCritical {
		t.Errorf("Expected severity kept, got %q", a.Severity)
	}
	if a.Title != "t2" || a.ExpiresAt == nil {
		t.Error("Expected patch fields applied")
	}
}
