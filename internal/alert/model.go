package alert

import (
	"strings"
	"time"
)

// Severity orders alerts from informational to urgent.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alert is one public health notice.
type Alert struct {
	ID           int64      `json:"id"`
	DiseaseID    *int64     `json:"disease_id,omitempty"`
	DiseaseName  *string    `json:"disease_name,omitempty"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Severity     Severity   `json:"severity"`
	AffectedArea *string    `json:"affected_area,omitempty"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Input is the field set for creating or replacing an alert.
type Input struct {
	DiseaseID    *int64     `json:"disease_id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Severity     Severity   `json:"severity"`
	AffectedArea *string    `json:"affected_area"`
	IsActive     *bool      `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Validate returns per-field violations, empty when the input is well formed.
func (in Input) Validate() map[string]string {
	violations := make(map[string]string)

	if strings.TrimSpace(in.Title) == "" {
		violations["title"] = "title is required"
	} else if len(in.Title) > 255 {
		violations["title"] = "title must be at most 255 characters"
	}
	if strings.TrimSpace(in.Message) == "" {
		violations["message"] = "message is required"
	}
	if in.Severity != "" && !ValidSeverity(in.Severity) {
		violations["severity"] = "severity must be one of low, medium, high, critical"
	}
	if in.AffectedArea != nil && len(*in.AffectedArea) > 255 {
		violations["affected_area"] = "affected area must be at most 255 characters"
	}

	return violations
}

// New builds an alert from validated input.
func New(in Input, createdBy int64) *Alert {
	severity := SeverityMedium
	if in.Severity != "" {
		severity = in.Severity
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := time.Now()
	return &Alert{
		DiseaseID:    in.DiseaseID,
		Title:        in.Title,
		Message:      in.Message,
		Severity:     severity,
		AffectedArea: in.AffectedArea,
		IsActive:     active,
		ExpiresAt:    in.ExpiresAt,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ApplyInput replaces the mutable fields from validated input.
func (a *Alert) ApplyInput(in Input) {
	a.DiseaseID = in.DiseaseID
	a.Title = in.Title
	a.Message = in.Message
	if in.Severity != "" {
		a.Severity = in.Severity
	}
	a.AffectedArea = in.AffectedArea
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	a.ExpiresAt = in.ExpiresAt
	a.UpdatedAt = time.Now()
}
