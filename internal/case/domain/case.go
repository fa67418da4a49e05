package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// CaseStatus is the clinical status of a case. Transitions are deliberately
// unconstrained: field corrections (e.g. deceased back to confirmed after a
// data-entry mistake) are part of the observed workflow.
type CaseStatus string

const (
	StatusSuspected CaseStatus = "suspected"
	StatusConfirmed CaseStatus = "confirmed"
	StatusRecovered CaseStatus = "recovered"
	StatusDeceased  CaseStatus = "deceased"
)

// ValidStatus reports whether s is one of the enumerated statuses.
func ValidStatus(s CaseStatus) bool {
	switch s {
	case StatusSuspected, StatusConfirmed, StatusRecovered, StatusDeceased:
		return true
	}
	return false
}

// Gender is the patient gender enumeration.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

func ValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// DiseaseRef is the disease relation attached to returned cases.
type DiseaseRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Case is one recorded disease episode for one patient.
type Case struct {
	ID        int64  `json:"id"`
	DiseaseID int64  `json:"disease_id"`
	UserID    int64  `json:"user_id"`

	// PatientCode is the human-readable unique identifier used on patient
	// cards and for public verification. Immutable once assigned.
	PatientCode string `json:"patient_code"`

	PatientName     string  `json:"patient_name"`
	PatientDOB      Date    `json:"patient_dob"`
	PatientIDNumber *string `json:"-"` // national ID, only ever exposed masked
	PatientGender   Gender  `json:"patient_gender"`

	SymptomsReported string     `json:"symptoms_reported"`
	SymptomOnsetDate Date       `json:"symptom_onset_date"`
	DiagnosisDate    Date       `json:"diagnosis_date"`
	Status           CaseStatus `json:"status"`

	Province     string  `json:"province"`
	Municipality string  `json:"municipality"`
	Commune      *string `json:"commune,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Notes *string `json:"notes,omitempty"`

	Disease      *DiseaseRef `json:"disease,omitempty"`
	RegisteredBy string      `json:"registered_by,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// CreateInput is the validated field set for registering a case.
type CreateInput struct {
	DiseaseID        int64       `json:"disease_id"`
	PatientName      string      `json:"patient_name"`
	PatientDOB       Date        `json:"patient_dob"`
	PatientIDNumber  *string     `json:"patient_id_number"`
	PatientGender    Gender      `json:"patient_gender"`
	SymptomsReported string      `json:"symptoms_reported"`
	SymptomOnsetDate Date        `json:"symptom_onset_date"`
	DiagnosisDate    Date        `json:"diagnosis_date"`
	Status           *CaseStatus `json:"status"`
	Province         string      `json:"province"`
	Municipality     string      `json:"municipality"`
	Commune          *string     `json:"commune"`
	Latitude         *float64    `json:"latitude"`
	Longitude        *float64    `json:"longitude"`
	Notes            *string     `json:"notes"`
	PatientCode      string      `json:"patient_code"`
}

// Validate returns per-field violations, empty when the input is well formed.
func (in CreateInput) Validate() map[string]string {
	violations := make(map[string]string)

	if in.DiseaseID <= 0 {
		violations["disease_id"] = "disease is required"
	}
	if strings.TrimSpace(in.PatientName) == "" {
		violations["patient_name"] = "patient name is required"
	} else if len(in.PatientName) > 255 {
		violations["patient_name"] = "patient name must be at most 255 characters"
	}
	if in.PatientDOB.IsZero() {
		violations["patient_dob"] = "date of birth is required"
	}
	if !ValidGender(in.PatientGender) {
		violations["patient_gender"] = "gender must be one of M, F, O"
	}
	if strings.TrimSpace(in.SymptomsReported) == "" {
		violations["symptoms_reported"] = "reported symptoms are required"
	}
	if in.SymptomOnsetDate.IsZero() {
		violations["symptom_onset_date"] = "symptom onset date is required"
	}
	if in.DiagnosisDate.IsZero() {
		violations["diagnosis_date"] = "diagnosis date is required"
	}
	if in.Status != nil && !ValidStatus(*in.Status) {
		violations["status"] = "status must be one of suspected, confirmed, recovered, deceased"
	}
	if strings.TrimSpace(in.Province) == "" {
		violations["province"] = "province is required"
	} else if len(in.Province) > 100 {
		violations["province"] = "province must be at most 100 characters"
	}
	if strings.TrimSpace(in.Municipality) == "" {
		violations["municipality"] = "municipality is required"
	} else if len(in.Municipality) > 100 {
		violations["municipality"] = "municipality must be at most 100 characters"
	}
	if in.Commune != nil && len(*in.Commune) > 100 {
		violations["commune"] = "commune must be at most 100 characters"
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		violations["latitude"] = "latitude must be between -90 and 90"
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		violations["longitude"] = "longitude must be between -180 and 180"
	}
	if in.PatientIDNumber != nil && len(*in.PatientIDNumber) > 50 {
		violations["patient_id_number"] = "identifier must be at most 50 characters"
	}

	return violations
}

// NewCase builds a case from validated input. The patient code is generated
// here, at construction time, when the input does not carry one: the
// generate-if-absent contract is explicit rather than hidden in a persistence
// hook.
func NewCase(in CreateInput, registeredBy int64) *Case {
	status := StatusSuspected
	if in.Status != nil {
		status = *in.Status
	}

	code := in.PatientCode
	if code == "" {
		code = NewPatientCode()
	}

	now := time.Now()
	return &Case{
		DiseaseID:        in.DiseaseID,
		UserID:           registeredBy,
		PatientCode:      code,
		PatientName:      in.PatientName,
		PatientDOB:       in.PatientDOB,
		PatientIDNumber:  in.PatientIDNumber,
		PatientGender:    in.PatientGender,
		SymptomsReported: in.SymptomsReported,
		SymptomOnsetDate: in.SymptomOnsetDate,
		DiagnosisDate:    in.DiagnosisDate,
		Status:           status,
		Province:         in.Province,
		Municipality:     in.Municipality,
		Commune:          in.Commune,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// UpdateInput is a partial patch; nil fields are left untouched.
type UpdateInput struct {
	DiseaseID        *int64      `json:"disease_id"`
	PatientName      *string     `json:"patient_name"`
	PatientDOB       *Date       `json:"patient_dob"`
	PatientIDNumber  *string     `json:"patient_id_number"`
	PatientGender    *Gender     `json:"patient_gender"`
	SymptomsReported *string     `json:"symptoms_reported"`
	SymptomOnsetDate *Date       `json:"symptom_onset_date"`
	DiagnosisDate    *Date       `json:"diagnosis_date"`
	Status           *CaseStatus `json:"status"`
	StatusNotes      *string     `json:"status_notes"`
	Province         *string     `json:"province"`
	Municipality     *string     `json:"municipality"`
	Commune          *string     `json:"commune"`
	Latitude         *float64    `json:"latitude"`
	Longitude        *float64    `json:"longitude"`
	Notes            *string     `json:"notes"`
}

// Validate returns per-field violations for the fields present in the patch.
func (in UpdateInput) Validate() map[string]string {
	violations := make(map[string]string)

	if in.PatientName != nil && (strings.TrimSpace(*in.PatientName) == "" || len(*in.PatientName) > 255) {
		violations["patient_name"] = "patient name must be between 1 and 255 characters"
	}
	if in.PatientGender != nil && !ValidGender(*in.PatientGender) {
		violations["patient_gender"] = "gender must be one of M, F, O"
	}
	if in.Status != nil && !ValidStatus(*in.Status) {
		violations["status"] = "status must be one of suspected, confirmed, recovered, deceased"
	}
	if in.Province != nil && (strings.TrimSpace(*in.Province) == "" || len(*in.Province) > 100) {
		violations["province"] = "province must be between 1 and 100 characters"
	}
	if in.Municipality != nil && (strings.TrimSpace(*in.Municipality) == "" || len(*in.Municipality) > 100) {
		violations["municipality"] = "municipality must be between 1 and 100 characters"
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		violations["latitude"] = "latitude must be between -90 and 90"
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		violations["longitude"] = "longitude must be between -180 and 180"
	}

	return violations
}

// Apply merges the patch into the case. The caller decides beforehand whether
// the status changed; Apply itself is a plain field merge.
func (c *Case) Apply(in UpdateInput) {
	if in.DiseaseID != nil {
		c.DiseaseID = *in.DiseaseID
	}
	if in.PatientName != nil {
		c.PatientName = *in.PatientName
	}
	if in.PatientDOB != nil {
		c.PatientDOB = *in.PatientDOB
	}
	if in.PatientIDNumber != nil {
		c.PatientIDNumber = in.PatientIDNumber
	}
	if in.PatientGender != nil {
		c.PatientGender = *in.PatientGender
	}
	if in.SymptomsReported != nil {
		c.SymptomsReported = *in.SymptomsReported
	}
	if in.SymptomOnsetDate != nil {
		c.SymptomOnsetDate = *in.SymptomOnsetDate
	}
	if in.DiagnosisDate != nil {
		c.DiagnosisDate = *in.DiagnosisDate
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.Province != nil {
		c.Province = *in.Province
	}
	if in.Municipality != nil {
		c.Municipality = *in.Municipality
	}
	if in.Commune != nil {
		c.Commune = in.Commune
	}
	if in.Latitude != nil {
		c.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		c.Longitude = in.Longitude
	}
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	c.UpdatedAt = time.Now()
}

const (
	patientCodePrefix  = "CASE-"
	patientCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	patientCodeLength  = 8
)

// NewPatientCode generates a candidate patient code. Uniqueness is enforced
// by the store; callers retry on collision.
func NewPatientCode() string {
	buf := make([]byte, patientCodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble
		panic(fmt.Sprintf("patient code generation: %v", err))
	}
	for i, b := range buf {
		buf[i] = patientCodeCharset[int(b)%len(patientCodeCharset)]
	}
	return patientCodePrefix + string(buf)
}
