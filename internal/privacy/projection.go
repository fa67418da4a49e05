// Package privacy derives redacted views of case data for display and
// external consumption. Nothing in this package ever returns the raw
// national identifier.
package privacy

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/angola-gov/vigilancia/internal/case/domain"
)

const maskPrefix = "****"

// MaskIdentifier redacts a national ID for display, keeping the last four
// characters. Identifiers shorter than four characters are masked entirely:
// echoing most of a short identifier back would defeat the mask.
func MaskIdentifier(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	masked := maskPrefix
	if len(*id) >= 4 {
		masked += (*id)[len(*id)-4:]
	}
	return &masked
}

// VerificationPayload is the QR-embeddable identity payload for a patient
// card. It deliberately excludes the national ID and any masked derivative.
type VerificationPayload struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DOB      string `json:"dob"`
	Verified string `json:"verified"`
}

// QRData serializes the verification payload for the given case.
func QRData(c *domain.Case, now time.Time) string {
	payload := VerificationPayload{
		Code:     c.PatientCode,
		Name:     c.PatientName,
		DOB:      c.PatientDOB.String(),
		Verified: now.UTC().Format(time.RFC3339),
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

// InitialedName reduces a full name to per-token initials, e.g.
// "Joao Paulo" becomes "J*** P****".
func InitialedName(name string) string {
	tokens := strings.Fields(name)
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		runes := []rune(token)
		initial := strings.ToUpper(string(runes[0]))
		parts = append(parts, initial+strings.Repeat("*", len(runes)-1))
	}
	return strings.Join(parts, " ")
}

// PublicVerification is the response for the unauthenticated card check.
type PublicVerification struct {
	Code     string            `json:"code"`
	Status   domain.CaseStatus `json:"status"`
	Disease  string            `json:"disease"`
	Initials string            `json:"initials"`
	Date     domain.Date       `json:"date"`
	Verified bool              `json:"verified"`
}

// Verify builds the public view of a case looked up by patient code.
func Verify(c *domain.Case) *PublicVerification {
	disease := "N/A"
	if c.Disease != nil {
		disease = c.Disease.Name
	}
	return &PublicVerification{
		Code:     c.PatientCode,
		Status:   c.Status,
		Disease:  disease,
		Initials: InitialedName(c.PatientName),
		Date:     c.DiagnosisDate,
		Verified: true,
	}
}
