package privacy

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/angola-gov/vigilancia/internal/case/domain"
)

func str(s string) *string { return &s }

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		name string
		id   *string
		want *string
	}{
		{"typical identifier", str("001234567LA041"), str("****A041")},
		{"exactly four chars", str("1234"), str("****1234")},
		{"short identifier", str("12"), str("****")},
		{"empty", str(""), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskIdentifier(tt.id)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("Expected %v, got %v", tt.want, got)
			case *got != *tt.want:
				t.Errorf("Expected %q, got %q", *tt.want, *got)
			}
		})
	}
}

func TestMaskIdentifierNeverEchoesShortIDs(t *testing.T) {
	masked := MaskIdentifier(str("abc"))
	if masked == nil || *masked != "****" {
		t.Errorf("Expected full mask for short identifier, got %v", masked)
	}
}

func TestInitialedName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two tokens", "Joao Paulo", "J*** P****"},
		{"single token", "Maria", "M****"},
		{"accented initial", "Álvaro Neto", "Á***** N***"},
		{"extra spaces", "  Ana  Bela ", "A** B***"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialedName(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func sampleCase() *domain.Case {
	id := "001234567LA041"
	return &domain.Case{
		ID:              42,
		PatientCode:     "CASE-AB12CD34",
		PatientName:     "Maria dos Santos",
		PatientDOB:      domain.NewDate(1990, time.March, 15),
		PatientIDNumber: &id,
		Status:          domain.StatusConfirmed,
		DiagnosisDate:   domain.NewDate(2025, time.June, 5),
		Disease:         &domain.DiseaseRef{ID: 1, Name: "Malária", Code: "MAL"},
	}
}

func TestQRDataPayload(t *testing.T) {
	now := time.Date(2025, time.July, 1, 10, 30, 0, 0, time.UTC)
	raw := QRData(sampleCase(), now)

	var payload map[string]string
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("QR data is not valid JSON: %v", err)
	}

	if payload["code"] != "CASE-AB12CD34" {
		t.Errorf("Expected patient code, got %q", payload["code"])
	}
	if payload["name"] != "Maria dos Santos" {
		t.Errorf("Expected patient name, got %q", payload["name"])
	}
	if payload["dob"] != "1990-03-15" {
		t.Errorf("Expected dob, got %q", payload["dob"])
	}
	if payload["verified"] != "2025-07-01T10:30:00Z" {
		t.Errorf("Expected verification timestamp, got %q", payload["verified"])
	}
}

func TestQRDataExcludesIdentifier(t *testing.T) {
	raw := QRData(sampleCase(), time.Now())
	if strings.Contains(raw, "001234567LA041") {
		t.Error("Expected QR payload to exclude the national identifier")
	}
	if strings.Contains(raw, "****") {
		t.Error("Expected QR payload to exclude even the masked identifier")
	}
}

func TestVerifyRedactsName(t *testing.T) {
	v := Verify(sampleCase())

	if v.Initials != "M**** D** S*****" {
		t.Errorf("Expected initialed name, got %q", v.Initials)
	}
	if v.Disease != "Malária" {
		t.Errorf("Expected disease name, got %q", v.Disease)
	}
	if v.Status != domain.StatusConfirmed {
		t.Errorf("Expected status confirmed, got %q", v.Status)
	}
	if !v.Verified {
		t.Error("Expected verified true")
	}

	raw, _ := json.Marshal(v)
	if strings.Contains(string(raw), "Maria dos Santos") {
		t.Error("Expected public view to exclude the full name")
	}
}

func TestVerifyWithoutDiseaseRelation(t *testing.T) {
	c := sampleCase()
	c.Disease = nil
	if v := Verify(c); v.Disease != "N/A" {
		t.Errorf("Expected N/A fallback, got %q", v.Disease)
	}
}
