package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

type stubRepo struct {
	domain.Repository
	cases []domain.Case
}

func (s *stubRepo) ListForExport(_ context.Context, _ domain.ListFilter, _ int) ([]domain.Case, error) {
	return s.cases, nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*domain.Case, error) {
	for i := range s.cases {
		if s.cases[i].ID == id {
			return &s.cases[i], nil
		}
	}
	return nil, errors.NotFound("case", "")
}

func exportableCase() domain.Case {
	idNumber := "001234567LA041"
	return domain.Case{
		ID:               9,
		PatientCode:      "CASE-AB12CD34",
		PatientName:      "Maria dos Santos",
		PatientDOB:       domain.NewDate(1990, time.March, 15),
		PatientIDNumber:  &idNumber,
		PatientGender:    domain.GenderFemale,
		SymptomOnsetDate: domain.NewDate(2025, time.June, 1),
		DiagnosisDate:    domain.NewDate(2025, time.June, 5),
		Status:           domain.StatusConfirmed,
		Province:         "Luanda",
		Municipality:     "Belas",
		Disease:          &domain.DiseaseRef{ID: 1, Name: "Malária", Code: "MAL"},
		RegisteredBy:     "Dr. Kiala",
		CreatedAt:        time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSVMasksIdentifier(t *testing.T) {
	exporter := NewExporter(&stubRepo{cases: []domain.Case{exportableCase()}})

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(context.Background(), &buf, domain.ListFilter{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, exportHeader, records[0])

	row := records[1]
	assert.Equal(t, "CASE-AB12CD34", row[0])
	assert.Equal(t, "****A041", row[2])
	assert.Equal(t, "Malária", row[5])
	assert.Equal(t, "confirmed", row[6])
	assert.NotContains(t, strings.Join(row, ","), "001234567LA041")
}

func TestWriteXLSXProducesWorkbook(t *testing.T) {
	exporter := NewExporter(&stubRepo{cases: []domain.Case{exportableCase()}})

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteXLSX(context.Background(), &buf, domain.ListFilter{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Cases")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Patient Code", rows[0][0])
	assert.Equal(t, "CASE-AB12CD34", rows[1][0])
	assert.Equal(t, "****A041", rows[1][2])
}

func TestPatientCardPayload(t *testing.T) {
	exporter := NewExporter(&stubRepo{cases: []domain.Case{exportableCase()}})

	card, err := exporter.Card(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, "CASE-AB12CD34", card.PatientCode)
	require.NotNil(t, card.MaskedIDNumber)
	assert.Equal(t, "****A041", *card.MaskedIDNumber)
	assert.Contains(t, card.QRData, `"code":"CASE-AB12CD34"`)
	assert.NotContains(t, card.QRData, "001234567LA041")
	assert.Equal(t, "Malária", card.Disease)
}

func TestPatientCardUnknownCase(t *testing.T) {
	exporter := NewExporter(&stubRepo{})

	_, err := exporter.Card(context.Background(), 404)
	require.Error(t, err)
}
