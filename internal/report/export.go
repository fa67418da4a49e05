// Package report builds downloadable exports and patient card payloads from
// the case store.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/privacy"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// exportLimit caps rows per export so a broad filter cannot hold a worker on
// a multi-hundred-thousand row spreadsheet.
const exportLimit = 10000

var exportHeader = []string{
	"Patient Code", "Patient Name", "Identifier", "Gender", "Date of Birth",
	"Disease", "Status", "Symptom Onset", "Diagnosis Date",
	"Province", "Municipality", "Commune", "Registered By", "Registered At",
}

// Exporter streams filtered case exports. Exports carry the masked
// identifier, never the raw one.
type Exporter struct {
	repo domain.Repository
}

func NewExporter(repo domain.Repository) *Exporter {
	return &Exporter{repo: repo}
}

func exportRow(c *domain.Case) []string {
	identifier := ""
	if masked := privacy.MaskIdentifier(c.PatientIDNumber); masked != nil {
		identifier = *masked
	}
	disease := ""
	if c.Disease != nil {
		disease = c.Disease.Name
	}
	commune := ""
	if c.Commune != nil {
		commune = *c.Commune
	}

	return []string{
		c.PatientCode,
		c.PatientName,
		identifier,
		string(c.PatientGender),
		c.PatientDOB.String(),
		disease,
		string(c.Status),
		c.SymptomOnsetDate.String(),
		c.DiagnosisDate.String(),
		c.Province,
		c.Municipality,
		commune,
		c.RegisteredBy,
		c.CreatedAt.Format(time.RFC3339),
	}
}

// WriteCSV streams the filtered cases as CSV.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer, filter domain.ListFilter) error {
	cases, err := e.repo.ListForExport(ctx, filter, exportLimit)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "failed to write export header")
	}
	for i := range cases {
		if err := cw.Write(exportRow(&cases[i])); err != nil {
			return errors.Wrap(err, "failed to write export row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "failed to flush export")
	}
	return nil
}

// WriteXLSX writes the filtered cases as a single-sheet workbook.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer, filter domain.ListFilter) error {
	cases, err := e.repo.ListForExport(ctx, filter, exportLimit)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Cases"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return errors.Wrap(err, "failed to write workbook header")
		}
	}

	for i := range cases {
		for col, value := range exportRow(&cases[i]) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return errors.Wrap(err, "failed to write workbook row")
			}
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}

// PatientCard is the printable card payload for one case: masked identity
// plus the QR verification payload.
type PatientCard struct {
	PatientCode    string            `json:"patient_code"`
	PatientName    string            `json:"patient_name"`
	MaskedIDNumber *string           `json:"masked_id_number"`
	DOB            domain.Date       `json:"dob"`
	Disease        string            `json:"disease"`
	Status         domain.CaseStatus `json:"status"`
	DiagnosisDate  domain.Date       `json:"diagnosis_date"`
	QRData         string            `json:"qr_data"`
	IssuedAt       time.Time         `json:"issued_at"`
}

// Card builds the patient card payload for the given case.
func (e *Exporter) Card(ctx context.Context, caseID int64) (*PatientCard, error) {
	c, err := e.repo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	disease := ""
	if c.Disease != nil {
		disease = c.Disease.Name
	}

	now := time.Now()
	return &PatientCard{
		PatientCode:    c.PatientCode,
		PatientName:    c.PatientName,
		MaskedIDNumber: privacy.MaskIdentifier(c.PatientIDNumber),
		DOB:            c.PatientDOB,
		Disease:        disease,
		Status:         c.Status,
		DiagnosisDate:  c.DiagnosisDate,
		QRData:         privacy.QRData(c, now),
		IssuedAt:       now,
	}, nil
}

// ExportFilename names a download with the current date.
func ExportFilename(extension string) string {
	return fmt.Sprintf("cases_%s.%s", time.Now().Format("2006-01-02"), extension)
}
