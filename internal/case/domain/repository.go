package domain

import (
	"context"
	"time"
)

// CacheTag marks every cached aggregate derived from case rows. Writers
// invalidate it after a mutation; readers attach it when caching, so both
// sides share the single name.
const CacheTag = "cases"

// ErrDuplicateCode is reported by Create when the patient code collides with
// an existing row, deleted rows included, since the unique index spans both.
type duplicateCodeError struct{}

func (duplicateCodeError) Error() string { return "patient code already exists" }

var ErrDuplicateCode error = duplicateCodeError{}

// ListFilter narrows case listings.
type ListFilter struct {
	DiseaseID *int64
	Province  string
	Status    *CaseStatus
	StartDate *Date
	EndDate   *Date
	Search    string
	Page      int
	PerPage   int
}

// Page is one page of a filtered listing.
type Page struct {
	Data        []Case `json:"data"`
	CurrentPage int    `json:"current_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
}

// StatusCounts are the dashboard headline numbers over non-deleted cases.
type StatusCounts struct {
	TotalCases     int64 `json:"total_cases"`
	ConfirmedCases int64 `json:"confirmed_cases"`
	SuspectedCases int64 `json:"suspected_cases"`
	RecoveredCases int64 `json:"recovered_cases"`
	DeceasedCases  int64 `json:"deceased_cases"`
}

type DiseaseCount struct {
	DiseaseID   int64  `json:"disease_id"`
	DiseaseName string `json:"disease_name"`
	DiseaseCode string `json:"disease_code"`
	Total       int64  `json:"total"`
}

type ProvinceCount struct {
	Province string `json:"province"`
	Total    int64  `json:"total"`
}

type StatusCount struct {
	Status CaseStatus `json:"status"`
	Total  int64      `json:"total"`
}

type GenderCount struct {
	Gender Gender `json:"patient_gender"`
	Total  int64  `json:"total"`
}

type AgeGroupCount struct {
	AgeGroup string `json:"age_group"`
	Total    int64  `json:"total"`
}

// TimelinePoint is the case count for one calendar day of diagnosis.
type TimelinePoint struct {
	Date  Date  `json:"date"`
	Total int64 `json:"total"`
}

// GeoPoint is one mappable case location. Not aggregated further; the map
// layer clusters client-side.
type GeoPoint struct {
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Status      CaseStatus `json:"status"`
	DiseaseID   int64      `json:"disease_id"`
	DiseaseName string     `json:"disease_name"`
}

// Repository is the persistence contract for cases and their history ledger.
// Create and Update persist the case and the optional history entry in one
// transaction: history reflects exactly the committed status changes.
type Repository interface {
	Create(ctx context.Context, c *Case, initial *HistoryEntry) error
	Update(ctx context.Context, c *Case, transition *HistoryEntry) error
	SoftDelete(ctx context.Context, id int64) error

	FindByID(ctx context.Context, id int64) (*Case, error)
	FindByCode(ctx context.Context, code string) (*Case, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
	ListForExport(ctx context.Context, filter ListFilter, limit int) ([]Case, error)

	ListHistory(ctx context.Context, caseID int64) ([]HistoryEntry, error)

	// Aggregates, all over non-deleted cases.
	CountsByStatus(ctx context.Context) (*StatusCounts, error)
	CountByDisease(ctx context.Context) ([]DiseaseCount, error)
	CountByProvince(ctx context.Context) ([]ProvinceCount, error)
	CountByStatusGrouped(ctx context.Context) ([]StatusCount, error)
	CountByGender(ctx context.Context) ([]GenderCount, error)
	ListBirthDates(ctx context.Context) ([]Date, error)
	Timeline(ctx context.Context, since time.Time) ([]TimelinePoint, error)
	GeographicPoints(ctx context.Context) ([]GeoPoint, error)
}
