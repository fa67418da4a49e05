package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/shared/cache"
)

const (
	timelineDefaultDays = 30
	timelineMaxDays     = 365
)

// AgeGroups are the reporting buckets, in display order.
var AgeGroups = []string{"0-17", "18-35", "36-50", "51-65", "65+"}

// AgeGroupFor buckets an age in whole years.
func AgeGroupFor(age int) string {
	switch {
	case age < 18:
		return AgeGroups[0]
	case age <= 35:
		return AgeGroups[1]
	case age <= 50:
		return AgeGroups[2]
	case age <= 65:
		return AgeGroups[3]
	default:
		return AgeGroups[4]
	}
}

// ClampTimelineDays normalizes the requested timeline window.
func ClampTimelineDays(days int) int {
	if days <= 0 {
		return timelineDefaultDays
	}
	if days > timelineMaxDays {
		return timelineMaxDays
	}
	return days
}

// Counter exposes the live totals merged into the dashboard.
type Counter interface {
	CountActive(ctx context.Context) (int64, error)
}

// Service computes epidemiological aggregates over the case store, cached
// under the case tag so results are dropped on every case write.
type Service struct {
	repo     domain.Repository
	store    cache.Store
	ttl      time.Duration
	diseases Counter
	alerts   Counter
}

func NewService(repo domain.Repository, store cache.Store, ttl time.Duration, diseases, alerts Counter) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		ttl:      ttl,
		diseases: diseases,
		alerts:   alerts,
	}
}

// Dashboard is the landing-page summary.
type Dashboard struct {
	domain.StatusCounts
	ActiveDiseases int64 `json:"active_diseases"`
	ActiveAlerts   int64 `json:"active_alerts"`
}

// Dashboard merges the cached case counts with live disease and alert totals.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	counts, err := cache.Remember(ctx, s.store, "cases.counts_by_status", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) (*domain.StatusCounts, error) {
			return s.repo.CountsByStatus(ctx)
		})
	if err != nil {
		return nil, err
	}

	activeDiseases, err := s.diseases.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	activeAlerts, err := s.alerts.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		StatusCounts:   *counts,
		ActiveDiseases: activeDiseases,
		ActiveAlerts:   activeAlerts,
	}, nil
}

// ByDisease returns case totals per disease, most affected first.
func (s *Service) ByDisease(ctx context.Context) ([]domain.DiseaseCount, error) {
	return cache.Remember(ctx, s.store, "cases.by_disease", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.DiseaseCount, error) {
			return s.repo.CountByDisease(ctx)
		})
}

// ByProvince returns case totals per province, most affected first.
func (s *Service) ByProvince(ctx context.Context) ([]domain.ProvinceCount, error) {
	return cache.Remember(ctx, s.store, "cases.by_province", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.ProvinceCount, error) {
			return s.repo.CountByProvince(ctx)
		})
}

// ByStatus returns case totals per clinical status.
func (s *Service) ByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return cache.Remember(ctx, s.store, "cases.by_status", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.StatusCount, error) {
			return s.repo.CountByStatusGrouped(ctx)
		})
}

// ByGender returns case totals per patient gender.
func (s *Service) ByGender(ctx context.Context) ([]domain.GenderCount, error) {
	return cache.Remember(ctx, s.store, "cases.by_gender", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.GenderCount, error) {
			return s.repo.CountByGender(ctx)
		})
}

// ByAgeGroup buckets patients into reporting age ranges. Ages are computed
// from birth dates at query time, so patients migrate between buckets as they
// age without any stored age column.
func (s *Service) ByAgeGroup(ctx context.Context) ([]domain.AgeGroupCount, error) {
	return cache.Remember(ctx, s.store, "cases.by_age", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.AgeGroupCount, error) {
			dates, err := s.repo.ListBirthDates(ctx)
			if err != nil {
				return nil, err
			}
			return BucketAges(dates, time.Now()), nil
		})
}

// BucketAges counts birth dates per age group. Every group appears in the
// result, zero counts included, in display order.
func BucketAges(dates []domain.Date, now time.Time) []domain.AgeGroupCount {
	totals := make(map[string]int64, len(AgeGroups))
	for _, d := range dates {
		totals[AgeGroupFor(d.AgeAt(now))]++
	}

	counts := make([]domain.AgeGroupCount, 0, len(AgeGroups))
	for _, group := range AgeGroups {
		counts = append(counts, domain.AgeGroupCount{AgeGroup: group, Total: totals[group]})
	}
	return counts
}

// Timeline returns daily case counts by diagnosis date for the requested
// window. Each distinct window is cached under its own key; all of them share
// the case tag.
func (s *Service) Timeline(ctx context.Context, days int) ([]domain.TimelinePoint, error) {
	days = ClampTimelineDays(days)
	key := fmt.Sprintf("cases.timeline.%d", days)

	return cache.Remember(ctx, s.store, key, s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.TimelinePoint, error) {
			since := time.Now().AddDate(0, 0, -days)
			return s.repo.Timeline(ctx, since)
		})
}

// Geographic returns mappable case locations.
func (s *Service) Geographic(ctx context.Context) ([]domain.GeoPoint, error) {
	return cache.Remember(ctx, s.store, "cases.geographic", s.ttl,
		[]string{domain.CacheTag}, func(ctx context.Context) ([]domain.GeoPoint, error) {
			return s.repo.GeographicPoints(ctx)
		})
}
