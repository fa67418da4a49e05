package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/case/domain"
	caseservice "github.com/angola-gov/vigilancia/internal/case/service"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/cache"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// countingRepo backs both the lifecycle service and the stats service, so the
// shared cache sits between a real write path and a real aggregate read path.
// statusReads counts how often the dashboard actually hits the store of record.
type countingRepo struct {
	domain.Repository
	nextID      int64
	cases       map[int64]*domain.Case
	statusReads int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{nextID: 1, cases: make(map[int64]*domain.Case)}
}

func (r *countingRepo) Create(_ context.Context, c *domain.Case, _ *domain.HistoryEntry) error {
	c.ID = r.nextID
	r.nextID++
	clone := *c
	r.cases[c.ID] = &clone
	return nil
}

func (r *countingRepo) Update(_ context.Context, c *domain.Case, _ *domain.HistoryEntry) error {
	if _, ok := r.cases[c.ID]; !ok {
		return errors.NotFound("case", "")
	}
	clone := *c
	r.cases[c.ID] = &clone
	return nil
}

func (r *countingRepo) SoftDelete(_ context.Context, id int64) error {
	c, ok := r.cases[id]
	if !ok || c.DeletedAt != nil {
		return errors.NotFound("case", "")
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (r *countingRepo) FindByID(_ context.Context, id int64) (*domain.Case, error) {
	c, ok := r.cases[id]
	if !ok || c.DeletedAt != nil {
		return nil, errors.NotFound("case", "")
	}
	clone := *c
	return &clone, nil
}

func (r *countingRepo) CountsByStatus(_ context.Context) (*domain.StatusCounts, error) {
	r.statusReads++
	var counts domain.StatusCounts
	for _, c := range r.cases {
		if c.DeletedAt != nil {
			continue
		}
		counts.TotalCases++
		switch c.Status {
		case domain.StatusSuspected:
			counts.SuspectedCases++
		case domain.StatusConfirmed:
			counts.ConfirmedCases++
		case domain.StatusRecovered:
			counts.RecoveredCases++
		case domain.StatusDeceased:
			counts.DeceasedCases++
		}
	}
	return &counts, nil
}

type allowAllDiseases struct{}

func (allowAllDiseases) Exists(_ context.Context, _ int64) (bool, error) { return true, nil }

type fixedCounter int64

func (c fixedCounter) CountActive(_ context.Context) (int64, error) { return int64(c), nil }

func registrationInput() domain.CreateInput {
	return domain.CreateInput{
		DiseaseID:        1,
		PatientName:      "Maria dos Santos",
		PatientDOB:       domain.NewDate(1990, time.March, 15),
		PatientGender:    domain.GenderFemale,
		SymptomsReported: "Fever, chills",
		SymptomOnsetDate: domain.NewDate(2025, time.June, 1),
		DiagnosisDate:    domain.NewDate(2025, time.June, 5),
		Province:         "Luanda",
		Municipality:     "Belas",
	}
}

func TestDashboardReflectsCaseWritesThroughSharedCache(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	store := cache.NewMemoryStore()
	recorder := audit.NewRecorder(zap.NewNop(), 64)
	defer recorder.Close()

	lifecycle := caseservice.NewService(repo, allowAllDiseases{}, store, recorder, zap.NewNop())
	dashboards := NewService(repo, store, time.Minute, fixedCounter(3), fixedCounter(1))
	actor := auth.User{ID: 2, Name: "Dr. Kiala", Email: "kiala@saude.gov.ao", Role: auth.RoleHealthProfessional}

	c, err := lifecycle.Create(ctx, actor, registrationInput())
	require.NoError(t, err)

	dash, err := dashboards.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.TotalCases)
	assert.Equal(t, int64(1), dash.SuspectedCases)
	assert.Equal(t, int64(3), dash.ActiveDiseases)
	assert.Equal(t, int64(1), dash.ActiveAlerts)

	// A second read is served from the cache.
	_, err = dashboards.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.statusReads)

	confirmed := domain.StatusConfirmed
	_, err = lifecycle.Update(ctx, actor, c.ID, domain.UpdateInput{Status: &confirmed})
	require.NoError(t, err)

	dash, err = dashboards.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.statusReads, "case write must drop the cached counts")
	assert.Equal(t, int64(1), dash.ConfirmedCases)
	assert.Equal(t, int64(0), dash.SuspectedCases)

	require.NoError(t, lifecycle.Delete(ctx, actor, c.ID))

	dash, err = dashboards.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.statusReads)
	assert.Equal(t, int64(0), dash.TotalCases)
}
