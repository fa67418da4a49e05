package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/cache"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// fakeRepo is an in-memory domain.Repository covering the paths the
// lifecycle service exercises.
type fakeRepo struct {
	nextID    int64
	cases     map[int64]*domain.Case
	histories map[int64][]domain.HistoryEntry
	codes     map[string]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:    1,
		cases:     make(map[int64]*domain.Case),
		histories: make(map[int64][]domain.HistoryEntry),
		codes:     make(map[string]int64),
	}
}

func (f *fakeRepo) Create(_ context.Context, c *domain.Case, initial *domain.HistoryEntry) error {
	if _, taken := f.codes[c.PatientCode]; taken {
		return domain.ErrDuplicateCode
	}
	c.ID = f.nextID
	f.nextID++
	clone := *c
	f.cases[c.ID] = &clone
	f.codes[c.PatientCode] = c.ID
	if initial != nil {
		initial.CaseID = c.ID
		f.histories[c.ID] = append(f.histories[c.ID], *initial)
	}
	return nil
}

func (f *fakeRepo) Update(_ context.Context, c *domain.Case, transition *domain.HistoryEntry) error {
	existing, ok := f.cases[c.ID]
	if !ok || existing.DeletedAt != nil {
		return errors.NotFound("case", "")
	}
	clone := *c
	f.cases[c.ID] = &clone
	if transition != nil {
		f.histories[c.ID] = append(f.histories[c.ID], *transition)
	}
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id int64) error {
	c, ok := f.cases[id]
	if !ok || c.DeletedAt != nil {
		return errors.NotFound("case", "")
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id int64) (*domain.Case, error) {
	c, ok := f.cases[id]
	if !ok || c.DeletedAt != nil {
		return nil, errors.NotFound("case", "")
	}
	clone := *c
	return &clone, nil
}

func (f *fakeRepo) FindByCode(_ context.Context, code string) (*domain.Case, error) {
	id, ok := f.codes[code]
	if !ok {
		return nil, errors.NotFound("case", code)
	}
	return f.FindByID(context.Background(), id)
}

func (f *fakeRepo) List(_ context.Context, _ domain.ListFilter) (*domain.Page, error) {
	var data []domain.Case
	for _, c := range f.cases {
		if c.DeletedAt == nil {
			data = append(data, *c)
		}
	}
	return &domain.Page{Data: data, CurrentPage: 1, PerPage: 15, Total: len(data)}, nil
}

func (f *fakeRepo) ListForExport(_ context.Context, _ domain.ListFilter, _ int) ([]domain.Case, error) {
	return nil, nil
}

func (f *fakeRepo) ListHistory(_ context.Context, caseID int64) ([]domain.HistoryEntry, error) {
	entries := f.histories[caseID]
	// newest first, as the store returns them
	reversed := make([]domain.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		reversed = append(reversed, entries[i])
	}
	return reversed, nil
}

func (f *fakeRepo) CountsByStatus(_ context.Context) (*domain.StatusCounts, error) { return nil, nil }
func (f *fakeRepo) CountByDisease(_ context.Context) ([]domain.DiseaseCount, error) {
	return nil, nil
}
func (f *fakeRepo) CountByProvince(_ context.Context) ([]domain.ProvinceCount, error) {
	return nil, nil
}
func (f *fakeRepo) CountByStatusGrouped(_ context.Context) ([]domain.StatusCount, error) {
	return nil, nil
}
func (f *fakeRepo) CountByGender(_ context.Context) ([]domain.GenderCount, error) { return nil, nil }
func (f *fakeRepo) ListBirthDates(_ context.Context) ([]domain.Date, error)       { return nil, nil }
func (f *fakeRepo) Timeline(_ context.Context, _ time.Time) ([]domain.TimelinePoint, error) {
	return nil, nil
}
func (f *fakeRepo) GeographicPoints(_ context.Context) ([]domain.GeoPoint, error) { return nil, nil }

type fakeDiseases struct {
	known map[int64]bool
}

func (f fakeDiseases) Exists(_ context.Context, id int64) (bool, error) {
	return f.known[id], nil
}

func newTestService(repo *fakeRepo) (*Service, *audit.Recorder) {
	recorder := audit.NewRecorder(zap.NewNop(), 64)
	svc := NewService(repo, fakeDiseases{known: map[int64]bool{1: true}},
		cache.NewMemoryStore(), recorder, zap.NewNop())
	return svc, recorder
}

func professional() auth.User {
	return auth.User{ID: 2, Name: "Dr. Kiala", Email: "kiala@saude.gov.ao", Role: auth.RoleHealthProfessional}
}

func validInput() domain.CreateInput {
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

func TestCreateWritesInitialHistory(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)
	require.NotNil(t, c)

	history, err := repo.ListHistory(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	entry := history[0]
	assert.Nil(t, entry.PreviousStatus)
	assert.Equal(t, domain.StatusSuspected, entry.NewStatus)
	assert.Equal(t, domain.HistoryNoteCreated, entry.Notes)
	assert.Equal(t, int64(2), entry.UserID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, recorder := newTestService(newFakeRepo())
	defer recorder.Close()

	in := validInput()
	in.PatientName = ""

	_, err := svc.Create(context.Background(), professional(), in)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 422, appErr.HTTPStatus)
	assert.Contains(t, appErr.Details, "patient_name")
}

func TestCreateRejectsUnknownDisease(t *testing.T) {
	svc, recorder := newTestService(newFakeRepo())
	defer recorder.Close()

	in := validInput()
	in.DiseaseID = 99

	_, err := svc.Create(context.Background(), professional(), in)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestCreateCallerCodeConflict(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	first, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)

	// A caller-supplied duplicate conflicts outright; generated codes keep
	// allocating alongside existing cases.
	in := validInput()
	in.PatientCode = first.PatientCode
	_, err = svc.Create(context.Background(), professional(), in)
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.HTTPStatus)

	second, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.PatientCode, second.PatientCode)
}

// collidingRepo reports a duplicate code for the first n Create calls.
type collidingRepo struct {
	*fakeRepo
	remaining int
	attempts  []string
}

func (c *collidingRepo) Create(ctx context.Context, cs *domain.Case, initial *domain.HistoryEntry) error {
	c.attempts = append(c.attempts, cs.PatientCode)
	if c.remaining > 0 {
		c.remaining--
		return domain.ErrDuplicateCode
	}
	return c.fakeRepo.Create(ctx, cs, initial)
}

func TestCreateRegeneratesCodeOnCollision(t *testing.T) {
	repo := &collidingRepo{fakeRepo: newFakeRepo(), remaining: 2}
	recorder := audit.NewRecorder(zap.NewNop(), 64)
	defer recorder.Close()
	svc := NewService(repo, fakeDiseases{known: map[int64]bool{1: true}},
		cache.NewMemoryStore(), recorder, zap.NewNop())

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)
	require.Len(t, repo.attempts, 3)
	assert.NotEqual(t, repo.attempts[0], repo.attempts[2])
	assert.Equal(t, repo.attempts[2], c.PatientCode)
}

func TestCreateGivesUpAfterBoundedRetries(t *testing.T) {
	repo := &collidingRepo{fakeRepo: newFakeRepo(), remaining: 10}
	recorder := audit.NewRecorder(zap.NewNop(), 64)
	defer recorder.Close()
	svc := NewService(repo, fakeDiseases{known: map[int64]bool{1: true}},
		cache.NewMemoryStore(), recorder, zap.NewNop())

	_, err := svc.Create(context.Background(), professional(), validInput())
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.HTTPStatus)
	assert.Len(t, repo.attempts, codeRetries)
}

func TestUpdateStatusChangeAppendsHistory(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)

	confirmed := domain.StatusConfirmed
	notes := "Lab result positive"
	updated, err := svc.Update(context.Background(), professional(), c.ID,
		domain.UpdateInput{Status: &confirmed, StatusNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)

	history, err := repo.ListHistory(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	latest := history[0]
	require.NotNil(t, latest.PreviousStatus)
	assert.Equal(t, domain.StatusSuspected, *latest.PreviousStatus)
	assert.Equal(t, domain.StatusConfirmed, latest.NewStatus)
	assert.Equal(t, "Lab result positive", latest.Notes)
}

func TestUpdateWithoutStatusChangeLeavesLedgerAlone(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)

	province := "Huambo"
	_, err = svc.Update(context.Background(), professional(), c.ID,
		domain.UpdateInput{Province: &province})
	require.NoError(t, err)

	// Same status in the patch is not a transition either.
	same := domain.StatusSuspected
	_, err = svc.Update(context.Background(), professional(), c.ID,
		domain.UpdateInput{Status: &same})
	require.NoError(t, err)

	history, err := repo.ListHistory(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateStatusChangeUsesDefaultNote(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)

	recovered := domain.StatusRecovered
	_, err = svc.Update(context.Background(), professional(), c.ID,
		domain.UpdateInput{Status: &recovered})
	require.NoError(t, err)

	history, _ := repo.ListHistory(context.Background(), c.ID)
	assert.Equal(t, domain.HistoryNoteStatusChange, history[0].Notes)
}

func TestDeleteHidesCaseFromReads(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), professional(), c.ID))

	_, err = svc.GetWithDetails(context.Background(), c.ID)
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.HTTPStatus)

	err = svc.Delete(context.Background(), professional(), c.ID)
	require.Error(t, err, "second delete should report not found")
}

func TestGetWithDetailsAssemblesProjections(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	idNumber := "001234567LA041"
	in := validInput()
	in.PatientIDNumber = &idNumber

	c, err := svc.Create(context.Background(), professional(), in)
	require.NoError(t, err)

	details, err := svc.GetWithDetails(context.Background(), c.ID)
	require.NoError(t, err)

	require.NotNil(t, details.MaskedIDNumber)
	assert.Equal(t, "****A041", *details.MaskedIDNumber)
	assert.Contains(t, details.QRData, c.PatientCode)
	assert.NotContains(t, details.QRData, idNumber)
	assert.Len(t, details.History, 1)

	payload, err := json.Marshal(details)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"histories":`)
	assert.NotContains(t, string(payload), `"history":`)
}

func TestPublicVerifyRedacts(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(repo)
	defer recorder.Close()

	c, err := svc.Create(context.Background(), professional(), validInput())
	require.NoError(t, err)

	v, err := svc.PublicVerify(context.Background(), c.PatientCode)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, "M**** D** S*****", v.Initials)
	assert.Equal(t, c.PatientCode, v.Code)
}

func TestPublicVerifyUnknownCode(t *testing.T) {
	svc, recorder := newTestService(newFakeRepo())
	defer recorder.Close()

	_, err := svc.PublicVerify(context.Background(), "CASE-UNKNOWN1")
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.HTTPStatus)
}
