package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/angola-gov/vigilancia/internal/audit"
	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/privacy"
	"github.com/angola-gov/vigilancia/internal/shared/auth"
	"github.com/angola-gov/vigilancia/internal/shared/cache"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
	"github.com/angola-gov/vigilancia/internal/shared/metrics"
)

// codeRetries bounds regeneration attempts when a generated patient code
// collides with an existing one.
const codeRetries = 3

// DiseaseChecker answers whether a disease can receive new cases.
type DiseaseChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service implements the case lifecycle: registration, updates with status
// ledger entries, soft deletion, detail assembly and public verification.
type Service struct {
	repo     domain.Repository
	diseases DiseaseChecker
	store    cache.Store
	recorder *audit.Recorder
	logger   *zap.Logger
}

func NewService(repo domain.Repository, diseases DiseaseChecker, store cache.Store, recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		diseases: diseases,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// Create registers a new case and writes its initial history entry. A caller
// supplied patient code that collides fails outright; a generated code is
// regenerated and retried a bounded number of times.
func (s *Service) Create(ctx context.Context, actor auth.User, in domain.CreateInput) (*domain.Case, error) {
	if violations := in.Validate(); len(violations) > 0 {
		return nil, errors.Validation("case data is invalid", violations)
	}

	exists, err := s.diseases.Exists(ctx, in.DiseaseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound("disease", fmt.Sprintf("%d", in.DiseaseID))
	}

	c := domain.NewCase(in, actor.ID)
	callerCode := in.PatientCode != ""

	for attempt := 0; ; attempt++ {
		initial := domain.NewHistoryEntry(0, actor.ID, nil, c.Status, domain.HistoryNoteCreated)
		err = s.repo.Create(ctx, c, initial)
		if err == nil {
			break
		}
		if err != domain.ErrDuplicateCode {
			return nil, err
		}
		if callerCode {
			return nil, errors.Conflict("patient code already in use")
		}
		if attempt+1 >= codeRetries {
			return nil, errors.Conflict("could not allocate a unique patient code")
		}
		c.PatientCode = domain.NewPatientCode()
	}

	s.invalidate(ctx, domain.CacheTag)
	metrics.RecordCaseRegistered(c.Province, string(c.Status))
	s.recorder.Record(audit.Entry{
		Action:     "case.created",
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Resource:   "case",
		ResourceID: c.PatientCode,
		Fields: map[string]interface{}{
			"disease_id": c.DiseaseID,
			"province":   c.Province,
			"status":     c.Status,
		},
	})

	return s.repo.FindByID(ctx, c.ID)
}

// Update applies a partial patch. When the patch moves the status, the
// transition is appended to the history ledger in the same transaction.
func (s *Service) Update(ctx context.Context, actor auth.User, id int64, in domain.UpdateInput) (*domain.Case, error) {
	if violations := in.Validate(); len(violations) > 0 {
		return nil, errors.Validation("case data is invalid", violations)
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.DiseaseID != nil && *in.DiseaseID != c.DiseaseID {
		exists, err := s.diseases.Exists(ctx, *in.DiseaseID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.NotFound("disease", fmt.Sprintf("%d", *in.DiseaseID))
		}
	}

	var transition *domain.HistoryEntry
	if in.Status != nil && *in.Status != c.Status {
		previous := c.Status
		notes := domain.HistoryNoteStatusChange
		if in.StatusNotes != nil && *in.StatusNotes != "" {
			notes = *in.StatusNotes
		}
		transition = domain.NewHistoryEntry(c.ID, actor.ID, &previous, *in.Status, notes)
	}

	c.Apply(in)
	if err := s.repo.Update(ctx, c, transition); err != nil {
		return nil, err
	}

	s.invalidate(ctx, domain.CacheTag)
	if transition != nil {
		metrics.RecordCaseStatusChange(string(*transition.PreviousStatus), string(transition.NewStatus))
	}
	s.recorder.Record(audit.Entry{
		Action:     "case.updated",
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Resource:   "case",
		ResourceID: c.PatientCode,
		Fields: map[string]interface{}{
			"status_changed": transition != nil,
			"status":         c.Status,
		},
	})

	return s.repo.FindByID(ctx, c.ID)
}

// Delete soft-deletes the case. History remains readable through admin
// tooling; the case disappears from every listing and aggregate.
func (s *Service) Delete(ctx context.Context, actor auth.User, id int64) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, domain.CacheTag)
	s.recorder.Record(audit.Entry{
		Action:     "case.deleted",
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Resource:   "case",
		ResourceID: c.PatientCode,
	})
	return nil
}

// Details is a case joined with its history ledger and derived privacy
// projections.
type Details struct {
	domain.Case
	MaskedIDNumber *string               `json:"masked_id_number"`
	QRData         string                `json:"qr_data"`
	History        []domain.HistoryEntry `json:"histories"`
}

// GetWithDetails loads one case with its full status timeline, the masked
// national identifier and the QR payload for its patient card.
func (s *Service) GetWithDetails(ctx context.Context, id int64) (*Details, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListHistory(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	return &Details{
		Case:           *c,
		MaskedIDNumber: privacy.MaskIdentifier(c.PatientIDNumber),
		QRData:         privacy.QRData(c, time.Now()),
		History:        history,
	}, nil
}

// List returns a filtered page of cases.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (*domain.Page, error) {
	return s.repo.List(ctx, filter)
}

// PublicVerify resolves a patient code to the redacted public view. Unknown
// and deleted codes are indistinguishable from the caller's perspective.
func (s *Service) PublicVerify(ctx context.Context, code string) (*privacy.PublicVerification, error) {
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		metrics.RecordPublicVerification(false)
		return nil, err
	}
	metrics.RecordPublicVerification(true)
	return privacy.Verify(c), nil
}

func (s *Service) invalidate(ctx context.Context, tags ...string) {
	if err := s.store.InvalidateTags(ctx, tags...); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Strings("tags", tags), zap.Error(err))
	}
}
