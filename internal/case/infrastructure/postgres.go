package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const caseColumns = `
	c.id, c.disease_id, c.user_id, c.patient_code, c.patient_name,
	c.patient_dob, c.patient_id_number, c.patient_gender,
	c.symptoms_reported, c.symptom_onset_date, c.diagnosis_date, c.status,
	c.province, c.municipality, c.commune, c.latitude, c.longitude, c.notes,
	c.created_at, c.updated_at, c.deleted_at,
	d.id, d.name, d.code, u.name`

func scanCase(row pgx.Row) (*domain.Case, error) {
	c := &domain.Case{}
	var disease domain.DiseaseRef
	var registeredBy *string

	err := row.Scan(
		&c.ID, &c.DiseaseID, &c.UserID, &c.PatientCode, &c.PatientName,
		&c.PatientDOB, &c.PatientIDNumber, &c.PatientGender,
		&c.SymptomsReported, &c.SymptomOnsetDate, &c.DiagnosisDate, &c.Status,
		&c.Province, &c.Municipality, &c.Commune, &c.Latitude, &c.Longitude, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
		&disease.ID, &disease.Name, &disease.Code, &registeredBy,
	)
	if err != nil {
		return nil, err
	}

	c.Disease = &disease
	if registeredBy != nil {
		c.RegisteredBy = *registeredBy
	}
	return c, nil
}

// Create persists the case and its initial history entry in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Case, initial *domain.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO cases (
			disease_id, user_id, patient_code, patient_name,
			patient_dob, patient_id_number, patient_gender,
			symptoms_reported, symptom_onset_date, diagnosis_date, status,
			province, municipality, commune, latitude, longitude, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19
		) RETURNING id`,
		c.DiseaseID, c.UserID, c.PatientCode, c.PatientName,
		c.PatientDOB, c.PatientIDNumber, c.PatientGender,
		c.SymptomsReported, c.SymptomOnsetDate, c.DiagnosisDate, c.Status,
		c.Province, c.Municipality, c.Commune, c.Latitude, c.Longitude, c.Notes,
		c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			if strings.Contains(err.Error(), "patient_code") {
				return domain.ErrDuplicateCode
			}
			return errors.Conflict("case conflicts with an existing record")
		}
		return errors.Wrap(err, "failed to save case")
	}

	if initial != nil {
		initial.CaseID = c.ID
		if err := appendHistory(ctx, tx, initial); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Update persists case changes and, when the status moved, the transition
// entry in the same transaction so the ledger never drifts from the committed row.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Case, transition *domain.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE cases SET
			disease_id = $2, patient_name = $3, patient_dob = $4,
			patient_id_number = $5, patient_gender = $6,
			symptoms_reported = $7, symptom_onset_date = $8,
			diagnosis_date = $9, status = $10,
			province = $11, municipality = $12, commune = $13,
			latitude = $14, longitude = $15, notes = $16, updated_at = $17
		WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.DiseaseID, c.PatientName, c.PatientDOB,
		c.PatientIDNumber, c.PatientGender,
		c.SymptomsReported, c.SymptomOnsetDate,
		c.DiagnosisDate, c.Status,
		c.Province, c.Municipality, c.Commune,
		c.Latitude, c.Longitude, c.Notes, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update case")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("case", fmt.Sprintf("%d", c.ID))
	}

	if transition != nil {
		transition.CaseID = c.ID
		if err := appendHistory(ctx, tx, transition); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SoftDelete marks the case as removed. The row and its history remain for
// audit purposes.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE cases SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete case")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("case", fmt.Sprintf("%d", id))
	}
	return nil
}

// FindByID loads a non-deleted case with its disease relation.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*domain.Case, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+caseColumns+`
		FROM cases c
		JOIN diseases d ON d.id = c.disease_id
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1 AND c.deleted_at IS NULL`, id)

	c, err := scanCase(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}
	return c, nil
}

// FindByCode loads a non-deleted case by patient code.
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*domain.Case, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+caseColumns+`
		FROM cases c
		JOIN diseases d ON d.id = c.disease_id
		JOIN users u ON u.id = c.user_id
		WHERE c.patient_code = $1 AND c.deleted_at IS NULL`, code)

	c, err := scanCase(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case by code")
	}
	return c, nil
}

func buildFilter(filter domain.ListFilter) (string, []interface{}) {
	conditions := []string{"c.deleted_at IS NULL"}
	var args []interface{}
	argNum := 1

	if filter.DiseaseID != nil {
		conditions = append(conditions, fmt.Sprintf("c.disease_id = $%d", argNum))
		args = append(args, *filter.DiseaseID)
		argNum++
	}
	if filter.Province != "" {
		conditions = append(conditions, fmt.Sprintf("c.province = $%d", argNum))
		args = append(args, filter.Province)
		argNum++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		conditions = append(conditions,
			fmt.Sprintf("c.diagnosis_date BETWEEN $%d AND $%d", argNum, argNum+1))
		args = append(args, *filter.StartDate, *filter.EndDate)
		argNum += 2
	}
	if filter.Search != "" {
		conditions = append(conditions,
			fmt.Sprintf("(c.patient_name ILIKE $%d OR c.patient_code ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of cases matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) (*domain.Page, error) {
	whereClause, args := buildFilter(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM cases c " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "failed to count cases")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 15
	}

	query := fmt.Sprintf(`
		SELECT `+caseColumns+`
		FROM cases c
		JOIN diseases d ON d.id = c.disease_id
		JOIN users u ON u.id = c.user_id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	cases := make([]domain.Case, 0, perPage)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, *c)
	}

	return &domain.Page{
		Data:        cases,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
	}, nil
}

// ListForExport returns up to limit matching cases without pagination.
func (r *PostgresRepository) ListForExport(ctx context.Context, filter domain.ListFilter, limit int) ([]domain.Case, error) {
	whereClause, args := buildFilter(filter)

	query := fmt.Sprintf(`
		SELECT `+caseColumns+`
		FROM cases c
		JOIN diseases d ON d.id = c.disease_id
		JOIN users u ON u.id = c.user_id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d`, whereClause, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cases for export")
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, *c)
	}
	return cases, nil
}

// --- History ledger ---

func appendHistory(ctx context.Context, tx pgx.Tx, e *domain.HistoryEntry) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO case_histories (case_id, user_id, previous_status, new_status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.CaseID, e.UserID, e.PreviousStatus, e.NewStatus, e.Notes, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return errors.Wrap(err, "failed to append history entry")
	}
	return nil
}

// ListHistory returns the status ledger for a case, newest first.
func (r *PostgresRepository) ListHistory(ctx context.Context, caseID int64) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.id, h.case_id, h.user_id, h.previous_status, h.new_status,
			COALESCE(h.notes, ''), u.name, h.created_at
		FROM case_histories h
		JOIN users u ON u.id = h.user_id
		WHERE h.case_id = $1
		ORDER BY h.created_at DESC, h.id DESC`, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list case history")
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.CaseID, &e.UserID, &e.PreviousStatus, &e.NewStatus,
			&e.Notes, &e.UserName, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan history entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// --- Aggregates ---

func (r *PostgresRepository) CountsByStatus(ctx context.Context) (*domain.StatusCounts, error) {
	counts := &domain.StatusCounts{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'suspected'),
			COUNT(*) FILTER (WHERE status = 'recovered'),
			COUNT(*) FILTER (WHERE status = 'deceased')
		FROM cases
		WHERE deleted_at IS NULL`).Scan(
		&counts.TotalCases, &counts.ConfirmedCases, &counts.SuspectedCases,
		&counts.RecoveredCases, &counts.DeceasedCases,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cases by status")
	}
	return counts, nil
}

func (r *PostgresRepository) CountByDisease(ctx context.Context) ([]domain.DiseaseCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.disease_id, d.name, d.code, COUNT(*) AS total
		FROM cases c
		JOIN diseases d ON d.id = c.disease_id
		WHERE c.deleted_at IS NULL
		GROUP BY c.disease_id, d.name, d.code
		ORDER BY total DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cases by disease")
	}
	defer rows.Close()

	var counts []domain.DiseaseCount
	for rows.Next() {
		var dc domain.DiseaseCount
		if err := rows.Scan(&dc.DiseaseID, &dc.DiseaseName, &dc.DiseaseCode, &dc.Total); err != nil {
			return nil, errors.Wrap(err, "failed to scan disease count")
		}
		counts = append(counts, dc)
	}
	return counts, nil
}

func (r *PostgresRepository) CountByProvince(ctx context.Context) ([]domain.ProvinceCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT province, COUNT(*) AS total
		FROM cases
		WHERE deleted_at IS NULL
		GROUP BY province
		ORDER BY total DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cases by province")
	}
	defer rows.Close()

	var counts []domain.ProvinceCount
	for rows.Next() {
		var pc domain.ProvinceCount
		if err := rows.Scan(&pc.Province, &pc.Total); err != nil {
			return nil, errors.Wrap(err, "failed to scan province count")
		}
		counts = append(counts, pc)
	}
	return counts, nil
}

func (r *PostgresRepository) CountByStatusGrouped(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) AS total
		FROM cases
		WHERE deleted_at IS NULL
		GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cases by status group")
	}
	defer rows.Close()

	var counts []domain.StatusCount
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Total); err != nil {
			return nil, errors.Wrap(err, "failed to scan status count")
		}
		counts = append(counts, sc)
	}
	return counts, nil
}

func (r *PostgresRepository) CountByGender(ctx context.Context) ([]domain.GenderCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT patient_gender, COUNT(*) AS total
		FROM cases
		WHERE deleted_at IS NULL
		GROUP BY patient_gender`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cases by gender")
	}
	defer rows.Close()

	var counts []domain.GenderCount
	for rows.Next() {
		var gc domain.GenderCount
		if err := rows.Scan(&gc.Gender, &gc.Total); err != nil {
			return nil, errors.Wrap(err, "failed to scan gender count")
		}
		counts = append(counts, gc)
	}
	return counts, nil
}

// ListBirthDates feeds the age-group aggregation, which buckets in Go.
func (r *PostgresRepository) ListBirthDates(ctx context.Context) ([]domain.Date, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT patient_dob FROM cases WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list birth dates")
	}
	defer rows.Close()

	var dates []domain.Date
	for rows.Next() {
		var d domain.Date
		if err := rows.Scan(&d); err != nil {
			return nil, errors.Wrap(err, "failed to scan birth date")
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func (r *PostgresRepository) Timeline(ctx context.Context, since time.Time) ([]domain.TimelinePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT diagnosis_date, COUNT(*) AS total
		FROM cases
		WHERE deleted_at IS NULL AND diagnosis_date >= $1
		GROUP BY diagnosis_date
		ORDER BY diagnosis_date`, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load case timeline")
	}
	defer rows.Close()

	var points []domain.TimelinePoint
	for rows.Next() {
		var p domain.TimelinePoint
		if err := rows.Scan(&p.Date, &p.Total); err != nil {
			return nil, errors.Wrap(err, "failed to scan timeline point")
		}
		points = append(points, p)
	}
	return points, nil
}

func (r *PostgresRepository) GeographicPoints(ctx context.Context) ([]domain.GeoPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.latitude, c.longitude, c.status, c.disease_id, d.name
		FROM cases c
		JOIN diseases d ON d.id = c.disease_id
		WHERE c.deleted_at IS NULL
			AND c.latitude IS NOT NULL AND c.longitude IS NOT NULL`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load geographic points")
	}
	defer rows.Close()

	var points []domain.GeoPoint
	for rows.Next() {
		var p domain.GeoPoint
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Status, &p.DiseaseID, &p.DiseaseName); err != nil {
			return nil, errors.Wrap(err, "failed to scan geographic point")
		}
		points = append(points, p)
	}
	return points, nil
}
