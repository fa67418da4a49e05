package disease

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/angola-gov/vigilancia/internal/shared/cache"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// cacheTagDiseases marks cached reads of the disease catalogue.
const cacheTagDiseases = "diseases"

// Repository provides database operations for the disease catalogue. Reads of
// the active list go through the shared cache; writes invalidate it.
type Repository struct {
	pool  *pgxpool.Pool
	store cache.Store
	ttl   time.Duration
}

// NewRepository creates a new disease repository
func NewRepository(pool *pgxpool.Pool, store cache.Store, ttl time.Duration) *Repository {
	return &Repository{pool: pool, store: store, ttl: ttl}
}

const diseaseColumns = `id, name, code, description, symptoms, prevention, treatment,
	is_active, created_at, updated_at`

func scanDisease(row pgx.Row) (*Disease, error) {
	d := &Disease{}
	err := row.Scan(
		&d.ID, &d.Name, &d.Code, &d.Description, &d.Symptoms, &d.Prevention,
		&d.Treatment, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts a new disease
func (r *Repository) Create(ctx context.Context, d *Disease) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO diseases (name, code, description, symptoms, prevention, treatment, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		d.Name, d.Code, d.Description, d.Symptoms, d.Prevention, d.Treatment,
		d.IsActive, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("disease with this code already exists")
		}
		return errors.Wrap(err, "failed to create disease")
	}

	r.invalidate(ctx)
	return nil
}

// Update replaces a disease row
func (r *Repository) Update(ctx context.Context, d *Disease) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE diseases SET
			name = $2, code = $3, description = $4, symptoms = $5,
			prevention = $6, treatment = $7, is_active = $8, updated_at = $9
		WHERE id = $1`,
		d.ID, d.Name, d.Code, d.Description, d.Symptoms,
		d.Prevention, d.Treatment, d.IsActive, d.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("disease with this code already exists")
		}
		return errors.Wrap(err, "failed to update disease")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("disease", fmt.Sprintf("%d", d.ID))
	}

	r.invalidate(ctx)
	return nil
}

// Delete removes a disease. Cases referencing it cascade away, so deletion is
// restricted to catalogue entries with no recorded cases.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var caseCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cases WHERE disease_id = $1`, id).Scan(&caseCount)
	if err != nil {
		return errors.Wrap(err, "failed to check disease usage")
	}
	if caseCount > 0 {
		return errors.Conflict("disease has recorded cases and cannot be deleted")
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM diseases WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete disease")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("disease", fmt.Sprintf("%d", id))
	}

	r.invalidate(ctx)
	return nil
}

// FindByID retrieves a disease by ID
func (r *Repository) FindByID(ctx context.Context, id int64) (*Disease, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+diseaseColumns+` FROM diseases WHERE id = $1`, id)

	d, err := scanDisease(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("disease", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find disease")
	}
	return d, nil
}

// ListActive returns active catalogue entries, cached.
func (r *Repository) ListActive(ctx context.Context) ([]Disease, error) {
	return cache.Remember(ctx, r.store, "diseases.active", r.ttl, []string{cacheTagDiseases},
		func(ctx context.Context) ([]Disease, error) {
			return r.list(ctx, true)
		})
}

// ListAll returns every catalogue entry, active or not.
func (r *Repository) ListAll(ctx context.Context) ([]Disease, error) {
	return r.list(ctx, false)
}

func (r *Repository) list(ctx context.Context, activeOnly bool) ([]Disease, error) {
	query := `SELECT ` + diseaseColumns + ` FROM diseases`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list diseases")
	}
	defer rows.Close()

	var diseases []Disease
	for rows.Next() {
		d, err := scanDisease(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan disease")
		}
		diseases = append(diseases, *d)
	}
	return diseases, nil
}

// Exists reports whether a disease with the given ID is registered.
// Deactivated diseases still accept cases; deactivation only hides them from
// the public catalogue.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM diseases WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check disease existence")
	}
	return exists, nil
}

// CountActive returns the number of active catalogue entries.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM diseases WHERE is_active = TRUE`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count diseases")
	}
	return count, nil
}

func (r *Repository) invalidate(ctx context.Context) {
	_ = r.store.InvalidateTags(ctx, cacheTagDiseases)
}
