package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/angola-gov/vigilancia/internal/shared/cache"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// cacheTagAlerts marks cached reads of the alert board.
const cacheTagAlerts = "alerts"

// Repository provides database operations for public health alerts
type Repository struct {
	pool  *pgxpool.Pool
	store cache.Store
	ttl   time.Duration
}

// NewRepository creates a new alert repository
func NewRepository(pool *pgxpool.Pool, store cache.Store, ttl time.Duration) *Repository {
	return &Repository{pool: pool, store: store, ttl: ttl}
}

const alertColumns = `a.id, a.disease_id, d.name, a.title, a.message, a.severity,
	a.affected_area, a.is_active, a.expires_at, a.created_by, a.created_at, a.updated_at`

// activeClause keeps expired alerts out of the public board without a
// background sweeper.
const activeClause = `a.is_active = TRUE AND (a.expires_at IS NULL OR a.expires_at > NOW())`

func scanAlert(row pgx.Row) (*Alert, error) {
	a := &Alert{}
	err := row.Scan(
		&a.ID, &a.DiseaseID, &a.DiseaseName, &a.Title, &a.Message, &a.Severity,
		&a.AffectedArea, &a.IsActive, &a.ExpiresAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new alert
func (r *Repository) Create(ctx context.Context, a *Alert) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO alerts (disease_id, title, message, severity, affected_area,
			is_active, expires_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		a.DiseaseID, a.Title, a.Message, a.Severity, a.AffectedArea,
		a.IsActive, a.ExpiresAt, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return errors.Wrap(err, "failed to create alert")
	}

	r.invalidate(ctx)
	return nil
}

// Update replaces an alert row
func (r *Repository) Update(ctx context.Context, a *Alert) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE alerts SET
			disease_id = $2, title = $3, message = $4, severity = $5,
			affected_area = $6, is_active = $7, expires_at = $8, updated_at = $9
		WHERE id = $1`,
		a.ID, a.DiseaseID, a.Title, a.Message, a.Severity,
		a.AffectedArea, a.IsActive, a.ExpiresAt, a.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update alert")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("alert", fmt.Sprintf("%d", a.ID))
	}

	r.invalidate(ctx)
	return nil
}

// Delete removes an alert
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete alert")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("alert", fmt.Sprintf("%d", id))
	}

	r.invalidate(ctx)
	return nil
}

// FindByID retrieves an alert by ID
func (r *Repository) FindByID(ctx context.Context, id int64) (*Alert, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+alertColumns+`
		FROM alerts a
		LEFT JOIN diseases d ON d.id = a.disease_id
		WHERE a.id = $1`, id)

	a, err := scanAlert(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("alert", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find alert")
	}
	return a, nil
}

// ListActive returns the public alert board, most severe first, cached.
func (r *Repository) ListActive(ctx context.Context) ([]Alert, error) {
	return cache.Remember(ctx, r.store, "alerts.active", r.ttl, []string{cacheTagAlerts},
		func(ctx context.Context) ([]Alert, error) {
			rows, err := r.pool.Query(ctx, `
				SELECT `+alertColumns+`
				FROM alerts a
				LEFT JOIN diseases d ON d.id = a.disease_id
				WHERE `+activeClause+`
				ORDER BY
					CASE a.severity
						WHEN 'critical' THEN 0
						WHEN 'high' THEN 1
						WHEN 'medium' THEN 2
						ELSE 3
					END,
					a.created_at DESC`)
			if err != nil {
				return nil, errors.Wrap(err, "failed to list active alerts")
			}
			defer rows.Close()

			return collectAlerts(rows)
		})
}

// ListAll returns every alert for management views, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+alertColumns+`
		FROM alerts a
		LEFT JOIN diseases d ON d.id = a.disease_id
		ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts")
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// CountActive returns how many alerts are currently live.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts a WHERE `+activeClause).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count active alerts")
	}
	return count, nil
}

func collectAlerts(rows pgx.Rows) ([]Alert, error) {
	var alerts []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan alert")
		}
		alerts = append(alerts, *a)
	}
	return alerts, nil
}

func (r *Repository) invalidate(ctx context.Context) {
	_ = r.store.InvalidateTags(ctx, cacheTagAlerts)
}
