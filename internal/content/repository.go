package content

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

// cacheTagContent marks cached reads of published educational entries.
const cacheTagContent = "content"

// slugAttempts bounds discriminator retries on slug collision.
const slugAttempts = 5

// Repository provides database operations for educational content
type Repository struct {
	pool  *pgxpool.Pool
	store cache.Store
	ttl   time.Duration
}

// NewRepository creates a new content repository
func NewRepository(pool *pgxpool.Pool, store cache.Store, ttl time.Duration) *Repository {
	return &Repository{pool: pool, store: store, ttl: ttl}
}

const contentColumns = `c.id, c.disease_id, d.name, c.title, c.slug, c.content, c.type,
	c.image_url, c.is_published, c.author_id, c.created_at, c.updated_at`

func scanContent(row pgx.Row) (*Content, error) {
	c := &Content{}
	err := row.Scan(
		&c.ID, &c.DiseaseID, &c.DiseaseName, &c.Title, &c.Slug, &c.Body, &c.Type,
		&c.ImageURL, &c.IsPublished, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new entry, appending a numeric discriminator when the
// title-derived slug is taken.
func (r *Repository) Create(ctx context.Context, c *Content) error {
	base := c.Slug
	for attempt := 0; attempt < slugAttempts; attempt++ {
		if attempt > 0 {
			c.Slug = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO educational_contents (disease_id, title, slug, content, type,
				image_url, is_published, author_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			c.DiseaseID, c.Title, c.Slug, c.Body, c.Type,
			c.ImageURL, c.IsPublished, c.AuthorID, c.CreatedAt, c.UpdatedAt,
		).Scan(&c.ID)
		if err == nil {
			r.invalidate(ctx)
			return nil
		}
		if !strings.Contains(err.Error(), "duplicate key") {
			return errors.Wrap(err, "failed to create content")
		}
	}
	return errors.Conflict("could not allocate a unique slug for this title")
}

// Update replaces an entry row
func (r *Repository) Update(ctx context.Context, c *Content) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE educational_contents SET
			disease_id = $2, title = $3, slug = $4, content = $5, type = $6,
			image_url = $7, is_published = $8, updated_at = $9
		WHERE id = $1`,
		c.ID, c.DiseaseID, c.Title, c.Slug, c.Body, c.Type,
		c.ImageURL, c.IsPublished, c.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("another entry already uses this slug")
		}
		return errors.Wrap(err, "failed to update content")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("content", fmt.Sprintf("%d", c.ID))
	}

	r.invalidate(ctx)
	return nil
}

// Delete removes an entry
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM educational_contents WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete content")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("content", fmt.Sprintf("%d", id))
	}

	r.invalidate(ctx)
	return nil
}

// FindByID retrieves an entry by ID regardless of publication state.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Content, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contentColumns+`
		FROM educational_contents c
		LEFT JOIN diseases d ON d.id = c.disease_id
		WHERE c.id = $1`, id)

	c, err := scanContent(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("content", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find content")
	}
	return c, nil
}

// FindPublishedBySlug resolves a public URL slug to its published entry.
func (r *Repository) FindPublishedBySlug(ctx context.Context, slug string) (*Content, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contentColumns+`
		FROM educational_contents c
		LEFT JOIN diseases d ON d.id = c.disease_id
		WHERE c.slug = $1 AND c.is_published = TRUE`, slug)

	c, err := scanContent(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("content", slug)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find content by slug")
	}
	return c, nil
}

// ListPublished returns published entries for the public site, cached.
// An empty contentType returns every type.
func (r *Repository) ListPublished(ctx context.Context, contentType ContentType) ([]Content, error) {
	key := "content.published"
	if contentType != "" {
		key += "." + string(contentType)
	}
	return cache.Remember(ctx, r.store, key, r.ttl, []string{cacheTagContent},
		func(ctx context.Context) ([]Content, error) {
			query := `
				SELECT ` + contentColumns + `
				FROM educational_contents c
				LEFT JOIN diseases d ON d.id = c.disease_id
				WHERE c.is_published = TRUE`
			var args []interface{}
			if contentType != "" {
				query += ` AND c.type = $1`
				args = append(args, contentType)
			}
			query += ` ORDER BY c.created_at DESC`

			rows, err := r.pool.Query(ctx, query, args...)
			if err != nil {
				return nil, errors.Wrap(err, "failed to list published content")
			}
			defer rows.Close()

			return collectContent(rows)
		})
}

// ListAll returns every entry for management views, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Content, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contentColumns+`
		FROM educational_contents c
		LEFT JOIN diseases d ON d.id = c.disease_id
		ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list content")
	}
	defer rows.Close()

	return collectContent(rows)
}

func collectContent(rows pgx.Rows) ([]Content, error) {
	var entries []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan content")
		}
		entries = append(entries, *c)
	}
	return entries, nil
}

func (r *Repository) invalidate(ctx context.Context) {
	_ = r.store.InvalidateTags(ctx, cacheTagContent)
}
