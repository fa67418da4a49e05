package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Repository provides database operations for platform accounts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new user repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, phone, institution, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Phone, &u.Institution, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new account. Emails are stored lowercase.
func (r *Repository) Create(ctx context.Context, u *User) error {
	now := time.Now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now

	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, phone, institution, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Phone, u.Institution, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("an account with this email already exists")
		}
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

// FindByID retrieves an account by ID
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}
	return u, nil
}

// FindByEmail retrieves an account by email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))

	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user by email")
	}
	return u, nil
}

// List returns every account, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, *u)
	}
	return users, nil
}

// UpdateRole changes an account's role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return errors.Wrap(err, "failed to update user role")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("user", fmt.Sprintf("%d", id))
	}
	return nil
}

// Delete removes an account. Accounts that registered cases are kept so the
// case ledger retains its attribution.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var caseCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cases WHERE user_id = $1`, id).Scan(&caseCount)
	if err != nil {
		return errors.Wrap(err, "failed to check user case history")
	}
	if caseCount > 0 {
		return errors.Conflict("user has registered cases and cannot be deleted")
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("user", fmt.Sprintf("%d", id))
	}
	return nil
}
