package user

import (
	"context"
	"database/sql"
	"time"

	"claimdesk/internal/auth/models"
	"claimdesk/internal/platform/postgres"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed user store. Every call is bounded by timeout.
func NewPostgres(db *sql.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

const userColumns = `id, username, email, password_hash, role, disabled_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return postgres.Classify("insert user", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(id))
	return scanUser(row, "find user by id")
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row, "find user by username")
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id domain.UserID, role domain.Role, now time.Time) error {
	return s.exec(ctx, "update user role",
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, int64(id), string(role), now)
}

func (s *PostgresStore) Disable(ctx context.Context, id domain.UserID, now time.Time) error {
	return s.exec(ctx, "disable user",
		`UPDATE users SET disabled_at = COALESCE(disabled_at, $2), updated_at = $2 WHERE id = $1`, int64(id), now)
}

func (s *PostgresStore) Enable(ctx context.Context, id domain.UserID, now time.Time) error {
	return s.exec(ctx, "enable user",
		`UPDATE users SET disabled_at = NULL, updated_at = $2 WHERE id = $1`, int64(id), now)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, postgres.Classify("list users", err)
	}
	defer rows.Close()

	out := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows, "scan user")
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify("list users", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id domain.UserID, hash string, now time.Time) error {
	return s.exec(ctx, "update password hash",
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, int64(id), hash, now)
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) error {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.Classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.Classify(op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, op string) (*models.User, error) {
	var (
		u          models.User
		id         int64
		role       string
		disabledAt sql.NullTime
	)
	if err := row.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &role, &disabledAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, postgres.Classify(op, err)
	}
	u.ID = domain.UserID(id)
	u.Role = domain.Role(role)
	if disabledAt.Valid {
		at := disabledAt.Time
		u.DisabledAt = &at
	}
	return &u, nil
}
