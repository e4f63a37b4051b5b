package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"claimdesk/internal/platform/postgres"
	"claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/platform/tx"
)

// PostgresPolicyStore persists policies in PostgreSQL.
type PostgresPolicyStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed policy store.
func NewPostgres(db *sql.DB, timeout time.Duration) *PostgresPolicyStore {
	return &PostgresPolicyStore{db: db, timeout: timeout}
}

const policyColumns = `id, name, premium, coverage, owner_id, created_at, updated_at`

func (s *PostgresPolicyStore) Create(ctx context.Context, p *models.Policy) error {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO policies (name, premium, coverage, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Name, p.Premium, p.Coverage, nullableOwner(p.OwnerID), p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	return postgres.Classify("insert policy", err)
}

func (s *PostgresPolicyStore) FindByID(ctx context.Context, id domain.PolicyID) (*models.Policy, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = $1`, int64(id))
	return scanPolicy(row, "find policy")
}

func (s *PostgresPolicyStore) List(ctx context.Context) ([]*models.Policy, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+policyColumns+` FROM policies ORDER BY id`)
	if err != nil {
		return nil, postgres.Classify("list policies", err)
	}
	defer rows.Close()

	var out []*models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows, "scan policy")
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify("list policies", err)
	}
	return out, nil
}

// UpdateTerms locks the policy row before checking for claims. Claim inserts take
// a KEY SHARE lock on the policy through the foreign key, so a concurrent submit
// either commits first and is seen here or waits until this update commits.
func (s *PostgresPolicyStore) UpdateTerms(ctx context.Context, id domain.PolicyID, u models.TermsUpdate, now time.Time) (*models.Policy, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	var updated *models.Policy
	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		p, err := scanPolicy(exec.QueryRowContext(ctx,
			`SELECT `+policyColumns+` FROM policies WHERE id = $1 FOR UPDATE`, int64(id)), "lock policy")
		if err != nil {
			return err
		}

		if u.ChangesTerms(p) {
			var referenced bool
			err := exec.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM claims WHERE policy_id = $1)`, int64(id)).Scan(&referenced)
			if err != nil {
				return postgres.Classify("check policy references", err)
			}
			if referenced {
				return fmt.Errorf("policy %d is referenced by claims: %w", id, sentinel.ErrInvalidState)
			}
		}

		u.Apply(p, now)
		_, err = exec.ExecContext(ctx,
			`UPDATE policies SET name = $2, premium = $3, coverage = $4, updated_at = $5 WHERE id = $1`,
			int64(id), p.Name, p.Premium, p.Coverage, p.UpdatedAt)
		if err != nil {
			return postgres.Classify("update policy", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, postgres.Classify("update policy terms", err)
	}
	return updated, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row scanner, op string) (*models.Policy, error) {
	var (
		p     models.Policy
		id    int64
		owner sql.NullInt64
	)
	if err := row.Scan(&id, &p.Name, &p.Premium, &p.Coverage, &owner, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, postgres.Classify(op, err)
	}
	p.ID = domain.PolicyID(id)
	if owner.Valid {
		p.OwnerID = domain.UserID(owner.Int64)
	}
	return &p, nil
}

func nullableOwner(id domain.UserID) sql.NullInt64 {
	if id.IsNil() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
