package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"claimdesk/internal/claim/models"
	"claimdesk/internal/platform/postgres"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/platform/tx"
)

// PostgresClaimStore persists claims, their transitions and comments in PostgreSQL.
type PostgresClaimStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB, timeout time.Duration) *PostgresClaimStore {
	return &PostgresClaimStore{db: db, timeout: timeout}
}

const claimColumns = `id, user_id, policy_id, description, amount, status, reopen_count, version, created_at, updated_at`

// Create inserts c only while its policy exists and covers c.Amount. FOR SHARE
// makes the coverage check wait for, and re-read after, a concurrent UpdateTerms
// that holds the policy row, and keeps UpdateTerms out until the insert commits.
func (s *PostgresClaimStore) Create(ctx context.Context, c *models.Claim) error {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	exec := tx.ExecutorFrom(ctx, s.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO claims (user_id, policy_id, description, amount, status, reopen_count, version, created_at, updated_at)
		SELECT $1::bigint, p.id, $3::varchar, $4::numeric, $5::varchar, $6::integer, $7::bigint, $8::timestamptz, $9::timestamptz
		  FROM policies p
		 WHERE p.id = $2 AND ($4::numeric IS NULL OR p.coverage >= $4::numeric)
		   FOR SHARE
		RETURNING id
	`, int64(c.UserID), int64(c.PolicyID), c.Description, c.Amount, string(c.Status),
		c.ReopenCount, c.Version, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if !errors.Is(err, sql.ErrNoRows) {
		return postgres.Classify("insert claim", err)
	}

	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM policies WHERE id = $1)`, int64(c.PolicyID)).Scan(&exists); err != nil {
		return postgres.Classify("check policy", err)
	}
	if !exists {
		return fmt.Errorf("policy %d: %w", c.PolicyID, sentinel.ErrDanglingReference)
	}
	return fmt.Errorf("claim amount %s exceeds coverage of policy %d: %w", c.Amount, c.PolicyID, sentinel.ErrInvalidState)
}

func (s *PostgresClaimStore) FindByID(ctx context.Context, id domain.ClaimID) (*models.Claim, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, int64(id))
	return scanClaim(row, "find claim")
}

func (s *PostgresClaimStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.Claim, error) {
	return s.queryClaims(ctx, "list claims by user",
		`SELECT `+claimColumns+` FROM claims WHERE user_id = $1 ORDER BY id`, int64(userID))
}

// ListByStatus backs the review queue.
func (s *PostgresClaimStore) ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.Claim, error) {
	raw := make([]string, len(statuses))
	for i, st := range statuses {
		raw[i] = string(st)
	}
	return s.queryClaims(ctx, "list claims by status",
		`SELECT `+claimColumns+` FROM claims WHERE status = ANY($1) ORDER BY id`, pq.Array(raw))
}

func (s *PostgresClaimStore) queryClaims(ctx context.Context, op, query string, args ...any) ([]*models.Claim, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.Classify(op, err)
	}
	defer rows.Close()

	out := make([]*models.Claim, 0)
	for rows.Next() {
		c, err := scanClaim(rows, op)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify(op, err)
	}
	return out, nil
}

// UpdateStatus is a compare-and-set on (status, version). The transition row is
// inserted in the same transaction, so history and status never disagree.
func (s *PostgresClaimStore) UpdateStatus(ctx context.Context, next *models.Claim, expectedStatus models.Status, expectedVersion int64, t *models.Transition) error {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			UPDATE claims
			   SET status = $2, reopen_count = $3, version = $4, updated_at = $5
			 WHERE id = $1 AND status = $6 AND version = $7
		`, int64(next.ID), string(next.Status), next.ReopenCount, next.Version, next.UpdatedAt,
			string(expectedStatus), expectedVersion)
		if err != nil {
			return postgres.Classify("update claim status", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return postgres.Classify("update claim status", err)
		}
		if n == 0 {
			var exists bool
			if err := exec.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM claims WHERE id = $1)`, int64(next.ID)).Scan(&exists); err != nil {
				return postgres.Classify("check claim", err)
			}
			if !exists {
				return fmt.Errorf("claim %d: %w", next.ID, sentinel.ErrNotFound)
			}
			return fmt.Errorf("claim %d changed since version %d: %w", next.ID, expectedVersion, sentinel.ErrStale)
		}

		_, err = exec.ExecContext(ctx, `
			INSERT INTO claim_transitions (id, claim_id, from_status, to_status, actor_id, actor_role, note, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, t.ID, int64(t.ClaimID), string(t.From), string(t.To), int64(t.ActorID), string(t.ActorRole), t.Note, t.OccurredAt)
		return postgres.Classify("insert claim transition", err)
	})
	return postgres.Classify("transition claim", err)
}

func (s *PostgresClaimStore) ListTransitions(ctx context.Context, id domain.ClaimID) ([]*models.Transition, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, from_status, to_status, actor_id, actor_role, note, occurred_at
		  FROM claim_transitions
		 WHERE claim_id = $1
		 ORDER BY occurred_at, id
	`, int64(id))
	if err != nil {
		return nil, postgres.Classify("list claim transitions", err)
	}
	defer rows.Close()

	out := make([]*models.Transition, 0)
	for rows.Next() {
		var (
			t                models.Transition
			claimID, actorID int64
			from, to, role   string
		)
		if err := rows.Scan(&t.ID, &claimID, &from, &to, &actorID, &role, &t.Note, &t.OccurredAt); err != nil {
			return nil, postgres.Classify("scan claim transition", err)
		}
		t.ClaimID = domain.ClaimID(claimID)
		t.From = models.Status(from)
		t.To = models.Status(to)
		t.ActorID = domain.UserID(actorID)
		t.ActorRole = domain.Role(role)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify("list claim transitions", err)
	}
	return out, nil
}

func (s *PostgresClaimStore) AddComment(ctx context.Context, c *models.Comment) error {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO claim_comments (id, claim_id, author_id, author_role, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, int64(c.ClaimID), int64(c.AuthorID), string(c.AuthorRole), c.Body, c.CreatedAt)
	return postgres.Classify("insert claim comment", err)
}

func (s *PostgresClaimStore) ListComments(ctx context.Context, id domain.ClaimID) ([]*models.Comment, error) {
	ctx, cancel := postgres.Bound(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, author_id, author_role, body, created_at
		  FROM claim_comments
		 WHERE claim_id = $1
		 ORDER BY created_at, id
	`, int64(id))
	if err != nil {
		return nil, postgres.Classify("list claim comments", err)
	}
	defer rows.Close()

	out := make([]*models.Comment, 0)
	for rows.Next() {
		var (
			c                 models.Comment
			claimID, authorID int64
			role              string
		)
		if err := rows.Scan(&c.ID, &claimID, &authorID, &role, &c.Body, &c.CreatedAt); err != nil {
			return nil, postgres.Classify("scan claim comment", err)
		}
		c.ClaimID = domain.ClaimID(claimID)
		c.AuthorID = domain.UserID(authorID)
		c.AuthorRole = domain.Role(role)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify("list claim comments", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(row scanner, op string) (*models.Claim, error) {
	var (
		c                    models.Claim
		id, userID, policyID int64
		status               string
		amount               sql.Null[domain.Amount]
	)
	err := row.Scan(&id, &userID, &policyID, &c.Description, &amount, &status,
		&c.ReopenCount, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, postgres.Classify(op, err)
	}
	c.ID = domain.ClaimID(id)
	c.UserID = domain.UserID(userID)
	c.PolicyID = domain.PolicyID(policyID)
	c.Status = models.Status(status)
	if amount.Valid {
		v := amount.V
		c.Amount = &v
	}
	return &c, nil
}
