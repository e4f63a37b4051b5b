package revocation

import (
	"context"
	"database/sql"
	"time"

	"claimdesk/internal/platform/postgres"
	"claimdesk/pkg/platform/tx"
)

// PostgresTRL keeps revocations in token_revocations so they survive restarts
// when Redis is absent. Expired rows are pruned on write.
type PostgresTRL struct {
	db      *sql.DB
	timeout time.Duration
	settings
}

func NewPostgresTRL(db *sql.DB, timeout time.Duration, opts ...Option) *PostgresTRL {
	return &PostgresTRL{db: db, timeout: timeout, settings: apply(opts)}
}

func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	ctx, cancel := postgres.Bound(ctx, t.timeout)
	defer cancel()

	now := t.clock()
	err := tx.RunInTx(ctx, t.db, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, t.db)
		if _, err := exec.ExecContext(ctx,
			`DELETE FROM token_revocations WHERE expires_at <= $1`, now); err != nil {
			return postgres.Classify("prune token revocations", err)
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO token_revocations (jti, expires_at) VALUES ($1, $2)
			ON CONFLICT (jti) DO UPDATE SET expires_at = GREATEST(token_revocations.expires_at, EXCLUDED.expires_at)
		`, jti, now.Add(ttl))
		return postgres.Classify("revoke token", err)
	})
	return postgres.Classify("revoke token", err)
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	defer t.observe("postgres", time.Now())
	ctx, cancel := postgres.Bound(ctx, t.timeout)
	defer cancel()

	var revoked bool
	err := t.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_revocations WHERE jti = $1 AND expires_at > $2)`,
		jti, t.clock()).Scan(&revoked)
	if err != nil {
		return false, postgres.Classify("check token revocation", err)
	}
	return revoked, nil
}
