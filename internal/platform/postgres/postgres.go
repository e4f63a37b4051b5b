// Package postgres opens the shared *sql.DB, applies the embedded schema and
// classifies driver errors into sentinel facts for the stores.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"                 // registers the "postgres" driver

	"claimdesk/internal/platform/config"
	"claimdesk/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// SQLSTATE codes the stores care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	classConnection         = "08"
	codeAdminShutdown       = "57P01"
	codeCannotConnectNow    = "57P03"
	codeQueryCanceled       = "57014"
)

// Open connects with the configured driver and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is required")
	}
	driverName := cfg.Driver
	if driverName == "" {
		driverName = "pgx"
	}
	db, err := sql.Open(driverName, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the embedded DDL.
func Schema() string {
	return schema
}

// Health pings the database.
func Health(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// Bound derives a context limited by the store timeout. A shorter caller deadline wins.
func Bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Classify wraps err with the sentinel describing it. op prefixes the message.
// Errors that match no known fact are returned wrapped but unclassified, and
// errors already carrying a sentinel are returned as is.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return err
	}
	if s := sentinelFor(err); s != nil {
		return fmt.Errorf("%s: %w: %w", op, s, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func classified(err error) bool {
	for _, s := range []error{
		sentinel.ErrNotFound,
		sentinel.ErrConflict,
		sentinel.ErrDanglingReference,
		sentinel.ErrStale,
		sentinel.ErrInvalidState,
		sentinel.ErrUnavailable,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func sentinelFor(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return sentinel.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return sentinel.ErrUnavailable
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return sentinel.ErrUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return sentinelForCode(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return sentinelForCode(string(pqErr.Code))
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return sentinel.ErrUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return sentinel.ErrUnavailable
	}
	return nil
}

func sentinelForCode(code string) error {
	switch {
	case code == codeUniqueViolation:
		return sentinel.ErrConflict
	case code == codeForeignKeyViolation:
		return sentinel.ErrDanglingReference
	case strings.HasPrefix(code, classConnection),
		code == codeAdminShutdown,
		code == codeCannotConnectNow,
		code == codeQueryCanceled:
		return sentinel.ErrUnavailable
	default:
		return nil
	}
}
