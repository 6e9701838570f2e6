package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchpad-indexer/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// NewStores returns every entity store backed by the pool.
// History is left nil; it lives in ClickHouse when configured.
func NewStores(pool *Pool) *storage.Stores {
	return &storage.Stores{
		Tokens:     NewTokenStore(pool),
		Trades:     NewTradeStore(pool),
		Snapshots:  NewDailySnapshotStore(pool),
		Fees:       NewFeeCollectionStore(pool),
		Locks:      NewLiquidityLockStore(pool),
		Metrics:    NewTokenMetricsStore(pool),
		OnChain:    NewMetricsSnapshotStore(pool),
		Checkpoint: NewCheckpointStore(pool, storage.DefaultCheckpointKey),
	}
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrClassDataException  = "22"    // data_exception
	pgErrClassIntegrityError = "23"    // integrity_constraint_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isInvalidInputError checks if the server rejected the data itself.
// Retrying such a write can never succeed.
func isInvalidInputError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code == pgErrUniqueViolation {
		return false
	}
	return strings.HasPrefix(pgErr.Code, pgErrClassDataException) ||
		strings.HasPrefix(pgErr.Code, pgErrClassIntegrityError)
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// mapWriteError translates driver errors into storage errors.
func mapWriteError(op string, err error) error {
	switch {
	case isDuplicateKeyError(err):
		return storage.ErrDuplicateKey
	case isInvalidInputError(err):
		return fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
