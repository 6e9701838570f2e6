package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded PostgreSQL schema in file order.
// It returns the number of files applied.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, log *logrus.Entry) (int, error) {
	files, err := Load(PostgresFS, "postgres")
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		if _, err := pool.Exec(ctx, f.SQL); err != nil {
			return 0, fmt.Errorf("apply migration %s: %w", f.Name, err)
		}
		if log != nil {
			log.WithField("file", f.Name).Debug("postgres migration applied")
		}
	}
	return len(files), nil
}
