package leaderboard

import (
	"context"
	"fmt"
	"strings"
)

// Open selects a Store implementation by the scheme of dsn: a
// "postgres://" or "postgresql://" URL opens PostgresStore; anything else
// (a bare file path, or a "sqlite://" URL) opens SQLiteStore.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("leaderboard database URL is empty")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(ctx, dsn)
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	return OpenSQLite(path)
}
