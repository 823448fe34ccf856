package leaderboard

import (
	"context"
	"embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore is the production-shaped leaderboard backend: a single
// append-only table with an index matching the store's query ordering.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, runs pending migrations, and returns a
// ready-to-use store.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to leaderboard database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping leaderboard database: %w", err)
	}
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run leaderboard migrations: %w", err)
	}
	return nil
}

// Save appends rec under a freshly generated uuid primary key.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO retired_players (id, name, score, play_time_ms) VALUES ($1, $2, $3, $4)`,
		uuid.New(), rec.Name, rec.Score, rec.PlayTimeMillis)
	if err != nil {
		return fmt.Errorf("save retired player record: %w", err)
	}
	return nil
}

// Query returns up to limit rows starting at offset, ordered by
// (score DESC, play_time_ms ASC, name ASC).
func (s *PostgresStore) Query(ctx context.Context, offset, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, score, play_time_ms FROM retired_players
		 ORDER BY score DESC, play_time_ms ASC, name ASC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Score, &r.PlayTimeMillis); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
