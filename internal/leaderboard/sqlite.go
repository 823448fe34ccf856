package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// sqliteRow mirrors the retired_players schema for struct-tag scanning.
type sqliteRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	Score         int    `db:"score"`
	PlayTimeMs    int64  `db:"play_time_ms"`
}

// SQLiteStore is the pure-Go, dependency-light leaderboard backend used
// when GAME_DB_URL does not name a Postgres DSN.
type SQLiteStore struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open leaderboard database: %w", err)
	}
	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate leaderboard database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS retired_players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		score INTEGER NOT NULL,
		play_time_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS retired_players_rank_idx
		ON retired_players (score DESC, play_time_ms ASC, name ASC);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save appends rec under a freshly generated uuid primary key.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO retired_players (id, name, score, play_time_ms) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), rec.Name, rec.Score, rec.PlayTimeMillis)
	if err != nil {
		return fmt.Errorf("save retired player record: %w", err)
	}
	return nil
}

// Query returns up to limit rows starting at offset, ordered by
// (score DESC, play_time_ms ASC, name ASC).
func (s *SQLiteStore) Query(ctx context.Context, offset, limit int) ([]Record, error) {
	var rows []sqliteRow
	err := s.conn.SelectContext(ctx, &rows,
		`SELECT id, name, score, play_time_ms FROM retired_players
		 ORDER BY score DESC, play_time_ms ASC, name ASC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{Name: r.Name, Score: r.Score, PlayTimeMillis: r.PlayTimeMs})
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
