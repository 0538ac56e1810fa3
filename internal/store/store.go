package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store is the Postgres-backed query log. One row per pipeline run, so the
// strategy table's hit rates (including the provisional date-shift fallback)
// stay observable.
type Store struct {
	DB *sql.DB
}

// QueryRecord captures one finished pipeline run.
type QueryRecord struct {
	ID           string
	UserID       string
	ChannelID    string
	Query        string
	Status       string
	AttemptsMade int
	StrategyUsed string
	Latency      time.Duration
	CreatedAt    time.Time
}

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// RecordQuery inserts one query-log row.
func (s *Store) RecordQuery(ctx context.Context, rec QueryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO query_log (id, user_id, channel_id, query, status, attempts_made, strategy_used, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.UserID, rec.ChannelID, rec.Query, rec.Status,
		rec.AttemptsMade, rec.StrategyUsed, rec.Latency.Milliseconds(), rec.CreatedAt,
	)
	return err
}

// RecentForChannel returns the latest runs for a channel, newest first.
func (s *Store) RecentForChannel(ctx context.Context, channelID string, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, channel_id, query, status, attempts_made, strategy_used, latency_ms, created_at
		FROM query_log WHERE channel_id=$1 ORDER BY created_at DESC LIMIT $2`,
		channelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var latencyMS int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ChannelID, &rec.Query, &rec.Status,
			&rec.AttemptsMade, &rec.StrategyUsed, &latencyMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.DB.Close() }
