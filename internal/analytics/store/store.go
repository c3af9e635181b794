// Package store persists periodic snapshots of aggregated analytics stats to
// PostgreSQL. Only analytics are stored; analyzed strings never leave memory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/resilience"
)

const schema = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const writeTimeout = 5 * time.Second

// DB is the subset of *sql.DB the store uses.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StatsSource produces the stats to snapshot.
type StatsSource interface {
	Stats() analytics.Stats
}

type Store struct {
	db     DB
	now    func() time.Time
	logger *slog.Logger
}

func New(db DB) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot persists stats, bounded by a fixed write timeout.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	err = resilience.WithTimeout(ctx, writeTimeout, "save-snapshot", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, s.now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}

	s.logger.Debug("analytics snapshot saved",
		"strings_created", stats.StringsCreated,
		"nl_queries", stats.NLQueries,
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot. It returns nil, nil when no
// snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.Stats, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var stats analytics.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// Run snapshots src every interval until ctx is cancelled, then writes one
// final snapshot.
func (s *Store) Run(ctx context.Context, src StatsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshot started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, src.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			if err := s.SaveSnapshot(shutdownCtx, src.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}
