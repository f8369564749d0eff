package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store, for deployments
// where several hosts share one processed-urls set.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wires a store to an existing connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool and ensures the records table exists.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("dedup: connect: %w", err)
	}
	store := NewPostgresStore(db)
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

// Has implements Store.
func (s *PostgresStore) Has(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM dedup_records WHERE namespace = $1 AND source_id = $2)",
		Namespace, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dedup: query %s: %w", id, err)
	}
	return exists, nil
}

// Put implements Store. Conflicts are ignored so the store stays append-only
// and re-commits of the same identifier are no-ops.
func (s *PostgresStore) Put(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("dedup: identifier is required")
	}
	_, err := s.db.Exec(ctx,
		"INSERT INTO dedup_records (namespace, source_id, seen_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		Namespace, id, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("dedup: insert %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS dedup_records (
			namespace TEXT NOT NULL,
			source_id TEXT NOT NULL,
			seen_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (namespace, source_id)
		)`)
	if err != nil {
		return fmt.Errorf("dedup: ensure schema: %w", err)
	}
	return nil
}
