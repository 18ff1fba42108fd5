package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pointsSchema = `CREATE TABLE IF NOT EXISTS points (
	username TEXT PRIMARY KEY,
	balance  BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresPointsStore keeps one row per user and only upserts the rows a mutation touched.
type PostgresPointsStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPointsStore(ctx context.Context, dsn string) (*PostgresPointsStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, pointsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate points table: %w", err)
	}

	return &PostgresPointsStore{pool: pool}, nil
}

func (s *PostgresPointsStore) Load(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT username, balance FROM points`)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]int)
	for rows.Next() {
		var (
			user    string
			balance int64
		)
		if err := rows.Scan(&user, &balance); err != nil {
			return nil, fmt.Errorf("scan points: %w", err)
		}
		balances[user] = int(balance)
	}
	return balances, rows.Err()
}

// Save upserts the changed users in one transaction so a transfer lands atomically.
func (s *PostgresPointsStore) Save(ctx context.Context, snapshot map[string]int, changed []string) error {
	if len(changed) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, user := range changed {
		batch.Queue(`INSERT INTO points (username, balance, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (username) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`,
			user, int64(snapshot[user]))
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *PostgresPointsStore) Close() {
	s.pool.Close()
}
