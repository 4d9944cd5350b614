package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// EnsureSchema creates the audit table when it does not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS problem_update (
        id uuid PRIMARY KEY,
        eventid text NOT NULL,
        acting_user text NOT NULL,
        action_mask integer NOT NULL,
        message text NOT NULL,
        suppress_until bigint NOT NULL DEFAULT 0,
        status text NOT NULL,
        error text NOT NULL DEFAULT '',
        created_at timestamptz NOT NULL DEFAULT now()
    )`

	if _, err := d.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
