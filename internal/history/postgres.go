package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS load_history (
	id           UUID PRIMARY KEY,
	filename     TEXT NOT NULL,
	source       TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	client_ip    TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT '',
	loaded_at    TIMESTAMPTZ NOT NULL
)`

const createIndexSQL = `CREATE INDEX IF NOT EXISTS load_history_loaded_at_idx ON load_history (loaded_at DESC)`

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect parses url, applies cfg and pings the database.
func Connect(ctx context.Context, url string, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres stores events in the load_history table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates the table if needed.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create load_history: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Record(ctx context.Context, e Event) error {
	e = normalize(e)
	_, err := p.pool.Exec(ctx,
		`INSERT INTO load_history (id, filename, source, row_count, column_count, client_ip, user_agent, loaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Filename, e.Source, e.Rows, e.Columns, e.ClientIP, e.UserAgent, e.LoadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert load_history: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	query := `SELECT id, filename, source, row_count, column_count, client_ip, user_agent, loaded_at
		FROM load_history`
	args := []any{}
	if opts.Source != "" {
		args = append(args, opts.Source)
		query += " WHERE source = $1"
	}
	args = append(args, clampLimit(opts.Limit))
	query += fmt.Sprintf(" ORDER BY loaded_at DESC LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query load_history: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.Filename, &e.Source, &e.Rows, &e.Columns, &e.ClientIP, &e.UserAgent, &e.LoadedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan load_history: %w", err)
	}
	return events, nil
}

func (p *Postgres) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM load_history WHERE loaded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune load_history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
