package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MaxConnLife time.Duration
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLife > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLife
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Migrate creates the price observation table when absent.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_records (
			id             BIGSERIAL PRIMARY KEY,
			run_id         UUID NOT NULL,
			location       TEXT NOT NULL,
			platform       TEXT NOT NULL,
			shop_id        TEXT NOT NULL,
			shop_name      TEXT NOT NULL,
			shop_address   TEXT NOT NULL DEFAULT '',
			distance       INT NOT NULL DEFAULT 0,
			product_name   TEXT NOT NULL,
			price          NUMERIC(10,2) NOT NULL CHECK (price > 0),
			original_price NUMERIC(10,2) NOT NULL,
			promotion      TEXT NOT NULL DEFAULT '',
			in_stock       BOOLEAN NOT NULL DEFAULT TRUE,
			crawled_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_price_records_product
			ON price_records (product_name, crawled_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate price_records: %w", err)
	}
	return nil
}
