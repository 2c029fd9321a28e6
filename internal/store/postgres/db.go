package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// ErrSchemaMissing means the client_state migration has not been applied to
// the schema on the connection's search path.
var ErrSchemaMissing = errors.New("postgres: client_state table missing, apply migrations/0001_client_state.sql")

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
	if p.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
	}
}

// Open connects through the pgx driver and pings before returning.
func Open(ctx context.Context, databaseURL string, pool PoolConfig) (*bun.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres: database URL is required")
	}
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	pool.apply(sqlDB)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// CheckSchema returns ErrSchemaMissing unless client_state is visible.
func CheckSchema(ctx context.Context, db *bun.DB) error {
	var table sql.NullString
	if err := db.NewRaw("SELECT to_regclass('client_state')::text").Scan(ctx, &table); err != nil {
		return fmt.Errorf("postgres: check schema: %w", err)
	}
	if !table.Valid {
		return ErrSchemaMissing
	}
	return nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
