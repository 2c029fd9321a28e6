package postgres

import (
	"context"
	"database/sql"
	"testing"
)

func TestOpen_RequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), "  ", PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty database URL")
	}
}

func TestPoolConfigApply(t *testing.T) {
	// sql.Open does not dial, so no server is needed
	db, err := sql.Open("pgx", "postgres://gobarber@localhost:5432/gobarber")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	defer db.Close()

	PoolConfig{MaxOpenConns: 3}.apply(db)
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("MaxOpenConnections = %d, want 3", got)
	}

	PoolConfig{}.apply(db)
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("zero config changed MaxOpenConnections to %d", got)
	}
}
