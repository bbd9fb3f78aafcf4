package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func TestOpen_RequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), "  ", PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty database url")
	}
}

func TestPoolConfig_ApplyTo(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://agenda@127.0.0.1:1/agenda")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	PoolConfig{MaxOpenConns: 3, ConnMaxLifetime: time.Minute}.applyTo(db)
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("MaxOpenConnections = %d, want 3", got)
	}

	PoolConfig{}.applyTo(db)
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("zero config changed MaxOpenConnections to %d", got)
	}
}
