package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LockDomain takes a session-level advisory lock keyed on the domain, so task
// writes are serialized across every process sharing the database. The lock
// lives on a dedicated pooled connection until unlock is called.
func (db *DB) LockDomain(ctx context.Context, registrable string) (func(), error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, registrable); err != nil {
		// A cancelled wait may leave the session in doubt; drop it.
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return nil, fmt.Errorf("advisory lock %s: %w", registrable, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, registrable); err != nil {
				_ = conn.Conn().Close(ctx)
			}
			conn.Release()
		})
	}, nil
}
