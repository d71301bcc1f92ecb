// Package dbtest starts a disposable PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"parishfund/server/config"
	"parishfund/server/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Database is a migrated pool backed by a throwaway container
type Database struct {
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine and applies the schema. It returns an error
// instead of panicking when Docker is not reachable so callers can skip.
func Start(ctx context.Context) (db *Database, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("parishfund"),
		postgres.WithUsername("parishfund"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := database.Connect(ctx, config.Database{URL: connStr, MaxConns: 10})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Database{Pool: pool, container: container}, nil
}

// Close releases the pool and terminates the container
func (d *Database) Close(ctx context.Context) {
	if d == nil {
		return
	}
	d.Pool.Close()
	_ = d.container.Terminate(ctx)
}

// Truncate empties the given tables and resets their sequences
func (d *Database) Truncate(t testing.TB, tables ...string) {
	t.Helper()
	_, err := d.Pool.Exec(context.Background(),
		"TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("truncate %v: %v", tables, err)
	}
}

// Require skips the test when no database could be started
func Require(t testing.TB, d *Database) *Database {
	t.Helper()
	if d == nil {
		t.Skip("postgres container not available")
	}
	return d
}
