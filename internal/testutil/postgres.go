// Package testutil provides test helpers, including PostgreSQL container
// management for repository integration tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clstatham/antikythera/internal/config"
	"github.com/clstatham/antikythera/internal/storage/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	return newPostgresContainer(t, true)
}

// newPostgresContainer starts the container; terminateOnCleanup controls
// whether it is torn down with the calling test (false for the binary-wide
// shared container, which the reaper collects instead).
func newPostgresContainer(t *testing.T, terminateOnCleanup bool) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Enabled:         true,
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	pc := &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}

	if terminateOnCleanup {
		t.Cleanup(func() {
			pool.Close()
			_ = container.Terminate(ctx)
		})
	}

	return pc
}

// ApplyMigrations runs the schema creation SQL directly for tests.
// This avoids requiring the migrate tool in the test environment.
//
// Precondition: Pool must be connected.
// Postcondition: The simulation_runs and simulation_reports tables exist
// in the test database.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	schema := `
		CREATE TABLE IF NOT EXISTS simulation_runs (
			id          UUID PRIMARY KEY,
			scenario    TEXT NOT NULL,
			seed        BIGINT NOT NULL,
			trials      INT NOT NULL,
			completed   INT NOT NULL,
			failed      INT NOT NULL,
			elapsed_ms  BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS simulation_reports (
			id      BIGSERIAL PRIMARY KEY,
			run_id  UUID NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
			query   TEXT NOT NULL,
			label   TEXT NOT NULL,
			value   DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS simulation_reports_run_id_idx
			ON simulation_reports (run_id);
	`

	_, err := pc.RawPool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

var (
	sharedOnce      sync.Once
	sharedContainer *PostgresContainer
)

// NewPool returns a pool connected to a migrated database shared by every
// test in the binary. The container is started on first use and reaped by
// testcontainers when the test process exits.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	sharedOnce.Do(func() {
		pc := newPostgresContainer(t, false)
		pc.ApplyMigrations(t)
		sharedContainer = pc
	})
	if sharedContainer == nil {
		t.Fatal("shared postgres container failed to start")
	}
	return sharedContainer.RawPool
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
