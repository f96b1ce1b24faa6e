package testing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/vvka-141/vload/internal/db"
	"github.com/vvka-141/vload/internal/loader"
	"github.com/vvka-141/vload/internal/logging"
	"github.com/vvka-141/vload/internal/marker"
	"github.com/vvka-141/vload/internal/metrics"
	"github.com/vvka-141/vload/internal/query"
	"github.com/vvka-141/vload/internal/services"
	"github.com/vvka-141/vload/internal/testinfra"
	"github.com/vvka-141/vload/pkg/vload"
)

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		ctx := context.Background()
		container, err := testinfra.StartSimplePostgres(ctx)
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the PostgreSQL test connection string.
// Priority: VLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("VLOAD_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("VLOAD_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// RequirePostgres returns a connection config for a fresh database that is
// dropped when the test completes.
func RequirePostgres(t *testing.T) *vload.ConnectionConfig {
	t.Helper()

	connString := RequireDatabase(t)
	dbName := "vload_test_" + uuid.NewString()[:8]
	t.Cleanup(CreateTestDB(t, connString, dbName))

	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	cfg.Database = dbName
	return cfg
}

// RequireVertica returns the connection config from VLOAD_TEST_VERTICA
// (a vertica:// URI) or skips the test. Vertica databases cannot be created
// per test, so callers isolate themselves with UniqueName.
func RequireVertica(t *testing.T) *vload.ConnectionConfig {
	t.Helper()

	SkipIfShort(t)
	connString := os.Getenv("VLOAD_TEST_VERTICA")
	if connString == "" {
		t.Skip("VLOAD_TEST_VERTICA not set")
	}
	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse VLOAD_TEST_VERTICA: %v", err)
	}
	return cfg
}

// UniqueName returns prefix with a random suffix, usable as a table name.
func UniqueName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

// Stack is the fully wired load pipeline against one database.
type Stack struct {
	Connector vload.Connector
	Store     *marker.Store
	Copy      *services.CopyService
	Query     *services.QueryService
	Status    *services.StatusService
	Metrics   *metrics.Collectors
}

// NewTestStack wires the services the way the CLI does, with a null logger,
// unregistered metrics and an in-memory staging filesystem.
func NewTestStack(t *testing.T, cfg *vload.ConnectionConfig, markerTable string) *Stack {
	t.Helper()

	connector, err := db.NewConnector(cfg)
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}

	logger := logging.NewNullLogger()
	markerConfig := vload.DefaultMarkerConfig()
	markerConfig.Table = markerTable

	store, err := marker.NewStore(connector, markerConfig, logger)
	if err != nil {
		t.Fatalf("Failed to create marker store: %v", err)
	}

	collectors := metrics.New(nil)
	l := loader.New(store, afero.NewMemMapFs(), "/staging", logger, collectors)
	runner := query.NewRunner(store, logger, collectors)

	return &Stack{
		Connector: connector,
		Store:     store,
		Copy:      services.NewCopyService(connector, store, l, logger, collectors),
		Query:     services.NewQueryService(connector, store, runner, logger, collectors),
		Status:    services.NewStatusService(store),
		Metrics:   collectors,
	}
}

// CountRows returns the number of committed rows in table, read on a fresh session.
func CountRows(t *testing.T, connector vload.Connector, table string) int64 {
	t.Helper()
	return QueryInt64(t, connector, "SELECT COUNT(*) FROM "+table)
}

// QueryInt64 runs a single-value integer query on a fresh session.
func QueryInt64(t *testing.T, connector vload.Connector, sql string) int64 {
	t.Helper()

	var n int64
	err := db.WithSession(context.Background(), connector, func(s vload.Session) error {
		return s.QueryRow(context.Background(), sql).Scan(&n)
	})
	if err != nil {
		t.Fatalf("Query %q failed: %v", sql, err)
	}
	return n
}

// DropTables drops the given tables, ignoring failures. Vertica tests use it
// for cleanup since they share one database.
func DropTables(t *testing.T, connector vload.Connector, tables ...string) {
	t.Helper()

	for _, table := range tables {
		err := db.WithSession(context.Background(), connector, func(s vload.Session) error {
			if err := s.Exec(context.Background(), "DROP TABLE IF EXISTS "+table); err != nil {
				return err
			}
			return s.Commit(context.Background())
		})
		if err != nil {
			t.Logf("Warning: Failed to drop %s: %v", table, err)
		}
	}
}

// CreateTestDB creates a PostgreSQL test database with the given name.
// Returns a cleanup function that should be called with t.Cleanup().
func CreateTestDB(t *testing.T, connString, dbName string) func() {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}

	_, err = pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName))
	pool.Close()
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}

	return func() {
		CleanupTestDB(t, connString, dbName)
	}
}

// CleanupTestDB drops the test database.
// Safe to call multiple times (uses DROP DATABASE IF EXISTS).
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	terminateQuery := `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
	if _, err := pool.Exec(ctx, terminateQuery, dbName); err != nil {
		t.Logf("Warning: Failed to terminate connections to %s: %v", dbName, err)
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}
