package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthshield/backoffice/internal/platform/db"
	"github.com/healthshield/backoffice/migrations"
)

// testDB holds the shared database for integration tests.
type testDB struct {
	Pool *pgxpool.Pool
}

// globalDB is nil when TEST_DATABASE_URL is unset; every test then skips.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		fmt.Fprintln(os.Stderr, "TEST_DATABASE_URL not set, skipping postgres integration tests")
		os.Exit(m.Run())
	}

	pool, err := setupDatabase(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres: %v\n", err)
		os.Exit(1)
	}

	globalDB = &testDB{Pool: pool}
	code := m.Run()
	pool.Close()
	os.Exit(code)
}

// setupDatabase connects to an existing Postgres and applies every pending
// migration from the embedded set.
func setupDatabase(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 4, MinConns: 1})
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pool, nil
}

func requireDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if globalDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return globalDB.Pool
}

// createTestUser inserts a bare user row and removes it, with everything
// hanging off it, when the test ends.
func createTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, id.String()+"@example.test")
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id); err != nil {
			t.Logf("warning: failed to delete user %s: %v", id, err)
		}
	})
	return id
}

// createTestHealth records a medical background for userID.
func createTestHealth(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID, history, medications string) {
	t.Helper()
	_, err := pool.Exec(ctx, `
		INSERT INTO health_information (user_id, medical_history, current_medications)
		VALUES ($1, $2, $3)`, userID, history, medications)
	if err != nil {
		t.Fatalf("create health information: %v", err)
	}
}

// countRows returns how many rows of table reference planID.
func countRows(t *testing.T, ctx context.Context, pool *pgxpool.Pool, table string, planID uuid.UUID) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE plan_id = $1`, planID).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
