// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/database"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching local development.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "warnings")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "warnings")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a user for foreign-key targets and registers cleanup.
func testUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	ctx := context.Background()
	users := NewUserStore(db)
	user, err := users.Create(ctx, username, username+"@test.invalid", "secret123")
	if err != nil {
		t.Fatalf("create test user %q: %v", username, err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM warnings WHERE user_id = $1 OR warned_by = $1", user.ID)
		db.Exec("DELETE FROM users WHERE user_id = $1", user.ID)
	})
	return user.ID
}

// testCategory creates a category and registers cleanup.
func testCategory(t *testing.T, db *sql.DB, parentID *int64, groupIDs []int64) int64 {
	t.Helper()

	ctx := context.Background()
	row := db.QueryRowContext(ctx, `
		INSERT INTO warning_categories (parent_category_id, allowed_user_group_ids)
		VALUES ($1, $2) RETURNING warning_category_id`,
		parentID, joinOrEveryone(groupIDs))

	var id int64
	if err := row.Scan(&id); err != nil {
		t.Fatalf("create test category: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM warning_definitions WHERE warning_category_id = $1", id)
		db.Exec("DELETE FROM warning_categories WHERE warning_category_id = $1", id)
	})
	return id
}

func joinOrEveryone(groupIDs []int64) string {
	if len(groupIDs) == 0 {
		return "-1"
	}
	return models.JoinGroupIDs(groupIDs)
}
