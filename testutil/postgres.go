// Package testutil holds shared test helpers.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hexlocke/tvm-warden/db"
)

// SetupTestDB creates a test database connection and runs migrations.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// ResetGuild removes all persisted state for a guild so a test starts clean.
func ResetGuild(t *testing.T, database *sql.DB, guildID string) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range []string{
		"DELETE FROM config WHERE guild_id = $1",
		"DELETE FROM logging WHERE guild_id = $1",
	} {
		if _, err := database.ExecContext(ctx, stmt, guildID); err != nil {
			t.Fatalf("reset guild: %v", err)
		}
	}
}
