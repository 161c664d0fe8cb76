// Package testutil holds the shared fixtures for hookline tests: Postgres and
// Redis integration helpers, fixed clocks and request builders.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/migrate"
)

// DBConfig locates the integration database. Every field comes from a TEST_DB_*
// variable.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LoadDBConfig reads DBConfig from the environment. The default port 55432 is
// the compose test profile; CI sets TEST_DB_PORT=5432.
func LoadDBConfig() DBConfig {
	return DBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "55432"),
		User:     envOr("TEST_DB_USER", "hookline"),
		Password: envOr("TEST_DB_PASSWORD", "hookline"),
		DBName:   envOr("TEST_DB_NAME", "hookline"),
		SSLMode:  envOr("DB_SSL_MODE", "disable"),
	}
}

// DSN renders a pgx URL. A non-empty searchPath pins the connection to that
// schema ahead of public.
func (c DBConfig) DSN(searchPath string) string {
	q := url.Values{"sslmode": {c.SSLMode}}
	if searchPath != "" {
		q.Set("search_path", searchPath+",public")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// truncateTables lists every table a shared-database test starts without.
var truncateTables = []string{
	"conversation_messages",
	"conversations",
	"payments",
	"installations",
	"contacts",
	"projects",
	"appointments",
	"invoices",
	"queue_items",
	"retry_items",
	"leases",
	"automation_triggers",
	"entity_stages",
	"webhook_metrics",
}

// SkipIfNoTestDB skips t when the integration database cannot be reached, or
// fails it when TEST_REQUIRE_DB or TEST_REQUIRE_INFRA is set.
func SkipIfNoTestDB(t testing.TB) {
	t.Helper()
	db, err := sql.Open("pgx", LoadDBConfig().DSN(""))
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = db.PingContext(ctx)
		cancel()
		_ = db.Close()
	}
	if err == nil {
		return
	}
	if requireDB() {
		t.Fatalf("test database not available: %v", err)
	}
	t.Skipf("test database not available: %v", err)
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set
// each test gets its own schema, dropped on cleanup; otherwise the shared
// database is truncated before fn runs.
func WithAutoDB(t testing.TB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)
	if envBool("TEST_DB_EPHEMERAL") {
		fn(openSchemaDB(t))
		return
	}
	fn(openSharedDB(t))
}

func openSharedDB(t testing.TB) *sql.DB {
	t.Helper()
	db := openDB(t, LoadDBConfig().DSN(""))
	migrateDB(t, db)
	truncateAll(t, db)
	t.Cleanup(func() {
		truncateAll(t, db)
		_ = db.Close()
	})
	return db
}

func openSchemaDB(t testing.TB) *sql.DB {
	t.Helper()
	cfg := LoadDBConfig()
	admin := openDB(t, cfg.DSN(""))
	schema := schemaName()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db := openDB(t, cfg.DSN(schema))
	t.Cleanup(func() {
		_ = db.Close()
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, err := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})
	t.Logf("using ephemeral schema %s", schema)
	migrateDB(t, db)
	return db
}

func openDB(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("ping test database (is docker-compose up?): %v", err)
	}
	return db
}

func migrateDB(t testing.TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrate.Run(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
}

func truncateAll(t testing.TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stmt := "TRUNCATE " + strings.Join(truncateTables, ", ") + " CASCADE"
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		t.Fatalf("truncate test tables: %v", err)
	}
}

// QueueStatusCounts tallies queue_items rows by status.
func QueueStatusCounts(t testing.TB, db *sql.DB) map[model.QueueItemStatus]int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT status, count(*) FROM queue_items GROUP BY status`)
	if err != nil {
		t.Fatalf("count queue items: %v", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.QueueItemStatus]int)
	for rows.Next() {
		var (
			status model.QueueItemStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			t.Fatalf("scan queue item count: %v", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate queue item counts: %v", err)
	}
	return counts
}

// schemaName returns t_ followed by eight random hex characters.
func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "t_" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	}
	return "t_" + hex.EncodeToString(b)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
