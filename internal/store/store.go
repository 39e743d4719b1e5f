package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tvdias/poc-study-designer-sub003/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Schema version stamped into SQLite files via PRAGMA user_version.
// A file stamped by a newer build is refused rather than written to.
const currentSchemaVersion = 1

// Store is the SQL record store behind the composition engine.
// One code path serves SQLite and PostgreSQL; the dialect only changes
// placeholders and collation.
type Store struct {
	db       *sql.DB
	dialect  querysql.Dialect
	compiler *querysql.SQLCompiler
}

// Open connects to the database named by driver and dsn, applies required
// settings and the schema. Open is idempotent.
//
// For SQLite the database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(driver, dsn string) (*Store, error) {
	var dialect querysql.Dialect
	switch driver {
	case DriverSQLite:
		dialect = querysql.SQLite
	case DriverPostgres:
		dialect = querysql.Postgres
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.SQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:       db,
		dialect:  dialect,
		compiler: querysql.NewSQLCompiler(dialect),
	}, nil
}

// OpenSQLite opens (or creates) a SQLite database file at path.
func OpenSQLite(path string) (*Store, error) {
	return Open(DriverSQLite, path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dialect reports the SQL dialect of the connection.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// rebind rewrites a hand-written "?" statement for the dialect.
func (s *Store) rebind(query string) string {
	return querysql.Rebind(s.dialect, query)
}

// exec runs a hand-written "?" statement rebound for the dialect.
func (s *Store) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// schemaStatements splits the embedded schema into individual statements.
// Comment lines are dropped; a statement ends with a semicolon at end of line.
func schemaStatements() []string {
	var stmts []string
	var cur strings.Builder
	for _, line := range strings.Split(schemaSQL, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

// applySchema creates tables if they don't exist and stamps the schema
// version. This function is idempotent.
func applySchema(db *sql.DB, dialect querysql.Dialect) error {
	for _, stmt := range schemaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if dialect != querysql.SQLite {
		return nil
	}

	if err := stampSchemaVersion(db); err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	return nil
}

// stampSchemaVersion records currentSchemaVersion in user_version, failing
// for a file written by a newer schema.
func stampSchemaVersion(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if version == currentSchemaVersion {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
