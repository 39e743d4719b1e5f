// Package store provides the SQL record store for the questionnaire
// composition engine.
//
// The store holds two kinds of data:
//   - Catalog content: question banks, modules, configuration questions,
//     products, templates and dependency rules (written by SaveCatalog)
//   - Project state: projects, answer selections and questionnaire lines
//
// # Critical Patterns
//
// Deterministic Query Results
//   - Filtered reads are compiled from queryir and always end with an
//     ORDER BY on an explicit position or seq, then a binary-collated id
//   - Reads return empty slices, never nil
//
// Soft Deletion
//   - Questionnaire lines are never removed; active = 0 hides them
//   - Partial unique indexes allow one ACTIVE line per question bank and
//     one ACTIVE custom line per normalized variable name
//
// Batch Modes
//   - ContinueOnError: every item commits or fails on its own
//   - FailFast: one transaction, rolled back at the first failing item
//
// # Database Configuration
//
// Open accepts the "sqlite3" (github.com/mattn/go-sqlite3) and "pgx"
// (github.com/jackc/pgx/v5/stdlib) drivers. On SQLite:
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
