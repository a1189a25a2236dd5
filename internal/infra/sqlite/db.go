// Package sqlite provides SQLite persistence for accounts, ledger entries,
// and commission cycle state.
//
// The ledger table is append-only: no UPDATE or DELETE ever touches it.
// Corrections are compensating entries written by the engine. All mutating
// engine operations run inside a single immediate transaction via InTx, so a
// failure at any step leaves no partial state behind.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies all
// migrations. WAL mode keeps readers from blocking the single writer;
// _txlock=immediate makes every transaction take the write lock up front so
// two mutations can never interleave their reads.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn between our own transactions.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			holder     TEXT NOT NULL DEFAULT '',
			rate       TEXT NOT NULL,
			balance    TEXT NOT NULL DEFAULT '0',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Append-only ledger. seq is the tie-breaker within a date: the
		// ledger's total order is (occurred_on, seq).
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq              INTEGER PRIMARY KEY AUTOINCREMENT,
			id               TEXT NOT NULL UNIQUE,
			account_id       TEXT NOT NULL REFERENCES accounts(id),
			amount           TEXT NOT NULL,
			kind             TEXT NOT NULL CHECK(kind IN ('deposit','withdrawal','commission','reversal')),
			occurred_on      TEXT NOT NULL,
			related_entry_id TEXT,
			memo             TEXT NOT NULL DEFAULT '',
			created_at       TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account_date ON ledger_entries(account_id, occurred_on, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_related ON ledger_entries(related_entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_kind ON ledger_entries(account_id, kind)`,

		// One accumulator row per account.
		`CREATE TABLE IF NOT EXISTS cycle_states (
			account_id TEXT PRIMARY KEY REFERENCES accounts(id),
			cumulative TEXT NOT NULL DEFAULT '0',
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}

func (d *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// Tx is a transactional view of the database. All store operations are
// available on both DB (autocommit) and Tx.
type Tx struct {
	tx *sql.Tx
}

// InTx runs fn inside a single transaction. If fn returns an error the
// transaction is rolled back and the error returned unchanged; otherwise it
// is committed. Nothing fn wrote is observable until commit.
func (d *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is the shared query surface of *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ─── Time encoding ──────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

func encodeDate(t time.Time) string { return t.Format(dateLayout) }

func decodeDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func decodeTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}
