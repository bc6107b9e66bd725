/*
Package sqlite provides a SQLite-backed implementation of the ledger storage
interfaces.

INTERFACES IMPLEMENTED:
  ledger.TxStore:       Record persistence with atomic multi-record writes
  ledger.UserDirectory: Enumeration of every known user

KEY TABLES:
  users:            Owners of work-logs and remittances
  worklogs:         One open ledger per user
  time_segments:    Billable minutes (owned by worklogs)
  adjustments:      Signed corrections (owned by worklogs)
  remittances:      Payment batches with status
  remittance_items: Paid amount per work-log (owned by remittances)

CASCADES:
  Foreign keys are declared and enforced (_foreign_keys=on) but carry no
  ON DELETE clause. Deletes remove children explicitly, parent last, inside
  one SQL transaction. The behavior does not depend on engine cascade
  support, and the FK check guarantees nothing is left orphaned.

MONEY:
  Amounts are stored as TEXT and parsed into decimal.Decimal. Sums happen in
  Go so no precision is lost to SQLite's REAL arithmetic.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Every write runs in its own SQL
  transaction; WithTx holds the write lock for the whole callback.

USAGE:
  store, err := sqlite.New("./data/settlement.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/settlement-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.TxStore       = (*Store)(nil)
	_ ledger.UserDirectory = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	if strings.HasPrefix(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ledger.Storage("ping", s.db.PingContext(ctx))
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS worklogs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_worklogs_user
		ON worklogs(user_id);
	CREATE INDEX IF NOT EXISTS idx_worklogs_created
		ON worklogs(created_at, id);

	CREATE TABLE IF NOT EXISTS time_segments (
		id TEXT PRIMARY KEY,
		worklog_id TEXT NOT NULL REFERENCES worklogs(id),
		minutes INTEGER NOT NULL CHECK (minutes >= 0),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_segments_worklog
		ON time_segments(worklog_id);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		worklog_id TEXT NOT NULL REFERENCES worklogs(id),
		amount TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_worklog
		ON adjustments(worklog_id);

	CREATE TABLE IF NOT EXISTS remittances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED', 'CANCELLED')),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_remittances_user
		ON remittances(user_id);

	-- Items are immutable; no UPDATE is ever issued against this table
	CREATE TABLE IF NOT EXISTS remittance_items (
		id TEXT PRIMARY KEY,
		remittance_id TEXT NOT NULL REFERENCES remittances(id),
		worklog_id TEXT NOT NULL REFERENCES worklogs(id),
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_remittance_items_remittance
		ON remittance_items(remittance_id);
	-- Hot path: total remitted per work-log
	CREATE INDEX IF NOT EXISTS idx_remittance_items_worklog
		ON remittance_items(worklog_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKING HELPERS
// =============================================================================

func read[T any](s *Store, fn func(conn) (T, error)) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(conn{q: s.db})
}

// write runs fn in its own SQL transaction.
func (s *Store) write(ctx context.Context, op string, fn func(conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Storage("begin "+op, err)
	}
	defer sqlTx.Rollback()

	if err := fn(conn{q: sqlTx}); err != nil {
		return err
	}
	return ledger.Storage("commit "+op, sqlTx.Commit())
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	return s.write(ctx, "transaction", func(c conn) error {
		return fn(&txStore{c: c})
	})
}

// =============================================================================
// USER DIRECTORY
// =============================================================================

func (s *Store) ListUserIDs(ctx context.Context) ([]ledger.UserID, error) {
	return read(s, func(c conn) ([]ledger.UserID, error) { return c.listUserIDs(ctx) })
}

// =============================================================================
// READER
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id ledger.UserID) (ledger.User, error) {
	return read(s, func(c conn) (ledger.User, error) { return c.getUser(ctx, id) })
}

func (s *Store) GetWorkLog(ctx context.Context, id ledger.WorkLogID) (ledger.WorkLog, error) {
	return read(s, func(c conn) (ledger.WorkLog, error) { return c.getWorkLog(ctx, id) })
}

func (s *Store) ListWorkLogs(ctx context.Context) ([]ledger.WorkLog, error) {
	return read(s, func(c conn) ([]ledger.WorkLog, error) { return c.listWorkLogs(ctx, "") })
}

func (s *Store) ListWorkLogsByUser(ctx context.Context, userID ledger.UserID) ([]ledger.WorkLog, error) {
	return read(s, func(c conn) ([]ledger.WorkLog, error) { return c.listWorkLogs(ctx, userID) })
}

func (s *Store) ListTimeSegments(ctx context.Context, id ledger.WorkLogID) ([]ledger.TimeSegment, error) {
	return read(s, func(c conn) ([]ledger.TimeSegment, error) { return c.listTimeSegments(ctx, id) })
}

func (s *Store) ListAdjustments(ctx context.Context, id ledger.WorkLogID) ([]ledger.Adjustment, error) {
	return read(s, func(c conn) ([]ledger.Adjustment, error) { return c.listAdjustments(ctx, id) })
}

func (s *Store) ListRemittedItems(ctx context.Context, id ledger.WorkLogID) ([]ledger.RemittedItem, error) {
	return read(s, func(c conn) ([]ledger.RemittedItem, error) { return c.listRemittedItems(ctx, id) })
}

func (s *Store) GetRemittance(ctx context.Context, id ledger.RemittanceID) (ledger.Remittance, error) {
	return read(s, func(c conn) (ledger.Remittance, error) { return c.getRemittance(ctx, id) })
}

func (s *Store) ListRemittances(ctx context.Context) ([]ledger.Remittance, error) {
	return read(s, func(c conn) ([]ledger.Remittance, error) { return c.listRemittances(ctx) })
}

func (s *Store) ListRemittanceItems(ctx context.Context, id ledger.RemittanceID) ([]ledger.RemittanceItem, error) {
	return read(s, func(c conn) ([]ledger.RemittanceItem, error) { return c.listRemittanceItems(ctx, id) })
}

// =============================================================================
// WRITER
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u ledger.User) error {
	return s.write(ctx, "create user", func(c conn) error { return c.createUser(ctx, u) })
}

func (s *Store) DeleteUser(ctx context.Context, id ledger.UserID) error {
	return s.write(ctx, "delete user", func(c conn) error { return c.deleteUser(ctx, id) })
}

func (s *Store) CreateWorkLog(ctx context.Context, w ledger.WorkLog) error {
	return s.write(ctx, "create worklog", func(c conn) error { return c.createWorkLog(ctx, w) })
}

func (s *Store) DeleteWorkLog(ctx context.Context, id ledger.WorkLogID) error {
	return s.write(ctx, "delete worklog", func(c conn) error { return c.deleteWorkLog(ctx, id) })
}

func (s *Store) AddTimeSegment(ctx context.Context, seg ledger.TimeSegment) error {
	return s.write(ctx, "add time segment", func(c conn) error { return c.addTimeSegment(ctx, seg) })
}

func (s *Store) AddAdjustment(ctx context.Context, a ledger.Adjustment) error {
	return s.write(ctx, "add adjustment", func(c conn) error { return c.addAdjustment(ctx, a) })
}

func (s *Store) CreateRemittance(ctx context.Context, r ledger.Remittance) error {
	return s.write(ctx, "create remittance", func(c conn) error { return c.createRemittance(ctx, r) })
}

func (s *Store) AddRemittanceItem(ctx context.Context, item ledger.RemittanceItem) error {
	return s.write(ctx, "add remittance item", func(c conn) error { return c.addRemittanceItem(ctx, item) })
}

func (s *Store) DeleteRemittance(ctx context.Context, id ledger.RemittanceID) error {
	return s.write(ctx, "delete remittance", func(c conn) error { return c.deleteRemittance(ctx, id) })
}

// Reset deletes every record, children first.
func (s *Store) Reset(ctx context.Context) error {
	return s.write(ctx, "reset", func(c conn) error {
		for _, table := range []string{"remittance_items", "remittances", "time_segments", "adjustments", "worklogs", "users"} {
			if _, err := c.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return ledger.Storage("reset "+table, err)
			}
		}
		return nil
	})
}
