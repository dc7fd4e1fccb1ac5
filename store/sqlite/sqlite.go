/*
Package sqlite provides a SQLite-backed implementation of the remote
store and expense log.

PURPOSE:
  Implements budget.RemoteStore and budget.ExpenseLog using SQLite. The
  same patterns apply to PostgreSQL in production - only minor SQL
  dialect differences.

KEY TABLES:
  budgets:    singleton row holding the total budget and store revision
  categories: one row per category, with its revision counter
  expenses:   append-only expense log (no UPDATE, no DELETE)

CONFLICT DETECTION:
  Push compares the stored revision against the pushed snapshot's. If the
  stored state is ahead (a collaborator pushed in between), the push is a
  conflict and the server snapshot is returned for reconciliation.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, a single writer at a time, better crash recovery.

USAGE:
  remote, err := sqlite.New("./wedding.db")
  if err != nil { ... }
  defer remote.Close()

SEE ALSO:
  - budget/persist.go: interface definitions
  - budget/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/money"
)

// Store implements budget.RemoteStore and budget.ExpenseLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Singleton budget row
	CREATE TABLE IF NOT EXISTS budgets (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total_units INTEGER NOT NULL,
		currency TEXT NOT NULL,
		revision INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Category ledger rows
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		allocated_units INTEGER NOT NULL,
		spent_units INTEGER NOT NULL,
		alert_threshold TEXT,
		allows_overspend INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL,
		color TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		revision INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_categories_sort_order
		ON categories(sort_order);

	-- Expenses (append-only log)
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		vendor_name TEXT NOT NULL,
		amount_units INTEGER NOT NULL,
		currency TEXT NOT NULL,
		incurred_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_category
		ON expenses(category_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REMOTE STORE
// =============================================================================

// Push stores the snapshot unless the persisted state is ahead of it, in
// which case the stored snapshot comes back as a conflict.
func (s *Store) Push(ctx context.Context, snap budget.Snapshot) (budget.PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var storedRev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM budgets WHERE id = 1`).Scan(&storedRev)
	switch {
	case err == sql.ErrNoRows:
		// First push.
	case err != nil:
		return budget.PushResult{}, err
	case storedRev > snap.Revision:
		server, lerr := s.loadLocked(ctx)
		if lerr != nil {
			return budget.PushResult{}, lerr
		}
		return budget.PushResult{Ack: false, Server: server}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return budget.PushResult{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (id, total_units, currency, revision, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_units = excluded.total_units,
			currency = excluded.currency,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		snap.TotalBudget.Units, snap.TotalBudget.Currency, snap.Revision,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return budget.PushResult{}, err
	}

	// Snapshot replace: categories are rewritten wholesale; the expense
	// log is the append-only history and is never touched here.
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return budget.PushResult{}, err
	}

	for _, d := range snap.Categories {
		c := d.Category
		var threshold *string
		if c.AlertThreshold != nil {
			v := c.AlertThreshold.String()
			threshold = &v
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories
				(id, name, allocated_units, spent_units, alert_threshold,
				 allows_overspend, sort_order, color, active, revision)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(c.ID), c.Name, c.Allocated.Units, c.Spent.Units, threshold,
			boolToInt(c.AllowsOverspend), c.SortOrder, c.Color,
			boolToInt(c.Active), c.Revision)
		if err != nil {
			return budget.PushResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return budget.PushResult{}, err
	}
	return budget.PushResult{Ack: true}, nil
}

// Pull returns the stored snapshot, or budget.ErrNoSnapshot when nothing
// has been pushed yet.
func (s *Store) Pull(ctx context.Context) (budget.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) (budget.Snapshot, error) {
	var totalUnits, revision int64
	var currency string
	err := s.db.QueryRowContext(ctx,
		`SELECT total_units, currency, revision FROM budgets WHERE id = 1`).
		Scan(&totalUnits, &currency, &revision)
	if err == sql.ErrNoRows {
		return budget.Snapshot{}, budget.ErrNoSnapshot
	}
	if err != nil {
		return budget.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, allocated_units, spent_units, alert_threshold,
		       allows_overspend, sort_order, color, active, revision
		FROM categories ORDER BY sort_order`)
	if err != nil {
		return budget.Snapshot{}, err
	}
	defer rows.Close()

	var cats []budget.Category
	for rows.Next() {
		var id, name string
		var allocated, spent, catRev int64
		var threshold, color sql.NullString
		var overspend, active, sortOrder int

		if err := rows.Scan(&id, &name, &allocated, &spent, &threshold,
			&overspend, &sortOrder, &color, &active, &catRev); err != nil {
			return budget.Snapshot{}, err
		}

		c := budget.Category{
			ID:              budget.CategoryID(id),
			Name:            name,
			Allocated:       money.New(allocated, currency),
			Spent:           money.New(spent, currency),
			AllowsOverspend: overspend != 0,
			SortOrder:       sortOrder,
			Color:           color.String,
			Active:          active != 0,
			Revision:        catRev,
		}
		if threshold.Valid {
			r, perr := decimal.NewFromString(threshold.String)
			if perr != nil {
				return budget.Snapshot{}, fmt.Errorf("bad alert threshold for %s: %w", id, perr)
			}
			c.AlertThreshold = &r
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return budget.Snapshot{}, err
	}

	total := money.New(totalUnits, currency)
	return budget.BuildSnapshot(total, cats, revision, budget.SyncSynced), nil
}

// =============================================================================
// EXPENSE LOG - Append-only
// =============================================================================

func (s *Store) AppendExpense(ctx context.Context, rec budget.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses
			(id, category_id, vendor_name, amount_units, currency, incurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.CategoryID), rec.VendorName,
		rec.Amount.Units, rec.Amount.Currency,
		rec.IncurredAt.UTC().Format(time.RFC3339),
		rec.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) Expenses(ctx context.Context, categoryID budget.CategoryID) ([]budget.ExpenseRecord, error) {
	return s.queryExpenses(ctx, `
		SELECT id, category_id, vendor_name, amount_units, currency, incurred_at, created_at
		FROM expenses WHERE category_id = ? ORDER BY incurred_at`, string(categoryID))
}

func (s *Store) AllExpenses(ctx context.Context) ([]budget.ExpenseRecord, error) {
	return s.queryExpenses(ctx, `
		SELECT id, category_id, vendor_name, amount_units, currency, incurred_at, created_at
		FROM expenses ORDER BY incurred_at`)
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]budget.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []budget.ExpenseRecord
	for rows.Next() {
		var rec budget.ExpenseRecord
		var categoryID, incurredAt, createdAt, currency string
		var units int64

		if err := rows.Scan(&rec.ID, &categoryID, &rec.VendorName,
			&units, &currency, &incurredAt, &createdAt); err != nil {
			return nil, err
		}

		rec.CategoryID = budget.CategoryID(categoryID)
		rec.Amount = money.New(units, currency)
		if rec.IncurredAt, err = time.Parse(time.RFC3339, incurredAt); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
