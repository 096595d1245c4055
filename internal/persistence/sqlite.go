package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quantdesk/quantdesk/internal/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS market_history (
			region_id INTEGER NOT NULL,
			type_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			average REAL NOT NULL DEFAULT 0,
			highest REAL NOT NULL DEFAULT 0,
			lowest REAL NOT NULL DEFAULT 0,
			volume INTEGER NOT NULL DEFAULT 0,
			order_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (region_id, type_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS market_history_meta (
			region_id INTEGER NOT NULL,
			type_id INTEGER NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (region_id, type_id)
		)`,
		`CREATE TABLE IF NOT EXISTS desk_reports (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			total_orders INTEGER NOT NULL DEFAULT 0,
			buy_orders INTEGER NOT NULL DEFAULT 0,
			sell_orders INTEGER NOT NULL DEFAULT 0,
			needs_reprice INTEGER NOT NULL DEFAULT 0,
			needs_cancel INTEGER NOT NULL DEFAULT 0,
			unknown_eta_count INTEGER NOT NULL DEFAULT 0,
			total_notional REAL NOT NULL DEFAULT 0,
			median_eta_days REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_desk_reports_created ON desk_reports(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// GetHistory returns the cached series for a pair and when it was stored.
func (s *SQLiteStore) GetHistory(ctx context.Context, regionID, typeID int32) ([]types.HistoryEntry, time.Time, error) {
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM market_history_meta WHERE region_id=? AND type_id=?`,
		regionID, typeID,
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, types.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query history meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, average, highest, lowest, volume, order_count
		 FROM market_history WHERE region_id=? AND type_id=? ORDER BY date`,
		regionID, typeID,
	)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		if err := rows.Scan(&e.Date, &e.Average, &e.Highest, &e.Lowest, &e.Volume, &e.OrderCount); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, updatedAt, nil
}

// PutHistory replaces the cached series for a pair.
func (s *SQLiteStore) PutHistory(ctx context.Context, regionID, typeID int32, entries []types.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM market_history WHERE region_id=? AND type_id=?`, regionID, typeID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO market_history (region_id, type_id, date, average, highest, lowest, volume, order_count)
		 VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			regionID, typeID, e.Date, e.Average, e.Highest, e.Lowest, e.Volume, e.OrderCount); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO market_history_meta (region_id, type_id, updated_at) VALUES (?,?,?)
		 ON CONFLICT(region_id, type_id) DO UPDATE SET updated_at=excluded.updated_at`,
		regionID, typeID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update history meta: %w", err)
	}

	return tx.Commit()
}

// SaveDeskReport appends one desk report to the audit log.
func (s *SQLiteStore) SaveDeskReport(ctx context.Context, report DeskReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO desk_reports
		 (id, created_at, total_orders, buy_orders, sell_orders, needs_reprice, needs_cancel,
		  unknown_eta_count, total_notional, median_eta_days)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		report.ID, report.CreatedAt, report.TotalOrders, report.BuyOrders, report.SellOrders,
		report.NeedsReprice, report.NeedsCancel, report.UnknownETACount,
		report.TotalNotional, report.MedianETADays,
	)
	if err != nil {
		return fmt.Errorf("insert desk report: %w", err)
	}
	return nil
}

// ListDeskReports returns the most recent reports, newest first.
func (s *SQLiteStore) ListDeskReports(ctx context.Context, limit int) ([]DeskReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, total_orders, buy_orders, sell_orders, needs_reprice, needs_cancel,
		        unknown_eta_count, total_notional, median_eta_days
		 FROM desk_reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query desk reports: %w", err)
	}
	defer rows.Close()

	var reports []DeskReport
	for rows.Next() {
		var r DeskReport
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.TotalOrders, &r.BuyOrders, &r.SellOrders,
			&r.NeedsReprice, &r.NeedsCancel, &r.UnknownETACount, &r.TotalNotional, &r.MedianETADays); err != nil {
			return nil, fmt.Errorf("scan desk report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Ping verifies the database is reachable. Used by the health endpoints.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
