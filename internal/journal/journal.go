// Package journal persists every fill the matching engine produces to a
// local sqlite database, so individual executions behind a book's average
// traded price can be audited after the fact.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/fixsim/exchange/internal/exchange"
)

// Journal is the sqlite-backed fill journal
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return j, nil
}

// migrate creates the necessary tables
func (j *Journal) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS fills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			price TEXT NOT NULL,
			qty TEXT NOT NULL,
			buy_order_id TEXT NOT NULL,
			sell_order_id TEXT NOT NULL,
			executed_unix_millis INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fills_symbol
			ON fills(symbol, executed_unix_millis)`,
	}

	for _, query := range queries {
		if _, err := j.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// RecordFill appends one fill to the journal. Prices and quantities are
// stored as decimal strings to keep exact base-10 values.
func (j *Journal) RecordFill(ctx context.Context, f exchange.Fill) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO fills (symbol, price, qty, buy_order_id, sell_order_id, executed_unix_millis)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.Symbol, f.Price.String(), f.Qty.String(), f.BuyOrderID, f.SellOrderID, f.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}
	return nil
}

// ListBySymbol returns the most recent fills for a symbol, newest first
func (j *Journal) ListBySymbol(ctx context.Context, symbol string, limit int) ([]exchange.Fill, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT symbol, price, qty, buy_order_id, sell_order_id, executed_unix_millis
		 FROM fills
		 WHERE symbol = ?
		 ORDER BY executed_unix_millis DESC, id DESC
		 LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []exchange.Fill
	for rows.Next() {
		var (
			f            exchange.Fill
			priceStr     string
			qtyStr       string
			executedUnix int64
		)
		if err := rows.Scan(&f.Symbol, &priceStr, &qtyStr, &f.BuyOrderID, &f.SellOrderID, &executedUnix); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		if f.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse fill price: %w", err)
		}
		if f.Qty, err = decimal.NewFromString(qtyStr); err != nil {
			return nil, fmt.Errorf("failed to parse fill qty: %w", err)
		}
		f.At = time.UnixMilli(executedUnix).UTC()
		fills = append(fills, f)
	}

	return fills, rows.Err()
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
