package database

import (
	"context"
	"fmt"
)

// Engine tables. The calendar holds a row for every calendar day of each
// synced year so that a missing row is distinguishable from a non-trading
// day; lookups on unsynced dates fail instead of guessing.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS trading_calendar (
		day            date PRIMARY KEY,
		is_trading_day boolean NOT NULL,
		holiday_name   text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS stocks (
		code   text PRIMARY KEY,
		name   text NOT NULL DEFAULT '',
		active boolean NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS financial_risk (
		code              text PRIMARY KEY,
		name              text NOT NULL DEFAULT '',
		board             text NOT NULL,
		risk_type         text NOT NULL,
		risk_level        text NOT NULL,
		reason            text NOT NULL DEFAULT '',
		loss_years        integer NOT NULL DEFAULT 0,
		cumulative_loss   double precision NOT NULL DEFAULT 0,
		latest_revenue    double precision NOT NULL DEFAULT 0,
		latest_net_profit double precision NOT NULL DEFAULT 0,
		is_extreme        boolean NOT NULL DEFAULT false,
		scan_date         date NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_financial_risk_scan_date
		ON financial_risk (scan_date)`,
}

// EnsureSchema creates the engine's tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
