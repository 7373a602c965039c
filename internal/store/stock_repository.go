package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/junzhu/tidegate/backend/internal/riskscan"
)

// StockRepository persists the scan universe in the stocks table.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a StockRepository.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// ActiveStocks lists every active listing, ordered by code. Implements
// riskscan.UniverseSource.
func (r *StockRepository) ActiveStocks(ctx context.Context) ([]riskscan.Stock, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, name FROM stocks WHERE active ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("load active stocks: %w", err)
	}
	defer rows.Close()

	var stocks []riskscan.Stock
	for rows.Next() {
		var s riskscan.Stock
		if err := rows.Scan(&s.Code, &s.Name); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// ReplaceUniverse upserts the given listings and deactivates everything
// else. Delisted codes stay as inactive rows so their risk records remain
// resolvable.
func (r *StockRepository) ReplaceUniverse(ctx context.Context, stocks []riskscan.Stock) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin universe replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE stocks SET active = false`); err != nil {
		return fmt.Errorf("deactivate universe: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range stocks {
		batch.Queue(`
			INSERT INTO stocks (code, name, active)
			VALUES ($1, $2, true)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				active = true`,
			s.Code, s.Name,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range stocks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert stock: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close universe batch: %w", err)
	}

	return tx.Commit(ctx)
}

// Count returns active and total listing counts.
func (r *StockRepository) Count(ctx context.Context) (active int, total int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE active), COUNT(*) FROM stocks`,
	).Scan(&active, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count stocks: %w", err)
	}
	return active, total, nil
}
