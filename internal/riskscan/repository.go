package riskscan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/junzhu/tidegate/backend/internal/contracts"
)

// Repository persists flagged listings in the financial_risk table.
// SSOT: 排雷结果只经过这个仓库读写。
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes one record, keyed by code.
func (r *Repository) Upsert(ctx context.Context, rec *contracts.RiskRecord) error {
	query := `
		INSERT INTO financial_risk (
			code, name, board, risk_type, risk_level, reason,
			loss_years, cumulative_loss, latest_revenue, latest_net_profit,
			is_extreme, scan_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			board = EXCLUDED.board,
			risk_type = EXCLUDED.risk_type,
			risk_level = EXCLUDED.risk_level,
			reason = EXCLUDED.reason,
			loss_years = EXCLUDED.loss_years,
			cumulative_loss = EXCLUDED.cumulative_loss,
			latest_revenue = EXCLUDED.latest_revenue,
			latest_net_profit = EXCLUDED.latest_net_profit,
			is_extreme = EXCLUDED.is_extreme,
			scan_date = EXCLUDED.scan_date
	`
	_, err := r.pool.Exec(ctx, query,
		rec.Code, rec.Name, string(rec.Board), rec.RiskType, rec.RiskLevel, rec.Reason,
		rec.LossYears, rec.CumulativeLoss, rec.LatestRevenue, rec.LatestNetProfit,
		rec.IsExtreme, rec.ScanDate,
	)
	return err
}

// DeleteSuperseded hard-deletes records from earlier cycles. Called only
// after a cycle completed, so a failed run keeps the previous generation.
func (r *Repository) DeleteSuperseded(ctx context.Context, scanDate string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM financial_risk WHERE scan_date < $1`, scanDate)
	return err
}

// FindByCodePrefix matches a stored record whose code starts with the given
// code. Ingestion historically stored suffixed identifiers ("000004.SZ")
// while the query path uses pure codes, so prefix match is the documented
// compatibility behavior.
// TODO: drop the prefix match once ingestion normalizes codes.
func (r *Repository) FindByCodePrefix(ctx context.Context, code string) (*contracts.RiskRecord, error) {
	code = normalizeCode(code)
	query := `
		SELECT code, name, board, risk_type, risk_level, reason,
		       loss_years, cumulative_loss, latest_revenue, latest_net_profit,
		       is_extreme, to_char(scan_date, 'YYYY-MM-DD')
		FROM financial_risk
		WHERE code LIKE $1 || '%'
		ORDER BY code
		LIMIT 1
	`

	var rec contracts.RiskRecord
	var board string
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&rec.Code, &rec.Name, &board, &rec.RiskType, &rec.RiskLevel, &rec.Reason,
		&rec.LossYears, &rec.CumulativeLoss, &rec.LatestRevenue, &rec.LatestNetProfit,
		&rec.IsExtreme, &rec.ScanDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("risk lookup %s: %w", code, err)
	}

	rec.Board, err = contracts.ParseBoard(board)
	if err != nil {
		return nil, fmt.Errorf("risk lookup %s: %w", code, err)
	}
	return &rec, nil
}

// Check answers the riskCheck query for one code.
func (r *Repository) Check(ctx context.Context, code string) (*contracts.RiskCheck, error) {
	rec, err := r.FindByCodePrefix(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &contracts.RiskCheck{Code: normalizeCode(code), HasRisk: false}, nil
	}
	return &contracts.RiskCheck{
		Code:           rec.Code,
		HasRisk:        true,
		RiskType:       rec.RiskType,
		RiskLevel:      rec.RiskLevel,
		Reason:         rec.Reason,
		LossYears:      rec.LossYears,
		CumulativeLoss: rec.CumulativeLoss,
		LatestRevenue:  rec.LatestRevenue,
		ScanDate:       rec.ScanDate,
	}, nil
}

// Summary returns the current flag set reduced for the global status view.
func (r *Repository) Summary(ctx context.Context) (total int, extreme int, codes []string, err error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, is_extreme FROM financial_risk ORDER BY code`)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("risk summary: %w", err)
	}
	defer rows.Close()

	codes = make([]string, 0)
	for rows.Next() {
		var code string
		var isExtreme bool
		if err := rows.Scan(&code, &isExtreme); err != nil {
			return 0, 0, nil, fmt.Errorf("risk summary scan: %w", err)
		}
		total++
		if isExtreme {
			extreme++
		}
		codes = append(codes, code)
	}
	return total, extreme, codes, rows.Err()
}

// List returns every current-cycle record ordered by code.
func (r *Repository) List(ctx context.Context) ([]*contracts.RiskRecord, error) {
	query := `
		SELECT code, name, board, risk_type, risk_level, reason,
		       loss_years, cumulative_loss, latest_revenue, latest_net_profit,
		       is_extreme, to_char(scan_date, 'YYYY-MM-DD')
		FROM financial_risk
		ORDER BY risk_level DESC, code
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("risk list: %w", err)
	}
	defer rows.Close()

	var out []*contracts.RiskRecord
	for rows.Next() {
		var rec contracts.RiskRecord
		var board string
		if err := rows.Scan(
			&rec.Code, &rec.Name, &board, &rec.RiskType, &rec.RiskLevel, &rec.Reason,
			&rec.LossYears, &rec.CumulativeLoss, &rec.LatestRevenue, &rec.LatestNetProfit,
			&rec.IsExtreme, &rec.ScanDate,
		); err != nil {
			return nil, fmt.Errorf("risk list scan: %w", err)
		}
		if rec.Board, err = contracts.ParseBoard(board); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// normalizeCode strips whitespace and uppercases exchange suffixes.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
