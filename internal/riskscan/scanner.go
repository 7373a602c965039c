// Package riskscan is the two-pass batch classifier that flags structurally
// risky listings across the full universe.
//
// 财务排雷：
//   Pass 1: 低营收筛查（按板块阈值，主板需同时亏损）
//   Pass 2: 对命中股拉取利润表，统计连续亏损年数 → is_extreme
package riskscan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Pass-1 thresholds in CNY.
const (
	revenueFloorMain   = 3e8 // 主板: 营收 < 3亿 且亏损
	revenueFloorGrowth = 1e8 // 创业板/科创板/北交所: 营收 < 1亿
	extremeLossYears   = 3
)

// Stock is one listing of the scan universe.
type Stock struct {
	Code string
	Name string
}

// UniverseSource lists the stocks to scan.
type UniverseSource interface {
	ActiveStocks(ctx context.Context) ([]Stock, error)
}

// RecordSink persists scan results. Implemented by Repository.
type RecordSink interface {
	Upsert(ctx context.Context, rec *contracts.RiskRecord) error
	DeleteSuperseded(ctx context.Context, scanDate string) error
}

// Config tunes the scanner.
type Config struct {
	Workers      int     // max in-flight fetches
	PacePerSec   float64 // token-bucket pacing across all workers
	HistoryYears int     // profit history depth for pass 2
}

// DefaultConfig returns the production tuning: ten in-flight fetches paced
// well below the upstream ceiling.
func DefaultConfig() Config {
	return Config{Workers: 10, PacePerSec: 40, HistoryYears: 3}
}

// Scanner runs scan cycles. A cycle is an idempotent full upsert: a failed
// run leaves the previous generation intact and is retried from scratch.
type Scanner struct {
	source   contracts.MetricsSource
	universe UniverseSource
	sink     RecordSink
	limiter  *rate.Limiter
	logger   *logger.Logger
	cfg      Config

	mu sync.Mutex // held for the duration of a cycle; scans are not reentrant
}

// New creates a Scanner.
func New(source contracts.MetricsSource, universe UniverseSource, sink RecordSink, log *logger.Logger, cfg Config) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.HistoryYears < 1 {
		cfg.HistoryYears = 3
	}
	return &Scanner{
		source:   source,
		universe: universe,
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Limit(cfg.PacePerSec), cfg.Workers),
		logger:   log.WithModule("riskscan"),
		cfg:      cfg,
	}
}

// InProgress reports whether a cycle is currently running.
func (s *Scanner) InProgress() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// Run executes one full scan cycle. Returns ErrScanInProgress when a cycle
// is already running.
func (s *Scanner) Run(ctx context.Context) (*contracts.ScanStats, error) {
	if !s.mu.TryLock() {
		return nil, contracts.ErrScanInProgress
	}
	defer s.mu.Unlock()

	start := time.Now()
	scanDate := time.Now().Format("2006-01-02")

	stocks, err := s.universe.ActiveStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scan universe: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"scan_date": scanDate,
		"universe":  len(stocks),
		"workers":   s.cfg.Workers,
	}).Info("Risk scan started")

	stats := &contracts.ScanStats{ScanDate: scanDate, Total: len(stocks)}
	defer func() { stats.Duration = time.Since(start) }()

	// Pass 1: broad low-revenue screen across the whole universe.
	flagged, errCount := s.passOne(ctx, stocks, scanDate)
	stats.Scanned = len(stocks)
	stats.Errors = errCount
	stats.Flagged = len(flagged)

	// Pass 2: profit history for the flagged subset only.
	extreme, errCount := s.passTwo(ctx, flagged)
	stats.Errors += errCount
	stats.Extreme = extreme

	// Persist: upsert by code, then drop the superseded generation. An
	// aborted cycle never reaches the delete, so readers keep the prior
	// records.
	persistErrs := 0
	for _, rec := range flagged {
		if err := s.sink.Upsert(ctx, rec); err != nil {
			persistErrs++
			s.logger.WithError(err).WithField("code", rec.Code).Error("Failed to upsert risk record")
		}
	}
	if persistErrs > 0 {
		stats.Errors += persistErrs
		return stats, fmt.Errorf("risk scan persisted with %d upsert failures", persistErrs)
	}
	if err := s.sink.DeleteSuperseded(ctx, scanDate); err != nil {
		return stats, fmt.Errorf("supersede previous cycle: %w", err)
	}

	stats.Duration = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"flagged":  stats.Flagged,
		"extreme":  stats.Extreme,
		"errors":   stats.Errors,
		"duration": stats.Duration,
	}).Info("Risk scan completed")

	return stats, nil
}

// passOne fans the universe out over the worker pool and applies the
// board-dependent revenue screen. Fetch failures skip that symbol only.
func (s *Scanner) passOne(ctx context.Context, stocks []Stock, scanDate string) ([]*contracts.RiskRecord, int) {
	type result struct {
		rec *contracts.RiskRecord
		err error
	}

	stockCh := make(chan Stock, len(stocks))
	resultCh := make(chan result, len(stocks))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for stock := range stockCh {
				if err := s.limiter.Wait(ctx); err != nil {
					resultCh <- result{err: err}
					return
				}
				rec, err := s.screenOne(ctx, stock, scanDate)
				resultCh <- result{rec: rec, err: err}
			}
		}()
	}

	for _, stock := range stocks {
		stockCh <- stock
	}
	close(stockCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var flagged []*contracts.RiskRecord
	errCount := 0
	for res := range resultCh {
		if res.err != nil {
			errCount++
			if errCount <= 10 {
				s.logger.WithError(res.err).Warn("Pass-1 fetch failed, symbol skipped")
			}
			continue
		}
		if res.rec != nil {
			flagged = append(flagged, res.rec)
		}
	}

	sort.Slice(flagged, func(i, j int) bool { return flagged[i].Code < flagged[j].Code })
	return flagged, errCount
}

// screenOne fetches the latest annual metrics and applies the pass-1 rule.
func (s *Scanner) screenOne(ctx context.Context, stock Stock, scanDate string) (*contracts.RiskRecord, error) {
	metrics, err := s.source.FetchLatestMetrics(ctx, stock.Code)
	if err != nil {
		return nil, contracts.NewFetchError(fmt.Sprintf("metrics %s", stock.Code), err)
	}

	board := contracts.BoardForCode(stock.Code)
	flagged, reason := EvaluatePassOne(board, metrics)
	if !flagged {
		return nil, nil
	}

	rec := &contracts.RiskRecord{
		Code:      stock.Code,
		Name:      stock.Name,
		Board:     board,
		RiskType:  "low_revenue",
		RiskLevel: "high",
		Reason:    reason,
		ScanDate:  scanDate,
	}
	if metrics.Revenue != nil {
		rec.LatestRevenue = *metrics.Revenue
	}
	if metrics.NetProfit != nil {
		rec.LatestNetProfit = *metrics.NetProfit
	}
	return rec, nil
}

// passTwo deepens each flagged record with its trailing loss run. Mutates
// the records in place and returns the extreme count.
func (s *Scanner) passTwo(ctx context.Context, flagged []*contracts.RiskRecord) (int, int) {
	type job struct{ rec *contracts.RiskRecord }

	jobCh := make(chan job, len(flagged))
	doneCh := make(chan error, len(flagged))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if err := s.limiter.Wait(ctx); err != nil {
					doneCh <- err
					return
				}
				doneCh <- s.deepenOne(ctx, j.rec)
			}
		}()
	}

	for _, rec := range flagged {
		jobCh <- job{rec: rec}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	errCount := 0
	for err := range doneCh {
		if err != nil {
			errCount++
			if errCount <= 10 {
				s.logger.WithError(err).Warn("Pass-2 fetch failed, record kept without history")
			}
		}
	}

	extreme := 0
	for _, rec := range flagged {
		if rec.IsExtreme {
			extreme++
		}
	}
	return extreme, errCount
}

// deepenOne fetches the profit history and updates the record.
func (s *Scanner) deepenOne(ctx context.Context, rec *contracts.RiskRecord) error {
	history, err := s.source.FetchProfitHistory(ctx, rec.Code, s.cfg.HistoryYears)
	if err != nil {
		return contracts.NewFetchError(fmt.Sprintf("profit history %s", rec.Code), err)
	}

	lossYears, cumulative := ConsecutiveLossYears(history)
	rec.LossYears = lossYears
	rec.CumulativeLoss = cumulative

	// is_extreme requires both the pass-1 low-revenue hit and the loss run.
	if lossYears >= extremeLossYears {
		rec.IsExtreme = true
		rec.RiskType = "both"
		rec.RiskLevel = "extreme"
		rec.Reason = fmt.Sprintf("%s; %d consecutive losing years, cumulative loss %.2f亿",
			rec.Reason, lossYears, cumulative/1e8)
	}
	return nil
}

// EvaluatePassOne applies the board-dependent revenue screen. An absent
// metric is unknown, never zero: main-board symbols need both revenue and
// profit present to be evaluated at all.
func EvaluatePassOne(board contracts.Board, m *contracts.FinancialMetrics) (bool, string) {
	if m == nil || m.Revenue == nil {
		return false, ""
	}
	revenue := *m.Revenue

	if board == contracts.BoardMain {
		if m.NetProfit == nil {
			return false, ""
		}
		if revenue < revenueFloorMain && *m.NetProfit < 0 {
			return true, fmt.Sprintf("main board revenue %.2f亿 with a loss (floor 3亿)", revenue/1e8)
		}
		return false, ""
	}

	// Growth and regional boards: low revenue alone is enough.
	if revenue < revenueFloorGrowth {
		return true, fmt.Sprintf("%s revenue %.4f亿 (floor 1亿)", board, revenue/1e8)
	}
	return false, ""
}

// ConsecutiveLossYears computes the longest trailing run of losing annual
// periods ending at the latest period, plus the cumulative loss over that
// run. History may arrive in any order; it is sorted latest-first by period.
func ConsecutiveLossYears(history []contracts.ProfitPeriod) (int, float64) {
	sorted := make([]contracts.ProfitPeriod, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period > sorted[j].Period })

	years := 0
	cumulative := 0.0
	for _, p := range sorted {
		if p.NetProfit >= 0 {
			break
		}
		years++
		cumulative += -p.NetProfit
	}
	return years, cumulative
}
