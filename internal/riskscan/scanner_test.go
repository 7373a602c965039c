package riskscan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/config"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

func f64(v float64) *float64 { return &v }

func TestEvaluatePassOne(t *testing.T) {
	tests := []struct {
		name    string
		board   contracts.Board
		metrics *contracts.FinancialMetrics
		want    bool
	}{
		{
			name:    "main board low revenue with loss",
			board:   contracts.BoardMain,
			metrics: &contracts.FinancialMetrics{Revenue: f64(2.5e8), NetProfit: f64(-1e6)},
			want:    true,
		},
		{
			name:    "main board low revenue but profitable",
			board:   contracts.BoardMain,
			metrics: &contracts.FinancialMetrics{Revenue: f64(2.5e8), NetProfit: f64(5e6)},
			want:    false,
		},
		{
			name:    "main board revenue above floor",
			board:   contracts.BoardMain,
			metrics: &contracts.FinancialMetrics{Revenue: f64(5e8), NetProfit: f64(-1e8)},
			want:    false,
		},
		{
			name:    "main board missing profit is unknown",
			board:   contracts.BoardMain,
			metrics: &contracts.FinancialMetrics{Revenue: f64(2.5e8)},
			want:    false,
		},
		{
			name:    "chinext low revenue flags regardless of profit",
			board:   contracts.BoardChiNext,
			metrics: &contracts.FinancialMetrics{Revenue: f64(0.5e8), NetProfit: f64(2e7)},
			want:    true,
		},
		{
			name:    "star board at the floor passes",
			board:   contracts.BoardStar,
			metrics: &contracts.FinancialMetrics{Revenue: f64(1e8)},
			want:    false,
		},
		{
			name:    "bse low revenue flags",
			board:   contracts.BoardBSE,
			metrics: &contracts.FinancialMetrics{Revenue: f64(0.8e8)},
			want:    true,
		},
		{
			name:    "missing revenue is unknown",
			board:   contracts.BoardChiNext,
			metrics: &contracts.FinancialMetrics{NetProfit: f64(-1e8)},
			want:    false,
		},
		{
			name:    "nil metrics",
			board:   contracts.BoardMain,
			metrics: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := EvaluatePassOne(tt.board, tt.metrics)
			assert.Equal(t, tt.want, got)
			if got {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestConsecutiveLossYears(t *testing.T) {
	tests := []struct {
		name      string
		history   []contracts.ProfitPeriod
		wantYears int
		wantLoss  float64
	}{
		{
			name: "three straight losing years",
			history: []contracts.ProfitPeriod{
				{Period: "2025-12-31", NetProfit: -1e8},
				{Period: "2024-12-31", NetProfit: -2e8},
				{Period: "2023-12-31", NetProfit: -3e8},
			},
			wantYears: 3,
			wantLoss:  6e8,
		},
		{
			name: "profit breaks the run",
			history: []contracts.ProfitPeriod{
				{Period: "2025-12-31", NetProfit: -1e8},
				{Period: "2024-12-31", NetProfit: 2e8},
				{Period: "2023-12-31", NetProfit: -3e8},
			},
			wantYears: 1,
			wantLoss:  1e8,
		},
		{
			name: "latest year profitable",
			history: []contracts.ProfitPeriod{
				{Period: "2025-12-31", NetProfit: 1e8},
				{Period: "2024-12-31", NetProfit: -2e8},
			},
			wantYears: 0,
			wantLoss:  0,
		},
		{
			name: "unsorted input",
			history: []contracts.ProfitPeriod{
				{Period: "2023-12-31", NetProfit: -3e8},
				{Period: "2025-12-31", NetProfit: -1e8},
				{Period: "2024-12-31", NetProfit: -2e8},
			},
			wantYears: 3,
			wantLoss:  6e8,
		},
		{
			name:      "empty history",
			history:   nil,
			wantYears: 0,
			wantLoss:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			years, loss := ConsecutiveLossYears(tt.history)
			assert.Equal(t, tt.wantYears, years)
			assert.InDelta(t, tt.wantLoss, loss, 1)
		})
	}
}

// fakeMetrics serves canned metrics and histories keyed by code.
type fakeMetrics struct {
	metrics   map[string]*contracts.FinancialMetrics
	histories map[string][]contracts.ProfitPeriod
	failCodes map[string]bool
}

func (f *fakeMetrics) FetchLatestMetrics(_ context.Context, code string) (*contracts.FinancialMetrics, error) {
	if f.failCodes[code] {
		return nil, errors.New("upstream 502")
	}
	if m, ok := f.metrics[code]; ok {
		return m, nil
	}
	return &contracts.FinancialMetrics{}, nil
}

func (f *fakeMetrics) FetchProfitHistory(_ context.Context, code string, _ int) ([]contracts.ProfitPeriod, error) {
	return f.histories[code], nil
}

type fakeUniverse struct {
	stocks []Stock
	gate   chan struct{} // when set, ActiveStocks blocks until the gate closes
}

func (f *fakeUniverse) ActiveStocks(_ context.Context) ([]Stock, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.stocks, nil
}

type fakeSink struct {
	mu         sync.Mutex
	upserted   []*contracts.RiskRecord
	superseded []string
	upsertErr  error
}

func (f *fakeSink) Upsert(_ context.Context, rec *contracts.RiskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, rec)
	return nil
}

func (f *fakeSink) DeleteSuperseded(_ context.Context, scanDate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.superseded = append(f.superseded, scanDate)
	return nil
}

func scanTestLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "test"})
}

func TestRunFullCycle(t *testing.T) {
	universe := &fakeUniverse{stocks: []Stock{
		{Code: "000004.SZ", Name: "低营收亏损"},
		{Code: "600519.SH", Name: "健康主板"},
		{Code: "300001.SZ", Name: "低营收创业板"},
		{Code: "688001.SH", Name: "健康科创板"},
	}}
	source := &fakeMetrics{
		metrics: map[string]*contracts.FinancialMetrics{
			"000004.SZ": {Revenue: f64(2e8), NetProfit: f64(-5e7), Period: "2025-12-31"},
			"600519.SH": {Revenue: f64(1.4e11), NetProfit: f64(7e10), Period: "2025-12-31"},
			"300001.SZ": {Revenue: f64(0.6e8), NetProfit: f64(1e6), Period: "2025-12-31"},
			"688001.SH": {Revenue: f64(8e8), NetProfit: f64(1e8), Period: "2025-12-31"},
		},
		histories: map[string][]contracts.ProfitPeriod{
			"000004.SZ": {
				{Period: "2025-12-31", NetProfit: -5e7},
				{Period: "2024-12-31", NetProfit: -8e7},
				{Period: "2023-12-31", NetProfit: -1.2e8},
			},
			"300001.SZ": {
				{Period: "2025-12-31", NetProfit: 1e6},
			},
		},
	}
	sink := &fakeSink{}
	scanner := New(source, universe, sink, scanTestLogger(), Config{Workers: 2, PacePerSec: 1000, HistoryYears: 3})

	stats, err := scanner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Flagged)
	assert.Equal(t, 1, stats.Extreme)
	assert.Equal(t, 0, stats.Errors)

	require.Len(t, sink.upserted, 2)
	byCode := map[string]*contracts.RiskRecord{}
	for _, rec := range sink.upserted {
		byCode[rec.Code] = rec
	}

	deep := byCode["000004.SZ"]
	require.NotNil(t, deep)
	assert.True(t, deep.IsExtreme)
	assert.Equal(t, "both", deep.RiskType)
	assert.Equal(t, "extreme", deep.RiskLevel)
	assert.Equal(t, 3, deep.LossYears)
	assert.InDelta(t, 2.5e8, deep.CumulativeLoss, 1)

	shallow := byCode["300001.SZ"]
	require.NotNil(t, shallow)
	assert.False(t, shallow.IsExtreme)
	assert.Equal(t, "low_revenue", shallow.RiskType)
	assert.Equal(t, "high", shallow.RiskLevel)

	require.Len(t, sink.superseded, 1, "superseded generation must be dropped on success")
}

func TestRunFetchFailuresSkipSymbols(t *testing.T) {
	universe := &fakeUniverse{stocks: []Stock{
		{Code: "000004.SZ", Name: "可筛"},
		{Code: "000005.SZ", Name: "接口故障"},
	}}
	source := &fakeMetrics{
		metrics: map[string]*contracts.FinancialMetrics{
			"000004.SZ": {Revenue: f64(2e8), NetProfit: f64(-5e7)},
		},
		failCodes: map[string]bool{"000005.SZ": true},
	}
	sink := &fakeSink{}
	scanner := New(source, universe, sink, scanTestLogger(), Config{Workers: 2, PacePerSec: 1000, HistoryYears: 3})

	stats, err := scanner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Flagged)
	assert.Equal(t, 1, stats.Errors)
	require.Len(t, sink.superseded, 1)
}

func TestRunUpsertFailureKeepsPreviousGeneration(t *testing.T) {
	universe := &fakeUniverse{stocks: []Stock{{Code: "000004.SZ", Name: "低营收"}}}
	source := &fakeMetrics{
		metrics: map[string]*contracts.FinancialMetrics{
			"000004.SZ": {Revenue: f64(2e8), NetProfit: f64(-5e7)},
		},
	}
	sink := &fakeSink{upsertErr: errors.New("connection reset")}
	scanner := New(source, universe, sink, scanTestLogger(), Config{Workers: 1, PacePerSec: 1000, HistoryYears: 3})

	stats, err := scanner.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, sink.superseded, "a failed cycle must not delete the prior generation")
	assert.Greater(t, stats.Duration, time.Duration(0), "failed cycles still report elapsed time")
}

func TestRunIsNotReentrant(t *testing.T) {
	gate := make(chan struct{})
	universe := &fakeUniverse{gate: gate}
	scanner := New(&fakeMetrics{}, universe, &fakeSink{}, scanTestLogger(), DefaultConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = scanner.Run(context.Background())
	}()

	// Wait until the first cycle holds the lock.
	for !scanner.InProgress() {
		time.Sleep(time.Millisecond)
	}

	_, err := scanner.Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrScanInProgress)

	close(gate)
	<-done
	assert.False(t, scanner.InProgress())
}
