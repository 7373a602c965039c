package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/config"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

type fakeTiming struct {
	signal *contracts.TimingSignal
	err    error
}

func (f *fakeTiming) Evaluate(context.Context, time.Time) (*contracts.TimingSignal, error) {
	return f.signal, f.err
}

type fakeCalendar struct {
	view *contracts.CalendarView
	err  error
}

func (f *fakeCalendar) Today(context.Context, time.Time) (*contracts.CalendarView, error) {
	return f.view, f.err
}

type fakeRisk struct {
	total, extreme int
	codes          []string
	err            error
}

func (f *fakeRisk) Summary(context.Context) (int, int, []string, error) {
	return f.total, f.extreme, f.codes, f.err
}

func newTestAggregator(timing TimingEvaluator, cal CalendarViewer, risk RiskSummarizer) *Aggregator {
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "test"})
	return New(timing, cal, risk, log, time.UTC)
}

func TestGlobalAssemblesAllSections(t *testing.T) {
	timing := &fakeTiming{signal: &contracts.TimingSignal{
		Level:  contracts.LevelNone,
		Light:  contracts.LightGreen,
		Action: contracts.ActionNormalTrading,
	}}
	cal := &fakeCalendar{view: &contracts.CalendarView{FuturesDay: "2026-09-18"}}
	risk := &fakeRisk{total: 12, extreme: 3, codes: []string{"000004.SZ", "300001.SZ"}}

	global, err := newTestAggregator(timing, cal, risk).Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.ActionNormalTrading, global.Timing.Action)
	assert.Equal(t, "2026-09-18", global.Calendar.FuturesDay)
	assert.Equal(t, 12, global.RiskStockTotal)
	assert.Equal(t, 3, global.RiskStockExtreme)
	assert.Len(t, global.RiskCodes, 2)
}

func TestGlobalFailsWhenAnySectionFails(t *testing.T) {
	okTiming := &fakeTiming{signal: &contracts.TimingSignal{}}
	okCal := &fakeCalendar{view: &contracts.CalendarView{}}
	okRisk := &fakeRisk{}
	boom := errors.New("section down")

	tests := []struct {
		name string
		agg  *Aggregator
	}{
		{"timing section", newTestAggregator(&fakeTiming{err: boom}, okCal, okRisk)},
		{"calendar section", newTestAggregator(okTiming, &fakeCalendar{err: boom}, okRisk)},
		{"risk section", newTestAggregator(okTiming, okCal, &fakeRisk{err: boom})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.agg.Global(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}
