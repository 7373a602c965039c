package contracts

import "fmt"

// TradingDay is one row of the trading calendar.
type TradingDay struct {
	Date         string `json:"date"`
	IsTradingDay bool   `json:"is_trading_day"`
	HolidayName  string `json:"holiday_name,omitempty"`
}

// CycleType names a monthly settlement cycle.
type CycleType string

const (
	CycleFutures CycleType = "futures" // 股指期货，每月第三个周五
	CycleOptions CycleType = "options" // ETF 期权，每月第四个周三
)

// ParseCycleType rejects unrecognized values instead of defaulting.
func ParseCycleType(s string) (CycleType, error) {
	switch CycleType(s) {
	case CycleFutures, CycleOptions:
		return CycleType(s), nil
	}
	return "", fmt.Errorf("unknown cycle type %q", s)
}

// SettlementCycle is one cycle occurrence, already rolled back to a
// trading day.
type SettlementCycle struct {
	CycleType      CycleType `json:"cycle_type"`
	OccurrenceDate string    `json:"occurrence_date"`
	RolledBack     bool      `json:"rolled_back"`
}

// CalendarView is the settlement outlook as of one date.
type CalendarView struct {
	Today          string `json:"today"`
	FuturesDay     string `json:"futures_day"`
	OptionsDay     string `json:"options_day"`
	NextFuturesDay string `json:"next_futures_day"`
	NextOptionsDay string `json:"next_options_day"`
	DaysToFutures  int    `json:"days_to_futures"`
	DaysToOptions  int    `json:"days_to_options"`
	IsFuturesWeek  bool   `json:"is_futures_week"`
	IsOptionsWeek  bool   `json:"is_options_week"`
}

// GlobalStatus is the aggregated dashboard view.
type GlobalStatus struct {
	Timing           *TimingSignal `json:"timing"`
	Calendar         *CalendarView `json:"calendar"`
	RiskStockTotal   int           `json:"risk_stock_total"`
	RiskStockExtreme int           `json:"risk_stock_extreme"`
	RiskCodes        []string      `json:"risk_codes"`
}
