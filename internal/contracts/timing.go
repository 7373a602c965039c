package contracts

import "time"

// TimingSignal is the funnel's answer for one date. The JSON field names
// are consumed by the operator UI and are part of the query contract.
type TimingSignal struct {
	Date         string        `json:"date"`
	Level        Level         `json:"level"`
	Light        Light         `json:"light"`
	Action       Action        `json:"action"`
	Reason       string        `json:"reason"`
	Details      []string      `json:"details"`
	IsTradingDay bool          `json:"is_trading_day"`
	IsHoliday    bool          `json:"is_holiday,omitempty"`
	HolidayName  string        `json:"holiday_name,omitempty"`
	NextOpenDate string        `json:"next_open_date,omitempty"`
	Guard        *GuardVerdict `json:"guard,omitempty"`
}

// GuardVerdict is the second-stage confirmation outcome. It exists only on
// provisional-entry evaluations.
type GuardVerdict struct {
	Verdict   Verdict   `json:"verdict"`
	Reason    string    `json:"reason"`
	CheckedAt time.Time `json:"checked_at"`
}
