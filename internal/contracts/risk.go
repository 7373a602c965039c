package contracts

import "time"

// RiskRecord is one flagged listing of the current scan cycle.
type RiskRecord struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Board           Board   `json:"board"`
	RiskType        string  `json:"risk_type"`
	RiskLevel       string  `json:"risk_level"`
	Reason          string  `json:"reason"`
	LossYears       int     `json:"loss_years"`
	CumulativeLoss  float64 `json:"cumulative_loss"`
	LatestRevenue   float64 `json:"latest_revenue"`
	LatestNetProfit float64 `json:"latest_net_profit"`
	IsExtreme       bool    `json:"is_extreme"`
	ScanDate        string  `json:"scan_date"`
}

// RiskCheck answers the per-code risk query. Detail fields are present
// only when HasRisk is true.
type RiskCheck struct {
	Code           string  `json:"code"`
	HasRisk        bool    `json:"has_risk"`
	RiskType       string  `json:"risk_type,omitempty"`
	RiskLevel      string  `json:"risk_level,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	LossYears      int     `json:"loss_years,omitempty"`
	CumulativeLoss float64 `json:"cumulative_loss,omitempty"`
	LatestRevenue  float64 `json:"latest_revenue,omitempty"`
	ScanDate       string  `json:"scan_date,omitempty"`
}

// FinancialMetrics is the latest annual report of one listing. A nil field
// means the upstream had no data; absent is unknown, never zero.
type FinancialMetrics struct {
	Revenue   *float64 `json:"revenue"`
	NetProfit *float64 `json:"net_profit"`
	Period    string   `json:"period"`
}

// ProfitPeriod is one annual net-profit row of a profit history.
type ProfitPeriod struct {
	Period    string  `json:"period"`
	NetProfit float64 `json:"net_profit"`
}

// ScanStats summarizes one scan cycle.
type ScanStats struct {
	ScanDate string        `json:"scan_date"`
	Total    int           `json:"total"`
	Scanned  int           `json:"scanned"`
	Flagged  int           `json:"flagged"`
	Extreme  int           `json:"extreme"`
	Errors   int           `json:"errors"`
	Duration time.Duration `json:"duration"`
}
