package contracts

// MarketSnapshot is the realtime aggregate the guard rules run against.
type MarketSnapshot struct {
	// IndexDrawdownPct is the worst major-index drop, positive when
	// falling (4.0 = down 4%).
	IndexDrawdownPct float64 `json:"index_drawdown_pct"`

	LimitDownCount int `json:"limit_down_count"` // 跌停家数
	UpCount        int `json:"up_count"`
	DownCount      int `json:"down_count"`

	// BrokenBoardRate is the failed limit-up rate in percent (炸板率).
	BrokenBoardRate float64 `json:"broken_board_rate"`
}
