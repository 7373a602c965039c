package scheduler

import "time"

// historyCap bounds the per-strategy result buffer.
const historyCap = 100

// RunResult is the outcome of one strategy execution.
type RunResult struct {
	Strategy  string        `json:"strategy"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// History is a bounded buffer of run results for one strategy.
type History struct {
	Results []RunResult
}

// Add appends a result, evicting the oldest past the cap.
func (h *History) Add(result RunResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyCap {
		h.Results = h.Results[len(h.Results)-historyCap:]
	}
}

// RunStats summarizes one strategy's execution record.
type RunStats struct {
	Strategy     string     `json:"strategy"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}
