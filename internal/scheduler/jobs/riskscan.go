package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/internal/riskscan"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// RiskScanJob runs the full financial risk scan cycle.
type RiskScanJob struct {
	scanner *riskscan.Scanner
	logger  *logger.Logger
}

// NewRiskScanJob creates a RiskScanJob.
func NewRiskScanJob(scanner *riskscan.Scanner, log *logger.Logger) *RiskScanJob {
	return &RiskScanJob{scanner: scanner, logger: log}
}

func (j *RiskScanJob) Name() string { return "financial_risk_scan" }

func (j *RiskScanJob) Description() string {
	return "Two-pass financial risk scan over the full universe"
}

// Schedule fires on the first day of each month at 18:00, after close.
func (j *RiskScanJob) Schedule() string { return "0 0 18 1 * *" }

// Run executes one scan cycle. An already-running cycle is not an error;
// retrying on top of it would only queue behind the same lock.
func (j *RiskScanJob) Run(ctx context.Context) error {
	stats, err := j.scanner.Run(ctx)
	if errors.Is(err, contracts.ErrScanInProgress) {
		j.logger.Warn("Risk scan already in progress, skipping scheduled run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("risk scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"scan_date": stats.ScanDate,
		"flagged":   stats.Flagged,
		"extreme":   stats.Extreme,
		"errors":    stats.Errors,
	}).Info("Scheduled risk scan finished")
	return nil
}
