package jobs

import (
	"context"
	"fmt"

	"github.com/junzhu/tidegate/backend/internal/external/zhitu"
	"github.com/junzhu/tidegate/backend/internal/riskscan"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// UniverseWriter persists the refreshed listing set. Implemented by the
// stock repository.
type UniverseWriter interface {
	ReplaceUniverse(ctx context.Context, stocks []riskscan.Stock) error
}

// UniverseSyncJob refreshes the scan universe from the instrument list.
type UniverseSyncJob struct {
	client *zhitu.Client
	writer UniverseWriter
	logger *logger.Logger
}

// NewUniverseSyncJob creates a UniverseSyncJob.
func NewUniverseSyncJob(client *zhitu.Client, writer UniverseWriter, log *logger.Logger) *UniverseSyncJob {
	return &UniverseSyncJob{client: client, writer: writer, logger: log}
}

func (j *UniverseSyncJob) Name() string { return "universe_sync" }

func (j *UniverseSyncJob) Description() string {
	return "Refresh the stock universe from the upstream instrument list"
}

// Schedule fires weekdays at 17:00, after close.
func (j *UniverseSyncJob) Schedule() string { return "0 0 17 * * MON-FRI" }

// Run replaces the universe with the current listings. Indexes and funds
// in the instrument list are dropped.
func (j *UniverseSyncJob) Run(ctx context.Context) error {
	listings, err := j.client.GetStockList(ctx)
	if err != nil {
		return fmt.Errorf("fetch instrument list: %w", err)
	}
	if len(listings) == 0 {
		return fmt.Errorf("instrument list empty, keeping previous universe")
	}

	stocks := make([]riskscan.Stock, 0, len(listings))
	for _, l := range listings {
		code := zhitu.NormalizeCode(l.Code)
		if !zhitu.IsListingCode(code) {
			continue
		}
		stocks = append(stocks, riskscan.Stock{Code: code, Name: l.Name})
	}

	if err := j.writer.ReplaceUniverse(ctx, stocks); err != nil {
		return fmt.Errorf("replace universe: %w", err)
	}
	j.logger.WithField("count", len(stocks)).Info("Stock universe synced")
	return nil
}
