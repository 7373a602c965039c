package zhitu

import (
	"context"
	"strings"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Major index codes tracked for the drawdown rule.
var majorIndexCodes = map[string]bool{
	"000001.SH": true, // 上证综指
	"399001.SZ": true, // 深证成指
	"399006.SZ": true, // 创业板指
}

// SnapshotBuilder aggregates the realtime feed and the themed pools into
// the market snapshot the guard evaluates.
type SnapshotBuilder struct {
	client *Client
	logger *logger.Logger
	loc    *time.Location
}

// NewSnapshotBuilder creates a SnapshotBuilder. loc decides "today" for the
// pool endpoints.
func NewSnapshotBuilder(client *Client, log *logger.Logger, loc *time.Location) *SnapshotBuilder {
	return &SnapshotBuilder{
		client: client,
		logger: log.WithModule("snapshot"),
		loc:    loc,
	}
}

// FetchAggregateStats builds a fresh snapshot. Any upstream failure or an
// empty feed surfaces as an error; the guard turns that into a block.
func (b *SnapshotBuilder) FetchAggregateStats(ctx context.Context) (*contracts.MarketSnapshot, error) {
	quotes, err := b.client.GetRealtimeAll(ctx)
	if err != nil {
		return nil, contracts.NewFetchError("realtime feed", err)
	}
	if len(quotes) == 0 {
		return nil, contracts.NewFetchError("realtime feed", contracts.ErrDataUnavailable)
	}

	snap := &contracts.MarketSnapshot{}
	worstIndexPct := 0.0

	for _, q := range quotes {
		code := NormalizeCode(q.Code)
		if majorIndexCodes[code] {
			if q.PctChange.Present && q.PctChange.Value < worstIndexPct {
				worstIndexPct = q.PctChange.Value
			}
			continue
		}
		if !IsListingCode(code) || !q.PctChange.Present {
			continue
		}
		if q.PctChange.Value > 0 {
			snap.UpCount++
		} else if q.PctChange.Value < 0 {
			snap.DownCount++
		}
	}
	// Drawdown is positive when the worst index is falling.
	if worstIndexPct < 0 {
		snap.IndexDrawdownPct = -worstIndexPct
	}

	today := time.Now().In(b.loc).Format("2006-01-02")

	limitDown, err := b.client.GetPool(ctx, PoolLimitDown, today)
	if err != nil {
		return nil, contracts.NewFetchError("limit-down pool", err)
	}
	snap.LimitDownCount = len(limitDown)

	limitUp, err := b.client.GetPool(ctx, PoolLimitUp, today)
	if err != nil {
		return nil, contracts.NewFetchError("limit-up pool", err)
	}
	broken, err := b.client.GetPool(ctx, PoolBroken, today)
	if err != nil {
		return nil, contracts.NewFetchError("broken pool", err)
	}
	if attempts := len(limitUp) + len(broken); attempts > 0 {
		snap.BrokenBoardRate = float64(len(broken)) / float64(attempts) * 100
	}

	b.logger.WithFields(map[string]interface{}{
		"index_drawdown": snap.IndexDrawdownPct,
		"up":             snap.UpCount,
		"down":           snap.DownCount,
		"limit_down":     snap.LimitDownCount,
		"broken_rate":    snap.BrokenBoardRate,
	}).Debug("Built market snapshot")

	return snap, nil
}

// IsListingCode reports whether a normalized code names a stock listing
// rather than an index or fund.
func IsListingCode(code string) bool {
	pure := PureCode(code)
	if len(pure) != 6 {
		return false
	}
	for i := 0; i < len(pure); i++ {
		if pure[i] < '0' || pure[i] > '9' {
			return false
		}
	}
	// 399xxx and 000xxx.SH are indexes, not listings.
	if strings.HasPrefix(pure, "39") {
		return false
	}
	if strings.HasSuffix(code, ".SH") && pure[0] == '0' {
		return false
	}
	switch pure[0] {
	case '0', '3', '6', '4', '8':
		return true
	}
	return false
}
