// Package guard is the second-stage confirmation for provisional entry
// signals: a severity-ordered rule chain over a realtime market snapshot.
// Missing data always resolves to the most conservative verdict.
package guard

import (
	"context"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Rule thresholds. 单边暴跌 → block，情绪恶化 → downgrade。
const (
	indexDrawdownBlockPct  = 3.0  // worst major index drawdown, percent
	limitDownBlockCount    = 200  // 千股跌停
	breadthSkewRatio       = 3    // decliners vs advancers
	brokenRateDowngradePct = 50.0 // 炸板率
	limitDownWarnCount     = 50
)

// Machine-readable verdict reasons. The funnel embeds these in the final
// signal reason, so they are part of the query contract.
const (
	ReasonIndexDrawdown   = "index_drawdown"
	ReasonMassLimitDown   = "mass_limit_down"
	ReasonBreadthSkew     = "breadth_skew"
	ReasonHighBrokenRate  = "high_broken_rate"
	ReasonElevatedLimit   = "elevated_limit_down"
	ReasonMarketNormal    = "market_normal"
	ReasonDataUnavailable = "data_unavailable"
)

// Guard re-confirms provisional entries against a bounded-timeout snapshot
// fetch. It never returns an error: every failure mode is a block verdict.
type Guard struct {
	provider contracts.SnapshotProvider
	timeout  time.Duration
	logger   *logger.Logger
}

// New creates a Guard. timeout bounds the snapshot fetch; a timeout is
// treated identically to a fetch failure.
func New(provider contracts.SnapshotProvider, timeout time.Duration, log *logger.Logger) *Guard {
	return &Guard{
		provider: provider,
		timeout:  timeout,
		logger:   log.WithModule("guard"),
	}
}

// Confirm fetches a fresh snapshot and evaluates the rule chain. Invoked
// only on provisional entry signals.
func (g *Guard) Confirm(ctx context.Context) *contracts.GuardVerdict {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	snap, err := g.provider.FetchAggregateStats(ctx)
	if err != nil || snap == nil {
		g.logger.WithError(err).Warn("Snapshot fetch failed, blocking probe entry")
		return &contracts.GuardVerdict{
			Verdict:   contracts.VerdictBlock,
			Reason:    ReasonDataUnavailable,
			CheckedAt: time.Now(),
		}
	}

	verdict := Check(snap)
	g.logger.WithFields(map[string]interface{}{
		"verdict":          verdict.Verdict,
		"reason":           verdict.Reason,
		"index_drawdown":   snap.IndexDrawdownPct,
		"limit_down_count": snap.LimitDownCount,
	}).Info("Guard check completed")
	return verdict
}

// Check evaluates the rule chain against a snapshot. First matching rule
// wins, ordered by severity.
func Check(snap *contracts.MarketSnapshot) *contracts.GuardVerdict {
	v := &contracts.GuardVerdict{CheckedAt: time.Now()}

	switch {
	case snap.IndexDrawdownPct > indexDrawdownBlockPct:
		v.Verdict, v.Reason = contracts.VerdictBlock, ReasonIndexDrawdown
	case snap.LimitDownCount > limitDownBlockCount:
		v.Verdict, v.Reason = contracts.VerdictBlock, ReasonMassLimitDown
	case snap.DownCount > breadthSkewRatio*snap.UpCount:
		v.Verdict, v.Reason = contracts.VerdictBlock, ReasonBreadthSkew
	case snap.BrokenBoardRate > brokenRateDowngradePct:
		v.Verdict, v.Reason = contracts.VerdictDowngrade, ReasonHighBrokenRate
	case snap.LimitDownCount > limitDownWarnCount:
		v.Verdict, v.Reason = contracts.VerdictDowngrade, ReasonElevatedLimit
	default:
		v.Verdict, v.Reason = contracts.VerdictPass, ReasonMarketNormal
	}
	return v
}
