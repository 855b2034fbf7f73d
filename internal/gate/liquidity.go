package gate

import "solana-entry-engine/internal/domain"

// checkLiquidityWithdrawal detects a drained pool: across the most recent
// points, either every price (or market cap) sits at or below epsilon, or
// the series has flatlined with a max-min range at or below epsilon. The
// check waits until the token has enough total points to be meaningful. A
// veto marks the token for archival.
func (e *Engine) checkLiquidityWithdrawal(points []*domain.MetricPoint, _ int64) *checkResult {
	if int64(len(points)) < e.cfg.LiquidityMinIterations {
		return nil
	}
	window := points
	if len(window) > e.cfg.LiquidityWindow {
		window = window[len(window)-e.cfg.LiquidityWindow:]
	}

	prices := make([]float64, len(window))
	caps := make([]float64, len(window))
	for i, p := range window {
		prices[i] = p.Price
		caps[i] = p.MarketCap
	}

	if e.drained(prices) || e.drained(caps) {
		return &checkResult{reason: domain.VetoLiquidityWithdrawn, archive: true}
	}
	return nil
}

// drained reports whether a series is dead: all values <= epsilon, or a
// max-min range <= epsilon.
func (e *Engine) drained(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	eps := e.cfg.LiquidityEpsilon
	minV, maxV := values[0], values[0]
	allBelow := true
	for _, v := range values {
		if v > eps {
			allBelow = false
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return allBelow || maxV-minV <= eps
}
