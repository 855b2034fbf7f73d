package gate

import "solana-entry-engine/internal/domain"

// checkHoneypot flags tokens whose holders cannot sell. Two views of the tx
// mix are checked: everything recorded inside the configured early window,
// and the deltas across the most recent points. Either one showing a large
// sample with almost no sells fires the veto. A honeypot veto also suppresses
// forecasting for the token.
func (e *Engine) checkHoneypot(points []*domain.MetricPoint, _ int64) *checkResult {
	if e.suspiciousEarlyWindow(points) || e.suspiciousRecentWindow(points) {
		return &checkResult{reason: domain.VetoHoneypot, suppress: true}
	}
	return nil
}

// suspiciousEarlyWindow inspects cumulative counts at the end of the early
// window. Counts are cumulative since listing, so the last point inside the
// window carries the window's totals.
func (e *Engine) suspiciousEarlyWindow(points []*domain.MetricPoint) bool {
	var last *domain.MetricPoint
	for _, p := range points {
		if p.Second >= e.cfg.HoneypotEarlyWindow {
			break
		}
		last = p
	}
	if last == nil || last.TxTotal() < e.cfg.HoneypotMinSamples {
		return false
	}
	return last.SellShare() < e.cfg.HoneypotMinSellShare
}

// suspiciousRecentWindow inspects count deltas across the most recent points.
func (e *Engine) suspiciousRecentWindow(points []*domain.MetricPoint) bool {
	if len(points) < 2 {
		return false
	}
	window := points
	if len(window) > e.cfg.HoneypotRecentWindow {
		window = window[len(window)-e.cfg.HoneypotRecentWindow:]
	}
	first, last := window[0], window[len(window)-1]

	buys := last.BuyCount - first.BuyCount
	sells := last.SellCount - first.SellCount
	total := buys + sells
	if total < e.cfg.HoneypotMinSamples {
		return false
	}
	return float64(sells)/float64(total) < e.cfg.HoneypotMinSellShare
}
