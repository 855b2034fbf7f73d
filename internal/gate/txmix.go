package gate

import "solana-entry-engine/internal/domain"

// checkTxMix requires a healthy transaction mix once the token has enough
// history for the check to be decidable: a minimum cumulative transaction
// count and a minimum sell share. Counts are cumulative, so the latest point
// carries the totals.
func (e *Engine) checkTxMix(points []*domain.MetricPoint, nowIteration int64) *checkResult {
	if nowIteration < e.cfg.TxMixDecidableAt || len(points) == 0 {
		return nil
	}
	last := points[len(points)-1]

	if last.TxTotal() < e.cfg.TxMixMinCount {
		return &checkResult{reason: domain.VetoLowTx}
	}
	if last.SellShare() < e.cfg.TxMixMinSellShare {
		return &checkResult{reason: domain.VetoLowSellShare}
	}
	return nil
}
