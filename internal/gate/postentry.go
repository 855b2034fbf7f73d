package gate

import (
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/lookup"
)

// checkPostEntryDrop compares the price at the designated entry second with
// the minimum recorded between the entry second and a later fixed
// checkpoint. A fractional drop at or beyond the threshold vetoes.
func (e *Engine) checkPostEntryDrop(points []*domain.MetricPoint, nowIteration int64) *checkResult {
	if nowIteration < e.cfg.PostEntryDropCheckpoint {
		return nil
	}

	entryPrice, err := lookup.PriceAt(e.entrySeconds, points)
	if err != nil || entryPrice <= 0 {
		return nil
	}
	minSince, err := lookup.MinPriceIn(e.entrySeconds, e.cfg.PostEntryDropCheckpoint, points)
	if err != nil {
		return nil
	}

	drop := (entryPrice - minSince) / entryPrice
	if drop >= e.cfg.PostEntryDropThreshold {
		return &checkResult{reason: domain.VetoPostEntryDrop}
	}
	return nil
}
