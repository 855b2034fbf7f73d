package gate

import "solana-entry-engine/internal/domain"

// checkHolderMomentum requires, from the holder checkpoint on, a minimum
// holder count plus positive momentum over the lookback: an absolute delta
// and an average per-second growth rate.
func (e *Engine) checkHolderMomentum(points []*domain.MetricPoint, nowIteration int64) *checkResult {
	if nowIteration < e.cfg.HolderCheckpoint || len(points) == 0 {
		return nil
	}
	last := points[len(points)-1]

	if last.HolderCount < e.cfg.HolderMin {
		return &checkResult{reason: domain.VetoHolderMomentum}
	}

	earlier := holdersAtOrBefore(last.Second-e.cfg.HolderLookback, points)
	if earlier == nil {
		return &checkResult{reason: domain.VetoHolderMomentum}
	}

	delta := last.HolderCount - earlier.HolderCount
	if delta < e.cfg.HolderMinDelta {
		return &checkResult{reason: domain.VetoHolderMomentum}
	}
	span := last.Second - earlier.Second
	if span <= 0 || float64(delta)/float64(span) < e.cfg.HolderMinRate {
		return &checkResult{reason: domain.VetoHolderMomentum}
	}
	return nil
}

// holdersAtOrBefore returns the last point with Second <= sec, or nil.
func holdersAtOrBefore(sec int64, points []*domain.MetricPoint) *domain.MetricPoint {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Second <= sec {
			return points[i]
		}
	}
	return nil
}
