package gate

import (
	"errors"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/lookup"
)

// checkCorridors runs every configured corridor stage whose window has
// completed. A stage vetoes when the price dumped hard inside the window and
// never recovered: drop >= dropThreshold and recovery < recoveryMin, both
// boundaries exactly as written. The engine skips this check entirely while
// a position is open.
func (e *Engine) checkCorridors(points []*domain.MetricPoint, nowIteration int64) *checkResult {
	for _, cw := range e.cfg.Corridors {
		if nowIteration < cw.EndSec {
			continue
		}

		peak, err := lookup.MaxPriceBefore(cw.StartSec, points)
		if err != nil || peak <= 0 {
			continue
		}
		trough, err := lookup.MinPriceIn(cw.StartSec, cw.EndSec, points)
		if err != nil {
			continue
		}

		drop := (peak - trough) / peak
		if drop < cw.DropThreshold {
			continue
		}

		recovery := 1.0
		if peak > trough {
			endPrice, err := lookup.PriceAt(cw.EndSec, points)
			if errors.Is(err, lookup.ErrNoData) {
				continue
			}
			recovery = (endPrice - trough) / (peak - trough)
		}
		if recovery < cw.RecoveryMin {
			return &checkResult{reason: domain.CorridorVeto(cw.Stage), archive: true}
		}
	}
	return nil
}
