package plan

import (
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/lookup"
)

// Planner maintains the exit plan for entered tokens.
type Planner struct {
	targetReturn float64
	windowSec    int64
}

// NewPlanner creates an exit planner. targetReturn is the fractional gain
// that defines the target price; windowSec is the sliding re-basing window.
func NewPlanner(targetReturn float64, windowSec int64) *Planner {
	return &Planner{targetReturn: targetReturn, windowSec: windowSec}
}

// TargetPrice returns the exit target for a given entry price.
func (p *Planner) TargetPrice(entryPrice float64) float64 {
	return entryPrice * (1 + p.targetReturn)
}

// Replan recomputes the exit plan from the recorded history. Idempotent:
// running it twice with no new data produces the same plan.
//
// When a recorded price at or after the entry iteration has reached the
// target, the plan collapses to that earliest hit. Once a hit is recorded
// the plan iteration only moves earlier, never later. Without a hit the
// plan re-bases on a sliding window past the entry anchor.
// Returns whether the plan changed.
func (p *Planner) Replan(s *domain.TokenDecisionState, points []*domain.MetricPoint, nowIteration int64) bool {
	if !s.HasRealEntry() {
		return false
	}
	entryIter := *s.EntryIteration
	target := p.TargetPrice(*s.EntryPrice)

	if hit := lookup.EarliestAtOrAbove(entryIter, target, points); hit != nil {
		if s.PlanHit && s.PlanExitIteration != nil && *s.PlanExitIteration <= hit.Second {
			return false
		}
		return p.set(s, hit.Second, hit.Price, true)
	}
	if s.PlanHit {
		// A hit-backed plan never regresses to a sliding window, even if the
		// read window no longer covers the hit.
		return false
	}

	windowsElapsed := (nowIteration - entryIter) / p.windowSec
	planIter := entryIter + (windowsElapsed+1)*p.windowSec
	return p.set(s, planIter, target, false)
}

func (p *Planner) set(s *domain.TokenDecisionState, iter int64, price float64, hit bool) bool {
	if s.PlanExitIteration != nil && *s.PlanExitIteration == iter &&
		s.PlanExitPrice != nil && *s.PlanExitPrice == price && s.PlanHit == hit {
		return false
	}
	s.PlanExitIteration = &iter
	s.PlanExitPrice = &price
	s.PlanHit = hit
	return true
}
