// Package plan owns the per-token lifecycle transitions and the exit plan.
package plan

import "solana-entry-engine/internal/domain"

// BeginSegmenting moves a collecting token into segmenting once the first
// segment window is computable. No-op in any other state.
func BeginSegmenting(s *domain.TokenDecisionState) bool {
	if s.State != domain.StateCollecting {
		return false
	}
	s.State = domain.StateSegmenting
	return true
}

// RecordRejection writes a no-entry decision for this tick. At or past the
// entry checkpoint with no open position the decision freezes: it can never
// become buy for the rest of the token's lifetime.
func RecordRejection(s *domain.TokenDecisionState, nowIteration, entryCheckpoint int64, openPosition bool) {
	s.Decision = domain.DecisionNot
	if s.State == domain.StateSegmenting || s.State == domain.StateEligible {
		s.State = domain.StateGated
	}
	if nowIteration >= entryCheckpoint && !openPosition {
		s.Frozen = true
	}
}

// RecordEligibility marks a buy decision. Refused for frozen tokens; a
// rejection frozen at the entry checkpoint is final.
func RecordEligibility(s *domain.TokenDecisionState) bool {
	if s.Frozen {
		return false
	}
	switch s.State {
	case domain.StateSegmenting, domain.StateGated:
		s.State = domain.StateEligible
	case domain.StateEligible:
		// already there
	default:
		return false
	}
	s.Decision = domain.DecisionBuy
	return true
}

// ConfirmEntry fixes the entry anchor on an external buy confirmation. A
// real anchor is written once and never overwritten by a later preview.
// Entry also confirms from gated: a fill can land after a veto already moved
// the token out of eligible, and committed capital must still be managed.
func ConfirmEntry(s *domain.TokenDecisionState, iteration int64, price float64) bool {
	switch s.State {
	case domain.StateEligible, domain.StateGated:
	default:
		return false
	}
	s.State = domain.StateEntered
	if !s.HasRealEntry() {
		s.EntryIteration = &iteration
		s.EntryPrice = &price
	}
	return true
}

// ConfirmExit closes the position on an external sell confirmation or when
// the planner detects the target was already reached.
func ConfirmExit(s *domain.TokenDecisionState) bool {
	if s.State != domain.StateEntered {
		return false
	}
	s.State = domain.StateExited
	return true
}
