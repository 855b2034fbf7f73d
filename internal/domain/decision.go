package domain

// Decision is the persisted per-token entry decision.
type Decision string

// Decision values.
const (
	DecisionUnknown Decision = "unknown"
	DecisionNot     Decision = "not"
	DecisionBuy     Decision = "buy"
)

// LifecycleState tracks where a token sits in the evaluation pipeline.
type LifecycleState string

// Lifecycle states. Transitions:
// collecting → segmenting → gated | eligible → entered → exited.
const (
	StateCollecting LifecycleState = "collecting"
	StateSegmenting LifecycleState = "segmenting"
	StateGated      LifecycleState = "gated"
	StateEligible   LifecycleState = "eligible"
	StateEntered    LifecycleState = "entered"
	StateExited     LifecycleState = "exited"
)

// TokenDecisionState is the persisted decision row for one token.
// Corresponds to the decision_states table in PostgreSQL. The engine is the
// only writer; rows are never deleted by the engine (archival is external,
// triggered by the Archive flag).
type TokenDecisionState struct {
	TokenID     string
	PairAddress string

	Decision Decision
	State    LifecycleState

	// Segment labels for the three early-life windows. Unknown until the
	// window end is reached, then written once.
	SegmentLabels [SegmentCount]SegmentLabel

	// Entry anchor, fixed when a real position is confirmed. A preview
	// evaluation never overwrites a real anchor.
	EntryIteration *int64
	EntryPrice     *float64

	// Current exit plan.
	PlanExitIteration *int64
	PlanExitPrice     *float64

	// PlanHit is set once a recorded price at or after the entry iteration
	// reached the target. From then on the plan iteration only moves earlier.
	PlanHit bool

	// Frozen marks a no-entry decision made at or past the entry checkpoint
	// with no open position. A frozen decision never becomes buy.
	Frozen bool

	// ForecastSuppressed records a honeypot veto. Once set, forecasting stays
	// suppressed for the token's lifetime even if the veto stops firing.
	ForecastSuppressed bool

	// Archive signals external archival (corridor or liquidity-withdrawal
	// veto with no open position).
	Archive bool

	// CheckpointsSeen records checkpoint iterations whose one-shot side
	// effects already ran. Grows monotonically.
	CheckpointsSeen map[int64]bool

	CreatedAtMs int64
	UpdatedAtMs int64
}

// NewTokenDecisionState returns the initial row for a token entering the
// candidate pool.
func NewTokenDecisionState(tokenID, pairAddress string, nowMs int64) *TokenDecisionState {
	s := &TokenDecisionState{
		TokenID:         tokenID,
		PairAddress:     pairAddress,
		Decision:        DecisionUnknown,
		State:           StateCollecting,
		CheckpointsSeen: make(map[int64]bool),
		CreatedAtMs:     nowMs,
		UpdatedAtMs:     nowMs,
	}
	for i := range s.SegmentLabels {
		s.SegmentLabels[i] = SegmentUnknown
	}
	return s
}

// SeenCheckpoint reports whether the one-shot side effect for the given
// checkpoint iteration already ran.
func (s *TokenDecisionState) SeenCheckpoint(iteration int64) bool {
	return s.CheckpointsSeen[iteration]
}

// MarkCheckpoint records a processed checkpoint. Idempotent.
func (s *TokenDecisionState) MarkCheckpoint(iteration int64) {
	if s.CheckpointsSeen == nil {
		s.CheckpointsSeen = make(map[int64]bool)
	}
	s.CheckpointsSeen[iteration] = true
}

// HasRealEntry reports whether a confirmed entry anchor exists.
func (s *TokenDecisionState) HasRealEntry() bool {
	return s.EntryIteration != nil && s.EntryPrice != nil
}

// Clone returns a deep copy so evaluations never share mutable state.
func (s *TokenDecisionState) Clone() *TokenDecisionState {
	c := *s
	c.CheckpointsSeen = make(map[int64]bool, len(s.CheckpointsSeen))
	for k, v := range s.CheckpointsSeen {
		c.CheckpointsSeen[k] = v
	}
	if s.EntryIteration != nil {
		v := *s.EntryIteration
		c.EntryIteration = &v
	}
	if s.EntryPrice != nil {
		v := *s.EntryPrice
		c.EntryPrice = &v
	}
	if s.PlanExitIteration != nil {
		v := *s.PlanExitIteration
		c.PlanExitIteration = &v
	}
	if s.PlanExitPrice != nil {
		v := *s.PlanExitPrice
		c.PlanExitPrice = &v
	}
	return &c
}
