package domain

// VetoReason identifies which safety gate rejected a token.
type VetoReason string

// Veto reasons, in chain order. Corridor vetoes carry the stage name as a
// suffix, e.g. "corridor-drop-early".
const (
	VetoHoneypot           VetoReason = "honeypot"
	VetoLiquidityWithdrawn VetoReason = "liquidity-withdrawn"
	VetoCorridorDropPrefix VetoReason = "corridor-drop-"
	VetoPostEntryDrop      VetoReason = "post-entry-drop"
	VetoLowTx              VetoReason = "low-tx"
	VetoLowSellShare       VetoReason = "low-sell-share"
	VetoHolderMomentum     VetoReason = "holder-momentum"
)

// CorridorVeto builds the per-stage corridor veto reason.
func CorridorVeto(stage string) VetoReason {
	return VetoCorridorDropPrefix + VetoReason(stage)
}

// SafetyVerdict is the outcome of one pass through the gate chain.
// Recomputed every tick, never persisted beyond the current decision.
type SafetyVerdict struct {
	Vetoed bool
	Reason VetoReason

	// AllReasons collects every check that fired this tick, for telemetry.
	// The first entry equals Reason.
	AllReasons []VetoReason

	// SuppressForecast is set by the honeypot check. The evaluator persists
	// it on the decision state, so once a token looked like a honeypot no
	// forecasting ever runs for it again.
	SuppressForecast bool

	// Archive is set by checks whose veto means the token is dead (liquidity
	// withdrawn, corridor dump) and should be archived if no position is open.
	Archive bool
}
