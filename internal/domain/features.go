package domain

// Feature channel indices into FeatureVector.Channels.
const (
	ChannelLogPrice = iota
	ChannelReturn
	ChannelLiquidity
	ChannelLogMarketCap
	ChannelHolderDelta
	ChannelTxImbalance
	ChannelCount
)

// CondSize is the length of the conditioning vector: three slope horizons,
// slope delta, return volatility, two trend-fit qualities, drawup and
// drawdown ratios.
const CondSize = 9

// Conditioning vector indices.
const (
	CondSlopeShort = iota
	CondSlopeMid
	CondSlopeLong
	CondSlopeDelta
	CondVolatility
	CondR2Short
	CondR2Long
	CondDrawup
	CondDrawdown
)

// FeatureVector is the ephemeral numeric view of one metrics window.
// Never persisted; recomputed on each evaluation.
type FeatureVector struct {
	// Channels is ChannelCount series of equal window length, oldest first.
	Channels [ChannelCount][]float64

	// Cond is the CondSize-element conditioning vector.
	Cond [CondSize]float64
}

// Window returns the window length of the channel series.
func (f *FeatureVector) Window() int {
	return len(f.Channels[ChannelLogPrice])
}
