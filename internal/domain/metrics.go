package domain

// MetricPoint represents one aggregated per-second market snapshot for a token.
// Corresponds to the token_metrics table in ClickHouse. Second is the row's
// iteration index: seconds elapsed since the token's first recorded row.
// A later row with the same Second supersedes the earlier one.
type MetricPoint struct {
	TokenID     string  // token candidate identifier
	Second      int64   // iteration index since first row
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // token price in quote units
	Liquidity   float64 // total pool liquidity
	MarketCap   float64 // fully diluted market cap
	HolderCount int64   // distinct holder count
	BuyCount    int64   // cumulative buy transaction count
	SellCount   int64   // cumulative sell transaction count
}

// TxTotal returns total buy+sell transactions at this point.
func (p *MetricPoint) TxTotal() int64 {
	return p.BuyCount + p.SellCount
}

// SellShare returns sells/(buys+sells), or 0 when no transactions exist.
func (p *MetricPoint) SellShare() float64 {
	total := p.TxTotal()
	if total == 0 {
		return 0
	}
	return float64(p.SellCount) / float64(total)
}
