// Package features converts ordered metric windows into fixed-size numeric
// vectors. Extraction is a pure function of the window: same points in, same
// vector out, bit-reproducible.
package features

import (
	"math"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/lookup"
)

// Extractor computes feature vectors from metric windows.
type Extractor struct {
	cfg       config.Features
	minPoints int
}

// NewExtractor creates an extractor requiring at least minPoints per window.
func NewExtractor(cfg config.Features, minPoints int) *Extractor {
	if minPoints < 2 {
		minPoints = 2
	}
	return &Extractor{cfg: cfg, minPoints: minPoints}
}

// Extract computes the feature vector for an ordered metric window.
// Returns domain.ErrInsufficientHistory when the window is shorter than the
// extractor's minimum, and domain.ErrDataInconsistent when seconds are not
// strictly ascending.
func (e *Extractor) Extract(points []*domain.MetricPoint) (*domain.FeatureVector, error) {
	if len(points) < e.minPoints {
		return nil, domain.ErrInsufficientHistory
	}
	if !lookup.Ordered(points) {
		return nil, domain.ErrDataInconsistent
	}

	n := len(points)
	fv := &domain.FeatureVector{}
	for c := range fv.Channels {
		fv.Channels[c] = make([]float64, n)
	}

	// Channel series.
	maxLiquidity := 0.0
	for _, p := range points {
		if p.Liquidity > maxLiquidity {
			maxLiquidity = p.Liquidity
		}
	}
	for i, p := range points {
		logPrice := math.Log(math.Max(p.Price, e.cfg.PriceEpsilon))
		fv.Channels[domain.ChannelLogPrice][i] = logPrice
		fv.Channels[domain.ChannelLogMarketCap][i] = math.Log(math.Max(p.MarketCap, e.cfg.PriceEpsilon))

		if maxLiquidity > 0 {
			fv.Channels[domain.ChannelLiquidity][i] = p.Liquidity / maxLiquidity
		}

		if i > 0 {
			prev := points[i-1]
			fv.Channels[domain.ChannelReturn][i] = logPrice - fv.Channels[domain.ChannelLogPrice][i-1]
			fv.Channels[domain.ChannelHolderDelta][i] = float64(p.HolderCount - prev.HolderCount)

			buyDelta := float64(p.BuyCount - prev.BuyCount)
			sellDelta := float64(p.SellCount - prev.SellCount)
			if total := buyDelta + sellDelta; total > 0 {
				fv.Channels[domain.ChannelTxImbalance][i] = (buyDelta - sellDelta) / total
			}
		}
	}

	logPrices := fv.Channels[domain.ChannelLogPrice]
	returns := fv.Channels[domain.ChannelReturn][1:]

	// Multi-horizon momentum and trend quality.
	slopeShort, r2Short := computeSlope(tail(logPrices, e.cfg.ShortHorizon))
	slopeMid, _ := computeSlope(tail(logPrices, e.cfg.MidHorizon))
	slopeLong, r2Long := computeSlope(tail(logPrices, e.cfg.LongHorizon))

	fv.Cond[domain.CondSlopeShort] = slopeShort
	fv.Cond[domain.CondSlopeMid] = slopeMid
	fv.Cond[domain.CondSlopeLong] = slopeLong
	fv.Cond[domain.CondSlopeDelta] = slopeShort - slopeLong
	fv.Cond[domain.CondVolatility] = computeStddev(tail(returns, e.cfg.ShortHorizon))
	fv.Cond[domain.CondR2Short] = r2Short
	fv.Cond[domain.CondR2Long] = r2Long

	// Drawup/drawdown asymmetry anchored at the short-horizon start.
	anchorIdx := n - e.cfg.ShortHorizon
	if anchorIdx < 0 {
		anchorIdx = 0
	}
	anchor := math.Max(points[anchorIdx].Price, e.cfg.PriceEpsilon)
	maxPrice, minPrice := points[0].Price, points[0].Price
	for _, p := range points[1:] {
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
		if p.Price < minPrice {
			minPrice = p.Price
		}
	}
	fv.Cond[domain.CondDrawup] = maxPrice / anchor
	fv.Cond[domain.CondDrawdown] = 1 - minPrice/anchor

	return fv, nil
}
