package gate

import (
	"io"
	"log"
	"testing"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
)

func testGates() config.Gates {
	return config.Gates{
		HoneypotEarlyWindow:  10,
		HoneypotRecentWindow: 5,
		HoneypotMinSamples:   10,
		HoneypotMinSellShare: 0.20,

		LiquidityWindow:        8,
		LiquidityEpsilon:       1e-9,
		LiquidityMinIterations: 8,

		Corridors: []config.CorridorWindow{
			{Stage: "early", StartSec: 5, EndSec: 10, DropThreshold: 0.50, RecoveryMin: 0.30},
		},

		PostEntryDropThreshold:  0.15,
		PostEntryDropCheckpoint: 30,

		TxMixMinCount:     10,
		TxMixMinSellShare: 0.10,
		TxMixDecidableAt:  20,

		HolderCheckpoint: 20,
		HolderMin:        25,
		HolderLookback:   10,
		HolderMinDelta:   5,
		HolderMinRate:    0.3,
	}
}

func testEngine() *Engine {
	return NewEngine(Options{
		Config:       testGates(),
		EntrySeconds: 20,
		Logger:       log.New(io.Discard, "", 0),
	})
}

// priceSeries builds one point per second with the given prices and healthy
// defaults everywhere else: growing holders, a balanced transaction mix, and
// liquidity that tracks the price.
func priceSeries(prices []float64) []*domain.MetricPoint {
	points := make([]*domain.MetricPoint, len(prices))
	for i, price := range prices {
		points[i] = &domain.MetricPoint{
			TokenID:     "t",
			Second:      int64(i),
			Price:       price,
			Liquidity:   price * 1000,
			MarketCap:   price * 1e6,
			HolderCount: int64(10 + 5*i),
			BuyCount:    int64(3 * (i + 1)),
			SellCount:   int64(2 * (i + 1)),
		}
	}
	return points
}

func constant(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestHoneypot_EarlyWindowCumulativeCounts(t *testing.T) {
	e := testEngine()
	points := priceSeries(constant(1.0, 12))
	// Cumulative counts inside the early window: 20 buys, 2 sells at sec 9.
	for i, p := range points {
		p.BuyCount = int64(2 * (i + 1))
		p.SellCount = 0
		if i >= 9 {
			p.SellCount = 2
		}
	}

	res := e.checkHoneypot(points, 12)
	if res == nil {
		t.Fatal("Expected honeypot veto for 10% early sell share")
	}
	if res.reason != domain.VetoHoneypot || !res.suppress {
		t.Errorf("Got reason %q suppress %v, want honeypot with forecast suppression", res.reason, res.suppress)
	}
}

func TestHoneypot_RecentWindowDeltas(t *testing.T) {
	e := testEngine()
	// Healthy early life, then sells stop: last 5 points add 12 buys, 0 sells.
	points := priceSeries(constant(1.0, 30))
	for i := 25; i < 30; i++ {
		points[i].BuyCount = points[24].BuyCount + int64(3*(i-24))
		points[i].SellCount = points[24].SellCount
	}

	if res := e.checkHoneypot(points, 30); res == nil {
		t.Error("Expected honeypot veto when recent sells vanish")
	}

	if res := e.checkHoneypot(priceSeries(constant(1.0, 30)), 30); res != nil {
		t.Errorf("Balanced mix vetoed: %q", res.reason)
	}
}

func TestHoneypot_BelowMinSamplesPasses(t *testing.T) {
	e := testEngine()
	points := priceSeries(constant(1.0, 3))
	for _, p := range points {
		p.BuyCount = 2
		p.SellCount = 0
	}
	if res := e.checkHoneypot(points, 3); res != nil {
		t.Errorf("Vetoed with only 2 samples: %q", res.reason)
	}
}

func TestLiquidityWithdrawal(t *testing.T) {
	e := testEngine()

	// All-zero tail.
	prices := constant(1.0, 20)
	for i := 12; i < 20; i++ {
		prices[i] = 0
	}
	res := e.checkLiquidityWithdrawal(priceSeries(prices), 20)
	if res == nil {
		t.Fatal("Expected veto for zeroed tail")
	}
	if res.reason != domain.VetoLiquidityWithdrawn || !res.archive {
		t.Errorf("Got reason %q archive %v", res.reason, res.archive)
	}

	// Mixed zeros and dust: range below epsilon still counts as drained.
	prices = constant(1.0, 20)
	for i := 12; i < 20; i++ {
		prices[i] = 0
	}
	prices[14], prices[17] = 4e-10, 7e-10
	if res := e.checkLiquidityWithdrawal(priceSeries(prices), 20); res == nil {
		t.Error("Expected veto for dust-range tail")
	}

	// A moving series passes.
	prices = make([]float64, 20)
	for i := range prices {
		prices[i] = 1.0 + 0.01*float64(i)
	}
	if res := e.checkLiquidityWithdrawal(priceSeries(prices), 20); res != nil {
		t.Errorf("Moving series vetoed: %q", res.reason)
	}
}

func TestLiquidityWithdrawal_WaitsForMinIterations(t *testing.T) {
	e := testEngine()
	points := priceSeries(constant(0, 5))
	if res := e.checkLiquidityWithdrawal(points, 5); res != nil {
		t.Errorf("Vetoed before minimum iterations: %q", res.reason)
	}
}

// corridorSeries builds a peak-1.0 prefix, a trough inside [5,10], and a
// configurable closing price at the window end.
func corridorSeries(trough, endPrice float64) []*domain.MetricPoint {
	prices := constant(1.0, 11)
	prices[7] = trough
	prices[10] = endPrice
	return priceSeries(prices)
}

func TestCorridor_BoundaryCases(t *testing.T) {
	e := testEngine()

	cases := []struct {
		name     string
		trough   float64
		endPrice float64
		veto     bool
	}{
		// drop = 0.50 exactly: threshold is inclusive.
		{"drop at threshold, no recovery", 0.50, 0.50, true},
		// recovery = (0.65-0.50)/0.50 = 0.30 exactly: recoveryMin is exclusive.
		{"recovery at minimum", 0.50, 0.65, false},
		{"recovery just below minimum", 0.50, 0.649, true},
		{"drop just below threshold", 0.501, 0.501, false},
		{"deep drop, full recovery", 0.30, 1.0, false},
		{"deep drop, weak recovery", 0.30, 0.40, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.checkCorridors(corridorSeries(tc.trough, tc.endPrice), 10)
			if (res != nil) != tc.veto {
				t.Errorf("trough %.3f end %.3f: veto = %v, want %v",
					tc.trough, tc.endPrice, res != nil, tc.veto)
			}
			if res != nil {
				if res.reason != domain.CorridorVeto("early") {
					t.Errorf("Got reason %q, want corridor-drop-early", res.reason)
				}
				if !res.archive {
					t.Error("Corridor veto must signal archival")
				}
			}
		})
	}
}

func TestCorridor_FlatSeriesRecoveryIsOne(t *testing.T) {
	e := testEngine()
	// peak == trough: drop is 0, nothing to veto.
	if res := e.checkCorridors(priceSeries(constant(1.0, 11)), 10); res != nil {
		t.Errorf("Flat series vetoed: %q", res.reason)
	}
}

func TestCorridor_SkippedBeforeWindowEnd(t *testing.T) {
	e := testEngine()
	if res := e.checkCorridors(corridorSeries(0.1, 0.1), 9); res != nil {
		t.Errorf("Corridor evaluated before window end: %q", res.reason)
	}
}

func TestPostEntryDrop(t *testing.T) {
	e := testEngine()

	// Entry price 1.0 at sec 20; minimum 0.85 in [20,30]: drop = 0.15, inclusive.
	prices := constant(1.0, 31)
	prices[25] = 0.85
	res := e.checkPostEntryDrop(priceSeries(prices), 30)
	if res == nil || res.reason != domain.VetoPostEntryDrop {
		t.Fatalf("Expected post-entry-drop veto at exact threshold, got %+v", res)
	}

	prices[25] = 0.851
	if res := e.checkPostEntryDrop(priceSeries(prices), 30); res != nil {
		t.Errorf("Vetoed below threshold: %q", res.reason)
	}

	// Not evaluated before the checkpoint.
	prices[25] = 0.5
	if res := e.checkPostEntryDrop(priceSeries(prices[:28]), 27); res != nil {
		t.Errorf("Evaluated before checkpoint: %q", res.reason)
	}
}

func TestTxMix(t *testing.T) {
	e := testEngine()
	points := priceSeries(constant(1.0, 25))

	last := points[len(points)-1]
	last.BuyCount, last.SellCount = 5, 1
	if res := e.checkTxMix(points, 25); res == nil || res.reason != domain.VetoLowTx {
		t.Errorf("Expected low-tx veto, got %+v", res)
	}

	last.BuyCount, last.SellCount = 50, 4
	if res := e.checkTxMix(points, 25); res == nil || res.reason != domain.VetoLowSellShare {
		t.Errorf("Expected low-sell-share veto, got %+v", res)
	}

	last.BuyCount, last.SellCount = 50, 10
	if res := e.checkTxMix(points, 25); res != nil {
		t.Errorf("Healthy mix vetoed: %q", res.reason)
	}

	// Not decidable yet.
	early := priceSeries(constant(1.0, 10))
	early[9].BuyCount, early[9].SellCount = 1, 0
	if res := e.checkTxMix(early, 10); res != nil {
		t.Errorf("Evaluated before decidable threshold: %q", res.reason)
	}
}

func TestHolderMomentum(t *testing.T) {
	e := testEngine()

	// Defaults grow 5 holders/sec: passes comfortably.
	points := priceSeries(constant(1.0, 25))
	if res := e.checkHolderMomentum(points, 25); res != nil {
		t.Errorf("Growing holders vetoed: %q", res.reason)
	}

	// Too few holders in total.
	for _, p := range points {
		p.HolderCount = 20
	}
	if res := e.checkHolderMomentum(points, 25); res == nil || res.reason != domain.VetoHolderMomentum {
		t.Errorf("Expected holder-momentum veto for low count, got %+v", res)
	}

	// Enough holders but stalled growth.
	for _, p := range points {
		p.HolderCount = 100
	}
	if res := e.checkHolderMomentum(points, 25); res == nil {
		t.Error("Expected holder-momentum veto for stalled growth")
	}

	// Growth below the minimum delta: 2 holders over the lookback.
	for i, p := range points {
		p.HolderCount = 100 + int64(i)/5
	}
	if res := e.checkHolderMomentum(points, 25); res == nil {
		t.Error("Expected holder-momentum veto for slow growth")
	}

	// Not evaluated before the checkpoint.
	early := priceSeries(constant(1.0, 10))
	for _, p := range early {
		p.HolderCount = 1
	}
	if res := e.checkHolderMomentum(early, 10); res != nil {
		t.Errorf("Evaluated before checkpoint: %q", res.reason)
	}
}

func TestEvaluate_FirstVetoWinsAllReasonsCollected(t *testing.T) {
	e := testEngine()

	// Honeypot (no sells) and low-sell-share both fire; honeypot leads the chain.
	points := priceSeries(constant(1.0, 25))
	for i, p := range points {
		p.BuyCount = int64(3 * (i + 1))
		p.SellCount = 0
	}

	verdict := e.Evaluate("t", points, 25, false)
	if !verdict.Vetoed {
		t.Fatal("Expected a vetoed verdict")
	}
	if verdict.Reason != domain.VetoHoneypot {
		t.Errorf("First veto is %q, want honeypot", verdict.Reason)
	}
	if !verdict.SuppressForecast {
		t.Error("Honeypot veto must suppress forecasting")
	}
	if len(verdict.AllReasons) < 2 {
		t.Errorf("Expected every firing check collected, got %v", verdict.AllReasons)
	}
	if verdict.AllReasons[0] != verdict.Reason {
		t.Errorf("AllReasons[0] = %q, want %q", verdict.AllReasons[0], verdict.Reason)
	}
}

func TestEvaluate_OpenPositionSkipsCorridor(t *testing.T) {
	e := testEngine()
	points := corridorSeries(0.1, 0.1)

	closed := e.Evaluate("t", points, 10, false)
	if !closed.Vetoed || closed.Reason != domain.CorridorVeto("early") {
		t.Fatalf("Expected corridor veto with no position, got %+v", closed)
	}

	open := e.Evaluate("t", points, 10, true)
	for _, r := range open.AllReasons {
		if r == domain.CorridorVeto("early") {
			t.Error("Corridor guard ran against an open position")
		}
	}
}

func TestEvaluate_CleanTokenPasses(t *testing.T) {
	e := testEngine()
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 1.0 + 0.02*float64(i)
	}
	verdict := e.Evaluate("t", priceSeries(prices), 25, false)
	if verdict.Vetoed {
		t.Errorf("Clean token vetoed: %q (all: %v)", verdict.Reason, verdict.AllReasons)
	}
	if verdict.Archive || verdict.SuppressForecast {
		t.Errorf("Clean token flagged: %+v", verdict)
	}
}
