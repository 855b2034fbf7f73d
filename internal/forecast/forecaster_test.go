package forecast

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
)

func zeroConv(out, in, kernel int) Conv {
	c := Conv{Weights: make([][][]float64, out), Biases: make([]float64, out)}
	for o := range c.Weights {
		c.Weights[o] = make([][]float64, in)
		for i := range c.Weights[o] {
			c.Weights[o][i] = make([]float64, kernel)
		}
	}
	return c
}

// testForecastArtifact builds a tiny but structurally complete network:
// three blocks at dilations 1/2/4, two hidden channels, kernel 2. Weights
// are small fixed values so inference stays finite and deterministic.
func testForecastArtifact() *Artifact {
	const hidden = 2
	art := &Artifact{
		Version:        ArtifactVersion,
		InputChannels:  domain.ChannelCount,
		HiddenChannels: hidden,
		KernelSize:     2,
		CondSize:       domain.CondSize,
		Buckets:        []int64{15, 30, 60},
	}

	for _, dilation := range []int{1, 2, 4} {
		in := hidden
		var proj *Conv
		if len(art.Blocks) == 0 {
			in = domain.ChannelCount
			p := zeroConv(hidden, in, 1)
			for o := range p.Weights {
				p.Weights[o][o][0] = 1 // pass the first two channels through
			}
			proj = &p
		}
		b := Block{
			Dilation: dilation,
			Conv1:    zeroConv(hidden, in, 2),
			Conv2:    zeroConv(hidden, hidden, 2),
			Proj:     proj,
		}
		for o := range b.Conv1.Weights {
			b.Conv1.Weights[o][o][1] = 0.5
			b.Conv2.Weights[o][o][1] = 0.5
			b.Conv1.Biases[o] = 0.1
		}
		art.Blocks = append(art.Blocks, b)
	}

	headIn := hidden + domain.CondSize
	art.HitHead = Head{Weights: [][]float64{make([]float64, headIn)}, Biases: []float64{0.2}}
	art.HitHead.Weights[0][0] = 0.3
	art.HitHead.Weights[0][hidden+domain.CondSlopeShort] = 2.0

	art.ETAHead = Head{Weights: make([][]float64, 3), Biases: []float64{0.1, 0, -0.1}}
	for o := range art.ETAHead.Weights {
		art.ETAHead.Weights[o] = make([]float64, headIn)
		art.ETAHead.Weights[o][1] = float64(o) * 0.2
	}
	return art
}

func testFeatCfg() config.Features {
	return config.Features{ShortHorizon: 5, MidHorizon: 8, LongHorizon: 10, PriceEpsilon: 1e-12}
}

func risingPoints(n int, step float64) []*domain.MetricPoint {
	points := make([]*domain.MetricPoint, n)
	for i := range points {
		points[i] = &domain.MetricPoint{
			TokenID:     "t",
			Second:      int64(i),
			Price:       1.0 * math.Exp(step*float64(i)),
			Liquidity:   1000,
			MarketCap:   1e6,
			HolderCount: int64(10 + i),
			BuyCount:    int64(3 * (i + 1)),
			SellCount:   int64(2 * (i + 1)),
		}
	}
	return points
}

func TestCausalConv_HandComputed(t *testing.T) {
	c := Conv{
		Weights: [][][]float64{{{1, 2}}}, // oldest tap 1, newest tap 2
		Biases:  []float64{0},
	}
	x := [][]float64{{1, 2, 3}}

	got := causalConv(x, c, 1)
	// t=0: 2*1 + 1*pad = 2; t=1: 2*2 + 1*1 = 5; t=2: 2*3 + 1*2 = 8.
	assert.Equal(t, [][]float64{{2, 5, 8}}, got)

	got = causalConv(x, c, 2)
	// Dilation 2 reaches two steps back: {2*1, 2*2, 2*3 + 1*1}.
	assert.Equal(t, [][]float64{{2, 4, 7}}, got)
}

func TestBlockForward_ResidualAdd(t *testing.T) {
	// Identity projection, zero convolutions: output equals the residual.
	b := Block{
		Dilation: 1,
		Conv1:    zeroConv(1, 1, 1),
		Conv2:    zeroConv(1, 1, 1),
	}
	x := [][]float64{{1, -2, 3}}
	got := b.forward(x)
	assert.Equal(t, [][]float64{{1, -2, 3}}, got)
}

func TestArtifact_Validate(t *testing.T) {
	require.NoError(t, testForecastArtifact().Validate())

	art := testForecastArtifact()
	art.Version = 2
	assert.ErrorIs(t, art.Validate(), ErrModelLoad)

	art = testForecastArtifact()
	art.InputChannels = 3
	assert.ErrorIs(t, art.Validate(), ErrModelLoad)

	art = testForecastArtifact()
	art.Blocks[0].Proj = nil
	assert.ErrorIs(t, art.Validate(), ErrModelLoad)

	art = testForecastArtifact()
	art.Buckets = []int64{30, 15, 60}
	assert.ErrorIs(t, art.Validate(), ErrModelLoad)

	art = testForecastArtifact()
	art.ETAHead.Weights = art.ETAHead.Weights[:2]
	assert.ErrorIs(t, art.Validate(), ErrModelLoad)

	art = testForecastArtifact()
	art.Blocks[1].Conv1.Weights[0][0] = []float64{1} // wrong kernel size
	assert.ErrorIs(t, art.Validate(), ErrModelLoad)
}

func TestNewForecaster_BucketMismatch(t *testing.T) {
	art := testForecastArtifact()

	_, err := NewForecaster(art, testFeatCfg(), 10, []int64{15, 30, 60})
	require.NoError(t, err)

	_, err = NewForecaster(art, testFeatCfg(), 10, []int64{15, 30, 60, 120})
	assert.ErrorIs(t, err, ErrModelLoad)

	_, err = NewForecaster(art, testFeatCfg(), 10, []int64{15, 45, 60})
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestForecast_InsufficientHistory(t *testing.T) {
	f, err := NewForecaster(testForecastArtifact(), testFeatCfg(), 20, []int64{15, 30, 60})
	require.NoError(t, err)

	_, err = f.Forecast(risingPoints(19, 0.01))
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestForecast_Deterministic(t *testing.T) {
	f, err := NewForecaster(testForecastArtifact(), testFeatCfg(), 20, []int64{15, 30, 60})
	require.NoError(t, err)

	points := risingPoints(30, 0.02)
	first, err := f.Forecast(points)
	require.NoError(t, err)
	second, err := f.Forecast(points)
	require.NoError(t, err)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Forecast not reproducible: %+v vs %+v", first, second)
	}

	assert.GreaterOrEqual(t, first.PHit, 0.0)
	assert.LessOrEqual(t, first.PHit, 1.0)
	assert.Equal(t, first.ETASeconds, []int64{15, 30, 60}[first.BucketIndex])
}

func TestForecast_RisingSeriesScoresHigherThanFalling(t *testing.T) {
	f, err := NewForecaster(testForecastArtifact(), testFeatCfg(), 20, []int64{15, 30, 60})
	require.NoError(t, err)

	// The hit head weights the short-horizon slope positively.
	rising, err := f.Forecast(risingPoints(30, 0.05))
	require.NoError(t, err)
	falling, err := f.Forecast(risingPoints(30, -0.05))
	require.NoError(t, err)

	assert.Greater(t, rising.PHit, falling.PHit)
}

func TestArgmax_TiesToLowestIndex(t *testing.T) {
	assert.Equal(t, 0, argmax([]float64{1, 1, 1}))
	assert.Equal(t, 2, argmax([]float64{0, -1, 3}))
}

func TestLoadArtifact_ShippedModel(t *testing.T) {
	path := filepath.Join("..", "..", "models", "eta_forecaster.json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		t.Skip("shipped model not present")
	}
	art, err := LoadArtifact(path)
	require.NoError(t, err)
	require.NoError(t, art.Validate())
}
