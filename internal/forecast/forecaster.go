package forecast

import (
	"fmt"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/features"
)

// Forecaster runs TCN inference over a token's metric window.
type Forecaster struct {
	art       *Artifact
	extractor *features.Extractor
}

// NewForecaster builds a forecaster from a validated artifact. The artifact's
// bucket list must match the configured one; a mismatch means the deployed
// model was trained for a different bucketization and is a load failure.
// minHistory is the entry-second threshold shared with plan re-basing.
func NewForecaster(art *Artifact, featCfg config.Features, minHistory int64, buckets []int64) (*Forecaster, error) {
	if len(art.Buckets) != len(buckets) {
		return nil, fmt.Errorf("%w: model has %d buckets, config has %d", ErrModelLoad, len(art.Buckets), len(buckets))
	}
	for i, b := range art.Buckets {
		if b != buckets[i] {
			return nil, fmt.Errorf("%w: bucket %d is %ds, config says %ds", ErrModelLoad, i, b, buckets[i])
		}
	}
	return &Forecaster{
		art:       art,
		extractor: features.NewExtractor(featCfg, int(minHistory)),
	}, nil
}

// Forecast estimates the probability of hitting the target return and the
// seconds-to-target bucket for the given ordered window. Returns
// domain.ErrInsufficientHistory below the minimum history length; otherwise
// deterministic given the same window and weights.
func (f *Forecaster) Forecast(points []*domain.MetricPoint) (*domain.ForecastResult, error) {
	fv, err := f.extractor.Extract(points)
	if err != nil {
		return nil, err
	}

	channels := make([][]float64, len(fv.Channels))
	for c := range fv.Channels {
		channels[c] = fv.Channels[c]
	}

	pHit, etaLogits := f.art.infer(channels, fv.Cond[:])
	bucket := argmax(etaLogits)

	return &domain.ForecastResult{
		PHit:        pHit,
		ETASeconds:  f.art.Buckets[bucket],
		BucketIndex: bucket,
	}, nil
}
