package domain

// ForecastResult is the ETA forecaster output for one evaluation.
// Ephemeral: produced only when enough history exists, never persisted.
type ForecastResult struct {
	// PHit is the probability of reaching the target return within the
	// forecast horizon, in [0, 1].
	PHit float64

	// ETASeconds is the predicted bucket value: expected seconds until the
	// target is reached. Always one of the configured ascending bucket list.
	ETASeconds int64

	// BucketIndex is the index of ETASeconds in the configured bucket list.
	BucketIndex int
}
