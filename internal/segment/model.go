// Package segment labels a token's fixed early-life windows with a
// pretrained multi-class model and aggregates the labels into a binary
// entry decision.
package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"solana-entry-engine/internal/domain"
)

// ArtifactVersion is the supported serialized model version.
const ArtifactVersion = 1

// ErrModelLoad marks a missing or corrupt classifier artifact. Fatal at
// startup: the engine must not run with a partially-initialized model.
var ErrModelLoad = errors.New("segment classifier load failure")

// Artifact is the versioned serialized form of the classifier: a linear
// softmax model over the standardized conditioning vector.
type Artifact struct {
	Version    int         `json:"version"`
	Labels     []string    `json:"labels"`      // class order for Weights rows
	FeatureDim int         `json:"feature_dim"` // must equal domain.CondSize
	Weights    [][]float64 `json:"weights"`     // [class][feature]
	Biases     []float64   `json:"biases"`
	Means      []float64   `json:"means"` // feature standardization
	Stds       []float64   `json:"stds"`
}

// LoadArtifact reads and validates a classifier artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelLoad, path, err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrModelLoad, path, err)
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// Validate checks version and weight shapes.
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("%w: unsupported version %d, want %d", ErrModelLoad, a.Version, ArtifactVersion)
	}
	if a.FeatureDim != domain.CondSize {
		return fmt.Errorf("%w: feature_dim %d, want %d", ErrModelLoad, a.FeatureDim, domain.CondSize)
	}
	if len(a.Labels) == 0 {
		return fmt.Errorf("%w: no labels", ErrModelLoad)
	}
	for _, l := range a.Labels {
		label := domain.SegmentLabel(l)
		if !label.Valid() || label == domain.SegmentUnknown {
			return fmt.Errorf("%w: invalid label %q", ErrModelLoad, l)
		}
	}
	if len(a.Weights) != len(a.Labels) || len(a.Biases) != len(a.Labels) {
		return fmt.Errorf("%w: weight rows %d, biases %d, labels %d",
			ErrModelLoad, len(a.Weights), len(a.Biases), len(a.Labels))
	}
	for i, row := range a.Weights {
		if len(row) != a.FeatureDim {
			return fmt.Errorf("%w: weight row %d has %d features, want %d",
				ErrModelLoad, i, len(row), a.FeatureDim)
		}
	}
	if len(a.Means) != a.FeatureDim || len(a.Stds) != a.FeatureDim {
		return fmt.Errorf("%w: standardization length %d/%d, want %d",
			ErrModelLoad, len(a.Means), len(a.Stds), a.FeatureDim)
	}
	for i, s := range a.Stds {
		if s <= 0 {
			return fmt.Errorf("%w: std %d must be positive", ErrModelLoad, i)
		}
	}
	return nil
}

// predict returns the argmax class label for the conditioning vector.
// Ties break to the lowest class index, deterministically.
func (a *Artifact) predict(cond [domain.CondSize]float64) domain.SegmentLabel {
	best := 0
	bestScore := 0.0
	for c, row := range a.Weights {
		score := a.Biases[c]
		for j, w := range row {
			score += w * (cond[j] - a.Means[j]) / a.Stds[j]
		}
		if c == 0 || score > bestScore {
			best = c
			bestScore = score
		}
	}
	return domain.SegmentLabel(a.Labels[best])
}
