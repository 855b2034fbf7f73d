// Package forecast runs the pretrained temporal convolutional network that
// estimates the probability of reaching the target return and the expected
// seconds-to-target bucket. Inference only: weights never change at runtime.
package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"solana-entry-engine/internal/domain"
)

// ArtifactVersion is the supported serialized model version.
const ArtifactVersion = 1

// ErrModelLoad marks a missing or corrupt forecaster artifact. Fatal at
// startup: the engine must not run with a partially-initialized model.
var ErrModelLoad = errors.New("forecast model load failure")

// Conv holds one causal 1-D convolution: Weights[out][in][tap], taps ordered
// oldest to newest.
type Conv struct {
	Weights [][][]float64 `json:"weights"`
	Biases  []float64     `json:"biases"`
}

// Block is one residual TCN block: two causal convolutions at the same
// dilation plus an optional 1x1 projection for channel-size matching on the
// residual path.
type Block struct {
	Dilation int   `json:"dilation"`
	Conv1    Conv  `json:"conv1"`
	Conv2    Conv  `json:"conv2"`
	Proj     *Conv `json:"proj,omitempty"` // kernel size 1 when present
}

// Head is a linear layer over the concatenated last-timestep output and
// conditioning vector.
type Head struct {
	Weights [][]float64 `json:"weights"` // [class][feature]
	Biases  []float64   `json:"biases"`
}

// Artifact is the versioned serialized form of the forecaster.
type Artifact struct {
	Version        int     `json:"version"`
	InputChannels  int     `json:"input_channels"` // must equal domain.ChannelCount
	HiddenChannels int     `json:"hidden_channels"`
	KernelSize     int     `json:"kernel_size"`
	CondSize       int     `json:"cond_size"` // must equal domain.CondSize
	Buckets        []int64 `json:"buckets"`   // ascending seconds-to-target values
	Blocks         []Block `json:"blocks"`
	HitHead        Head    `json:"hit_head"` // single logit
	ETAHead        Head    `json:"eta_head"` // one logit per bucket
}

// LoadArtifact reads and validates a forecaster artifact from disk.
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

// Validate checks version, shapes, and bucket ordering.
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("%w: unsupported version %d, want %d", ErrModelLoad, a.Version, ArtifactVersion)
	}
	if a.InputChannels != domain.ChannelCount {
		return fmt.Errorf("%w: input_channels %d, want %d", ErrModelLoad, a.InputChannels, domain.ChannelCount)
	}
	if a.CondSize != domain.CondSize {
		return fmt.Errorf("%w: cond_size %d, want %d", ErrModelLoad, a.CondSize, domain.CondSize)
	}
	if a.HiddenChannels <= 0 || a.KernelSize <= 0 {
		return fmt.Errorf("%w: non-positive hidden_channels or kernel_size", ErrModelLoad)
	}
	if len(a.Blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrModelLoad)
	}
	if len(a.Buckets) == 0 {
		return fmt.Errorf("%w: no buckets", ErrModelLoad)
	}
	for i := 1; i < len(a.Buckets); i++ {
		if a.Buckets[i] <= a.Buckets[i-1] {
			return fmt.Errorf("%w: buckets not strictly ascending", ErrModelLoad)
		}
	}

	in := a.InputChannels
	for i, b := range a.Blocks {
		if b.Dilation <= 0 {
			return fmt.Errorf("%w: block %d dilation must be positive", ErrModelLoad, i)
		}
		if err := a.validateConv(b.Conv1, in, a.HiddenChannels, a.KernelSize, i, "conv1"); err != nil {
			return err
		}
		if err := a.validateConv(b.Conv2, a.HiddenChannels, a.HiddenChannels, a.KernelSize, i, "conv2"); err != nil {
			return err
		}
		if in != a.HiddenChannels {
			if b.Proj == nil {
				return fmt.Errorf("%w: block %d needs a projection for %d->%d channels", ErrModelLoad, i, in, a.HiddenChannels)
			}
			if err := a.validateConv(*b.Proj, in, a.HiddenChannels, 1, i, "proj"); err != nil {
				return err
			}
		}
		in = a.HiddenChannels
	}

	headIn := a.HiddenChannels + a.CondSize
	if err := a.validateHead(a.HitHead, 1, headIn, "hit_head"); err != nil {
		return err
	}
	if err := a.validateHead(a.ETAHead, len(a.Buckets), headIn, "eta_head"); err != nil {
		return err
	}
	return nil
}

func (a *Artifact) validateConv(c Conv, in, out, kernel, block int, name string) error {
	if len(c.Weights) != out || len(c.Biases) != out {
		return fmt.Errorf("%w: block %d %s has %d/%d output rows, want %d",
			ErrModelLoad, block, name, len(c.Weights), len(c.Biases), out)
	}
	for o, row := range c.Weights {
		if len(row) != in {
			return fmt.Errorf("%w: block %d %s output %d has %d input rows, want %d",
				ErrModelLoad, block, name, o, len(row), in)
		}
		for i, taps := range row {
			if len(taps) != kernel {
				return fmt.Errorf("%w: block %d %s weight [%d][%d] has %d taps, want %d",
					ErrModelLoad, block, name, o, i, len(taps), kernel)
			}
		}
	}
	return nil
}

func (a *Artifact) validateHead(h Head, out, in int, name string) error {
	if len(h.Weights) != out || len(h.Biases) != out {
		return fmt.Errorf("%w: %s has %d/%d rows, want %d", ErrModelLoad, name, len(h.Weights), len(h.Biases), out)
	}
	for o, row := range h.Weights {
		if len(row) != in {
			return fmt.Errorf("%w: %s row %d has %d features, want %d", ErrModelLoad, name, o, len(row), in)
		}
	}
	return nil
}
