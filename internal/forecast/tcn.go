package forecast

import "math"

// causalConv applies a dilated causal convolution to x[channel][t].
// The receptive field only looks backwards: output[t] depends on inputs at
// t, t-d, t-2d, ... with implicit zero padding before t=0. Weight taps are
// ordered oldest to newest.
func causalConv(x [][]float64, c Conv, dilation int) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	steps := len(x[0])
	out := make([][]float64, len(c.Weights))
	for o, row := range c.Weights {
		out[o] = make([]float64, steps)
		kernel := len(row[0])
		for t := 0; t < steps; t++ {
			sum := c.Biases[o]
			for in, taps := range row {
				for k, w := range taps {
					// Tap k is (kernel-1-k)*dilation steps in the past.
					src := t - (kernel-1-k)*dilation
					if src >= 0 {
						sum += w * x[in][src]
					}
				}
			}
			out[o][t] = sum
		}
	}
	return out
}

func relu(x [][]float64) [][]float64 {
	for _, row := range x {
		for i, v := range row {
			if v < 0 {
				row[i] = 0
			}
		}
	}
	return x
}

// forward runs one residual block: two causal convolutions with a
// nonlinearity, then a residual add through the optional 1x1 projection.
func (b *Block) forward(x [][]float64) [][]float64 {
	y := relu(causalConv(x, b.Conv1, b.Dilation))
	y = relu(causalConv(y, b.Conv2, b.Dilation))

	res := x
	if b.Proj != nil {
		res = causalConv(x, *b.Proj, 1)
	}
	for c := range y {
		for t := range y[c] {
			y[c][t] += res[c][t]
		}
	}
	return y
}

// infer runs the full network: stacked blocks, last-timestep readout
// concatenated with the conditioning vector, then the two heads.
// Returns the hit probability and per-bucket ETA logits.
func (a *Artifact) infer(channels [][]float64, cond []float64) (float64, []float64) {
	x := channels
	for i := range a.Blocks {
		x = a.Blocks[i].forward(x)
	}

	last := len(x[0]) - 1
	features := make([]float64, 0, a.HiddenChannels+a.CondSize)
	for c := 0; c < a.HiddenChannels; c++ {
		features = append(features, x[c][last])
	}
	features = append(features, cond...)

	pHit := sigmoid(linear(a.HitHead.Weights[0], a.HitHead.Biases[0], features))

	etaLogits := make([]float64, len(a.ETAHead.Weights))
	for o, row := range a.ETAHead.Weights {
		etaLogits[o] = linear(row, a.ETAHead.Biases[o], features)
	}
	return pHit, etaLogits
}

func linear(weights []float64, bias float64, features []float64) float64 {
	sum := bias
	for i, w := range weights {
		sum += w * features[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// argmax returns the index of the largest logit, ties to the lowest index.
func argmax(logits []float64) int {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return best
}
