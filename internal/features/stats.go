package features

import "math"

// computeSlope fits an ordinary-least-squares line over ys (x = 0..n-1) and
// returns the slope together with the fit's R². A series with no variance
// has slope 0 and R² 0.
func computeSlope(ys []float64) (slope, r2 float64) {
	n := len(ys)
	if n < 2 {
		return 0, 0
	}

	fn := float64(n)
	var sumX, sumY, sumXX, sumXY float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssRes, ssTot float64
	for i, y := range ys {
		fit := intercept + slope*float64(i)
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		return slope, 0
	}
	r2 = 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	}
	return slope, r2
}

// computeStddev returns the population standard deviation of values.
func computeStddev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

// tail returns the last k elements of values, or all of them when k exceeds
// the length.
func tail(values []float64, k int) []float64 {
	if k >= len(values) {
		return values
	}
	return values[len(values)-k:]
}
