package features

import "math"

// pctChange computes (r[i] - r[i-h]) / r[i-h] * 100.
// Entries with i < h are NULL.
func pctChange(rates []float64, h int) []*float64 {
	out := make([]*float64, len(rates))
	for i := h; i < len(rates); i++ {
		prev := rates[i-h]
		v := (rates[i] - prev) / prev * 100
		out[i] = &v
	}
	return out
}

// trailingMean computes the mean of rates[max(0, i-w+1)..i].
// The window shrinks near the start so the first entry equals rates[0].
func trailingMean(rates []float64, w int) []float64 {
	out := make([]float64, len(rates))
	sum := 0.0
	for i, r := range rates {
		sum += r
		if i >= w {
			sum -= rates[i-w]
		}
		n := min(i+1, w)
		out[i] = sum / float64(n)
	}
	return out
}

// trailingStd computes the sample standard deviation (n-1 denominator)
// over the same window as trailingMean. NULL while the window holds fewer
// than 2 samples.
func trailingStd(rates []float64, w int) []*float64 {
	out := make([]*float64, len(rates))
	for i := range rates {
		start := max(0, i-w+1)
		window := rates[start : i+1]
		if len(window) < 2 {
			continue
		}
		v := sampleStddev(window)
		out[i] = &v
	}
	return out
}

// sampleStddev uses a two-pass formula to avoid cancellation on
// near-constant windows.
func sampleStddev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
