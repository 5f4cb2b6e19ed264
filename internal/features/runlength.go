package features

// direction returns sign(r[i] - r[i-1]); the first entry is 0.
func direction(rates []float64) []int {
	out := make([]int, len(rates))
	for i := 1; i < len(rates); i++ {
		switch {
		case rates[i] > rates[i-1]:
			out[i] = 1
		case rates[i] < rates[i-1]:
			out[i] = -1
		}
	}
	return out
}

// runLengths partitions the series into maximal runs of equal direction and
// assigns every member the length of its run. Members of a zero-direction
// run get 0, so an unchanged rate breaks the runs on both sides of it.
func runLengths(rates []float64) []int {
	dirs := direction(rates)
	out := make([]int, len(rates))

	start := 0
	for i := 1; i <= len(dirs); i++ {
		if i < len(dirs) && dirs[i] == dirs[start] {
			continue
		}
		// run is [start, i)
		if dirs[start] != 0 {
			length := i - start
			for j := start; j < i; j++ {
				out[j] = length
			}
		}
		start = i
	}
	return out
}
