package stats

import (
	"math"
	"sort"
)

// ClassBreaks splits values into n equal-count classes and returns the
// n-1 inner boundaries, used for choropleth legends
func ClassBreaks(values []float64, n int) []float64 {
	if len(values) == 0 || n < 2 {
		return nil
	}

	// Sort once for all quantiles
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	breaks := make([]float64, n-1)
	for i := 1; i < n; i++ {
		breaks[i-1] = quantileSorted(sorted, float64(i)/float64(n))
	}
	return breaks
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := float64(len(sorted))
	index := q * (n - 1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
