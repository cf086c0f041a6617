package procedures

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"gocompare/domain/comparison"
)

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max at full precision. Quartiles use linear interpolation between
// closest ranks.
func Describe(values []float64) (comparison.DescriptiveStats, error) {
	data := stats.LoadRawData(values)

	mean, err := stats.Mean(data)
	if err != nil {
		return comparison.DescriptiveStats{}, err
	}
	minimum, err := stats.Min(data)
	if err != nil {
		return comparison.DescriptiveStats{}, err
	}
	maximum, err := stats.Max(data)
	if err != nil {
		return comparison.DescriptiveStats{}, err
	}

	std := math.NaN()
	if len(values) > 1 {
		std, err = stats.StandardDeviationSample(data)
		if err != nil {
			return comparison.DescriptiveStats{}, err
		}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return comparison.DescriptiveStats{
		Count:  len(values),
		Mean:   mean,
		Std:    std,
		Min:    minimum,
		Q1:     linearQuantile(sorted, 0.25),
		Median: linearQuantile(sorted, 0.50),
		Q3:     linearQuantile(sorted, 0.75),
		Max:    maximum,
	}, nil
}

// linearQuantile expects sorted input and returns the value at position (n-1)p,
// interpolated between its neighbours.
func linearQuantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := float64(len(sorted)-1) * p
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	frac := pos - lo
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*frac
}
