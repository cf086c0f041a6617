package procedures

import (
	"math"

	"gocompare/domain/comparison"
	"gocompare/domain/core"

	"gonum.org/v1/gonum/stat"
)

// StudentT is the independent two-sample t-test with pooled variance.
type StudentT struct {
	dist *Distributions
}

// NewStudentT creates a new equal-variance t-test
func NewStudentT() *StudentT {
	return &StudentT{dist: NewDistributions()}
}

// Name returns the procedure name
func (s *StudentT) Name() string {
	return comparison.TestStudentT
}

// Compare runs the test with a as the first group; the statistic is signed
// mean(a) - mean(b).
func (s *StudentT) Compare(a, b comparison.Group) (comparison.TestResult, error) {
	n1 := float64(a.Size())
	n2 := float64(b.Size())
	df := n1 + n2 - 2
	if n1 < 1 || n2 < 1 || df < 1 {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "not enough observations for pooled variance")
	}

	mean1, var1 := meanVariance(a.Values)
	mean2, var2 := meanVariance(b.Values)

	pooled := ((n1-1)*var1 + (n2-1)*var2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	if se == 0 || math.IsNaN(se) {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "both groups have zero variance")
	}

	t := (mean1 - mean2) / se

	return comparison.TestResult{
		Name:      s.Name(),
		Statistic: t,
		PValue:    s.dist.StudentTTwoSided(t, df),
	}, nil
}

// meanVariance returns the mean and the ddof=1 variance (0 for one value).
func meanVariance(values []float64) (float64, float64) {
	if len(values) < 2 {
		if len(values) == 1 {
			return values[0], 0
		}
		return math.NaN(), math.NaN()
	}
	return stat.MeanVariance(values, nil)
}
