package procedures

import (
	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// KruskalWallis is the rank-based one-way omnibus test with tie correction.
type KruskalWallis struct {
	dist *Distributions
}

// NewKruskalWallis creates a new Kruskal-Wallis H test
func NewKruskalWallis() *KruskalWallis {
	return &KruskalWallis{dist: NewDistributions()}
}

// Name returns the procedure name
func (s *KruskalWallis) Name() string {
	return comparison.TestKruskal
}

// Compare computes the tie-corrected H statistic, chi-squared with k-1 df.
func (s *KruskalWallis) Compare(groups []comparison.Group) (comparison.TestResult, error) {
	k := len(groups)
	if k < 2 {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "need at least two groups")
	}
	for _, g := range groups {
		if g.Size() == 0 {
			return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "empty group "+g.Label)
		}
	}

	ranks := rankGroups(groups)
	n := float64(ranks.n)

	correction := 1 - ranks.tieSum()/(n*n*n-n)
	if correction <= 0 {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "all numbers are identical")
	}

	h := 0.0
	for i := range groups {
		h += ranks.rankSums[i] * ranks.rankSums[i] / float64(ranks.sizes[i])
	}
	h = 12/(n*(n+1))*h - 3*(n+1)
	h /= correction

	return comparison.TestResult{
		Name:      s.Name(),
		Statistic: h,
		PValue:    s.dist.ChiSquareSurvival(h, float64(k-1)),
	}, nil
}
