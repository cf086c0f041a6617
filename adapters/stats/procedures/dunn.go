package procedures

import (
	"math"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// Dunn is Dunn's rank-based pairwise test with Bonferroni adjustment over
// all k(k-1)/2 pairs.
type Dunn struct {
	dist *Distributions
}

// NewDunn creates a new Dunn post-hoc procedure
func NewDunn() *Dunn {
	return &Dunn{dist: NewDistributions()}
}

// Name returns the procedure name
func (s *Dunn) Name() string {
	return comparison.PostHocDunn
}

// Pairwise compares mean ranks for every pair (i < j) in group order.
func (s *Dunn) Pairwise(groups []comparison.Group, alpha float64) (*comparison.PostHocResult, error) {
	k := len(groups)
	if k < 2 {
		return nil, core.NewDegenerateError(s.Name(), "need at least two groups")
	}

	ranks := rankGroups(groups)
	n := float64(ranks.n)
	if n < 2 {
		return nil, core.NewDegenerateError(s.Name(), "need at least two observations")
	}

	tieTerm := ranks.tieSum() / (12 * (n - 1))
	scale := n*(n+1)/12 - tieTerm
	if scale <= 0 {
		return nil, core.NewDegenerateError(s.Name(), "all numbers are identical")
	}

	m := float64(k * (k - 1) / 2)
	result := &comparison.PostHocResult{Name: s.Name()}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			diff := math.Abs(ranks.meanRank(i) - ranks.meanRank(j))
			se := math.Sqrt(scale * (1/float64(ranks.sizes[i]) + 1/float64(ranks.sizes[j])))
			p := s.dist.NormalTwoSided(diff / se)
			adjusted := math.Min(p*m, 1)

			result.Pairs = append(result.Pairs, comparison.PairwiseComparison{
				GroupA: groups[i].Label,
				GroupB: groups[j].Label,
				PValue: adjusted,
				Reject: adjusted < alpha,
			})
		}
	}

	return result, nil
}
