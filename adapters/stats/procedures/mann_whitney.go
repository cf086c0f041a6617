package procedures

import (
	"math"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// exactMaxSize is the largest smaller-group size for which the exact null
// distribution of U is used (when the data has no ties).
const exactMaxSize = 8

// MannWhitneyU is the two-sided Wilcoxon rank-sum / Mann-Whitney U test.
type MannWhitneyU struct {
	dist *Distributions
}

// NewMannWhitneyU creates a new Mann-Whitney U test
func NewMannWhitneyU() *MannWhitneyU {
	return &MannWhitneyU{dist: NewDistributions()}
}

// Name returns the procedure name
func (s *MannWhitneyU) Name() string {
	return comparison.TestMannWhitney
}

// Compare reports U for the first group. The exact distribution is used when
// either group has at most eight observations and nothing is tied; otherwise
// the tie-corrected normal approximation with continuity correction.
func (s *MannWhitneyU) Compare(a, b comparison.Group) (comparison.TestResult, error) {
	n1, n2 := a.Size(), b.Size()
	if n1 == 0 || n2 == 0 {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "empty group")
	}

	ranks := rankGroups([]comparison.Group{a, b})
	fn1, fn2 := float64(n1), float64(n2)
	u1 := ranks.rankSums[0] - fn1*(fn1+1)/2
	u2 := fn1*fn2 - u1
	u := math.Max(u1, u2)

	var p float64
	if (n1 <= exactMaxSize || n2 <= exactMaxSize) && len(ranks.ties) == 0 {
		p = 2 * exactUSurvival(int(math.Round(u)), n1, n2)
	} else {
		p = s.asymptotic(u, fn1, fn2, ranks)
	}

	return comparison.TestResult{
		Name:      s.Name(),
		Statistic: u1,
		PValue:    clampProbability(p),
	}, nil
}

func (s *MannWhitneyU) asymptotic(u, n1, n2 float64, ranks pooledRanks) float64 {
	n := n1 + n2
	mu := n1 * n2 / 2
	variance := n1 * n2 / 12 * ((n + 1) - ranks.tieSum()/(n*(n-1)))
	if variance <= 0 {
		// every observation tied
		return 1
	}
	z := (u - mu - 0.5) / math.Sqrt(variance)
	return 2 * s.dist.NormalSurvival(z)
}

// exactUSurvival returns P(U >= k) under the null for sizes m and n.
// The counts are the coefficients of the Gaussian binomial [m+n choose m]_q.
func exactUSurvival(k, m, n int) float64 {
	if m > n {
		m, n = n, m
	}
	maxU := m * n
	if k <= 0 {
		return 1
	}
	if k > maxU {
		return 0
	}

	counts := make([]float64, maxU+1)
	counts[0] = 1
	// Coefficients above maxU cancel out, so the product is truncated there.
	for i := 1; i <= m; i++ {
		// multiply by (1 - q^(n+i))
		shift := n + i
		for d := maxU; d >= shift; d-- {
			counts[d] -= counts[d-shift]
		}
		// divide by (1 - q^i)
		for d := i; d <= maxU; d++ {
			counts[d] += counts[d-i]
		}
	}

	total, tail := 0.0, 0.0
	for d, c := range counts {
		total += c
		if d >= k {
			tail += c
		}
	}
	return tail / total
}
