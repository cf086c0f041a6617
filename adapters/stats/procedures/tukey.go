package procedures

import (
	"math"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// TukeyHSD is Tukey's honestly significant difference test with
// family-wise confidence bounds (Tukey-Kramer for unequal group sizes).
type TukeyHSD struct {
	srange *StudentizedRange
}

// NewTukeyHSD creates a new Tukey HSD post-hoc procedure
func NewTukeyHSD() *TukeyHSD {
	return &TukeyHSD{srange: NewStudentizedRange()}
}

// Name returns the procedure name
func (s *TukeyHSD) Name() string {
	return comparison.PostHocTukey
}

// Pairwise compares every pair (i < j) in group order. MeanDiff is
// mean(j) - mean(i); Lower and Upper bound it at the 1-alpha family level.
func (s *TukeyHSD) Pairwise(groups []comparison.Group, alpha float64) (*comparison.PostHocResult, error) {
	table, err := anovaTable(groups)
	if err != nil {
		return nil, core.NewDegenerateError(s.Name(), err.Error())
	}
	mse := table.msWithin()
	if mse == 0 {
		return nil, core.NewDegenerateError(s.Name(), "zero within-group variance")
	}
	if table.dfWithin < 2 {
		return nil, core.NewDegenerateError(s.Name(), "fewer than two within-group degrees of freedom")
	}

	k := float64(len(groups))
	qCrit := s.srange.Quantile(1-alpha, k, table.dfWithin)

	result := &comparison.PostHocResult{Name: s.Name()}
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			diff := table.means[j] - table.means[i]
			se := math.Sqrt(mse * 0.5 * (1/table.sizes[i] + 1/table.sizes[j]))
			q := math.Abs(diff) / se
			p := s.srange.Survival(q, k, table.dfWithin)
			if math.IsNaN(p) {
				return nil, core.NewDegenerateError(s.Name(), "undefined studentized range probability")
			}

			lower := diff - qCrit*se
			upper := diff + qCrit*se
			meanDiff := diff

			result.Pairs = append(result.Pairs, comparison.PairwiseComparison{
				GroupA:   groups[i].Label,
				GroupB:   groups[j].Label,
				PValue:   p,
				Reject:   p < alpha,
				MeanDiff: &meanDiff,
				Lower:    &lower,
				Upper:    &upper,
			})
		}
	}

	return result, nil
}
