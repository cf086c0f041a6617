package selection

import (
	"fmt"
	"math"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
	"gocompare/ports"
)

// Assessment holds per-group normality verdicts for one metric.
type Assessment struct {
	Verdicts []comparison.GroupNormality
	// AllNormal counts indeterminate groups as normal.
	AllNormal bool
}

// Verdict returns the verdict of the group at index i.
func (a Assessment) Verdict(i int) comparison.NormalityVerdict {
	return a.Verdicts[i].Verdict
}

// Assessor runs the normality test on every group large enough for it.
type Assessor struct {
	test ports.NormalityTest
}

// NewAssessor creates a new normality assessor
func NewAssessor(test ports.NormalityTest) *Assessor {
	return &Assessor{test: test}
}

// Assess returns one verdict per group, in group order.
func (a *Assessor) Assess(groups []comparison.Group) (Assessment, error) {
	out := Assessment{
		Verdicts:  make([]comparison.GroupNormality, len(groups)),
		AllNormal: true,
	}

	for i, g := range groups {
		verdict := comparison.Indeterminate()
		if g.Size() >= comparison.MinNormalitySample {
			_, p, err := a.test.Test(g.Values)
			if err != nil {
				return out, degenerate(a.test.Name(), err)
			}
			if math.IsNaN(p) {
				return out, core.NewDegenerateError(a.test.Name(),
					fmt.Sprintf("undefined p-value for group %s", g.Label))
			}
			verdict = comparison.Determined(p)
		}
		out.Verdicts[i] = comparison.GroupNormality{Label: g.Label, Verdict: verdict}
		if !verdict.PassesLenient() {
			out.AllNormal = false
		}
	}

	return out, nil
}
