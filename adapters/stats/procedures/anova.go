package procedures

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

// OneWayANOVA is the one-way analysis of variance F test.
type OneWayANOVA struct {
	dist *Distributions
}

// NewOneWayANOVA creates a new one-way ANOVA
func NewOneWayANOVA() *OneWayANOVA {
	return &OneWayANOVA{dist: NewDistributions()}
}

// Name returns the procedure name
func (s *OneWayANOVA) Name() string {
	return comparison.TestANOVA
}

// Compare computes F = MSB / MSW with (k-1, N-k) degrees of freedom.
func (s *OneWayANOVA) Compare(groups []comparison.Group) (comparison.TestResult, error) {
	table, err := anovaTable(groups)
	if err != nil {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), err.Error())
	}
	if table.ssWithin == 0 {
		return comparison.TestResult{}, core.NewDegenerateError(s.Name(), "zero within-group variance")
	}

	f := (table.ssBetween / table.dfBetween) / table.msWithin()
	return comparison.TestResult{
		Name:      s.Name(),
		Statistic: f,
		PValue:    s.dist.FSurvival(f, table.dfBetween, table.dfWithin),
	}, nil
}

// varianceTable holds the one-way decomposition shared by ANOVA and Tukey HSD.
type varianceTable struct {
	means     []float64
	sizes     []float64
	ssBetween float64
	ssWithin  float64
	dfBetween float64
	dfWithin  float64
}

func (t varianceTable) msWithin() float64 {
	return t.ssWithin / t.dfWithin
}

func anovaTable(groups []comparison.Group) (varianceTable, error) {
	k := len(groups)
	if k < 2 {
		return varianceTable{}, fmt.Errorf("need at least two groups, got %d", k)
	}

	table := varianceTable{
		means: make([]float64, k),
		sizes: make([]float64, k),
	}

	n := 0.0
	variances := make([]float64, k)
	for i, g := range groups {
		if g.Size() == 0 {
			return varianceTable{}, fmt.Errorf("group %q is empty", g.Label)
		}
		table.sizes[i] = float64(g.Size())
		table.means[i], variances[i] = meanVariance(g.Values)
		n += table.sizes[i]
	}
	grand := stat.Mean(table.means, table.sizes)

	for i := range groups {
		d := table.means[i] - grand
		table.ssBetween += table.sizes[i] * d * d
		table.ssWithin += variances[i] * (table.sizes[i] - 1)
	}

	table.dfBetween = float64(k - 1)
	table.dfWithin = n - float64(k)
	if table.dfWithin < 1 {
		return varianceTable{}, fmt.Errorf("no within-group degrees of freedom (N=%d, k=%d)", int(n), k)
	}
	if math.IsNaN(table.ssWithin) || math.IsInf(table.ssWithin, 0) {
		return varianceTable{}, fmt.Errorf("non-finite within-group sum of squares")
	}

	return table, nil
}
