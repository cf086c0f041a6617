package procedures

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides the reference distributions the procedures draw
// p-values from. All p-values are upper-tail survival probabilities.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// StudentTTwoSided computes the two-sided p-value of a t statistic.
func (d *Distributions) StudentTTwoSided(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return math.NaN()
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampProbability(2 * tDist.Survival(math.Abs(t)))
}

// FSurvival computes P(F >= f) for the F distribution.
func (d *Distributions) FSurvival(f, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(f) {
		return math.NaN()
	}
	fDist := distuv.F{D1: df1, D2: df2}
	return clampProbability(fDist.Survival(f))
}

// ChiSquareSurvival computes P(X >= x) for the chi-squared distribution.
func (d *Distributions) ChiSquareSurvival(x, df float64) float64 {
	if df <= 0 || math.IsNaN(x) {
		return math.NaN()
	}
	chiDist := distuv.ChiSquared{K: df}
	return clampProbability(chiDist.Survival(x))
}

// NormalTwoSided computes the two-sided p-value of a z score.
func (d *Distributions) NormalTwoSided(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	return clampProbability(2 * distuv.UnitNormal.Survival(math.Abs(z)))
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NormalCDF computes cumulative distribution function for standard normal
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalSurvival computes 1 - CDF for the standard normal.
func (d *Distributions) NormalSurvival(x float64) float64 {
	return distuv.UnitNormal.Survival(x)
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return p
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
