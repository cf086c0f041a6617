package ports

import (
	"gocompare/domain/comparison"
)

// NormalityTest checks one sample against a normal distribution.
// Callers only invoke it for samples of at least comparison.MinNormalitySample.
type NormalityTest interface {
	Name() string
	Test(sample []float64) (statistic, pValue float64, err error)
}

// TwoSampleTest compares exactly two independent groups.
type TwoSampleTest interface {
	Name() string
	Compare(a, b comparison.Group) (comparison.TestResult, error)
}

// OmnibusTest compares three or more groups at once.
type OmnibusTest interface {
	Name() string
	Compare(groups []comparison.Group) (comparison.TestResult, error)
}

// PostHocProcedure enumerates every unordered pair of groups exactly once,
// in group order, with multiplicity-adjusted p-values.
type PostHocProcedure interface {
	Name() string
	Pairwise(groups []comparison.Group, alpha float64) (*comparison.PostHocResult, error)
}

// ProcedureSuite bundles one implementation per procedure.
type ProcedureSuite struct {
	Normality         NormalityTest
	ParametricTwo     TwoSampleTest
	RankTwo           TwoSampleTest
	ParametricOmnibus OmnibusTest
	RankOmnibus       OmnibusTest
	ParametricPostHoc PostHocProcedure
	RankPostHoc       PostHocProcedure
}
