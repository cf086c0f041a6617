// Package report assembles per-metric records and encodes them.
package report

import (
	"errors"
	"fmt"

	"gocompare/adapters/stats/procedures"
	"gocompare/domain/comparison"
	"gocompare/domain/core"
	"gocompare/internal/selection"
)

// Assembler packages the outputs of one metric's pipeline into a MetricReport.
type Assembler struct{}

// NewAssembler creates a new result assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Describe computes descriptive statistics per group, in group order.
func (a *Assembler) Describe(groups []comparison.Group) ([]comparison.GroupDescriptive, error) {
	out := make([]comparison.GroupDescriptive, 0, len(groups))
	for _, g := range groups {
		stats, err := procedures.Describe(g.Values)
		if err != nil {
			return nil, fmt.Errorf("describe group %s: %w", g.Label, err)
		}
		out = append(out, comparison.GroupDescriptive{Label: g.Label, Stats: stats})
	}
	return out, nil
}

// Complete builds the full record of a metric.
func (a *Assembler) Complete(metric string, desc []comparison.GroupDescriptive, assessment selection.Assessment, decision *selection.Decision) comparison.MetricReport {
	test := decision.Test
	return comparison.MetricReport{
		Metric:        metric,
		Kind:          comparison.KindComplete,
		Descriptive:   desc,
		Normality:     assessment.Verdicts,
		AllNormal:     assessment.AllNormal,
		Test:          &test,
		PostHoc:       decision.PostHoc,
		PostHocReason: decision.PostHocReason,
		GroupCount:    len(desc),
	}
}

// Partial carries whatever a failed pipeline computed before the failure.
type Partial struct {
	Descriptive []comparison.GroupDescriptive
	Assessment  *selection.Assessment
	Decision    *selection.Decision
	GroupCount  int
}

// Failure builds the error record of a metric from a per-metric error.
func (a *Assembler) Failure(metric string, err error, partial Partial) comparison.MetricReport {
	r := comparison.MetricReport{Metric: metric}

	switch {
	case errors.Is(err, core.ErrNoDataAfterCleaning):
		r.Kind = comparison.KindNoData
		r.Error = comparison.ReasonNoData
		return r
	case errors.Is(err, core.ErrMetricColumnMissing):
		r.Kind = comparison.KindColumnMissing
		r.Error = fmt.Sprintf("%s: %s", comparison.ReasonColumnMissing, metric)
		return r
	case errors.Is(err, core.ErrTooFewGroups):
		r.Kind = comparison.KindTooFewGroups
		r.Error = comparison.ReasonTooFewGroups
	default:
		r.Kind = comparison.KindDegenerate
		r.Error = err.Error()
	}

	r.Descriptive = partial.Descriptive
	r.GroupCount = partial.GroupCount
	if partial.Assessment != nil {
		r.Normality = append([]comparison.GroupNormality{}, partial.Assessment.Verdicts...)
		r.AllNormal = partial.Assessment.AllNormal
	}
	if partial.Decision != nil {
		test := partial.Decision.Test
		r.Test = &test
	}
	return r
}
