// Package selection assesses per-group normality and picks the comparison
// procedure for one metric.
package selection

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
	"gocompare/internal/logging"
	"gocompare/ports"
)

// Decision is the selected test and its follow-up. Exactly one of PostHoc
// and PostHocReason is set for three or more groups; both are empty for two.
type Decision struct {
	Test          comparison.TestResult
	PostHoc       *comparison.PostHocResult
	PostHocReason string
}

// Selector branches on group count and normality.
type Selector struct {
	suite  ports.ProcedureSuite
	logger *zap.Logger
}

// NewSelector creates a new test selector
func NewSelector(suite ports.ProcedureSuite, logger *zap.Logger) *Selector {
	return &Selector{suite: suite, logger: logging.OrNop(logger)}
}

// Select runs the chosen test for the groups. A failing post-hoc procedure
// returns the decision made so far together with the error.
func (s *Selector) Select(groups []comparison.Group, assessment Assessment) (*Decision, error) {
	switch {
	case len(groups) < 2:
		return nil, core.ErrTooFewGroups
	case len(groups) == 2:
		return s.selectTwo(groups, assessment)
	default:
		return s.selectMany(groups, assessment)
	}
}

// selectTwo treats an indeterminate verdict as not normal.
func (s *Selector) selectTwo(groups []comparison.Group, assessment Assessment) (*Decision, error) {
	test := s.suite.RankTwo
	if assessment.Verdict(0).PassesStrict() && assessment.Verdict(1).PassesStrict() {
		test = s.suite.ParametricTwo
	}

	result, err := test.Compare(groups[0], groups[1])
	if err != nil {
		return nil, degenerate(test.Name(), err)
	}
	if err := checkResult(result); err != nil {
		return nil, err
	}

	s.logger.Debug("two-group test selected",
		zap.String("test", result.Name),
		zap.Float64("p", result.PValue))

	return &Decision{Test: result}, nil
}

// selectMany uses the lenient all-normal flag.
func (s *Selector) selectMany(groups []comparison.Group, assessment Assessment) (*Decision, error) {
	omnibus, posthoc := s.suite.RankOmnibus, s.suite.RankPostHoc
	if assessment.AllNormal {
		omnibus, posthoc = s.suite.ParametricOmnibus, s.suite.ParametricPostHoc
	}

	result, err := omnibus.Compare(groups)
	if err != nil {
		return nil, degenerate(omnibus.Name(), err)
	}
	if err := checkResult(result); err != nil {
		return nil, err
	}

	decision := &Decision{Test: result}
	if !result.Significant() {
		decision.PostHocReason = SkipReason(result.Name)
		s.logger.Debug("omnibus not significant, post-hoc skipped",
			zap.String("test", result.Name),
			zap.Float64("p", result.PValue))
		return decision, nil
	}

	pairs, err := posthoc.Pairwise(groups, comparison.Alpha)
	if err != nil {
		return decision, degenerate(posthoc.Name(), err)
	}
	if err := checkPairs(pairs); err != nil {
		return decision, err
	}
	decision.PostHoc = pairs

	s.logger.Debug("omnibus significant, post-hoc run",
		zap.String("test", result.Name),
		zap.String("posthoc", pairs.Name),
		zap.Int("pairs", len(pairs.Pairs)))

	return decision, nil
}

// SkipReason is the message recorded when an omnibus test is not significant.
func SkipReason(omnibus string) string {
	return fmt.Sprintf("%s not significant (p ≥ %g)", omnibus, comparison.Alpha)
}

func checkResult(r comparison.TestResult) error {
	if math.IsNaN(r.Statistic) || math.IsNaN(r.PValue) {
		return core.NewDegenerateError(r.Name, "undefined statistic")
	}
	return nil
}

func checkPairs(r *comparison.PostHocResult) error {
	for _, c := range r.Pairs {
		if math.IsNaN(c.PValue) {
			return core.NewDegenerateError(r.Name, "undefined p-value for "+c.Pair())
		}
	}
	return nil
}

func degenerate(name string, err error) error {
	if errors.Is(err, core.ErrDegenerateStatistic) {
		return err
	}
	return core.NewDegenerateError(name, err.Error())
}
