package comparison

import (
	"fmt"
	"math"
)

// ============================================================================
// FIXED THRESHOLDS
// ============================================================================

const (
	// Alpha is the significance level used for every decision in the engine.
	Alpha = 0.05
	// MinNormalitySample is the smallest group a normality test is run on.
	MinNormalitySample = 3
	// ReportPrecision is the number of decimals used for reported values.
	ReportPrecision = 3
)

// Procedure names as they appear in reports.
const (
	TestStudentT     = "Independent t-test"
	TestMannWhitney  = "Mann-Whitney U"
	TestANOVA        = "ANOVA"
	TestKruskal      = "Kruskal-Wallis"
	PostHocTukey     = "Tukey HSD"
	PostHocDunn      = "Dunn (Bonferroni)"
	NormalityShapiro = "Shapiro-Wilk"
)

// Per-metric error reasons.
const (
	ReasonNoData        = "No data after cleaning"
	ReasonTooFewGroups  = "Need at least two groups"
	ReasonColumnMissing = "Column not found"
)

// ============================================================================
// INPUT
// ============================================================================

// Row maps column name to raw cell text.
type Row map[string]string

// Table is an ordered row set sharing one column set.
type Table struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	Delimiter rune     `json:"-"`
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Observation is one cleaned (group label, value) pair.
type Observation struct {
	Group string
	Value float64
}

// Group holds the observations of one grouping value for one metric.
// A Group is never built with zero values.
type Group struct {
	Label  string
	Values []float64
}

// Size returns the number of observations.
func (g Group) Size() int {
	return len(g.Values)
}

// ============================================================================
// VERDICTS AND RESULTS
// ============================================================================

// NormalityVerdict is either a p-value or indeterminate (sample below
// MinNormalitySample). It deliberately carries no accept/reject flag.
type NormalityVerdict struct {
	PValue      float64
	Determinate bool
}

// Indeterminate returns the verdict for a group too small to test.
func Indeterminate() NormalityVerdict {
	return NormalityVerdict{}
}

// Determined wraps a normality p-value.
func Determined(p float64) NormalityVerdict {
	return NormalityVerdict{PValue: p, Determinate: true}
}

// PassesStrict reports a defined p >= Alpha; indeterminate fails.
func (v NormalityVerdict) PassesStrict() bool {
	return v.Determinate && v.PValue >= Alpha
}

// PassesLenient reports p >= Alpha; indeterminate passes.
func (v NormalityVerdict) PassesLenient() bool {
	return !v.Determinate || v.PValue >= Alpha
}

// GroupNormality is a verdict bound to its group label.
type GroupNormality struct {
	Label   string
	Verdict NormalityVerdict
}

// DescriptiveStats summarizes one group. Values are kept at full precision;
// rounding happens only when a report is encoded. Std is NaN for one value.
type DescriptiveStats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// GroupDescriptive binds descriptive stats to a group label.
type GroupDescriptive struct {
	Label string
	Stats DescriptiveStats
}

// TestResult is the outcome of a two-sample or omnibus test.
type TestResult struct {
	Name      string
	Statistic float64
	PValue    float64
}

// Significant compares the full-precision p-value against Alpha.
func (r TestResult) Significant() bool {
	return r.PValue < Alpha
}

// PairwiseComparison is one post-hoc row. MeanDiff and the confidence bounds
// are only set by the parametric procedure.
type PairwiseComparison struct {
	GroupA   string
	GroupB   string
	PValue   float64
	Reject   bool
	MeanDiff *float64
	Lower    *float64
	Upper    *float64
}

// Pair renders the ordered pair label.
func (c PairwiseComparison) Pair() string {
	return fmt.Sprintf("%s vs %s", c.GroupA, c.GroupB)
}

// PostHocResult is the output of a post-hoc procedure.
type PostHocResult struct {
	Name  string
	Pairs []PairwiseComparison
}

// ============================================================================
// REPORTS
// ============================================================================

// ReportKind distinguishes full records from the error shapes.
type ReportKind string

const (
	KindComplete      ReportKind = "complete"
	KindNoData        ReportKind = "no_data"
	KindColumnMissing ReportKind = "column_missing"
	KindTooFewGroups  ReportKind = "too_few_groups"
	KindDegenerate    ReportKind = "degenerate"
)

// MetricReport is the per-metric record. Error records keep whatever partial
// descriptive and normality data was computed before the failure.
type MetricReport struct {
	Metric        string
	Kind          ReportKind
	Error         string
	Descriptive   []GroupDescriptive
	Normality     []GroupNormality
	AllNormal     bool
	Test          *TestResult
	PostHoc       *PostHocResult
	PostHocReason string
	GroupCount    int
}

// Failed reports whether the record is an error record.
func (r MetricReport) Failed() bool {
	return r.Kind != KindComplete
}

// Report is the ordered metric → record mapping of one invocation.
type Report struct {
	Metrics []MetricReport
}

// Get returns the record for a metric.
func (r *Report) Get(metric string) (MetricReport, bool) {
	for _, m := range r.Metrics {
		if m.Metric == metric {
			return m, true
		}
	}
	return MetricReport{}, false
}

// Names returns metric names in report order.
func (r *Report) Names() []string {
	names := make([]string, len(r.Metrics))
	for i, m := range r.Metrics {
		names[i] = m.Metric
	}
	return names
}

// Round rounds to ReportPrecision decimals. Exact ties go to the even
// neighbour, as numpy and pandas round.
func Round(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, ReportPrecision)
	r := math.RoundToEven(x*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}
