package procedures

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"gocompare/domain/comparison"
	"gocompare/domain/core"
)

func group(label string, values ...float64) comparison.Group {
	return comparison.Group{Label: label, Values: values}
}

// normalScores returns the expected order statistics of a normal sample.
func normalScores(n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		p := (float64(i) + 0.5) / float64(n)
		out[i] = mu + sigma*distuv.UnitNormal.Quantile(p)
	}
	return out
}

func exponentialScores(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		p := (float64(i) + 0.5) / float64(n)
		out[i] = -math.Log(1 - p)
	}
	return out
}

// ---------------------------------------------------------------------------
// Shapiro-Wilk
// ---------------------------------------------------------------------------

func TestShapiroWilk_ThreeObservationsClosedForm(t *testing.T) {
	sw := NewShapiroWilk()

	w, p, err := sw.Test([]float64{1, 2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.9642857, w, 1e-6)
	assert.InDelta(t, 0.6368868, p, 1e-6)

	w, p, err = sw.Test([]float64{2, 1, 1.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, 1e-12)
	assert.InDelta(t, 1.0, p, 1e-9)
}

func TestShapiroWilk_ReferenceSample(t *testing.T) {
	// Reference: W = 0.7888, p = 0.0067
	w, p, err := NewShapiroWilk().Test([]float64{148, 154, 158, 160, 161, 162, 166, 170, 182, 195, 236})
	require.NoError(t, err)
	assert.InDelta(t, 0.78881, w, 1e-4)
	assert.InDelta(t, 0.0067, p, 1e-4)
}

func TestShapiroWilk_SkewedGroupRejected(t *testing.T) {
	_, p, err := NewShapiroWilk().Test([]float64{1, 1, 1, 1, 50})
	require.NoError(t, err)
	assert.Less(t, p, 0.05)
}

func TestShapiroWilk_NormalScoresAccepted(t *testing.T) {
	for _, n := range []int{4, 8, 11, 12, 25, 60} {
		w, p, err := NewShapiroWilk().Test(normalScores(n, 10, 2))
		require.NoError(t, err)
		assert.Greater(t, w, 0.9, "n=%d", n)
		assert.Greater(t, p, 0.5, "n=%d", n)
	}
}

func TestShapiroWilk_ExponentialRejected(t *testing.T) {
	w, p, err := NewShapiroWilk().Test(exponentialScores(30))
	require.NoError(t, err)
	assert.Less(t, w, 0.95)
	assert.Less(t, p, 0.05)
}

func TestShapiroWilk_ConstantSample(t *testing.T) {
	w, p, err := NewShapiroWilk().Test([]float64{3, 3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 1.0, p)
}

func TestShapiroWilk_TooSmall(t *testing.T) {
	_, _, err := NewShapiroWilk().Test([]float64{1, 2})
	assert.Error(t, err)
}

func TestShapiroWilk_OrderIndependent(t *testing.T) {
	sw := NewShapiroWilk()
	_, p1, err := sw.Test([]float64{3.1, 2.2, 5.9, 4.4, 1.0, 7.3, 2.8})
	require.NoError(t, err)
	_, p2, err := sw.Test([]float64{7.3, 1.0, 2.2, 2.8, 3.1, 4.4, 5.9})
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

// ---------------------------------------------------------------------------
// Two-sample tests
// ---------------------------------------------------------------------------

func TestStudentT_SeparatedGroups(t *testing.T) {
	res, err := NewStudentT().Compare(group("A", 1.0, 2.0, 1.5), group("B", 10.0, 11.0, 10.5))
	require.NoError(t, err)
	assert.Equal(t, comparison.TestStudentT, res.Name)
	assert.InDelta(t, -22.0454077, res.Statistic, 1e-6)
	assert.Less(t, res.PValue, 0.001)
	assert.Equal(t, 0.0, comparison.Round(res.PValue))
}

func TestStudentT_CriticalValue(t *testing.T) {
	// df = 4; t = 2.776445 is the two-sided 5% critical value.
	a := group("A", -1, 0, 1)
	shift := 2.776445 * math.Sqrt(1.0*(2.0/3.0))
	b := group("B", -1+shift, shift, 1+shift)

	res, err := NewStudentT().Compare(b, a)
	require.NoError(t, err)
	assert.InDelta(t, 2.776445, res.Statistic, 1e-6)
	assert.InDelta(t, 0.05, res.PValue, 1e-5)
}

func TestStudentT_ZeroVarianceIsDegenerate(t *testing.T) {
	_, err := NewStudentT().Compare(group("A", 1, 1, 1), group("B", 2, 2, 2))
	assert.ErrorIs(t, err, core.ErrDegenerateStatistic)
}

func TestMannWhitney_ExactSmallSample(t *testing.T) {
	res, err := NewMannWhitneyU().Compare(group("A", 1, 2, 3), group("B", 4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, comparison.TestMannWhitney, res.Name)
	assert.Equal(t, 0.0, res.Statistic)
	assert.InDelta(t, 0.1, res.PValue, 1e-12)

	res, err = NewMannWhitneyU().Compare(group("B", 4, 5, 6), group("A", 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 9.0, res.Statistic)
	assert.InDelta(t, 0.1, res.PValue, 1e-12)
}

func TestMannWhitney_ExactMatchesEnumeration(t *testing.T) {
	a := []float64{1.1, 4.2, 2.5, 8.9}
	b := []float64{3.3, 5.0, 6.1, 7.4, 9.9}

	res, err := NewMannWhitneyU().Compare(group("a", a...), group("b", b...))
	require.NoError(t, err)

	// Enumerate all splits of the pooled ranks 1..9 into sizes 4 and 5.
	n1, n := 4, 9
	u1 := res.Statistic
	uMax := math.Max(u1, float64(n1*(n-n1))-u1)
	extreme, total := 0, 0
	for mask := 0; mask < 1<<n; mask++ {
		if popcount(mask) != n1 {
			continue
		}
		rankSum := 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				rankSum += i + 1
			}
		}
		u := float64(rankSum - n1*(n1+1)/2)
		if math.Max(u, float64(n1*(n-n1))-u) >= uMax {
			extreme++
		}
		total++
	}
	assert.InDelta(t, float64(extreme)/float64(total), res.PValue, 1e-12)
}

func popcount(x int) int {
	c := 0
	for x != 0 {
		x &= x - 1
		c++
	}
	return c
}

func TestMannWhitney_AsymptoticWithTies(t *testing.T) {
	a := group("a", 1, 2, 2, 3, 4, 5, 6, 7, 8, 9)
	b := group("b", 2, 3, 5, 6, 8, 10, 11, 12, 13, 14)

	res, err := NewMannWhitneyU().Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, 24.0, res.Statistic)
	assert.InDelta(t, 0.0531817, res.PValue, 1e-6)
}

func TestMannWhitney_AllTied(t *testing.T) {
	res, err := NewMannWhitneyU().Compare(group("a", 5, 5, 5), group("b", 5, 5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.PValue)
}

func TestExactUSurvival_Bounds(t *testing.T) {
	assert.Equal(t, 1.0, exactUSurvival(0, 3, 4))
	assert.Equal(t, 0.0, exactUSurvival(13, 3, 4))
	assert.InDelta(t, 1.0/35.0, exactUSurvival(12, 3, 4), 1e-12)
	assert.InDelta(t, exactUSurvival(7, 3, 4), exactUSurvival(7, 4, 3), 1e-12)
}

// ---------------------------------------------------------------------------
// Omnibus tests
// ---------------------------------------------------------------------------

func threeSeparatedGroups() []comparison.Group {
	return []comparison.Group{
		group("A", 1, 2, 3),
		group("B", 4, 5, 6),
		group("C", 7, 8, 9),
	}
}

func TestOneWayANOVA_ClosedForm(t *testing.T) {
	res, err := NewOneWayANOVA().Compare(threeSeparatedGroups())
	require.NoError(t, err)
	assert.Equal(t, comparison.TestANOVA, res.Name)
	assert.InDelta(t, 27.0, res.Statistic, 1e-9)
	// F(2, 6) survival is (1 + 2F/6)^-3
	assert.InDelta(t, 0.001, res.PValue, 1e-9)
}

func TestOneWayANOVA_Degenerate(t *testing.T) {
	_, err := NewOneWayANOVA().Compare([]comparison.Group{
		group("A", 1, 1), group("B", 2, 2), group("C", 3, 3),
	})
	assert.ErrorIs(t, err, core.ErrDegenerateStatistic)

	_, err = NewOneWayANOVA().Compare([]comparison.Group{
		group("A", 1), group("B", 2), group("C", 3),
	})
	assert.ErrorIs(t, err, core.ErrDegenerateStatistic)
}

func TestKruskalWallis_ClosedForm(t *testing.T) {
	res, err := NewKruskalWallis().Compare(threeSeparatedGroups())
	require.NoError(t, err)
	assert.Equal(t, comparison.TestKruskal, res.Name)
	assert.InDelta(t, 7.2, res.Statistic, 1e-9)
	// chi-squared(2) survival is exp(-x/2)
	assert.InDelta(t, math.Exp(-3.6), res.PValue, 1e-9)
}

func TestKruskalWallis_TieCorrection(t *testing.T) {
	groups := []comparison.Group{
		group("A", 1, 1, 2),
		group("B", 2, 3, 3),
		group("C", 4, 4, 5),
	}
	res, err := NewKruskalWallis().Compare(groups)
	require.NoError(t, err)

	// ranks: 1,1 -> 1.5; 2,2 -> 3.5; 3,3 -> 5.5; 4,4 -> 7.5; 5 -> 9
	r := []float64{1.5 + 1.5 + 3.5, 3.5 + 5.5 + 5.5, 7.5 + 7.5 + 9}
	h := 12.0/(9*10)*(r[0]*r[0]/3+r[1]*r[1]/3+r[2]*r[2]/3) - 30
	h /= 1 - 4*6.0/(729-9)
	assert.InDelta(t, h, res.Statistic, 1e-9)
}

func TestKruskalWallis_AllIdentical(t *testing.T) {
	_, err := NewKruskalWallis().Compare([]comparison.Group{
		group("A", 2, 2), group("B", 2, 2), group("C", 2),
	})
	assert.ErrorIs(t, err, core.ErrDegenerateStatistic)
}

// ---------------------------------------------------------------------------
// Studentized range and post-hoc procedures
// ---------------------------------------------------------------------------

func TestStudentizedRange_TwoMeansMatchesStudentT(t *testing.T) {
	// With two means Q = sqrt(2)|T|.
	sr := NewStudentizedRange()
	for _, df := range []float64{5, 12, 40} {
		for _, q := range []float64{0.5, 2, 3.5, 5} {
			tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
			want := 2*tDist.CDF(q/math.Sqrt2) - 1
			assert.InDelta(t, want, sr.CDF(q, 2, df), 1e-6, "q=%v df=%v", q, df)
		}
	}
}

func TestStudentizedRange_TableQuantiles(t *testing.T) {
	sr := NewStudentizedRange()
	tests := []struct {
		k, df, want float64
	}{
		{3, 10, 3.877},
		{4, 20, 3.958},
		{5, 30, 4.102},
		{3, 6, 4.339},
	}
	for _, tt := range tests {
		got := sr.Quantile(0.95, tt.k, tt.df)
		assert.InDelta(t, tt.want, got, 2e-3, "k=%v df=%v", tt.k, tt.df)
		assert.InDelta(t, 0.95, sr.CDF(got, tt.k, tt.df), 1e-4)
	}
}

func TestStudentizedRange_Edges(t *testing.T) {
	sr := NewStudentizedRange()
	assert.Equal(t, 0.0, sr.CDF(0, 3, 10))
	assert.Equal(t, 1.0, sr.CDF(math.Inf(1), 3, 10))
	assert.True(t, math.IsNaN(sr.CDF(1, 1, 10)))
	assert.True(t, math.IsNaN(sr.CDF(1, 3, 1)))
}

func TestTukeyHSD_Pairs(t *testing.T) {
	res, err := NewTukeyHSD().Pairwise(threeSeparatedGroups(), comparison.Alpha)
	require.NoError(t, err)
	require.Len(t, res.Pairs, 3)
	assert.Equal(t, comparison.PostHocTukey, res.Name)

	wantPairs := []string{"A vs B", "A vs C", "B vs C"}
	wantDiff := []float64{3, 6, 3}
	sr := NewStudentizedRange()
	qCrit := sr.Quantile(0.95, 3, 6)
	se := math.Sqrt(1.0 / 3.0)

	for i, pair := range res.Pairs {
		assert.Equal(t, wantPairs[i], pair.Pair())
		require.NotNil(t, pair.MeanDiff)
		assert.InDelta(t, wantDiff[i], *pair.MeanDiff, 1e-12)
		assert.InDelta(t, wantDiff[i]-qCrit*se, *pair.Lower, 1e-9)
		assert.InDelta(t, wantDiff[i]+qCrit*se, *pair.Upper, 1e-9)
		assert.Equal(t, pair.PValue < 0.05, pair.Reject)
	}

	// q = 3/se = 5.196 lies between the 5% (4.339) and 1% (6.331) points.
	assert.Greater(t, res.Pairs[0].PValue, 0.01)
	assert.Less(t, res.Pairs[0].PValue, 0.05)
	assert.Less(t, res.Pairs[1].PValue, 0.01)
}

func TestTukeyHSD_TooFewDegreesOfFreedom(t *testing.T) {
	groups := []comparison.Group{
		group("A", 1.0, 1.01),
		group("B", 100),
		group("C", 200),
	}
	_, err := NewTukeyHSD().Pairwise(groups, comparison.Alpha)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDegenerateStatistic)
	assert.Contains(t, err.Error(), "degrees of freedom")
}

func TestDunn_Bonferroni(t *testing.T) {
	res, err := NewDunn().Pairwise(threeSeparatedGroups(), comparison.Alpha)
	require.NoError(t, err)
	require.Len(t, res.Pairs, 3)
	assert.Equal(t, comparison.PostHocDunn, res.Name)

	assert.Equal(t, "A vs B", res.Pairs[0].Pair())
	assert.InDelta(t, 0.5391375, res.Pairs[0].PValue, 1e-6)
	assert.False(t, res.Pairs[0].Reject)
	assert.Nil(t, res.Pairs[0].MeanDiff)

	assert.Equal(t, "A vs C", res.Pairs[1].Pair())
	assert.InDelta(t, 0.0218711, res.Pairs[1].PValue, 1e-6)
	assert.True(t, res.Pairs[1].Reject)
}

func TestDunn_CapsAtOne(t *testing.T) {
	res, err := NewDunn().Pairwise([]comparison.Group{
		group("A", 1, 2, 3), group("B", 1.5, 2.5, 3.5), group("C", 2, 3, 1),
	}, comparison.Alpha)
	require.NoError(t, err)
	for _, pair := range res.Pairs {
		assert.LessOrEqual(t, pair.PValue, 1.0)
	}
}

// ---------------------------------------------------------------------------
// Descriptive statistics
// ---------------------------------------------------------------------------

func TestDescribe(t *testing.T) {
	d, err := Describe([]float64{4, 1, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 2.5, d.Mean, 1e-12)
	assert.InDelta(t, 1.2909944, d.Std, 1e-6)
	assert.Equal(t, 1.0, d.Min)
	assert.InDelta(t, 1.75, d.Q1, 1e-12)
	assert.InDelta(t, 2.5, d.Median, 1e-12)
	assert.InDelta(t, 3.25, d.Q3, 1e-12)
	assert.Equal(t, 4.0, d.Max)
}

func TestDescribe_SingleValue(t *testing.T) {
	d, err := Describe([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count)
	assert.True(t, math.IsNaN(d.Std))
	assert.Equal(t, 7.0, d.Q1)
	assert.Equal(t, 7.0, d.Q3)
}

func TestDescribe_Empty(t *testing.T) {
	_, err := Describe(nil)
	assert.Error(t, err)
}

func TestNewSuite_Names(t *testing.T) {
	suite := NewSuite()
	assert.Equal(t, comparison.NormalityShapiro, suite.Normality.Name())
	assert.Equal(t, comparison.TestStudentT, suite.ParametricTwo.Name())
	assert.Equal(t, comparison.TestMannWhitney, suite.RankTwo.Name())
	assert.Equal(t, comparison.TestANOVA, suite.ParametricOmnibus.Name())
	assert.Equal(t, comparison.TestKruskal, suite.RankOmnibus.Name())
	assert.Equal(t, comparison.PostHocTukey, suite.ParametricPostHoc.Name())
	assert.Equal(t, comparison.PostHocDunn, suite.RankPostHoc.Name())
}
