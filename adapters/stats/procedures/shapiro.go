package procedures

import (
	"fmt"
	"math"
	"sort"

	"gocompare/domain/comparison"
)

// Polynomial coefficients of Royston's (1995) approximation (algorithm AS R94).
var (
	swC1 = []float64{0.0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0.0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilk is the Shapiro-Wilk W test for normality.
type ShapiroWilk struct {
	dist *Distributions
}

// NewShapiroWilk creates a new Shapiro-Wilk normality test
func NewShapiroWilk() *ShapiroWilk {
	return &ShapiroWilk{dist: NewDistributions()}
}

// Name returns the procedure name
func (s *ShapiroWilk) Name() string {
	return comparison.NormalityShapiro
}

// Test returns W and its p-value. A sample with zero range is reported as
// W = 1, p = 1.
func (s *ShapiroWilk) Test(sample []float64) (float64, float64, error) {
	n := len(sample)
	if n < comparison.MinNormalitySample {
		return math.NaN(), math.NaN(), fmt.Errorf("%s needs at least %d observations, got %d",
			s.Name(), comparison.MinNormalitySample, n)
	}

	x := make([]float64, n)
	copy(x, sample)
	sort.Float64s(x)

	rng := x[n-1] - x[0]
	if rng < 1e-19 {
		return 1, 1, nil
	}

	a := s.coefficients(n)

	// Center and scale by the range for numerical stability.
	mean := 0.0
	for _, v := range x {
		mean += v / rng
	}
	mean /= float64(n)

	ssq := 0.0
	for _, v := range x {
		d := v/rng - mean
		ssq += d * d
	}

	num := 0.0
	for i := 0; i < n/2; i++ {
		num += a[i] * (x[n-1-i] - x[i]) / rng
	}

	w := num * num / ssq
	if w > 1 {
		w = 1
	}

	return w, s.pValue(w, n), nil
}

// coefficients returns the n/2 positive weights a_1..a_{n/2}.
func (s *ShapiroWilk) coefficients(n int) []float64 {
	nn2 := n / 2
	a := make([]float64, nn2)

	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	an := float64(n)
	an25 := an + 0.25
	m := make([]float64, nn2)
	summ2 := 0.0
	for i := 0; i < nn2; i++ {
		m[i] = s.dist.NormalQuantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)
	a1 := poly(swC1, rsn) - m[0]/ssumm2

	var i1 int
	var fac float64
	if n > 5 {
		i1 = 2
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		i1 = 1
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := i1; i < nn2; i++ {
		a[i] = -m[i] / fac
	}

	return a
}

func (s *ShapiroWilk) pValue(w float64, n int) float64 {
	if n == 3 {
		const pi6 = 6 / math.Pi
		const stqr = math.Pi / 3
		p := pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return clampProbability(p)
	}

	w1 := 1 - w
	if w1 <= 0 {
		return 1
	}
	y := math.Log(w1)
	an := float64(n)
	lxx := math.Log(an)

	var m, sd float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, an)
		sd = math.Exp(poly(swC4, an))
	} else {
		m = poly(swC5, lxx)
		sd = math.Exp(poly(swC6, lxx))
	}

	return clampProbability(s.dist.NormalSurvival((y - m) / sd))
}

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(c []float64, x float64) float64 {
	result := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		result = result*x + c[i]
	}
	return result
}
