package procedures

import (
	"math"
)

// Studentized range distribution after Copenhaver & Holland (1988), the
// algorithm behind R's ptukey/qtukey. Gauss-Legendre quadrature is used for
// both the inner (range of normals) and outer (chi scale) integrals.

var (
	srXleg = [6]float64{
		0.981560634246719250690549090149,
		0.904117256370474856678465866119,
		0.769902674194304687036893833213,
		0.587317954286617447296702418941,
		0.367831498998180193752691536644,
		0.125233408511468915472441369464,
	}
	srAleg = [6]float64{
		0.047175336386511827194615961485,
		0.106939325995318430960254718194,
		0.160078328543346226334652529543,
		0.203167426723065921749064455810,
		0.233492536538354808760849898925,
		0.249147045813402785000562436043,
	}
	srXlegq = [8]float64{
		0.989400934991649932596154173450,
		0.944575023073232576077988415535,
		0.865631202387831743880467897712,
		0.755404408355003033895101194847,
		0.617876244402643748446671764049,
		0.458016777657227386342419442984,
		0.281603550779258913230460501460,
		0.950125098376374401853193354250e-1,
	}
	srAlegq = [8]float64{
		0.271524594117540948517805724560e-1,
		0.622535239386478928628438369944e-1,
		0.951585116824927848099251076022e-1,
		0.124628971255533872052476282192,
		0.149595988816576732081501730547,
		0.169156519395002538189312079030,
		0.182603415044923588866763667969,
		0.189450610455068496285396723208,
	}
)

// StudentizedRange is the distribution of the range of cc normal means
// divided by an independent chi-based scale with df degrees of freedom.
type StudentizedRange struct {
	dist *Distributions
}

// NewStudentizedRange creates a new studentized range distribution
func NewStudentizedRange() *StudentizedRange {
	return &StudentizedRange{dist: NewDistributions()}
}

// CDF returns P(Q <= q) for cc means and df degrees of freedom.
func (s *StudentizedRange) CDF(q, cc, df float64) float64 {
	const (
		eps1  = -30.0
		eps2  = 1.0e-14
		dhaf  = 100.0
		dquar = 800.0
		deigh = 5000.0
		dlarg = 25000.0
	)

	if math.IsNaN(q) || math.IsNaN(cc) || math.IsNaN(df) {
		return math.NaN()
	}
	if q <= 0 {
		return 0
	}
	if df < 2 || cc < 2 {
		return math.NaN()
	}
	if math.IsInf(q, 1) {
		return 1
	}
	if df > dlarg {
		return s.wprob(q, 1, cc)
	}

	f2 := df * 0.5
	lgf2, _ := math.Lgamma(f2)
	f2lf := f2*math.Log(df) - df*math.Ln2 - lgf2
	f21 := f2 - 1.0
	ff4 := df * 0.25

	var ulen float64
	switch {
	case df <= dhaf:
		ulen = 1.0
	case df <= dquar:
		ulen = 0.5
	case df <= deigh:
		ulen = 0.25
	default:
		ulen = 0.125
	}
	f2lf += math.Log(ulen)

	ans := 0.0
	for i := 1; i <= 50; i++ {
		otsum := 0.0
		twa1 := float64(2*i-1) * ulen

		for jj := 1; jj <= 16; jj++ {
			var j int
			var t1, qsqz float64
			if jj > 8 {
				j = jj - 8 - 1
				t1 = f2lf + f21*math.Log(twa1+srXlegq[j]*ulen) - (srXlegq[j]*ulen+twa1)*ff4
			} else {
				j = jj - 1
				t1 = f2lf + f21*math.Log(twa1-srXlegq[j]*ulen) + (srXlegq[j]*ulen-twa1)*ff4
			}

			if t1 >= eps1 {
				if jj > 8 {
					qsqz = q * math.Sqrt((srXlegq[j]*ulen+twa1)*0.5)
				} else {
					qsqz = q * math.Sqrt((-(srXlegq[j] * ulen)+twa1)*0.5)
				}
				wprb := s.wprob(qsqz, 1, cc)
				otsum += wprb * srAlegq[j] * math.Exp(t1)
			}
		}

		if float64(i)*ulen >= 1.0 && otsum <= eps2 {
			break
		}
		ans += otsum
	}

	if ans > 1 {
		ans = 1
	}
	return ans
}

// Survival returns P(Q > q).
func (s *StudentizedRange) Survival(q, cc, df float64) float64 {
	return clampProbability(1 - s.CDF(q, cc, df))
}

// Quantile inverts CDF with the secant method from an approximate start.
func (s *StudentizedRange) Quantile(p, cc, df float64) float64 {
	const (
		eps     = 0.0001
		maxiter = 50
	)

	if math.IsNaN(p) || p < 0 || p > 1 || df < 2 || cc < 2 {
		return math.NaN()
	}
	if p == 0 {
		return 0
	}
	if p == 1 {
		return math.Inf(1)
	}

	x0 := s.qinv(p, cc, df)
	valx0 := s.CDF(x0, cc, df) - p

	var x1 float64
	if valx0 > 0 {
		x1 = math.Max(0, x0-1)
	} else {
		x1 = x0 + 1
	}
	valx1 := s.CDF(x1, cc, df) - p

	ans := 0.0
	for iter := 1; iter < maxiter; iter++ {
		ans = x1 - (valx1*(x1-x0))/(valx1-valx0)
		valx0 = valx1
		x0 = x1
		if ans < 0 {
			ans = 0
			valx1 = -p
		}
		valx1 = s.CDF(ans, cc, df) - p
		x1 = ans

		if math.Abs(x1-x0) < eps {
			return ans
		}
	}
	return ans
}

// wprob is the probability that the range of cc standard normals is below w.
func (s *StudentizedRange) wprob(w, rr, cc float64) float64 {
	const (
		c1     = -30.0
		c3     = 60.0
		bb     = 8.0
		wlar   = 3.0
		wincr1 = 2.0
		wincr2 = 3.0
	)

	qsqz := w * 0.5
	if qsqz >= bb {
		return 1.0
	}

	// P(|Z| < w/2)^cc
	prW := 2*s.dist.NormalCDF(qsqz) - 1
	if prW >= 1 {
		prW = 1
	} else {
		prW = math.Pow(prW, cc)
	}

	wincr := wincr2
	if w > wlar {
		wincr = wincr1
	}

	blb := qsqz
	binc := (bb - qsqz) / wincr
	bub := blb + binc
	einsum := 0.0
	cc1 := cc - 1.0

	for wi := 1.0; wi <= wincr; wi++ {
		elsum := 0.0
		a := 0.5 * (bub + blb)
		b := 0.5 * (bub - blb)

		for jj := 1; jj <= 12; jj++ {
			var j int
			var xx float64
			if jj > 6 {
				j = 12 - jj + 1
				xx = srXleg[j-1]
			} else {
				j = jj
				xx = -srXleg[j-1]
			}
			c := b * xx
			ac := a + c

			qexpo := ac * ac
			if qexpo > c3 {
				break
			}

			pplus := 2 * s.dist.NormalCDF(ac)
			pminus := 2 * s.dist.NormalCDF(ac-w)

			rinsum := pplus*0.5 - pminus*0.5
			if rinsum >= math.Exp(c1/cc1) {
				rinsum = srAleg[j-1] * math.Exp(-(0.5 * qexpo)) * math.Pow(rinsum, cc1)
				elsum += rinsum
			}
		}
		elsum *= (2.0 * b) * cc / math.Sqrt(2*math.Pi)
		einsum += elsum
		blb = bub
		bub += binc
	}

	prW += einsum
	if prW <= math.Exp(c1/rr) {
		return 0
	}

	prW = math.Pow(prW, rr)
	if prW >= 1 {
		return 1
	}
	return prW
}

// qinv is the starting approximation for Quantile.
func (s *StudentizedRange) qinv(p, c, v float64) float64 {
	const (
		p0   = 0.322232421088
		q0   = 0.993484626060e-01
		p1   = -1.0
		q1   = 0.588581570495
		p2   = -0.342242088547
		q2   = 0.531103462366
		p3   = -0.204231210125
		q3   = 0.103537752850
		p4   = -0.453642210148e-04
		q4   = 0.38560700634e-02
		cc1  = 0.8832
		cc2  = 0.2368
		cc3  = 1.214
		cc4  = 1.208
		cc5  = 1.4142
		vmax = 120.0
	)

	ps := 0.5 - 0.5*p
	yi := math.Sqrt(math.Log(1.0 / (ps * ps)))
	t := yi + ((((yi*p4+p3)*yi+p2)*yi+p1)*yi+p0)/((((yi*q4+q3)*yi+q2)*yi+q1)*yi+q0)
	if v < vmax {
		t += (t*t*t + t) / v / 4.0
	}
	q := cc1 - cc2*t
	if v < vmax {
		q += -cc3/v + cc4*t/v
	}
	return t * (q*math.Log(c-1.0) + cc5)
}
