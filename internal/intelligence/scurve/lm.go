package scurve

import "math"

// curveFunc evaluates a parametric growth curve at x.
type curveFunc func(p []float64, x float64) float64

// problem is one bounded least-squares fit: minimize the squared residual
// of f over (xs, ys) subject to lower <= p <= upper.
type problem struct {
	f      curveFunc
	xs     []float64
	ys     []float64
	lower  []float64
	upper  []float64
}

const (
	maxEvaluations = 5000
	maxIterations  = 200
	lambdaInit     = 1e-3
	lambdaCeil     = 1e11
	costTol        = 1e-10
	stepTol        = 1e-10
)

// solveLM runs a damped Levenberg-Marquardt iteration with a numeric
// forward-difference Jacobian and projection onto the parameter box.
// Deterministic: no randomness, no dependence on iteration timing. Returns
// ok=false when the evaluation budget runs out before any acceptable step
// or the normal equations stay singular.
func solveLM(pr problem, p0 []float64) ([]float64, bool) {
	n := len(p0)
	p := make([]float64, n)
	copy(p, p0)
	projectInto(p, pr.lower, pr.upper)

	evals := 0
	cost, ok := residualCost(pr, p, &evals)
	if !ok {
		return nil, false
	}

	lambda := lambdaInit
	for iter := 0; iter < maxIterations; iter++ {
		if evals >= maxEvaluations {
			return nil, false
		}

		jac, res, ok := jacobian(pr, p, &evals)
		if !ok {
			return nil, false
		}

		jtj, jtr := normalEquations(jac, res, n)

		accepted := false
		for try := 0; try < 40; try++ {
			delta, solvable := solveDamped(jtj, jtr, lambda)
			if solvable {
				pNew := make([]float64, n)
				for j := 0; j < n; j++ {
					pNew[j] = p[j] + delta[j]
				}
				projectInto(pNew, pr.lower, pr.upper)

				costNew, okc := residualCost(pr, pNew, &evals)
				if okc && costNew < cost {
					drop := cost - costNew
					step := maxAbs(delta)
					p = pNew
					cost = costNew
					lambda = math.Max(lambda*0.1, 1e-12)
					accepted = true
					if drop <= costTol*(cost+1e-30) || step <= stepTol {
						return p, true
					}
					break
				}
			}
			lambda *= 10
			if lambda > lambdaCeil || evals >= maxEvaluations {
				return nil, false
			}
		}
		if !accepted {
			return nil, false
		}
	}

	// Iteration cap reached while still making monotone progress; the
	// point found is the best available.
	return p, true
}

// residualCost evaluates the sum of squared residuals at p. ok is false
// when the curve produced NaN or Inf anywhere.
func residualCost(pr problem, p []float64, evals *int) (float64, bool) {
	*evals++
	var cost float64
	for i, x := range pr.xs {
		fx := pr.f(p, x)
		if math.IsNaN(fx) || math.IsInf(fx, 0) {
			return 0, false
		}
		r := pr.ys[i] - fx
		cost += r * r
	}
	return cost, true
}

// jacobian computes the m-by-n forward-difference Jacobian of f and the
// residual vector at p. Steps that would leave the box flip direction.
func jacobian(pr problem, p []float64, evals *int) ([][]float64, []float64, bool) {
	m := len(pr.xs)
	n := len(p)

	base := make([]float64, m)
	*evals++
	for i, x := range pr.xs {
		fx := pr.f(p, x)
		if math.IsNaN(fx) || math.IsInf(fx, 0) {
			return nil, nil, false
		}
		base[i] = fx
	}

	res := make([]float64, m)
	for i := range res {
		res[i] = pr.ys[i] - base[i]
	}

	jac := make([][]float64, m)
	for i := range jac {
		jac[i] = make([]float64, n)
	}

	const sqrtEps = 1.4901161193847656e-08
	for j := 0; j < n; j++ {
		h := sqrtEps * math.Max(math.Abs(p[j]), 1.0)
		if p[j]+h > pr.upper[j] {
			h = -h
		}
		pj := p[j]
		p[j] = pj + h
		*evals++
		for i, x := range pr.xs {
			fx := pr.f(p, x)
			if math.IsNaN(fx) || math.IsInf(fx, 0) {
				p[j] = pj
				return nil, nil, false
			}
			jac[i][j] = (fx - base[i]) / h
		}
		p[j] = pj
	}

	return jac, res, true
}

// normalEquations builds JtJ and Jtr for the Gauss-Newton step.
func normalEquations(jac [][]float64, res []float64, n int) ([][]float64, []float64) {
	jtj := make([][]float64, n)
	for j := range jtj {
		jtj[j] = make([]float64, n)
	}
	jtr := make([]float64, n)

	for i := range jac {
		for j := 0; j < n; j++ {
			jtr[j] += jac[i][j] * res[i]
			for k := j; k < n; k++ {
				jtj[j][k] += jac[i][j] * jac[i][k]
			}
		}
	}
	for j := 0; j < n; j++ {
		for k := 0; k < j; k++ {
			jtj[j][k] = jtj[k][j]
		}
	}
	return jtj, jtr
}

// solveDamped solves (JtJ + lambda*diag(JtJ)) delta = Jtr by Gaussian
// elimination with partial pivoting.
func solveDamped(jtj [][]float64, jtr []float64, lambda float64) ([]float64, bool) {
	n := len(jtr)

	a := make([][]float64, n)
	b := make([]float64, n)
	for j := 0; j < n; j++ {
		a[j] = make([]float64, n)
		copy(a[j], jtj[j])
		d := jtj[j][j]
		if d < 1e-14 {
			d = 1e-14
		}
		a[j][j] += lambda * d
		b[j] = jtr[j]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-300 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	delta := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * delta[c]
		}
		delta[r] = sum / a[r][r]
	}

	for _, d := range delta {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, false
		}
	}
	return delta, true
}

func projectInto(p, lower, upper []float64) {
	for j := range p {
		if p[j] < lower[j] {
			p[j] = lower[j]
		}
		if p[j] > upper[j] {
			p[j] = upper[j]
		}
	}
}

func maxAbs(xs []float64) float64 {
	var m float64
	for _, x := range xs {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
