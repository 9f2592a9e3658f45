// Package scurve fits logistic and Gompertz growth curves to cumulative
// patent counts to estimate technology maturity. Fitting is bounded
// least-squares with a self-contained Levenberg-Marquardt solver, so
// results are fully deterministic across runs and platforms.
//
// Model selection follows the ensemble approach: both curves are fitted
// and the better R² wins (Franses 1994); phase thresholds downstream
// follow Gao et al. (2013).
package scurve

import (
	"math"

	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// Result is one successful curve fit.
type Result struct {
	// SaturationLevel is the fitted upper asymptote L.
	SaturationLevel float64
	// GrowthRate is the fitted steepness k.
	GrowthRate float64
	// InflectionYear is the fitted midpoint x0.
	InflectionYear float64
	// RSquared is the goodness of fit, 4 decimals.
	RSquared float64
	// MaturityPercent is the last observation relative to the saturation
	// level, capped at 100.
	MaturityPercent float64
	// Model names the winning curve, "Logistic" or "Gompertz".
	Model string
	// Fitted holds the curve evaluated at the observed years.
	Fitted []radartypes.FittedPoint
}

func logistic(p []float64, x float64) float64 {
	// p = [L, k, x0]
	return p[0] / (1.0 + math.Exp(-p[1]*(x-p[2])))
}

func gompertz(p []float64, x float64) float64 {
	// p = [L, b, k, x0]
	return p[0] * math.Exp(-p[1]*math.Exp(-p[2]*(x-p[3])))
}

// FitLogistic fits L / (1 + exp(-k(x-x0))) to a cumulative series.
// Returns nil when the series is shorter than 3 points, ends at zero, or
// the solver does not converge.
func FitLogistic(years, cumulative []int) *Result {
	xs, ys, ok := prepare(years, cumulative)
	if !ok {
		return nil
	}
	yLast := ys[len(ys)-1]

	sat0 := yLast * 1.5
	x0Init := xs[argminAbs(ys, sat0/2.0)]
	k0 := transitionRate(xs, ys, sat0, 0.5)

	p0 := []float64{sat0, k0, x0Init}
	lower := []float64{yLast * 0.5, 0.001, xs[0] - 10.0}
	upper := []float64{yLast * 10.0, 5.0, xs[len(xs)-1] + 10.0}

	p, solved := solveLM(problem{f: logistic, xs: xs, ys: ys, lower: lower, upper: upper}, p0)
	if !solved {
		return nil
	}

	return buildResult("Logistic", logistic, p, p[0], p[1], p[2], years, xs, ys)
}

// FitGompertz fits L * exp(-b * exp(-k(x-x0))), the asymmetric S-curve
// whose growth slows earlier than the logistic one. Same nil conditions
// as FitLogistic.
func FitGompertz(years, cumulative []int) *Result {
	xs, ys, ok := prepare(years, cumulative)
	if !ok {
		return nil
	}
	yLast := ys[len(ys)-1]

	sat0 := yLast * 1.5
	b0 := 5.0
	k0 := transitionRate(xs, ys, sat0, 0.3)
	x0Init := xs[0]

	p0 := []float64{sat0, b0, k0, x0Init}
	lower := []float64{yLast * 0.5, 0.1, 0.001, xs[0] - 10.0}
	upper := []float64{yLast * 10.0, 50.0, 5.0, xs[len(xs)-1] + 10.0}

	p, solved := solveLM(problem{f: gompertz, xs: xs, ys: ys, lower: lower, upper: upper}, p0)
	if !solved {
		return nil
	}

	return buildResult("Gompertz", gompertz, p, p[0], p[2], p[3], years, xs, ys)
}

// FitBest fits both models and returns the better one by R². The
// logistic fit wins ties; nil when both fail.
func FitBest(years, cumulative []int) *Result {
	logisticRes := FitLogistic(years, cumulative)
	gompertzRes := FitGompertz(years, cumulative)

	switch {
	case logisticRes == nil:
		return gompertzRes
	case gompertzRes == nil:
		return logisticRes
	case gompertzRes.RSquared > logisticRes.RSquared:
		return gompertzRes
	default:
		return logisticRes
	}
}

func prepare(years, cumulative []int) (xs, ys []float64, ok bool) {
	if len(years) < 3 || len(cumulative) < 3 || len(years) != len(cumulative) {
		return nil, nil, false
	}
	xs = make([]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
	}
	ys = make([]float64, len(cumulative))
	for i, c := range cumulative {
		ys[i] = float64(c)
	}
	if ys[len(ys)-1] <= 0 {
		return nil, nil, false
	}
	return xs, ys, true
}

// transitionRate estimates the growth rate from the width of the 10%-90%
// transition band of the assumed saturation level.
func transitionRate(xs, ys []float64, sat, fallback float64) float64 {
	idx10 := argminAbs(ys, sat*0.1)
	idx90 := argminAbs(ys, sat*0.9)
	width := xs[idx90] - xs[idx10]
	if width > 0 {
		return 4.0 / width
	}
	return fallback
}

// argminAbs returns the first index whose value is closest to target.
func argminAbs(ys []float64, target float64) int {
	best := 0
	bestDiff := math.Abs(ys[0] - target)
	for i := 1; i < len(ys); i++ {
		if d := math.Abs(ys[i] - target); d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best
}

func buildResult(model string, f curveFunc, p []float64, sat, k, x0 float64, years []int, xs, ys []float64) *Result {
	fitted := make([]radartypes.FittedPoint, len(xs))
	fittedRaw := make([]float64, len(xs))
	for i, x := range xs {
		fittedRaw[i] = f(p, x)
		fitted[i] = radartypes.FittedPoint{Year: years[i], Fitted: round1(fittedRaw[i])}
	}

	r2 := rSquared(ys, fittedRaw)

	maturity := 0.0
	if sat > 0 {
		maturity = ys[len(ys)-1] / sat * 100.0
	}

	return &Result{
		SaturationLevel: round2(sat),
		GrowthRate:      round6(k),
		InflectionYear:  round2(x0),
		RSquared:        round4(r2),
		MaturityPercent: round2(math.Min(maturity, 100.0)),
		Model:           model,
		Fitted:          fitted,
	}
}

// rSquared is the coefficient of determination; 0 when the observed
// series has no variance.
func rSquared(ys, fitted []float64) float64 {
	var mean float64
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var ssRes, ssTot float64
	for i, y := range ys {
		r := y - fitted[i]
		ssRes += r * r
		d := y - mean
		ssTot += d * d
	}
	if ssTot <= 0 {
		return 0
	}
	return 1.0 - ssRes/ssTot
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
func round6(x float64) float64 { return math.Round(x*1000000) / 1000000 }
