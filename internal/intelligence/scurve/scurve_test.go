package scurve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticLogistic(l, k float64, x0, from, to int) (years, cumulative []int) {
	for y := from; y <= to; y++ {
		years = append(years, y)
		v := l / (1.0 + math.Exp(-k*float64(y-x0)))
		cumulative = append(cumulative, int(math.Round(v)))
	}
	return years, cumulative
}

func syntheticGompertz(l, b, k float64, x0, from, to int) (years, cumulative []int) {
	for y := from; y <= to; y++ {
		years = append(years, y)
		v := l * math.Exp(-b*math.Exp(-k*float64(y-x0)))
		cumulative = append(cumulative, int(math.Round(v)))
	}
	return years, cumulative
}

func TestFitLogistic_RecoversSyntheticCurve(t *testing.T) {
	years, cumulative := syntheticLogistic(1000, 0.5, 2010, 2000, 2020)

	res := FitLogistic(years, cumulative)
	require.NotNil(t, res)

	assert.Equal(t, "Logistic", res.Model)
	assert.GreaterOrEqual(t, res.RSquared, 0.99)
	assert.InDelta(t, 1000.0, res.SaturationLevel, 50.0)
	assert.InDelta(t, 0.5, res.GrowthRate, 0.1)
	assert.InDelta(t, 2010.0, res.InflectionYear, 1.0)

	// Last observation sits at ~99.3% of the true saturation level.
	yLast := float64(cumulative[len(cumulative)-1])
	assert.InDelta(t, yLast/1000.0*100.0, res.MaturityPercent, 1.0)

	require.Len(t, res.Fitted, len(years))
	assert.Equal(t, years[0], res.Fitted[0].Year)
	assert.Equal(t, years[len(years)-1], res.Fitted[len(years)-1].Year)
}

func TestFitLogistic_RespectsBounds(t *testing.T) {
	years, cumulative := syntheticLogistic(1000, 0.5, 2010, 2000, 2020)

	res := FitLogistic(years, cumulative)
	require.NotNil(t, res)

	yLast := float64(cumulative[len(cumulative)-1])
	assert.GreaterOrEqual(t, res.SaturationLevel, yLast*0.5)
	assert.LessOrEqual(t, res.SaturationLevel, yLast*10.0)
	assert.GreaterOrEqual(t, res.GrowthRate, 0.001)
	assert.LessOrEqual(t, res.GrowthRate, 5.0)
	assert.GreaterOrEqual(t, res.InflectionYear, float64(years[0])-10.0)
	assert.LessOrEqual(t, res.InflectionYear, float64(years[len(years)-1])+10.0)
	assert.LessOrEqual(t, res.MaturityPercent, 100.0)
}

func TestFitGompertz_RecoversSyntheticCurve(t *testing.T) {
	years, cumulative := syntheticGompertz(500, 4.0, 0.4, 2005, 2000, 2020)

	res := FitGompertz(years, cumulative)
	require.NotNil(t, res)

	assert.Equal(t, "Gompertz", res.Model)
	assert.GreaterOrEqual(t, res.RSquared, 0.98)
	assert.LessOrEqual(t, res.MaturityPercent, 100.0)
	assert.Greater(t, res.SaturationLevel, 0.0)
}

func TestFitBest_SyntheticLogistic(t *testing.T) {
	years, cumulative := syntheticLogistic(1000, 0.5, 2010, 2000, 2020)

	res := FitBest(years, cumulative)
	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.RSquared, 0.99)

	if logisticRes := FitLogistic(years, cumulative); logisticRes != nil {
		assert.GreaterOrEqual(t, res.RSquared, logisticRes.RSquared)
	}
	if gompertzRes := FitGompertz(years, cumulative); gompertzRes != nil {
		assert.GreaterOrEqual(t, res.RSquared, gompertzRes.RSquared)
	}
}

func TestFit_DegenerateInputs(t *testing.T) {
	assert.Nil(t, FitLogistic([]int{2020, 2021}, []int{1, 2}))
	assert.Nil(t, FitGompertz([]int{2020, 2021}, []int{1, 2}))
	assert.Nil(t, FitBest(nil, nil))

	// Series ending at zero carries no growth signal.
	assert.Nil(t, FitLogistic([]int{2018, 2019, 2020}, []int{0, 0, 0}))
	assert.Nil(t, FitGompertz([]int{2018, 2019, 2020}, []int{0, 0, 0}))

	// Length mismatch.
	assert.Nil(t, FitLogistic([]int{2018, 2019, 2020}, []int{1, 2}))
}

func TestFitLogistic_Deterministic(t *testing.T) {
	years, cumulative := syntheticLogistic(750, 0.35, 2012, 2003, 2023)

	first := FitLogistic(years, cumulative)
	second := FitLogistic(years, cumulative)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestRSquared_NoVariance(t *testing.T) {
	assert.Zero(t, rSquared([]float64{5, 5, 5}, []float64{5, 5, 5}))
}

func TestRSquared_PerfectFit(t *testing.T) {
	assert.InDelta(t, 1.0, rSquared([]float64{1, 4, 9}, []float64{1, 4, 9}), 1e-12)
}
