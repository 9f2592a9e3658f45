package panels

import (
	"context"
	"fmt"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/metrics"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/scurve"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// Below this cumulative patent total an S-curve fit is statistical noise;
// the engine falls back to the growth-pattern heuristic.
const minPatentsForFit = 30

// MaturityEngine fits the cumulative patent series to an S-curve and
// classifies the technology's lifecycle phase.
type MaturityEngine struct {
	data DataContext
	log  logging.Logger
}

func NewMaturityEngine(data DataContext, logger logging.Logger) *MaturityEngine {
	return &MaturityEngine{data: data, log: logger.Named("maturity")}
}

// Build queries the full window but fits only on years the store has
// fully indexed, so an incomplete trailing year never bends the curve.
func (e *MaturityEngine) Build(ctx context.Context, q Query) (*radartypes.MaturityPanel, Contribution) {
	var contrib Contribution

	if e.data.Patents == nil {
		contrib.Warnings = append(contrib.Warnings, warnNoPatentStore)
		return radartypes.EmptyMaturityPanel(), contrib
	}

	rows, err := e.data.Patents.CountByYear(ctx, q.Technology, q.StartYear, q.EndYear)
	if err != nil {
		e.log.Warn("maturity patent query failed", logging.Err(err))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Patent-Abfrage fehlgeschlagen: %v", err))
		return radartypes.EmptyMaturityPanel(), contrib
	}
	if len(rows) > 0 {
		contrib.Sources = append(contrib.Sources, sourcePatents)
	}
	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[r.Year] = r.Count
	}

	effectiveEnd := q.EndYear
	if last, ok, probeErr := e.data.Patents.LastFullYear(ctx); probeErr != nil {
		e.log.Warn("patent last-full-year probe failed", logging.Err(probeErr))
	} else if ok && last < q.EndYear {
		effectiveEnd = last
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("S-Curve auf %d–%d begrenzt (Daten ab %d unvollstaendig)", q.StartYear, effectiveEnd, effectiveEnd+1))
	}

	span := q.EndYear - q.StartYear + 1
	years := make([]int, 0, span)
	yearly := make([]int, 0, span)
	cumulative := make([]int, 0, span)
	timeSeries := make([]radartypes.MaturityYear, 0, span)
	running := 0
	for year := q.StartYear; year <= q.EndYear; year++ {
		c := counts[year]
		running += c
		years = append(years, year)
		yearly = append(yearly, c)
		cumulative = append(cumulative, running)
		timeSeries = append(timeSeries, radartypes.MaturityYear{Year: year, Patents: c, Cumulative: running})
	}

	// Fit window ends at the last fully indexed year.
	fitLen := len(years)
	for i, y := range years {
		if y > effectiveEnd {
			fitLen = i
			break
		}
	}
	fitYears, fitYearly, fitCumulative := years[:fitLen], yearly[:fitLen], cumulative[:fitLen]

	panel := radartypes.EmptyMaturityPanel()
	panel.TimeSeries = timeSeries
	panel.CAGR = round2(e.growthRate(fitYears, fitYearly, &contrib))

	fitTotal := 0
	if len(fitCumulative) > 0 {
		fitTotal = fitCumulative[len(fitCumulative)-1]
	}

	var fit *scurve.Result
	if fitTotal >= minPatentsForFit {
		fit = scurve.FitBest(fitYears, fitCumulative)
	} else if fitTotal > 0 {
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Zu wenige Patente (%d) fuer S-Curve-Fit (Minimum: %d) — Fallback auf Heuristik", fitTotal, minPatentsForFit))
	}

	if fit != nil {
		panel.MaturityPercent = fit.MaturityPercent
		panel.SaturationLevel = fit.SaturationLevel
		panel.InflectionYear = fit.InflectionYear
		panel.RSquared = fit.RSquared
		panel.FitModel = fit.Model
		panel.SCurveFitted = fit.Fitted
		panel.Confidence = metrics.SCurveConfidence(fit.RSquared, len(fitYears), fitTotal)
		contrib.Methods = append(contrib.Methods,
			fmt.Sprintf("S-Curve (%s, R²=%.4g)", fit.Model, fit.RSquared))

		r2 := fit.RSquared
		phase, _ := metrics.ClassifyPhase(fit.MaturityPercent, &r2)
		panel.Phase, panel.PhaseDE = phase.EN, phase.DE
		contrib.Methods = append(contrib.Methods, "Phasenklassifikation (Lee et al. 2016)")
		return panel, contrib
	}

	// Heuristic fallback classifies on the full yearly pattern, not just
	// the fit window.
	phase, confidence := metrics.ClassifyPhaseHeuristic(yearly)
	panel.Phase, panel.PhaseDE = phase.EN, phase.DE
	panel.Confidence = confidence
	contrib.Methods = append(contrib.Methods, "Phasenklassifikation (Wachstumsmuster-Heuristik)")
	if fitTotal >= minPatentsForFit {
		contrib.Warnings = append(contrib.Warnings, "S-Curve-Fit fehlgeschlagen — Fallback auf Heuristik")
	}
	return panel, contrib
}

// growthRate computes the CAGR between the first and last non-zero years
// of the fit window over their calendar span.
func (e *MaturityEngine) growthRate(years, counts []int, contrib *Contribution) float64 {
	firstYear, lastYear := 0, 0
	firstCount, lastCount := 0, 0
	nonZero := 0
	for i, c := range counts {
		if c <= 0 {
			continue
		}
		if nonZero == 0 {
			firstYear, firstCount = years[i], c
		}
		lastYear, lastCount = years[i], c
		nonZero++
	}
	if nonZero < 2 {
		return 0
	}
	span := lastYear - firstYear
	contrib.Methods = append(contrib.Methods, fmt.Sprintf("CAGR ueber %d Jahre", span))
	return metrics.CAGR(float64(firstCount), float64(lastCount), span)
}
