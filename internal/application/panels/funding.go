package panels

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/metrics"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// FundingEngine aggregates EU project funding: totals, growth, programme
// split, and the per-instrument breakdown. CORDIS is its only source.
type FundingEngine struct {
	data DataContext
	log  logging.Logger
}

func NewFundingEngine(data DataContext, logger logging.Logger) *FundingEngine {
	return &FundingEngine{data: data, log: logger.Named("funding")}
}

func (e *FundingEngine) Build(ctx context.Context, q Query) (*radartypes.FundingPanel, Contribution) {
	var contrib Contribution

	if e.data.Projects == nil {
		contrib.Warnings = append(contrib.Warnings, warnNoFundingStore)
		return radartypes.EmptyFundingPanel(), contrib
	}

	// Completeness is only flagged, never clamped: committed funding of a
	// partially indexed year is still real money.
	_, clampWarnings := effectiveProjectEndYear(ctx, e.data.Projects, q.EndYear, e.log)
	contrib.Warnings = append(contrib.Warnings, clampWarnings...)

	var (
		fundingYears []radar.FundingYearRow
		byProgramme  []radar.ProgrammeFundingRow
		byYearProg   []radar.ProgrammeYearRow
		instruments  []radar.InstrumentRow

		yearsErr, progErr, yearProgErr, instErr error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		fundingYears, yearsErr = e.data.Projects.FundingByYear(ctx, q.Technology, q.StartYear, q.EndYear)
		return nil
	})
	g.Go(func() error {
		byProgramme, progErr = e.data.Projects.FundingByProgramme(ctx, q.Technology, q.StartYear, q.EndYear, 0)
		return nil
	})
	g.Go(func() error {
		byYearProg, yearProgErr = e.data.Projects.FundingByYearAndProgramme(ctx, q.Technology, q.StartYear, q.EndYear)
		return nil
	})
	g.Go(func() error {
		instruments, instErr = e.data.Projects.FundingByInstrument(ctx, q.Technology, q.StartYear, q.EndYear)
		return nil
	})
	_ = g.Wait()

	if yearsErr != nil {
		e.log.Warn("funding series query failed", logging.Err(yearsErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Foerder-Zeitreihe fehlgeschlagen: %v", yearsErr))
	} else {
		contrib.Sources = append(contrib.Sources, sourceProjects)
	}
	if progErr != nil {
		e.log.Warn("programme query failed", logging.Err(progErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Programm-Abfrage fehlgeschlagen: %v", progErr))
	}
	if yearProgErr != nil {
		e.log.Warn("programme series query failed", logging.Err(yearProgErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Programm-Zeitreihe fehlgeschlagen: %v", yearProgErr))
	}
	if instErr != nil {
		// The instrument breakdown is decoration, not a headline number.
		e.log.Warn("instrument query failed", logging.Err(instErr))
	}

	var totalFunding float64
	var totalProjects int
	for _, row := range fundingYears {
		totalFunding += row.Funding
		totalProjects += row.Projects
	}
	avgSize := 0.0
	if totalProjects > 0 {
		avgSize = totalFunding / float64(totalProjects)
	}

	fundingCAGR, period := e.fundingGrowth(fundingYears, &contrib)

	panel := radartypes.EmptyFundingPanel()
	panel.TotalFundingEUR = round2(totalFunding)
	panel.FundingCAGR = round2(fundingCAGR)
	panel.FundingCAGRPeriod = period
	panel.AvgProjectSize = round2(avgSize)

	for _, row := range byProgramme {
		panel.ByProgramme = append(panel.ByProgramme, radartypes.ProgrammeFunding{
			Programme: programmeName(row.Programme),
			Funding:   round2(row.Funding),
			Projects:  row.Projects,
		})
	}
	for _, row := range fundingYears {
		panel.TimeSeries = append(panel.TimeSeries, radartypes.FundingYear{
			Year:     row.Year,
			Funding:  round2(row.Funding),
			Projects: row.Projects,
		})
	}
	for _, row := range byYearProg {
		panel.TimeSeriesByProgramme = append(panel.TimeSeriesByProgramme, radartypes.ProgrammeYear{
			Year:      row.Year,
			Programme: programmeName(row.Programme),
			Funding:   round2(row.Funding),
			Projects:  row.Projects,
		})
	}
	for _, row := range instruments {
		panel.InstrumentBreakdown = append(panel.InstrumentBreakdown, radartypes.InstrumentCount{
			Scheme:  row.Scheme,
			Year:    row.Year,
			Count:   row.Count,
			Funding: round2(row.Funding),
		})
	}

	contrib.Methods = append(contrib.Methods,
		"EU-Foerderdaten-Aggregation (FP7, H2020, Horizon Europe)")
	return panel, contrib
}

// fundingGrowth computes the CAGR between the first and last year with
// non-zero funding over their calendar span.
func (e *FundingEngine) fundingGrowth(rows []radar.FundingYearRow, contrib *Contribution) (float64, string) {
	var nonZero []radar.FundingYearRow
	for _, row := range rows {
		if row.Funding > 0 {
			nonZero = append(nonZero, row)
		}
	}
	if len(nonZero) < 2 {
		return 0, ""
	}
	first, last := nonZero[0], nonZero[len(nonZero)-1]
	span := last.Year - first.Year
	contrib.Methods = append(contrib.Methods, fmt.Sprintf("Foerder-CAGR ueber %d Jahre", span))
	return metrics.CAGR(first.Funding, last.Funding, span), fmt.Sprintf("%d–%d", first.Year, last.Year)
}

func programmeName(p string) string {
	if p == "" {
		return "UNKNOWN"
	}
	return p
}
