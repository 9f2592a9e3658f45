package panels

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

const (
	temporalActorLimit    = 20
	temporalOrgLimit      = 200
	temporalTimelineLimit = 10
)

// TemporalEngine tracks who enters and who stays: per-year actor churn,
// programme evolution, and how broad the technology's CPC footprint is.
type TemporalEngine struct {
	data DataContext
	log  logging.Logger
}

func NewTemporalEngine(data DataContext, logger logging.Logger) *TemporalEngine {
	return &TemporalEngine{data: data, log: logger.Named("temporal")}
}

func (e *TemporalEngine) Build(ctx context.Context, q Query) (*radartypes.TemporalPanel, Contribution) {
	var contrib Contribution

	var (
		applicantRows []radar.ActorYearCount
		cpcRows       []radar.CPCRow
		orgRows       []radar.ActorYearCount
		instruments   []radar.InstrumentRow

		patentErr, cordisErr error
	)
	g := new(errgroup.Group)
	if e.data.Patents != nil {
		patentEnd, clampWarnings := effectivePatentEndYear(ctx, e.data.Patents, q.EndYear, e.log)
		contrib.Warnings = append(contrib.Warnings, clampWarnings...)
		g.Go(func() error {
			rows, err := e.data.Patents.TopApplicantsByYear(ctx, q.Technology, q.StartYear, patentEnd, temporalActorLimit)
			if err != nil {
				patentErr = err
				return nil
			}
			applicantRows = rows
			codes, err := e.data.Patents.CPCCodesWithYears(ctx, q.Technology, q.StartYear, patentEnd, cpcFetchCap)
			if err != nil {
				patentErr = err
				return nil
			}
			cpcRows = codes
			return nil
		})
	}
	if e.data.Projects != nil {
		g.Go(func() error {
			rows, err := e.data.Projects.OrganizationsByYear(ctx, q.Technology, q.StartYear, q.EndYear, temporalOrgLimit)
			if err != nil {
				cordisErr = err
				return nil
			}
			orgRows = rows
			inst, err := e.data.Projects.FundingByInstrument(ctx, q.Technology, q.StartYear, q.EndYear)
			if err != nil {
				cordisErr = err
				return nil
			}
			instruments = inst
			return nil
		})
	}
	_ = g.Wait()

	if patentErr != nil {
		e.log.Warn("temporal patent leg failed", logging.Err(patentErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Patent-Temporal fehlgeschlagen: %v", patentErr))
	}
	if cordisErr != nil {
		e.log.Warn("temporal cordis leg failed", logging.Err(cordisErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("CORDIS-Temporal fehlgeschlagen: %v", cordisErr))
	}

	// Rows fetched before a leg's failure still count.
	actorsByYear := make(map[int]map[string]int)
	mergeActors := func(rows []radar.ActorYearCount) {
		for _, row := range rows {
			name := upperName(row.Name)
			if actorsByYear[row.Year] == nil {
				actorsByYear[row.Year] = make(map[string]int)
			}
			actorsByYear[row.Year][name] += row.Count
		}
	}
	mergeActors(applicantRows)
	if patentErr == nil && len(applicantRows) > 0 {
		contrib.Sources = append(contrib.Sources, sourcePatents)
	}
	mergeActors(orgRows)
	if cordisErr == nil && len(orgRows) > 0 {
		contrib.Sources = append(contrib.Sources, sourceProjects)
	}

	cpcByYear := make(map[int][]string)
	for _, row := range cpcRows {
		cpcByYear[row.Year] = append(cpcByYear[row.Year], row.Codes)
	}

	panel := radartypes.EmptyTemporalPanel()
	panel.EntrantPersistenceTrend = actorDynamics(actorsByYear)
	panel.TechnologyBreadth = technologyBreadth(cpcByYear)
	panel.ActorTimeline = actorTimeline(actorsByYear, temporalTimelineLimit)
	panel.ProgrammeEvolution = programmeEvolution(instruments)
	panel.DominantProgramme = dominantProgramme(instruments)
	for _, row := range instruments {
		panel.InstrumentEvolution = append(panel.InstrumentEvolution, radartypes.InstrumentCount{
			Scheme:  row.Scheme,
			Year:    row.Year,
			Count:   row.Count,
			Funding: round2(row.Funding),
		})
	}
	if n := len(panel.EntrantPersistenceTrend); n > 0 {
		latest := panel.EntrantPersistenceTrend[n-1]
		panel.NewEntrantRate = latest.NewEntrantRate
		panel.PersistenceRate = latest.PersistenceRate
	}

	contrib.Methods = append(contrib.Methods, "Akteur-Dynamik (New Entrant Rate, Persistence Rate)")
	if len(panel.TechnologyBreadth) > 0 {
		contrib.Methods = append(contrib.Methods,
			"Technologie-Breite (einzigartige CPC-Sektionen pro Jahr)")
	}
	return panel, contrib
}

// actorDynamics derives the per-year entrant and persistence rates. The
// first active year is all entrants by definition.
func actorDynamics(actorsByYear map[int]map[string]int) []radartypes.EntrantYear {
	years := sortedYears(actorsByYear)
	trend := make([]radartypes.EntrantYear, 0, len(years))
	var prev map[string]int
	for _, year := range years {
		current := actorsByYear[year]
		entry := radartypes.EntrantYear{Year: year, TotalActors: len(current)}
		if len(prev) == 0 {
			entry.NewEntrantRate = 1.0
		} else {
			entrants, persisting := 0, 0
			for name := range current {
				if _, known := prev[name]; known {
					persisting++
				} else {
					entrants++
				}
			}
			if len(current) > 0 {
				entry.NewEntrantRate = round4(float64(entrants) / float64(len(current)))
			}
			entry.PersistenceRate = round4(float64(persisting) / float64(len(prev)))
		}
		trend = append(trend, entry)
		prev = current
	}
	return trend
}

// technologyBreadth counts distinct CPC sections and subclasses per year
// from the raw comma-joined code strings.
func technologyBreadth(cpcByYear map[int][]string) []radartypes.BreadthYear {
	years := sortedYears(cpcByYear)
	breadth := make([]radartypes.BreadthYear, 0, len(years))
	for _, year := range years {
		sections := make(map[string]struct{})
		subclasses := make(map[string]struct{})
		for _, raw := range cpcByYear[year] {
			for _, part := range strings.Split(raw, ",") {
				code := strings.TrimSpace(part)
				if code == "" {
					continue
				}
				sections[code[:1]] = struct{}{}
				if len(code) >= 4 {
					subclasses[code[:4]] = struct{}{}
				}
			}
		}
		breadth = append(breadth, radartypes.BreadthYear{
			Year:                year,
			UniqueCPCSections:   len(sections),
			UniqueCPCSubclasses: len(subclasses),
		})
	}
	return breadth
}

// actorTimeline ranks actors by total activity and lists their active
// years in order.
func actorTimeline(actorsByYear map[int]map[string]int, limit int) []radartypes.ActorTimeline {
	totals := make(map[string]int)
	activeYears := make(map[string][]int)
	for year, actors := range actorsByYear {
		for name, count := range actors {
			totals[name] += count
			activeYears[name] = append(activeYears[name], year)
		}
	}

	ranked := rankByCount(totals)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	timeline := make([]radartypes.ActorTimeline, 0, len(ranked))
	for _, r := range ranked {
		years := activeYears[r.Name]
		sort.Ints(years)
		timeline = append(timeline, radartypes.ActorTimeline{
			Name:        r.Name,
			YearsActive: years,
			TotalCount:  r.Count,
		})
	}
	return timeline
}

// programmeEvolution pivots instrument rows into one object per year with
// a key per funding scheme.
func programmeEvolution(rows []radar.InstrumentRow) []map[string]interface{} {
	byYear := make(map[int]map[string]int)
	for _, row := range rows {
		if byYear[row.Year] == nil {
			byYear[row.Year] = make(map[string]int)
		}
		byYear[row.Year][row.Scheme] += row.Count
	}

	years := sortedYears(byYear)
	evolution := make([]map[string]interface{}, 0, len(years))
	for _, year := range years {
		entry := map[string]interface{}{"year": year}
		for scheme, count := range byYear[year] {
			entry[scheme] = count
		}
		evolution = append(evolution, entry)
	}
	return evolution
}

func dominantProgramme(rows []radar.InstrumentRow) string {
	totals := make(map[string]int)
	for _, row := range rows {
		totals[row.Scheme] += row.Count
	}
	ranked := rankByCount(totals)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Name
}
