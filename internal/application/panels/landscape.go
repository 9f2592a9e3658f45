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

const landscapeCountryLimit = 20

// LandscapeEngine aggregates the yearly activity volume across all three
// data legs: patents, EU projects, and scholarly publications.
type LandscapeEngine struct {
	data DataContext
	log  logging.Logger
}

func NewLandscapeEngine(data DataContext, logger logging.Logger) *LandscapeEngine {
	return &LandscapeEngine{data: data, log: logger.Named("landscape")}
}

// Build runs the five volume queries concurrently and merges them into a
// zero-filled [start, end] time series with YoY growth from the second
// year on. Failed legs become warnings; the series is produced either way.
func (e *LandscapeEngine) Build(ctx context.Context, q Query) (*radartypes.LandscapePanel, Contribution) {
	var contrib Contribution

	var (
		patentYears      []radar.YearCount
		patentCountries  []radar.CountryCount
		projectYears     []radar.YearCount
		projectCountries []radar.CountryCount
		publicationYears map[int]int
	)

	type namedTask struct {
		name string
		run  func() error
	}
	var tasks []namedTask

	if e.data.Patents != nil {
		patentEnd, clampWarnings := effectivePatentEndYear(ctx, e.data.Patents, q.EndYear, e.log)
		contrib.Warnings = append(contrib.Warnings, clampWarnings...)
		tasks = append(tasks,
			namedTask{"patent_years", func() error {
				rows, err := e.data.Patents.CountByYear(ctx, q.Technology, q.StartYear, patentEnd)
				patentYears = rows
				return err
			}},
			namedTask{"patent_countries", func() error {
				rows, err := e.data.Patents.CountByCountry(ctx, q.Technology, q.StartYear, patentEnd)
				patentCountries = rows
				return err
			}},
		)
	} else {
		contrib.Warnings = append(contrib.Warnings, warnNoPatentStore)
	}

	if e.data.Projects != nil {
		tasks = append(tasks,
			namedTask{"project_years", func() error {
				rows, err := e.data.Projects.CountByYear(ctx, q.Technology, q.StartYear, q.EndYear)
				projectYears = rows
				return err
			}},
			namedTask{"project_countries", func() error {
				rows, err := e.data.Projects.CountByCountry(ctx, q.Technology, q.StartYear, q.EndYear)
				projectCountries = rows
				return err
			}},
		)
	} else {
		contrib.Warnings = append(contrib.Warnings, warnNoProjectStore)
	}

	if e.data.Publications != nil {
		tasks = append(tasks, namedTask{"publication_years", func() error {
			counts, err := e.data.Publications.CountByYear(ctx, q.Technology, q.StartYear, q.EndYear)
			publicationYears = counts
			return err
		}})
	}

	// Each task owns its result slot; errors surface after the wait so
	// warnings keep the task registration order.
	taskErrs := make([]error, len(tasks))
	g := new(errgroup.Group)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			taskErrs[i] = t.run()
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range tasks {
		if taskErrs[i] == nil {
			continue
		}
		e.log.Warn("landscape leg failed",
			logging.String("query", t.name), logging.Err(taskErrs[i]))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Query '%s' fehlgeschlagen: %v", t.name, taskErrs[i]))
	}

	panel := radartypes.EmptyLandscapePanel()

	if len(patentYears) > 0 || len(patentCountries) > 0 {
		contrib.Sources = append(contrib.Sources, sourcePatents)
		for _, r := range patentYears {
			panel.TotalPatents += r.Count
		}
	}
	if len(projectYears) > 0 || len(projectCountries) > 0 {
		contrib.Sources = append(contrib.Sources, sourceProjects)
		for _, r := range projectYears {
			panel.TotalProjects += r.Count
		}
	}
	if len(publicationYears) > 0 {
		contrib.Sources = append(contrib.Sources, sourcePublications)
		for _, c := range publicationYears {
			panel.TotalPublications += c
		}
	}

	contrib.Methods = append(contrib.Methods, "FTS5-Volltextsuche", "Jaehrliche Aggregation")
	if len(publicationYears) > 0 {
		contrib.Methods = append(contrib.Methods, "Normalisierte Wachstumsraten (YoY %)")
	}

	patentMap := make(map[int]int, len(patentYears))
	for _, r := range patentYears {
		patentMap[r.Year] = r.Count
	}
	projectMap := make(map[int]int, len(projectYears))
	for _, r := range projectYears {
		projectMap[r.Year] = r.Count
	}

	panel.TimeSeries = mergeLandscapeSeries(patentMap, projectMap, publicationYears, q.StartYear, q.EndYear)
	panel.TopCountries = metrics.MergeCountryData(
		countryMap(patentCountries), countryMap(projectCountries), landscapeCountryLimit)

	return panel, contrib
}

func mergeLandscapeSeries(patents, projects, publications map[int]int, startYear, endYear int) []radartypes.LandscapeYear {
	if endYear < startYear {
		return []radartypes.LandscapeYear{}
	}
	series := make([]radartypes.LandscapeYear, 0, endYear-startYear+1)
	for year := startYear; year <= endYear; year++ {
		entry := radartypes.LandscapeYear{
			Year:         year,
			Patents:      patents[year],
			Projects:     projects[year],
			Publications: publications[year],
		}
		if year > startYear {
			entry.PatentGrowth = metrics.YoYGrowth(patents[year-1], entry.Patents)
			entry.ProjectGrowth = metrics.YoYGrowth(projects[year-1], entry.Projects)
			entry.PublicationGrowth = metrics.YoYGrowth(publications[year-1], entry.Publications)
		}
		series = append(series, entry)
	}
	return series
}
