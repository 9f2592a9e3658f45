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

const (
	geoCityLimit            = 50
	geoPairLimit            = 30
	crossBorderMinCountries = 3
)

// GeographicEngine maps where a technology's activity sits: country and
// city distributions plus cross-border collaboration intensity.
type GeographicEngine struct {
	data DataContext
	log  logging.Logger
}

func NewGeographicEngine(data DataContext, logger logging.Logger) *GeographicEngine {
	return &GeographicEngine{data: data, log: logger.Named("geographic")}
}

func (e *GeographicEngine) Build(ctx context.Context, q Query) (*radartypes.GeographicPanel, Contribution) {
	var contrib Contribution

	var (
		patentCountries    []radar.CountryCount
		applicantCountries []radar.CountryCount
		cordisCountries    []radar.CountryCount
		cities             []radar.CityCount
		pairs              []radar.PairCount
		crossBorder        float64

		patentErr, cordisErr error
	)

	g := new(errgroup.Group)
	if e.data.Patents != nil {
		patentEnd, clampWarnings := effectivePatentEndYear(ctx, e.data.Patents, q.EndYear, e.log)
		contrib.Warnings = append(contrib.Warnings, clampWarnings...)
		g.Go(func() error {
			rows, err := e.data.Patents.CountByCountry(ctx, q.Technology, q.StartYear, patentEnd)
			if err != nil {
				patentErr = err
				return nil
			}
			patentCountries = rows
			rows, err = e.data.Patents.CountByApplicantCountry(ctx, q.Technology, q.StartYear, patentEnd)
			if err != nil {
				patentErr = err
				return nil
			}
			applicantCountries = rows
			return nil
		})
	}
	if e.data.Projects != nil {
		g.Go(func() error {
			rows, err := e.data.Projects.CountByCountry(ctx, q.Technology, q.StartYear, q.EndYear)
			if err != nil {
				cordisErr = err
				return nil
			}
			cordisCountries = rows
			cityRows, err := e.data.Projects.OrganizationsByCity(ctx, q.Technology, q.StartYear, q.EndYear, geoCityLimit)
			if err != nil {
				cordisErr = err
				return nil
			}
			cities = cityRows
			pairRows, err := e.data.Projects.CountryCollaborationPairs(ctx, q.Technology, q.StartYear, q.EndYear, geoPairLimit)
			if err != nil {
				cordisErr = err
				return nil
			}
			pairs = pairRows
			share, err := e.data.Projects.CrossBorderShare(ctx, q.Technology, q.StartYear, q.EndYear, crossBorderMinCountries)
			if err != nil {
				cordisErr = err
				return nil
			}
			crossBorder = share
			return nil
		})
	}
	_ = g.Wait()

	if patentErr != nil {
		e.log.Warn("geographic patent leg failed", logging.Err(patentErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Patent-Geo-Abfrage fehlgeschlagen: %v", patentErr))
	}
	if cordisErr != nil {
		e.log.Warn("geographic cordis leg failed", logging.Err(cordisErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("CORDIS-Geo-Abfrage fehlgeschlagen: %v", cordisErr))
	}
	if patentErr == nil && (len(patentCountries) > 0 || len(applicantCountries) > 0) {
		contrib.Sources = append(contrib.Sources, sourcePatents)
	}
	if cordisErr == nil && len(cordisCountries) > 0 {
		contrib.Sources = append(contrib.Sources, sourceProjects)
	}

	// Applicant residence beats filing office when available: it answers
	// "who innovates where", not "where was it filed".
	countrySource := applicantCountries
	if len(countrySource) == 0 {
		countrySource = patentCountries
	}

	panel := radartypes.EmptyGeographicPanel()
	panel.CountryDistribution = metrics.MergeCountryData(countryMap(countrySource), countryMap(cordisCountries), 0)
	panel.TotalCountries = len(panel.CountryDistribution)
	panel.TotalCities = len(cities)
	panel.CrossBorderShare = round4(crossBorder)

	for _, c := range cities {
		panel.CityDistribution = append(panel.CityDistribution, radartypes.CityCount{
			City:          c.City,
			Country:       c.Country,
			Organizations: c.Count,
		})
	}
	for _, p := range pairs {
		panel.CollaborationPairs = append(panel.CollaborationPairs, radartypes.CountryPair{
			CountryA:      p.A,
			CountryB:      p.B,
			JointProjects: p.Count,
		})
	}

	contrib.Methods = append(contrib.Methods,
		"Laender-Aggregation (Patent-Anmeldelaender + CORDIS-Organisationsstandorte)")
	if len(pairs) > 0 {
		contrib.Methods = append(contrib.Methods,
			"Laender-Kooperationspaare (CORDIS-Projektpartner)")
	}
	return panel, contrib
}
