package panels

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/metrics"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

const (
	paperSampleLimit = 200
	topPaperLimit    = 10
	topVenueLimit    = 8
)

// ResearchImpactEngine derives topic-level bibliometrics from the most
// relevant papers: h-index, citation trend, top papers and venues.
type ResearchImpactEngine struct {
	data DataContext
	log  logging.Logger
}

func NewResearchImpactEngine(data DataContext, logger logging.Logger) *ResearchImpactEngine {
	return &ResearchImpactEngine{data: data, log: logger.Named("research")}
}

func (e *ResearchImpactEngine) Build(ctx context.Context, q Query) (*radartypes.ResearchImpactPanel, Contribution) {
	var contrib Contribution

	if e.data.Papers == nil {
		return radartypes.EmptyResearchImpactPanel(), contrib
	}

	papers, err := e.data.Papers.SearchPapers(ctx, q.Technology, q.StartYear, q.EndYear, paperSampleLimit)
	if err != nil {
		e.log.Warn("paper search failed", logging.Err(err))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Semantic Scholar Abfrage fehlgeschlagen: %v", err))
		return radartypes.EmptyResearchImpactPanel(), contrib
	}
	if len(papers) == 0 {
		return radartypes.EmptyResearchImpactPanel(), contrib
	}
	contrib.Sources = append(contrib.Sources, sourcePapers)

	citations := make([]int, len(papers))
	totalCitations, totalInfluential := 0, 0
	for i, p := range papers {
		citations[i] = p.CitationCount
		totalCitations += p.CitationCount
		totalInfluential += p.InfluentialCitationCount
	}

	panel := radartypes.EmptyResearchImpactPanel()
	panel.HIndex = metrics.HIndex(citations)
	panel.TotalPapers = len(papers)
	panel.AvgCitations = round1(float64(totalCitations) / float64(len(papers)))
	if totalCitations > 0 {
		panel.InfluentialRatio = round4(float64(totalInfluential) / float64(totalCitations))
	}

	type yearTally struct{ citations, papers int }
	byYear := make(map[int]*yearTally)
	for _, p := range papers {
		if p.Year == 0 {
			continue
		}
		t := byYear[p.Year]
		if t == nil {
			t = &yearTally{}
			byYear[p.Year] = t
		}
		t.citations += p.CitationCount
		t.papers++
	}
	for _, year := range sortedYears(byYear) {
		panel.CitationTrend = append(panel.CitationTrend, radartypes.CitationYear{
			Year:       year,
			Citations:  byYear[year].citations,
			PaperCount: byYear[year].papers,
		})
	}

	// Stable sort keeps the upstream relevance order among equally cited
	// papers.
	ordered := make([]int, len(papers))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return papers[ordered[a]].CitationCount > papers[ordered[b]].CitationCount
	})
	for _, idx := range ordered[:min(topPaperLimit, len(ordered))] {
		p := papers[idx]
		panel.TopPapers = append(panel.TopPapers, radartypes.PaperSummary{
			Title:        p.Title,
			Venue:        p.Venue,
			Year:         p.Year,
			Citations:    p.CitationCount,
			AuthorsShort: authorsShort(p.Authors),
		})
	}

	venueCounts := make(map[string]int)
	venueTotal := 0
	for _, p := range papers {
		if p.Venue == "" {
			continue
		}
		venueCounts[p.Venue]++
		venueTotal++
	}
	for _, v := range rankByCount(venueCounts)[:min(topVenueLimit, len(venueCounts))] {
		panel.TopVenues = append(panel.TopVenues, radartypes.VenueCount{
			Venue: v.Name,
			Count: v.Count,
			Share: round4(float64(v.Count) / float64(venueTotal)),
		})
	}

	typeCounts := make(map[string]int)
	for _, p := range papers {
		for _, t := range p.PublicationTypes {
			if t == "" {
				continue
			}
			typeCounts[t]++
		}
	}
	for _, t := range rankByCount(typeCounts) {
		panel.PublicationTypes = append(panel.PublicationTypes, radartypes.TypeCount{
			Type:  t.Name,
			Count: t.Count,
		})
	}

	contrib.Methods = append(contrib.Methods,
		"h-Index (Hirsch 2005; Banks 2006 — Topic-Level-Adaption)",
		fmt.Sprintf("Stichprobe: %d Papers (Semantic Scholar Top-200)", len(papers)),
		"Influential Citations (Valenzuela et al. 2015 — experimentell)")
	if len(papers) >= paperSampleLimit {
		contrib.Warnings = append(contrib.Warnings,
			"h-Index basiert auf Top-200 relevantesten Papers — Approximation, kein vollstaendiger Korpus (Banks 2006)")
	}
	return panel, contrib
}

func authorsShort(names []string) string {
	if len(names) == 0 {
		return ""
	}
	short := strings.Join(names[:min(3, len(names))], ", ")
	if len(names) > 3 {
		short += " et al."
	}
	return short
}
