package panels_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

func samplePapers() []radar.Paper {
	return []radar.Paper{
		{
			Title:                    "Quantum supremacy using a programmable processor",
			Year:                     2019,
			CitationCount:            10,
			InfluentialCitationCount: 2,
			Venue:                    "Nature",
			Authors:                  []string{"Frank Arute", "Kunal Arya", "Ryan Babbush", "Dave Bacon"},
			PublicationTypes:         []string{"JournalArticle"},
		},
		{
			Title:                    "Error mitigation on noisy hardware",
			Year:                     2019,
			CitationCount:            5,
			InfluentialCitationCount: 1,
			Venue:                    "PRX Quantum",
			Authors:                  []string{"Abhinav Kandala", "Kristan Temme"},
			PublicationTypes:         []string{"JournalArticle", "Review"},
		},
		{
			Title:         "Variational eigensolver benchmarks",
			Year:          2021,
			CitationCount: 5,
			Venue:         "PRX Quantum",
			Authors:       []string{"Jules Tilly"},
		},
		{
			Title:                    "Topological qubit roadmap",
			CitationCount:            4,
			InfluentialCitationCount: 1,
			PublicationTypes:         []string{"Conference"},
		},
		{
			Title:            "Cryogenic control stacks",
			Year:             2022,
			CitationCount:    3,
			Venue:            "Nature",
			PublicationTypes: []string{"JournalArticle"},
		},
	}
}

func TestResearchImpactEngine_ComputesBibliometrics(t *testing.T) {
	stub := &stubPapers{papers: samplePapers()}
	engine := panels.NewResearchImpactEngine(panels.DataContext{Papers: stub}, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	assert.Equal(t, 200, stub.gotLimit)
	assert.Equal(t, 4, panel.HIndex)
	assert.Equal(t, 5, panel.TotalPapers)
	assert.InDelta(t, 5.4, panel.AvgCitations, 1e-9)
	assert.InDelta(t, 0.1481, panel.InfluentialRatio, 1e-9)

	// The undated roadmap paper stays out of the trend.
	assert.Equal(t, []radartypes.CitationYear{
		{Year: 2019, Citations: 15, PaperCount: 2},
		{Year: 2021, Citations: 5, PaperCount: 1},
		{Year: 2022, Citations: 3, PaperCount: 1},
	}, panel.CitationTrend)

	require.Len(t, panel.TopPapers, 5)
	assert.Equal(t, radartypes.PaperSummary{
		Title:        "Quantum supremacy using a programmable processor",
		Venue:        "Nature",
		Year:         2019,
		Citations:    10,
		AuthorsShort: "Frank Arute, Kunal Arya, Ryan Babbush et al.",
	}, panel.TopPapers[0])
	// Equal citation counts keep the upstream relevance order.
	assert.Equal(t, "Error mitigation on noisy hardware", panel.TopPapers[1].Title)
	assert.Equal(t, "Abhinav Kandala, Kristan Temme", panel.TopPapers[1].AuthorsShort)
	assert.Equal(t, "Variational eigensolver benchmarks", panel.TopPapers[2].Title)
	assert.Empty(t, panel.TopPapers[3].AuthorsShort)

	assert.Equal(t, []radartypes.VenueCount{
		{Venue: "Nature", Count: 2, Share: 0.5},
		{Venue: "PRX Quantum", Count: 2, Share: 0.5},
	}, panel.TopVenues)

	assert.Equal(t, []radartypes.TypeCount{
		{Type: "JournalArticle", Count: 3},
		{Type: "Conference", Count: 1},
		{Type: "Review", Count: 1},
	}, panel.PublicationTypes)

	assert.Equal(t, []string{"Semantic Scholar Academic Graph API"}, contrib.Sources)
	assert.Equal(t, []string{
		"h-Index (Hirsch 2005; Banks 2006 — Topic-Level-Adaption)",
		"Stichprobe: 5 Papers (Semantic Scholar Top-200)",
		"Influential Citations (Valenzuela et al. 2015 — experimentell)",
	}, contrib.Methods)
	assert.Empty(t, contrib.Warnings)
}

func TestResearchImpactEngine_FullSampleWarnsApproximation(t *testing.T) {
	stub := &stubPapers{}
	for i := 0; i < 200; i++ {
		stub.papers = append(stub.papers, radar.Paper{
			Title:         fmt.Sprintf("Paper %d", i),
			Year:          2019,
			CitationCount: 200 - i,
		})
	}
	engine := panels.NewResearchImpactEngine(panels.DataContext{Papers: stub}, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	assert.Equal(t, 100, panel.HIndex)
	assert.Equal(t, 200, panel.TotalPapers)
	assert.Equal(t, []string{
		"h-Index basiert auf Top-200 relevantesten Papers — Approximation, kein vollstaendiger Korpus (Banks 2006)",
	}, contrib.Warnings)
}

func TestResearchImpactEngine_SearchFailureDegrades(t *testing.T) {
	stub := &stubPapers{err: errors.New("s2 rate limit")}
	engine := panels.NewResearchImpactEngine(panels.DataContext{Papers: stub}, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	assert.Equal(t, radartypes.EmptyResearchImpactPanel(), panel)
	assert.Equal(t, []string{"Semantic Scholar Abfrage fehlgeschlagen: s2 rate limit"}, contrib.Warnings)
	assert.Empty(t, contrib.Sources)
	assert.Empty(t, contrib.Methods)
}

func TestResearchImpactEngine_NoClientStaysSilent(t *testing.T) {
	engine := panels.NewResearchImpactEngine(panels.DataContext{}, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	assert.Equal(t, radartypes.EmptyResearchImpactPanel(), panel)
	assert.Empty(t, contrib.Warnings)
	assert.Empty(t, contrib.Sources)
	assert.Empty(t, contrib.Methods)
}

func TestResearchImpactEngine_EmptyCorpusStaysSilent(t *testing.T) {
	engine := panels.NewResearchImpactEngine(panels.DataContext{Papers: &stubPapers{}}, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	assert.Equal(t, radartypes.EmptyResearchImpactPanel(), panel)
	assert.Empty(t, contrib.Warnings)
	assert.Empty(t, contrib.Sources)
}
