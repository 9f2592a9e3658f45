// Package panels implements the eight analytical engines behind a radar
// response: landscape, maturity, competitive, funding, CPC flow,
// geographic, research impact, and temporal dynamics.
//
// Engines share one contract: Build(ctx, Query) returns a typed panel and
// a Contribution, never an error. Missing stores, failed queries, and thin
// data all degrade into German warning strings so a single broken leg
// never takes down the whole radar. Inner queries of an engine run
// concurrently; failures are tolerated per leg and surface in a fixed
// order so responses stay byte-stable across runs.
package panels

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
)

// Data source labels as they appear in the explainability block.
const (
	sourcePatents      = "EPO DOCDB (lokal)"
	sourceProjects     = "CORDIS (lokal)"
	sourcePublications = "OpenAIRE (API)"
	sourcePapers       = "Semantic Scholar Academic Graph API"
)

// Degradation warnings for absent stores.
const (
	warnNoPatentStore  = "Patent-DB nicht verfuegbar — keine Patentdaten"
	warnNoProjectStore = "CORDIS-DB nicht verfuegbar — keine Projektdaten"
	warnNoFundingStore = "CORDIS-DB nicht verfuegbar — keine Foerderdaten"
	warnNoCPCStore     = "Patent-DB nicht verfuegbar — CPC-Analyse uebersprungen"
)

// Query is the normalized analysis window every engine receives. The
// orchestrator derives it from the HTTP request; years are inclusive.
type Query struct {
	Technology string
	StartYear  int
	EndYear    int
}

// Contribution is what an engine adds to the radar's explainability
// block: which sources answered, which methods ran, and what degraded.
type Contribution struct {
	Sources  []string
	Methods  []string
	Warnings []string
}

// DataContext groups the stores and API adapters an engine may draw on.
// Any field may be nil; engines degrade accordingly instead of failing.
type DataContext struct {
	Patents      radar.PatentStore
	Projects     radar.ProjectStore
	Publications radar.PublicationCounter
	Papers       radar.PaperSearcher
	Entities     radar.EntityResolver
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared helpers
// ─────────────────────────────────────────────────────────────────────────────

// effectivePatentEndYear clamps the analysis end to the patent store's
// last fully indexed year and emits the incompleteness warning. A failed
// probe is logged and leaves the requested year untouched.
func effectivePatentEndYear(ctx context.Context, patents radar.PatentStore, endYear int, log logging.Logger) (int, []string) {
	last, ok, err := patents.LastFullYear(ctx)
	if err != nil {
		log.Warn("patent last-full-year probe failed", logging.Err(err))
		return endYear, nil
	}
	if !ok || last >= endYear {
		return endYear, nil
	}
	warning := fmt.Sprintf("Patent-Daten bis %d vollstaendig (ab %d unvollstaendig)", last, last+1)
	return last, []string{warning}
}

// effectiveProjectEndYear is the CORDIS twin of effectivePatentEndYear.
func effectiveProjectEndYear(ctx context.Context, projects radar.ProjectStore, endYear int, log logging.Logger) (int, []string) {
	last, ok, err := projects.LastFullYear(ctx)
	if err != nil {
		log.Warn("cordis last-full-year probe failed", logging.Err(err))
		return endYear, nil
	}
	if !ok || last >= endYear {
		return endYear, nil
	}
	warning := fmt.Sprintf("CORDIS-Daten bis %d vollstaendig (ab %d unvollstaendig)", last, last+1)
	return last, []string{warning}
}

// upperName normalizes an actor name the way all panels merge on:
// upper-cased and trimmed, nothing else.
func upperName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// countryMap folds country rows into a name-to-count map for merging.
func countryMap(rows []radar.CountryCount) map[string]int {
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.Country] += r.Count
	}
	return m
}

// actorRank is one entry of a deterministic actor ranking.
type actorRank struct {
	Name  string
	Count int
}

// rankByCount orders actors by count descending, name ascending. Map
// iteration order must never leak into a response.
func rankByCount(counts map[string]int) []actorRank {
	ranked := make([]actorRank, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, actorRank{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func sortedYears[V any](m map[int]V) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
