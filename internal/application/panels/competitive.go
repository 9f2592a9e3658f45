package panels

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/metrics"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

const (
	competitiveActorLimit = 50
	topActorShareLimit    = 20
	networkEdgeQueryLimit = 200
	networkNodeLimit      = 40
	networkEdgeKeepLimit  = 100

	// GLEIF enrichment budget per radar request: at most 20 unresolved
	// names, at most 5 registry calls (the rest is cache-only).
	resolveNameCap    = 20
	resolveCallBudget = 5
)

// CompetitiveEngine measures actor concentration across patent applicants
// and CORDIS project organizations, including the co-participation
// network and the full ranked actor table.
type CompetitiveEngine struct {
	data DataContext
	log  logging.Logger
}

func NewCompetitiveEngine(data DataContext, logger logging.Logger) *CompetitiveEngine {
	return &CompetitiveEngine{data: data, log: logger.Named("competitive")}
}

func (e *CompetitiveEngine) Build(ctx context.Context, q Query) (*radartypes.CompetitivePanel, Contribution) {
	var contrib Contribution
	patentEnd := q.EndYear

	var (
		applicants           []radar.ActorCount
		orgs                 []radar.OrganizationRow
		patentErr, cordisErr error
	)
	g := new(errgroup.Group)
	if e.data.Patents != nil {
		var clampWarnings []string
		patentEnd, clampWarnings = effectivePatentEndYear(ctx, e.data.Patents, q.EndYear, e.log)
		contrib.Warnings = append(contrib.Warnings, clampWarnings...)
		g.Go(func() error {
			applicants, patentErr = e.data.Patents.TopApplicants(ctx, q.Technology, q.StartYear, patentEnd, competitiveActorLimit)
			return nil
		})
	}
	if e.data.Projects != nil {
		g.Go(func() error {
			orgs, cordisErr = e.data.Projects.TopOrganizationsWithCountry(ctx, q.Technology, q.StartYear, q.EndYear, competitiveActorLimit)
			return nil
		})
	}
	_ = g.Wait()

	if patentErr != nil {
		e.log.Warn("competitive patent query failed", logging.Err(patentErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("Patent-Abfrage fehlgeschlagen: %v", patentErr))
	}
	if cordisErr != nil {
		e.log.Warn("competitive cordis query failed", logging.Err(cordisErr))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("CORDIS-Abfrage fehlgeschlagen: %v", cordisErr))
	}

	patentActors := make(map[string]int, len(applicants))
	for _, a := range applicants {
		name := upperName(a.Name)
		if name == "" {
			continue
		}
		patentActors[name] += a.Count
	}
	if len(applicants) > 0 {
		contrib.Sources = append(contrib.Sources, sourcePatents)
	}

	cordisActors := make(map[string]int, len(orgs))
	countries := make(map[string]string, len(orgs))
	smeFlags := make(map[string]bool)
	coordinatorFlags := make(map[string]bool)
	for _, o := range orgs {
		name := upperName(o.Name)
		if name == "" {
			continue
		}
		cordisActors[name] += o.Count
		if o.Country != "" {
			countries[name] = o.Country
		}
		if o.IsSME {
			smeFlags[name] = true
		}
		if o.IsCoordinator {
			coordinatorFlags[name] = true
		}
	}
	if len(orgs) > 0 {
		contrib.Sources = append(contrib.Sources, sourceProjects)
	}

	totals := make(map[string]int, len(patentActors)+len(cordisActors))
	for name, count := range patentActors {
		totals[name] += count
	}
	for name, count := range cordisActors {
		totals[name] += count
	}
	if len(totals) == 0 {
		return radartypes.EmptyCompetitivePanel(), contrib
	}

	ranked := rankByCount(totals)
	totalActivity := 0
	for _, r := range ranked {
		totalActivity += r.Count
	}

	panel := radartypes.EmptyCompetitivePanel()
	for _, r := range ranked[:min(topActorShareLimit, len(ranked))] {
		panel.TopActors = append(panel.TopActors, radartypes.ActorShare{
			Name:  r.Name,
			Count: r.Count,
			Share: round4(float64(r.Count) / float64(totalActivity)),
		})
	}

	shares := make([]float64, 0, len(ranked))
	for _, r := range ranked {
		shares = append(shares, float64(r.Count)/float64(totalActivity))
	}
	hhi := metrics.HHI(shares)
	panel.HHIIndex = round1(hhi)
	levelEN, _ := metrics.ConcentrationLevel(hhi)
	panel.ConcentrationLevel = levelEN
	contrib.Methods = append(contrib.Methods, "HHI-Index (Herfindahl-Hirschman)")

	top3 := 0
	for _, r := range ranked[:min(3, len(ranked))] {
		top3 += r.Count
	}
	panel.Top3Share = round4(float64(top3) / float64(totalActivity))
	contrib.Methods = append(contrib.Methods,
		"Akteur-Aggregation (Patent-Anmelder + CORDIS-Organisationen)")

	nodes, edges, networkWarnings := e.buildNetwork(ctx, q, patentEnd, totals, patentActors, cordisActors, ranked)
	contrib.Warnings = append(contrib.Warnings, networkWarnings...)
	panel.NetworkNodes, panel.NetworkEdges = nodes, edges
	if len(edges) > 0 {
		contrib.Methods = append(contrib.Methods,
			"Co-Partizipation-Netzwerk (Patent-Co-Anmelder + CORDIS-Projektpartner)")
	}

	fullActors := make([]radartypes.ActorRow, 0, len(ranked))
	for i, r := range ranked {
		fullActors = append(fullActors, radartypes.ActorRow{
			Rank:          i + 1,
			Name:          r.Name,
			Patents:       patentActors[r.Name],
			Projects:      cordisActors[r.Name],
			Total:         r.Count,
			Share:         round4(float64(r.Count) / float64(totalActivity)),
			Country:       countries[r.Name],
			IsSME:         smeFlags[r.Name],
			IsCoordinator: coordinatorFlags[r.Name],
		})
	}
	e.enrichCountries(ctx, fullActors, &contrib)
	panel.FullActors = fullActors

	return panel, contrib
}

// buildNetwork merges patent co-applicant and CORDIS co-participation
// pairs into an undirected weighted graph restricted to the top actors.
func (e *CompetitiveEngine) buildNetwork(
	ctx context.Context, q Query, patentEnd int,
	totals, patentActors, cordisActors map[string]int, ranked []actorRank,
) ([]radartypes.NetworkNode, []radartypes.NetworkEdge, []string) {
	patentMembers := make(map[string]struct{}, len(patentActors))
	for name := range patentActors {
		patentMembers[name] = struct{}{}
	}
	cordisMembers := make(map[string]struct{}, len(cordisActors))
	for name := range cordisActors {
		cordisMembers[name] = struct{}{}
	}

	var (
		coApplicants, coParticipants []radar.PairCount
		patentEdgeErr, cordisEdgeErr error
	)
	g := new(errgroup.Group)
	if e.data.Patents != nil {
		g.Go(func() error {
			coApplicants, patentEdgeErr = e.data.Patents.CoApplicants(ctx, q.Technology, q.StartYear, patentEnd, networkEdgeQueryLimit)
			return nil
		})
	}
	if e.data.Projects != nil {
		g.Go(func() error {
			coParticipants, cordisEdgeErr = e.data.Projects.CoParticipation(ctx, q.Technology, q.StartYear, q.EndYear, networkEdgeQueryLimit)
			return nil
		})
	}
	_ = g.Wait()

	var warnings []string
	if patentEdgeErr != nil {
		e.log.Warn("co-applicant query failed", logging.Err(patentEdgeErr))
		warnings = append(warnings, fmt.Sprintf("Netzwerk Patent-Kanten fehlgeschlagen: %v", patentEdgeErr))
	}
	if cordisEdgeErr != nil {
		e.log.Warn("co-participation query failed", logging.Err(cordisEdgeErr))
		warnings = append(warnings, fmt.Sprintf("Netzwerk CORDIS-Kanten fehlgeschlagen: %v", cordisEdgeErr))
	}

	type pairKey struct{ a, b string }
	weights := make(map[pairKey]int)
	merge := func(pairs []radar.PairCount, members map[string]struct{}) {
		for _, p := range pairs {
			a, b := upperName(p.A), upperName(p.B)
			members[a] = struct{}{}
			members[b] = struct{}{}
			if b < a {
				a, b = b, a
			}
			weights[pairKey{a, b}] += p.Count
		}
	}
	merge(coApplicants, patentMembers)
	merge(coParticipants, cordisMembers)
	if len(weights) == 0 {
		return []radartypes.NetworkNode{}, []radartypes.NetworkEdge{}, warnings
	}

	topCut := min(networkNodeLimit, len(ranked))
	allowed := make(map[string]struct{}, topCut)
	for _, r := range ranked[:topCut] {
		allowed[r.Name] = struct{}{}
	}

	type weightedEdge struct {
		a, b   string
		weight int
	}
	filtered := make([]weightedEdge, 0, len(weights))
	for key, w := range weights {
		if _, ok := allowed[key.a]; !ok {
			continue
		}
		if _, ok := allowed[key.b]; !ok {
			continue
		}
		filtered = append(filtered, weightedEdge{key.a, key.b, w})
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].weight != filtered[j].weight {
			return filtered[i].weight > filtered[j].weight
		}
		if filtered[i].a != filtered[j].a {
			return filtered[i].a < filtered[j].a
		}
		return filtered[i].b < filtered[j].b
	})
	if len(filtered) > networkEdgeKeepLimit {
		filtered = filtered[:networkEdgeKeepLimit]
	}

	connected := make(map[string]struct{}, len(filtered)*2)
	edges := make([]radartypes.NetworkEdge, 0, len(filtered))
	for _, ed := range filtered {
		connected[ed.a] = struct{}{}
		connected[ed.b] = struct{}{}
		edges = append(edges, radartypes.NetworkEdge{Source: ed.a, Target: ed.b, Weight: ed.weight})
	}

	nodes := make([]radartypes.NetworkNode, 0, len(connected))
	for _, r := range ranked[:topCut] {
		if _, ok := connected[r.Name]; !ok {
			continue
		}
		nodes = append(nodes, radartypes.NetworkNode{
			ID:    r.Name,
			Name:  r.Name,
			Count: totals[r.Name],
			Type:  nodeType(r.Name, patentMembers, cordisMembers),
		})
	}
	return nodes, edges, warnings
}

func nodeType(name string, patentMembers, cordisMembers map[string]struct{}) string {
	_, inPatents := patentMembers[name]
	_, inCordis := cordisMembers[name]
	switch {
	case inPatents && inCordis:
		return "both"
	case inPatents:
		return "patent"
	default:
		return "cordis"
	}
}

// enrichCountries fills missing country codes in the ranked table from
// the LEI registry, top rows first. Resolver failures degrade into a
// warning; whatever resolved before the failure is still applied.
func (e *CompetitiveEngine) enrichCountries(ctx context.Context, rows []radartypes.ActorRow, contrib *Contribution) {
	if e.data.Entities == nil {
		return
	}
	var missing []string
	for _, row := range rows {
		if row.Country != "" {
			continue
		}
		missing = append(missing, row.Name)
		if len(missing) == resolveNameCap {
			break
		}
	}
	if len(missing) == 0 {
		return
	}

	resolved, err := e.data.Entities.ResolveBatch(ctx, missing, resolveCallBudget)
	if err != nil {
		e.log.Warn("gleif enrichment failed", logging.Err(err))
		contrib.Warnings = append(contrib.Warnings,
			fmt.Sprintf("GLEIF Entity Resolution fehlgeschlagen: %v", err))
	}

	enriched := false
	for i := range rows {
		if rows[i].Country != "" {
			continue
		}
		entity := resolved[rows[i].Name]
		if entity == nil || entity.Country == "" {
			continue
		}
		rows[i].Country = entity.Country
		enriched = true
	}
	if enriched {
		contrib.Methods = append(contrib.Methods, "GLEIF Entity Resolution (LEI-Registry)")
	}
}
