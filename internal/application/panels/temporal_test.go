package panels_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

func TestTemporalEngine_TracksActorChurn(t *testing.T) {
	data := panels.DataContext{Patents: newPatentStore(t), Projects: newProjectStore(t)}
	engine := panels.NewTemporalEngine(data, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	// Patent actors churn on raw name strings: a joint filing is one
	// distinct actor, so entrant rates run high on thin data.
	assert.Equal(t, []radartypes.EntrantYear{
		{Year: 2018, NewEntrantRate: 1.0, TotalActors: 1},
		{Year: 2019, NewEntrantRate: 0.8, PersistenceRate: 1.0, TotalActors: 5},
		{Year: 2020, NewEntrantRate: 0.6667, PersistenceRate: 0.2, TotalActors: 3},
		{Year: 2021, NewEntrantRate: 1.0, TotalActors: 1},
		{Year: 2022, NewEntrantRate: 1.0, TotalActors: 4},
		{Year: 2023, NewEntrantRate: 1.0, TotalActors: 2},
	}, panel.EntrantPersistenceTrend)
	assert.InDelta(t, 1.0, panel.NewEntrantRate, 1e-9)
	assert.Zero(t, panel.PersistenceRate)

	require.Len(t, panel.ActorTimeline, 10)
	assert.Equal(t, radartypes.ActorTimeline{
		Name:        "INTERNATIONAL BUSINESS MACHINES CORP",
		YearsActive: []int{2018, 2019, 2023},
		TotalCount:  3,
	}, panel.ActorTimeline[0])
	assert.Equal(t, radartypes.ActorTimeline{
		Name:        "TECHNISCHE UNIVERSITEIT DELFT",
		YearsActive: []int{2019, 2020, 2022},
		TotalCount:  3,
	}, panel.ActorTimeline[1])
	assert.Equal(t, radartypes.ActorTimeline{
		Name:        "CENTRE NATIONAL DE LA RECHERCHE SCIENTIFIQUE",
		YearsActive: []int{2019, 2022},
		TotalCount:  2,
	}, panel.ActorTimeline[2])
	assert.Equal(t, "GOOGLE LLC,INTERNATIONAL BUSINESS MACHINES CORP", panel.ActorTimeline[7].Name)

	assert.Equal(t, []radartypes.BreadthYear{
		{Year: 2018, UniqueCPCSections: 2, UniqueCPCSubclasses: 2},
		{Year: 2019, UniqueCPCSections: 2, UniqueCPCSubclasses: 2},
		{Year: 2020, UniqueCPCSections: 1, UniqueCPCSubclasses: 1},
		{Year: 2021, UniqueCPCSections: 1, UniqueCPCSubclasses: 2},
		{Year: 2022, UniqueCPCSections: 1, UniqueCPCSubclasses: 1},
		{Year: 2023, UniqueCPCSections: 2, UniqueCPCSubclasses: 2},
	}, panel.TechnologyBreadth)

	assert.Equal(t, []map[string]interface{}{
		{"year": 2019, "RIA": 1},
		{"year": 2020, "ERC": 1},
		{"year": 2022, "RIA": 1},
	}, panel.ProgrammeEvolution)
	assert.Equal(t, "RIA", panel.DominantProgramme)
	assert.Equal(t, []radartypes.InstrumentCount{
		{Scheme: "RIA", Year: 2019, Count: 1, Funding: 2500000},
		{Scheme: "ERC", Year: 2020, Count: 1, Funding: 1500000},
		{Scheme: "RIA", Year: 2022, Count: 1, Funding: 4200000},
	}, panel.InstrumentEvolution)

	assert.Equal(t, []string{"EPO DOCDB (lokal)", "CORDIS (lokal)"}, contrib.Sources)
	assert.Equal(t, []string{
		"Akteur-Dynamik (New Entrant Rate, Persistence Rate)",
		"Technologie-Breite (einzigartige CPC-Sektionen pro Jahr)",
	}, contrib.Methods)
	assert.Empty(t, contrib.Warnings)
}

func TestTemporalEngine_CordisLegFailureKeepsPatents(t *testing.T) {
	data := panels.DataContext{Patents: newPatentStore(t), Projects: closedProjectStore(t)}
	engine := panels.NewTemporalEngine(data, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	require.Len(t, contrib.Warnings, 1)
	assert.True(t, strings.HasPrefix(contrib.Warnings[0], "CORDIS-Temporal fehlgeschlagen:"))
	assert.Equal(t, []string{"EPO DOCDB (lokal)"}, contrib.Sources)

	assert.Equal(t, radartypes.EntrantYear{
		Year: 2019, NewEntrantRate: 0.5, PersistenceRate: 1.0, TotalActors: 2,
	}, panel.EntrantPersistenceTrend[1])
	assert.Empty(t, panel.DominantProgramme)
	assert.Empty(t, panel.ProgrammeEvolution)
	assert.Empty(t, panel.InstrumentEvolution)
}

func TestTemporalEngine_NoStoresStaysSilent(t *testing.T) {
	engine := panels.NewTemporalEngine(panels.DataContext{}, nopLog())

	panel, contrib := engine.Build(context.Background(), fixtureQuery())

	assert.Empty(t, panel.EntrantPersistenceTrend)
	assert.Zero(t, panel.NewEntrantRate)
	assert.Zero(t, panel.PersistenceRate)
	assert.Empty(t, panel.ActorTimeline)
	assert.Empty(t, contrib.Sources)
	assert.Empty(t, contrib.Warnings)
	assert.Equal(t, []string{
		"Akteur-Dynamik (New Entrant Rate, Persistence Rate)",
	}, contrib.Methods)
}
