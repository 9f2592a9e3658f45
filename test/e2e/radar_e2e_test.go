package e2e_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/pkg/client"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

func TestRadar_FullAnalysisThroughSDK(t *testing.T) {
	st := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := st.sdk.Radar(ctx, radartypes.RadarRequest{Technology: fixtureTech, Years: 5})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, fixtureTech, resp.Technology)
	assert.Equal(t, "2018-2023", resp.AnalysisPeriod)

	require.NotNil(t, resp.Landscape)
	require.NotNil(t, resp.Maturity)
	require.NotNil(t, resp.Competitive)
	require.NotNil(t, resp.Funding)
	require.NotNil(t, resp.CpcFlow)
	require.NotNil(t, resp.Geographic)
	require.NotNil(t, resp.ResearchImpact)
	require.NotNil(t, resp.Temporal)

	// Local stores: eight quantum patents, three quantum projects.
	assert.Equal(t, 8, resp.Landscape.TotalPatents)
	assert.Equal(t, 3, resp.Landscape.TotalProjects)
	// Canned OpenAIRE: a fixed count for each of the six window years.
	assert.Equal(t, 6*publicationsPerYear, resp.Landscape.TotalPublications)

	assert.Equal(t, 8, resp.CpcFlow.TotalPatentsAnalyzed)
	assert.NotEmpty(t, resp.Maturity.Phase)

	require.NotEmpty(t, resp.Competitive.TopActors)
	assert.Greater(t, resp.Competitive.HHIIndex, 0.0)

	// ec_max_contribution of the three quantum projects.
	assert.InDelta(t, 8_200_000, resp.Funding.TotalFundingEUR, 1)

	assert.Equal(t, 2, resp.ResearchImpact.TotalPapers)
	require.NotEmpty(t, resp.ResearchImpact.TopPapers)
	assert.Equal(t, "Quantum supremacy using a programmable superconducting processor",
		resp.ResearchImpact.TopPapers[0].Title)

	expl := resp.Explainability
	require.NotNil(t, expl)
	assert.True(t, expl.Deterministic)
	assert.GreaterOrEqual(t, expl.QueryTimeMS, int64(0))
	assert.ElementsMatch(t, []string{
		"EPO DOCDB (lokal)",
		"CORDIS (lokal)",
		"OpenAIRE (API)",
		"Semantic Scholar Academic Graph API",
	}, expl.SourcesUsed)
	assert.Contains(t, expl.Warnings,
		"Zu wenige Patente (8) fuer S-Curve-Fit (Minimum: 30) — Fallback auf Heuristik")
	assert.Contains(t, expl.Warnings,
		"CORDIS-Daten bis 2021 vollstaendig (ab 2022 unvollstaendig)")
	require.NotNil(t, expl.DataCompleteUntil)
	assert.Equal(t, 2023, *expl.DataCompleteUntil)
	assert.Empty(t, expl.APIAlerts)
}

func TestRadar_ValidationErrorThroughSDK(t *testing.T) {
	st := newStack(t)

	_, err := st.sdk.Radar(context.Background(), radartypes.RadarRequest{
		Technology: fixtureTech,
		Years:      99,
	})
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidation())
	assert.Equal(t, "RADAR_002", apiErr.Code)
	assert.Contains(t, apiErr.Message, "years must be between")
}

func TestRadar_UnknownTechnologyReturnsEmptyPanels(t *testing.T) {
	st := newStack(t)

	resp, err := st.sdk.Radar(context.Background(), radartypes.RadarRequest{
		Technology: "antigravity propulsion",
		Years:      5,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Landscape.TotalPatents)
	assert.Equal(t, 0, resp.Landscape.TotalProjects)
	assert.Equal(t, 0, resp.CpcFlow.TotalPatentsAnalyzed)
	assert.Equal(t, 0.0, resp.Funding.TotalFundingEUR)
}
