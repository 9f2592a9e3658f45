package radar_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	radarsvc "github.com/turtacn/TechRadar-Intelligence/internal/application/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/database/sqlite"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/testutil"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

const fixtureTech = "quantum computing"

// fixedClock pins the analysis window so the fixture databases line up
// with the computed start/end years.
func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.December, 1, 12, 0, 0, 0, time.UTC)
	}
}

type blockingPapers struct{ release chan struct{} }

func (b *blockingPapers) SearchPapers(context.Context, string, int, int, int) ([]radar.Paper, error) {
	<-b.release
	return nil, nil
}

type panickyPapers struct{}

func (panickyPapers) SearchPapers(context.Context, string, int, int, int) ([]radar.Paper, error) {
	panic("s2 client not initialised")
}

type erroringPapers struct{ err error }

func (e *erroringPapers) SearchPapers(context.Context, string, int, int, int) ([]radar.Paper, error) {
	return nil, e.err
}

type stubTokens struct {
	token   string
	refresh bool
}

func (s *stubTokens) TokenInfo() (string, bool) { return s.token, s.refresh }

func TestService_BuildRadarMergesProvenance(t *testing.T) {
	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Data: panels.DataContext{
			Patents:  sqlite.NewPatentStore(testutil.NewPatentDB(t)),
			Projects: sqlite.NewProjectStore(testutil.NewProjectDB(t)),
		},
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: fixtureTech, Years: 5})
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

	assert.Equal(t, 8, resp.Landscape.TotalPatents)
	assert.Equal(t, 3, resp.Landscape.TotalProjects)
	assert.Equal(t, 8, resp.CpcFlow.TotalPatentsAnalyzed)

	expl := resp.Explainability
	require.NotNil(t, expl)
	assert.True(t, expl.Deterministic)
	assert.GreaterOrEqual(t, expl.QueryTimeMS, int64(0))

	assert.Equal(t, []string{"EPO DOCDB (lokal)", "CORDIS (lokal)"}, expl.SourcesUsed)

	assert.Equal(t, []string{
		"FTS5-Volltextsuche",
		"Jaehrliche Aggregation",
		"CAGR ueber 5 Jahre",
		"Phasenklassifikation (Wachstumsmuster-Heuristik)",
		"HHI-Index (Herfindahl-Hirschman)",
		"Akteur-Aggregation (Patent-Anmelder + CORDIS-Organisationen)",
		"Co-Partizipation-Netzwerk (Patent-Co-Anmelder + CORDIS-Projektpartner)",
		"Foerder-CAGR ueber 3 Jahre",
		"EU-Foerderdaten-Aggregation (FP7, H2020, Horizon Europe)",
		"CPC-Co-Klassifikation (Jaccard-Index, SQL-nativ)",
		"CPC-Level 4 (Top 4 Codes, 8 Patente)",
		"Laender-Aggregation (Patent-Anmeldelaender + CORDIS-Organisationsstandorte)",
		"Laender-Kooperationspaare (CORDIS-Projektpartner)",
		"Akteur-Dynamik (New Entrant Rate, Persistence Rate)",
		"Technologie-Breite (einzigartige CPC-Sektionen pro Jahr)",
	}, expl.Methods)

	assert.Equal(t, []string{
		"Zu wenige Patente (8) fuer S-Curve-Fit (Minimum: 30) — Fallback auf Heuristik",
		"CORDIS-Daten bis 2021 vollstaendig (ab 2022 unvollstaendig)",
	}, expl.Warnings)

	require.NotNil(t, expl.DataCompleteUntil)
	assert.Equal(t, 2023, *expl.DataCompleteUntil)
	assert.Empty(t, expl.APIAlerts)
}

func TestService_BuildRadarTimeoutYieldsEmptyPanel(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Data:   panels.DataContext{Papers: &blockingPapers{release: release}},
		Radar:  config.RadarConfig{PanelTimeout: 50 * time.Millisecond},
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: fixtureTech, Years: 5})

	assert.Equal(t, radartypes.EmptyResearchImpactPanel(), resp.ResearchImpact)
	assert.Contains(t, resp.Explainability.Warnings,
		"Panel 'research_impact': Timeout nach 0s, leeres Ergebnis")
	assert.Contains(t, resp.Explainability.Warnings,
		"Patent-DB nicht verfuegbar — keine Patentdaten")
}

func TestService_BuildRadarRecoversPanickingPanel(t *testing.T) {
	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Data:   panels.DataContext{Papers: panickyPapers{}},
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: fixtureTech, Years: 5})

	assert.Equal(t, radartypes.EmptyResearchImpactPanel(), resp.ResearchImpact)
	assert.Contains(t, resp.Explainability.Warnings,
		"Panel 'research_impact' fehlgeschlagen: s2 client not initialised")
}

func TestService_BuildRadarRaisesAPIAlerts(t *testing.T) {
	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Data:   panels.DataContext{Papers: &erroringPapers{err: errors.New("s2 rate limit")}},
		Tokens: &stubTokens{token: makeJWT(t, time.Now().Add(-5*time.Hour)), refresh: false},
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: fixtureTech, Years: 5})

	alerts := resp.Explainability.APIAlerts
	require.Len(t, alerts, 2)
	assert.Equal(t, "OpenAIRE", alerts[0].Source)
	assert.Equal(t, "error", alerts[0].Level)
	assert.True(t, strings.HasPrefix(alerts[0].Message, "OpenAIRE-Token abgelaufen (seit "))
	assert.Equal(t, radartypes.APIAlert{
		Source:  "Semantic Scholar",
		Level:   "error",
		Message: "Semantic Scholar: Daten nicht verfuegbar",
	}, alerts[1])
}

func TestService_BuildRadarRefreshTokenSilencesAlert(t *testing.T) {
	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Tokens: &stubTokens{token: makeJWT(t, time.Now().Add(-5*time.Hour)), refresh: true},
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: fixtureTech, Years: 5})

	assert.Empty(t, resp.Explainability.APIAlerts)
}

func TestService_BuildRadarDefaultsYears(t *testing.T) {
	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: "graphene"})

	assert.Equal(t, "2013-2023", resp.AnalysisPeriod)
	require.NotNil(t, resp.Landscape)
	require.NotNil(t, resp.Maturity)
	require.NotNil(t, resp.Competitive)
	require.NotNil(t, resp.Funding)
	require.NotNil(t, resp.CpcFlow)
	require.NotNil(t, resp.Geographic)
	require.NotNil(t, resp.ResearchImpact)
	require.NotNil(t, resp.Temporal)
	assert.Nil(t, resp.Explainability.DataCompleteUntil)
}

func TestService_BuildRadarProbeFailureLeavesCompletenessNil(t *testing.T) {
	db := testutil.NewPatentDB(t)
	require.NoError(t, db.Close())

	svc := radarsvc.NewService(radarsvc.ServiceConfig{
		Data:   panels.DataContext{Patents: sqlite.NewPatentStore(db)},
		Logger: logging.NewNop(),
		Clock:  fixedClock(2023),
	})

	resp := svc.BuildRadar(context.Background(), radartypes.RadarRequest{Technology: fixtureTech, Years: 5})

	assert.Nil(t, resp.Explainability.DataCompleteUntil)
}
