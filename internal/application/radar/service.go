// Package radar assembles the full technology-radar response: it fans the
// eight analytical panels out over the shared data context, bounds every
// panel with its own deadline, and folds the per-panel provenance into one
// explainability block. A panel may degrade or disappear; the response as a
// whole never fails.
package radar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// TokenProvider exposes the upstream credential state the explainability
// block reports on. *apiclients.OpenAIREClient satisfies it.
type TokenProvider interface {
	TokenInfo() (accessToken string, hasRefreshToken bool)
}

// ServiceConfig wires the orchestrator. Only Data and Logger are usually
// set explicitly; everything else has a safe zero value.
type ServiceConfig struct {
	Data    panels.DataContext
	Radar   config.RadarConfig
	Tokens  TokenProvider            // optional, nil skips credential alerts
	Metrics *prometheus.RadarMetrics // optional, nil records nothing
	Logger  logging.Logger
	Clock   func() time.Time // optional, defaults to time.Now
}

// Service builds radar responses from the configured stores and API
// adapters. It is safe for concurrent use.
type Service struct {
	data    panels.DataContext
	cfg     config.RadarConfig
	tokens  TokenProvider
	metrics *prometheus.RadarMetrics
	log     logging.Logger
	now     func() time.Time

	landscape   *panels.LandscapeEngine
	maturity    *panels.MaturityEngine
	competitive *panels.CompetitiveEngine
	funding     *panels.FundingEngine
	cpcflow     *panels.CpcFlowEngine
	geographic  *panels.GeographicEngine
	research    *panels.ResearchImpactEngine
	temporal    *panels.TemporalEngine
}

// NewService constructs the orchestrator and its eight engines. Zero-value
// radar settings are replaced with the platform defaults.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = prometheus.NewRadarMetrics(nil)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	rc := normalizeRadarConfig(cfg.Radar)

	return &Service{
		data:    cfg.Data,
		cfg:     rc,
		tokens:  cfg.Tokens,
		metrics: metrics,
		log:     logger.Named("radar"),
		now:     now,

		landscape:   panels.NewLandscapeEngine(cfg.Data, logger),
		maturity:    panels.NewMaturityEngine(cfg.Data, logger),
		competitive: panels.NewCompetitiveEngine(cfg.Data, logger),
		funding:     panels.NewFundingEngine(cfg.Data, logger),
		cpcflow: panels.NewCpcFlowEngine(cfg.Data, panels.CpcFlowConfig{
			Level:        rc.CPCLevel,
			TopN:         rc.CPCTopN,
			SampleTarget: rc.SampleTarget,
		}, logger),
		geographic: panels.NewGeographicEngine(cfg.Data, logger),
		research:   panels.NewResearchImpactEngine(cfg.Data, logger),
		temporal:   panels.NewTemporalEngine(cfg.Data, logger),
	}
}

func normalizeRadarConfig(rc config.RadarConfig) config.RadarConfig {
	if rc.PanelTimeout <= 0 {
		rc.PanelTimeout = config.DefaultPanelTimeout
	}
	if rc.DefaultYears <= 0 {
		rc.DefaultYears = config.DefaultYears
	}
	if rc.CPCLevel <= 0 {
		rc.CPCLevel = config.DefaultCPCLevel
	}
	if rc.CPCTopN <= 0 {
		rc.CPCTopN = config.DefaultCPCTopN
	}
	if rc.SampleTarget <= 0 {
		rc.SampleTarget = config.DefaultSampleTarget
	}
	return rc
}

// panelJob couples an engine invocation with the empty-panel setter used
// when the engine times out or panics. run returns the setter for the
// computed panel instead of writing it directly so a late completion after
// a timeout can never race the response assembly.
type panelJob struct {
	name  string
	run   func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution)
	empty func(*radartypes.RadarResponse)
}

type panelOutcome struct {
	apply    func(*radartypes.RadarResponse)
	contrib  panels.Contribution
	panicked bool
}

// BuildRadar runs every panel for the requested technology and window. The
// request is assumed validated; years outside the accepted range fall back
// to the configured default.
func (s *Service) BuildRadar(ctx context.Context, req radartypes.RadarRequest) *radartypes.RadarResponse {
	wallStart := time.Now()

	years := req.Years
	if years <= 0 {
		years = s.cfg.DefaultYears
	}
	endYear := s.now().Year()
	startYear := endYear - years

	q := panels.Query{Technology: req.Technology, StartYear: startYear, EndYear: endYear}
	jobs := s.panelJobs(q)

	outcomes := make([]panelOutcome, len(jobs))
	g := new(errgroup.Group)
	for i := range jobs {
		i := i
		g.Go(func() error {
			outcomes[i] = s.runPanel(ctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	resp := &radartypes.RadarResponse{
		Technology:     req.Technology,
		AnalysisPeriod: fmt.Sprintf("%d-%d", startYear, endYear),
	}
	expl := &radartypes.Explainability{
		SourcesUsed:   []string{},
		Methods:       []string{},
		Deterministic: true,
		Warnings:      []string{},
		APIAlerts:     []radartypes.APIAlert{},
	}

	seenSources := make(map[string]struct{})
	seenMethods := make(map[string]struct{})
	for _, out := range outcomes {
		out.apply(resp)
		for _, src := range out.contrib.Sources {
			if _, ok := seenSources[src]; ok {
				continue
			}
			seenSources[src] = struct{}{}
			expl.SourcesUsed = append(expl.SourcesUsed, src)
		}
		for _, m := range out.contrib.Methods {
			if _, ok := seenMethods[m]; ok {
				continue
			}
			seenMethods[m] = struct{}{}
			expl.Methods = append(expl.Methods, m)
		}
		expl.Warnings = append(expl.Warnings, out.contrib.Warnings...)
	}

	if s.data.Patents != nil {
		last, ok, err := s.data.Patents.LastFullYear(ctx)
		switch {
		case err != nil:
			s.log.Warn("patent completeness probe failed", logging.Err(err))
		case ok:
			expl.DataCompleteUntil = &last
		}
	}

	if s.tokens != nil {
		token, hasRefresh := s.tokens.TokenInfo()
		if alert := CheckJWTExpiry(token, "OpenAIRE", hasRefresh, s.log); alert != nil {
			expl.APIAlerts = append(expl.APIAlerts, *alert)
		}
	}
	expl.APIAlerts = append(expl.APIAlerts, DetectRuntimeFailures(expl.Warnings)...)

	expl.QueryTimeMS = time.Since(wallStart).Milliseconds()
	resp.Explainability = expl

	s.metrics.RadarRequestsTotal.WithLabelValues("ok").Inc()
	s.log.Info("radar built",
		logging.String("technology", req.Technology),
		logging.String("period", resp.AnalysisPeriod),
		logging.Int("warnings", len(expl.Warnings)),
		logging.Int("query_time_ms", int(expl.QueryTimeMS)),
	)
	return resp
}

// runPanel executes one job under the panel deadline. The engine runs on
// its own goroutine; if the deadline wins the select, the engine's eventual
// result is discarded and the empty panel takes its place.
func (s *Service) runPanel(ctx context.Context, job panelJob) panelOutcome {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PanelTimeout)
	defer cancel()

	started := time.Now()
	done := make(chan panelOutcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panel panicked",
					logging.String("panel", job.name), logging.Any("panic", v))
				done <- panelOutcome{
					apply: job.empty,
					contrib: panels.Contribution{Warnings: []string{
						fmt.Sprintf("Panel '%s' fehlgeschlagen: %v", job.name, v),
					}},
					panicked: true,
				}
			}
		}()
		apply, contrib := job.run(pctx)
		done <- panelOutcome{apply: apply, contrib: contrib}
	}()

	select {
	case out := <-done:
		s.metrics.PanelDuration.WithLabelValues(job.name).Observe(time.Since(started).Seconds())
		if out.panicked {
			s.metrics.PanelFailuresTotal.WithLabelValues(job.name, "error").Inc()
		}
		return out
	case <-pctx.Done():
		s.metrics.PanelDuration.WithLabelValues(job.name).Observe(time.Since(started).Seconds())
		s.metrics.PanelFailuresTotal.WithLabelValues(job.name, "timeout").Inc()
		s.log.Warn("panel timed out",
			logging.String("panel", job.name), logging.Duration("budget", s.cfg.PanelTimeout))
		return panelOutcome{
			apply: job.empty,
			contrib: panels.Contribution{Warnings: []string{
				fmt.Sprintf("Panel '%s': Timeout nach %ds, leeres Ergebnis",
					job.name, int(s.cfg.PanelTimeout.Seconds())),
			}},
		}
	}
}

// panelJobs returns the eight panels in their fixed provenance order.
func (s *Service) panelJobs(q panels.Query) []panelJob {
	return []panelJob{
		{
			name: "landscape",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.landscape.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.Landscape = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.Landscape = radartypes.EmptyLandscapePanel() },
		},
		{
			name: "maturity",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.maturity.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.Maturity = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.Maturity = radartypes.EmptyMaturityPanel() },
		},
		{
			name: "competitive",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.competitive.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.Competitive = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.Competitive = radartypes.EmptyCompetitivePanel() },
		},
		{
			name: "funding",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.funding.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.Funding = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.Funding = radartypes.EmptyFundingPanel() },
		},
		{
			name: "cpc_flow",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.cpcflow.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.CpcFlow = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.CpcFlow = radartypes.EmptyCpcFlowPanel(s.cfg.CPCLevel) },
		},
		{
			name: "geographic",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.geographic.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.Geographic = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.Geographic = radartypes.EmptyGeographicPanel() },
		},
		{
			name: "research_impact",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.research.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.ResearchImpact = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.ResearchImpact = radartypes.EmptyResearchImpactPanel() },
		},
		{
			name: "temporal",
			run: func(ctx context.Context) (func(*radartypes.RadarResponse), panels.Contribution) {
				p, c := s.temporal.Build(ctx, q)
				return func(r *radartypes.RadarResponse) { r.Temporal = p }, c
			},
			empty: func(r *radartypes.RadarResponse) { r.Temporal = radartypes.EmptyTemporalPanel() },
		},
	}
}
