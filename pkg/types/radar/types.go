// Package radar defines the public wire types of the TechRadar-Intelligence
// HTTP API: the radar request, the eight analytical panels, and the
// explainability metadata attached to every response. Field names are part of
// the API contract and must not change.
package radar

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// Request bounds.
const (
	MinTechnologyLen = 1
	MaxTechnologyLen = 200
	MinYears         = 3
	MaxYears         = 30
	DefaultYears     = 10
)

// ─────────────────────────────────────────────────────────────────────────────
// Request
// ─────────────────────────────────────────────────────────────────────────────

// RadarRequest is the body of POST /api/v1/radar.
type RadarRequest struct {
	Technology string `json:"technology"`
	Years      int    `json:"years"`
}

// UnmarshalJSON applies the years default when the field is absent, so an
// explicit "years": 0 still fails validation while omission does not.
func (r *RadarRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Technology string `json:"technology"`
		Years      *int   `json:"years"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Technology = raw.Technology
	if raw.Years == nil {
		r.Years = DefaultYears
	} else {
		r.Years = *raw.Years
	}
	return nil
}

// Validate checks the request bounds. Technology length counts runes, not
// bytes, so multi-byte terms are not over-counted.
func (r *RadarRequest) Validate() *errors.AppError {
	n := utf8.RuneCountInString(r.Technology)
	if n < MinTechnologyLen {
		return errors.New(errors.CodeInvalidTechnology, "technology must not be empty").
			WithDetail("field=technology")
	}
	if n > MaxTechnologyLen {
		return errors.Newf(errors.CodeInvalidTechnology, "technology must be at most %d characters", MaxTechnologyLen).
			WithDetail("field=technology")
	}
	if r.Years < MinYears || r.Years > MaxYears {
		return errors.Newf(errors.CodeInvalidYears, "years must be between %d and %d", MinYears, MaxYears).
			WithDetail("field=years")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Response envelope
// ─────────────────────────────────────────────────────────────────────────────

// RadarResponse is the full radar analysis returned for one technology term.
type RadarResponse struct {
	Technology     string               `json:"technology"`
	AnalysisPeriod string               `json:"analysis_period"`
	Maturity       *MaturityPanel       `json:"maturity"`
	Landscape      *LandscapePanel      `json:"landscape"`
	Competitive    *CompetitivePanel    `json:"competitive"`
	Funding        *FundingPanel        `json:"funding"`
	CpcFlow        *CpcFlowPanel        `json:"cpc_flow"`
	Geographic     *GeographicPanel     `json:"geographic"`
	ResearchImpact *ResearchImpactPanel `json:"research_impact"`
	Temporal       *TemporalPanel       `json:"temporal"`
	Explainability *Explainability      `json:"explainability"`
}

// Explainability carries the transparency metadata attached to every radar
// response: which sources fed the analysis, which methods ran, everything
// that degraded, and how long the computation took.
type Explainability struct {
	SourcesUsed       []string   `json:"sources_used"`
	Methods           []string   `json:"methods"`
	Deterministic     bool       `json:"deterministic"`
	Warnings          []string   `json:"warnings"`
	APIAlerts         []APIAlert `json:"api_alerts"`
	QueryTimeMS       int64      `json:"query_time_ms"`
	DataCompleteUntil *int       `json:"data_complete_until"`
}

// APIAlert flags an upstream API whose credentials or availability need
// attention. Level is "warning" or "error".
type APIAlert struct {
	Source  string `json:"source"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Landscape
// ─────────────────────────────────────────────────────────────────────────────

// LandscapePanel aggregates yearly patent, project, and publication activity.
type LandscapePanel struct {
	TotalPatents      int             `json:"total_patents"`
	TotalProjects     int             `json:"total_projects"`
	TotalPublications int             `json:"total_publications"`
	TimeSeries        []LandscapeYear `json:"time_series"`
	TopCountries      []CountryCount  `json:"top_countries"`
}

// LandscapeYear is one merged time-series entry. Growth fields are
// year-over-year percentages (1 decimal); they are null on the first year and
// whenever the prior year had no activity.
type LandscapeYear struct {
	Year              int      `json:"year"`
	Patents           int      `json:"patents"`
	Projects          int      `json:"projects"`
	Publications      int      `json:"publications"`
	PatentGrowth      *float64 `json:"patent_growth"`
	ProjectGrowth     *float64 `json:"project_growth"`
	PublicationGrowth *float64 `json:"publication_growth"`
}

// CountryCount merges patent and project activity for one country.
type CountryCount struct {
	Country  string `json:"country"`
	Patents  int    `json:"patents"`
	Projects int    `json:"projects"`
	Total    int    `json:"total"`
}

// EmptyLandscapePanel returns the zero panel with non-nil slices.
func EmptyLandscapePanel() *LandscapePanel {
	return &LandscapePanel{
		TimeSeries:   []LandscapeYear{},
		TopCountries: []CountryCount{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Maturity
// ─────────────────────────────────────────────────────────────────────────────

// MaturityPanel carries the lifecycle classification of a technology based on
// cumulative patent counts. The fit fields stay zero (empty fit_model) when
// no S-curve fit succeeded.
type MaturityPanel struct {
	Phase           string         `json:"phase"`
	PhaseDE         string         `json:"phase_de"`
	Confidence      float64        `json:"confidence"`
	CAGR            float64        `json:"cagr"`
	MaturityPercent float64        `json:"maturity_percent"`
	SaturationLevel float64        `json:"saturation_level"`
	InflectionYear  float64        `json:"inflection_year"`
	RSquared        float64        `json:"r_squared"`
	FitModel        string         `json:"fit_model"`
	TimeSeries      []MaturityYear `json:"time_series"`
	SCurveFitted    []FittedPoint  `json:"s_curve_fitted"`
}

// MaturityYear is one yearly count with its running cumulative total.
type MaturityYear struct {
	Year       int `json:"year"`
	Patents    int `json:"patents"`
	Cumulative int `json:"cumulative"`
}

// FittedPoint is one point of the fitted S-curve.
type FittedPoint struct {
	Year   int     `json:"year"`
	Fitted float64 `json:"fitted"`
}

// EmptyMaturityPanel returns the zero panel with non-nil slices.
func EmptyMaturityPanel() *MaturityPanel {
	return &MaturityPanel{
		TimeSeries:   []MaturityYear{},
		SCurveFitted: []FittedPoint{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Competitive
// ─────────────────────────────────────────────────────────────────────────────

// CompetitivePanel describes actor concentration and the co-participation
// network around a technology.
type CompetitivePanel struct {
	HHIIndex           float64       `json:"hhi_index"`
	ConcentrationLevel string        `json:"concentration_level"`
	TopActors          []ActorShare  `json:"top_actors"`
	Top3Share          float64       `json:"top_3_share"`
	NetworkNodes       []NetworkNode `json:"network_nodes"`
	NetworkEdges       []NetworkEdge `json:"network_edges"`
	FullActors         []ActorRow    `json:"full_actors"`
}

// ActorShare is one actor's slice of total activity (share, 4 decimals).
type ActorShare struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// NetworkNode is one actor in the co-participation graph. Type is "patent",
// "cordis", or "both" depending on which sources the actor appears in.
type NetworkNode struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
	Type  string `json:"type"`
}

// NetworkEdge is one weighted co-participation link.
type NetworkEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// ActorRow is one row of the full actor table.
type ActorRow struct {
	Rank          int     `json:"rank"`
	Name          string  `json:"name"`
	Patents       int     `json:"patents"`
	Projects      int     `json:"projects"`
	Total         int     `json:"total"`
	Share         float64 `json:"share"`
	Country       string  `json:"country"`
	IsSME         bool    `json:"is_sme"`
	IsCoordinator bool    `json:"is_coordinator"`
}

// EmptyCompetitivePanel returns the zero panel with non-nil slices.
func EmptyCompetitivePanel() *CompetitivePanel {
	return &CompetitivePanel{
		TopActors:    []ActorShare{},
		NetworkNodes: []NetworkNode{},
		NetworkEdges: []NetworkEdge{},
		FullActors:   []ActorRow{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Funding
// ─────────────────────────────────────────────────────────────────────────────

// FundingPanel aggregates EU funding around a technology.
type FundingPanel struct {
	TotalFundingEUR       float64            `json:"total_funding_eur"`
	FundingCAGR           float64            `json:"funding_cagr"`
	FundingCAGRPeriod     string             `json:"funding_cagr_period"`
	AvgProjectSize        float64            `json:"avg_project_size"`
	ByProgramme           []ProgrammeFunding `json:"by_programme"`
	TimeSeries            []FundingYear      `json:"time_series"`
	TimeSeriesByProgramme []ProgrammeYear    `json:"time_series_by_programme"`
	InstrumentBreakdown   []InstrumentCount  `json:"instrument_breakdown"`
}

// ProgrammeFunding sums funding per framework programme.
type ProgrammeFunding struct {
	Programme string  `json:"programme"`
	Funding   float64 `json:"funding"`
	Projects  int     `json:"projects"`
}

// FundingYear is one yearly funding total.
type FundingYear struct {
	Year     int     `json:"year"`
	Funding  float64 `json:"funding"`
	Projects int     `json:"projects"`
}

// ProgrammeYear is one (year, programme) funding cell.
type ProgrammeYear struct {
	Year      int     `json:"year"`
	Programme string  `json:"programme"`
	Funding   float64 `json:"funding"`
	Projects  int     `json:"projects"`
}

// InstrumentCount is one (scheme, year) project count with funding.
type InstrumentCount struct {
	Scheme  string  `json:"scheme"`
	Year    int     `json:"year"`
	Count   int     `json:"count"`
	Funding float64 `json:"funding"`
}

// EmptyFundingPanel returns the zero panel with non-nil slices.
func EmptyFundingPanel() *FundingPanel {
	return &FundingPanel{
		ByProgramme:           []ProgrammeFunding{},
		TimeSeries:            []FundingYear{},
		TimeSeriesByProgramme: []ProgrammeYear{},
		InstrumentBreakdown:   []InstrumentCount{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CPC flow
// ─────────────────────────────────────────────────────────────────────────────

// CpcFlowPanel holds the CPC co-classification Jaccard matrix describing
// technology convergence. YearData is null when the analysis was skipped.
type CpcFlowPanel struct {
	Matrix               [][]float64       `json:"matrix"`
	Labels               []string          `json:"labels"`
	Colors               []string          `json:"colors"`
	TotalPatentsAnalyzed int               `json:"total_patents_analyzed"`
	TotalConnections     int               `json:"total_connections"`
	CPCLevel             int               `json:"cpc_level"`
	YearData             *CPCYearData      `json:"year_data"`
	CPCDescriptions      map[string]string `json:"cpc_descriptions"`
}

// CPCYearData carries per-year code and pair counts for animation sliders.
// Outer keys are years rendered as strings; pair keys are "A|B" with the two
// codes in lexical order.
type CPCYearData struct {
	MinYear    int                       `json:"min_year"`
	MaxYear    int                       `json:"max_year"`
	AllLabels  []string                  `json:"all_labels"`
	PairCounts map[string]map[string]int `json:"pair_counts"`
	CPCCounts  map[string]map[string]int `json:"cpc_counts"`
}

// EmptyCpcFlowPanel returns the zero panel at the given CPC level.
func EmptyCpcFlowPanel(level int) *CpcFlowPanel {
	return &CpcFlowPanel{
		Matrix:          [][]float64{},
		Labels:          []string{},
		Colors:          []string{},
		CPCLevel:        level,
		CPCDescriptions: map[string]string{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Geographic
// ─────────────────────────────────────────────────────────────────────────────

// GeographicPanel describes where activity around a technology happens.
type GeographicPanel struct {
	TotalCountries      int            `json:"total_countries"`
	TotalCities         int            `json:"total_cities"`
	CrossBorderShare    float64        `json:"cross_border_share"`
	CountryDistribution []CountryCount `json:"country_distribution"`
	CityDistribution    []CityCount    `json:"city_distribution"`
	CollaborationPairs  []CountryPair  `json:"collaboration_pairs"`
}

// CityCount is one city's organization count.
type CityCount struct {
	City          string `json:"city"`
	Country       string `json:"country"`
	Organizations int    `json:"organizations"`
}

// CountryPair is one country collaboration link with its joint project count.
type CountryPair struct {
	CountryA      string `json:"country_a"`
	CountryB      string `json:"country_b"`
	JointProjects int    `json:"joint_projects"`
}

// EmptyGeographicPanel returns the zero panel with non-nil slices.
func EmptyGeographicPanel() *GeographicPanel {
	return &GeographicPanel{
		CountryDistribution: []CountryCount{},
		CityDistribution:    []CityCount{},
		CollaborationPairs:  []CountryPair{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Research impact
// ─────────────────────────────────────────────────────────────────────────────

// ResearchImpactPanel summarizes the academic footprint of a technology.
type ResearchImpactPanel struct {
	HIndex           int            `json:"h_index"`
	AvgCitations     float64        `json:"avg_citations"`
	TotalPapers      int            `json:"total_papers"`
	InfluentialRatio float64        `json:"influential_ratio"`
	CitationTrend    []CitationYear `json:"citation_trend"`
	TopPapers        []PaperSummary `json:"top_papers"`
	TopVenues        []VenueCount   `json:"top_venues"`
	PublicationTypes []TypeCount    `json:"publication_types"`
}

// CitationYear is one yearly citation tally.
type CitationYear struct {
	Year       int `json:"year"`
	Citations  int `json:"citations"`
	PaperCount int `json:"paper_count"`
}

// PaperSummary is one highly cited paper. AuthorsShort joins the first three
// author names and appends "et al." when there are more.
type PaperSummary struct {
	Title        string `json:"title"`
	Venue        string `json:"venue"`
	Year         int    `json:"year"`
	Citations    int    `json:"citations"`
	AuthorsShort string `json:"authors_short"`
}

// VenueCount is one venue's paper count and share.
type VenueCount struct {
	Venue string  `json:"venue"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// TypeCount is one publication type tally.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// EmptyResearchImpactPanel returns the zero panel with non-nil slices.
func EmptyResearchImpactPanel() *ResearchImpactPanel {
	return &ResearchImpactPanel{
		CitationTrend:    []CitationYear{},
		TopPapers:        []PaperSummary{},
		TopVenues:        []VenueCount{},
		PublicationTypes: []TypeCount{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Temporal
// ─────────────────────────────────────────────────────────────────────────────

// TemporalPanel captures actor dynamics and programme evolution over time.
// The headline rates come from the most recent year of the trend.
type TemporalPanel struct {
	NewEntrantRate          float64                  `json:"new_entrant_rate"`
	PersistenceRate         float64                  `json:"persistence_rate"`
	DominantProgramme       string                   `json:"dominant_programme"`
	ActorTimeline           []ActorTimeline          `json:"actor_timeline"`
	ProgrammeEvolution      []map[string]interface{} `json:"programme_evolution"`
	EntrantPersistenceTrend []EntrantYear            `json:"entrant_persistence_trend"`
	InstrumentEvolution     []InstrumentCount        `json:"instrument_evolution"`
	TechnologyBreadth       []BreadthYear            `json:"technology_breadth"`
}

// ActorTimeline is one top actor with the years it was active.
type ActorTimeline struct {
	Name        string `json:"name"`
	YearsActive []int  `json:"years_active"`
	TotalCount  int    `json:"total_count"`
}

// EntrantYear is one year of entry/persistence dynamics (rates, 4 decimals).
type EntrantYear struct {
	Year            int     `json:"year"`
	NewEntrantRate  float64 `json:"new_entrant_rate"`
	PersistenceRate float64 `json:"persistence_rate"`
	TotalActors     int     `json:"total_actors"`
}

// BreadthYear counts distinct CPC sections and subclasses seen in one year.
type BreadthYear struct {
	Year                int `json:"year"`
	UniqueCPCSections   int `json:"unique_cpc_sections"`
	UniqueCPCSubclasses int `json:"unique_cpc_subclasses"`
}

// EmptyTemporalPanel returns the zero panel with non-nil slices.
func EmptyTemporalPanel() *TemporalPanel {
	return &TemporalPanel{
		ActorTimeline:           []ActorTimeline{},
		ProgrammeEvolution:      []map[string]interface{}{},
		EntrantPersistenceTrend: []EntrantYear{},
		InstrumentEvolution:     []InstrumentCount{},
		TechnologyBreadth:       []BreadthYear{},
	}
}
