package panels

import (
	"context"
	"fmt"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/cooccur"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/cpc"
	"github.com/turtacn/TechRadar-Intelligence/internal/intelligence/sampling"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

const (
	defaultCPCLevel = 4
	defaultCPCTopN  = 15

	// Fallback row fetch cap. Hitting it triggers the stratified sampler
	// and the sampling warning.
	cpcFetchCap = sampling.DefaultSampleSize
)

// CpcFlowConfig tunes the co-classification analysis. Zero values fall
// back to subclass level, a 15x15 matrix, and the 10k sample target.
type CpcFlowConfig struct {
	Level        int
	TopN         int
	SampleTarget int
}

// CpcFlowEngine computes the CPC co-classification Jaccard matrix that
// shows which technology fields a term's patents bridge. It prefers the
// SQL-native path over the normalized patent_cpc table and falls back to
// sampling raw code strings when the migration has not run.
type CpcFlowEngine struct {
	data DataContext
	log  logging.Logger
	cfg  CpcFlowConfig
}

func NewCpcFlowEngine(data DataContext, cfg CpcFlowConfig, logger logging.Logger) *CpcFlowEngine {
	if cfg.Level <= 0 {
		cfg.Level = defaultCPCLevel
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaultCPCTopN
	}
	if cfg.SampleTarget <= 0 {
		cfg.SampleTarget = sampling.DefaultSampleSize
	}
	return &CpcFlowEngine{data: data, log: logger.Named("cpcflow"), cfg: cfg}
}

func (e *CpcFlowEngine) Build(ctx context.Context, q Query) (*radartypes.CpcFlowPanel, Contribution) {
	var contrib Contribution

	if e.data.Patents == nil {
		contrib.Warnings = append(contrib.Warnings, warnNoCPCStore)
		return radartypes.EmptyCpcFlowPanel(e.cfg.Level), contrib
	}

	patentEnd, clampWarnings := effectivePatentEndYear(ctx, e.data.Patents, q.EndYear, e.log)
	contrib.Warnings = append(contrib.Warnings, clampWarnings...)

	hasCPC, err := e.data.Patents.HasCPCTable(ctx)
	if err != nil {
		return e.failed(err, &contrib)
	}
	if hasCPC {
		return e.buildNative(ctx, q, patentEnd, &contrib)
	}
	return e.buildSampled(ctx, q, patentEnd, &contrib)
}

// buildNative runs the Jaccard computation inside SQLite over the
// normalized patent_cpc table.
func (e *CpcFlowEngine) buildNative(ctx context.Context, q Query, patentEnd int, contrib *Contribution) (*radartypes.CpcFlowPanel, Contribution) {
	result, err := e.data.Patents.ComputeCPCJaccard(ctx, q.Technology, q.StartYear, patentEnd, e.cfg.TopN, e.cfg.Level)
	if err != nil {
		return e.failed(err, contrib)
	}
	if len(result.Labels) < 2 {
		contrib.Warnings = append(contrib.Warnings, "Zu wenige CPC-Codes fuer Fluss-Analyse")
		return radartypes.EmptyCpcFlowPanel(e.cfg.Level), *contrib
	}
	contrib.Sources = append(contrib.Sources, sourcePatents)

	panel := &radartypes.CpcFlowPanel{
		Matrix:               result.Matrix,
		Labels:               result.Labels,
		Colors:               cooccur.AssignColors(result.Labels),
		TotalPatentsAnalyzed: result.TotalPatents,
		TotalConnections:     result.TotalConnections,
		CPCLevel:             e.cfg.Level,
		YearData:             result.YearData,
		CPCDescriptions:      describeLabels(result.Labels, result.YearData),
	}
	contrib.Methods = append(contrib.Methods,
		"CPC-Co-Klassifikation (Jaccard-Index, SQL-nativ)",
		fmt.Sprintf("CPC-Level %d (Top %d Codes, %d Patente)", e.cfg.Level, len(result.Labels), result.TotalPatents))
	return panel, *contrib
}

// buildSampled fetches raw comma-joined code strings and computes the
// matrix in process, stratified-sampling by year when the fetch cap hits.
func (e *CpcFlowEngine) buildSampled(ctx context.Context, q Query, patentEnd int, contrib *Contribution) (*radartypes.CpcFlowPanel, Contribution) {
	rows, err := e.data.Patents.CPCCodesWithYears(ctx, q.Technology, q.StartYear, patentEnd, cpcFetchCap)
	if err != nil {
		return e.failed(err, contrib)
	}
	if len(rows) == 0 {
		contrib.Warnings = append(contrib.Warnings, "Keine CPC-Codes fuer diese Technologie gefunden")
		return radartypes.EmptyCpcFlowPanel(e.cfg.Level), *contrib
	}
	contrib.Sources = append(contrib.Sources, sourcePatents)

	if len(rows) >= cpcFetchCap {
		if sampled, sErr := sampling.Stratified(rows, e.cfg.SampleTarget); sErr != nil {
			e.log.Warn("stratified sampling failed", logging.Err(sErr))
		} else {
			rows = sampled.Sampled
		}
		contrib.Warnings = append(contrib.Warnings,
			"Stichprobe max. 10.000 Patente (patent_cpc-Migration empfohlen)")
	}

	sets := cooccur.ExtractSets(rows, e.cfg.Level)
	if len(sets) < 2 {
		contrib.Warnings = append(contrib.Warnings,
			"Zu wenige Patente mit mehreren CPC-Codes fuer Fluss-Analyse")
		return radartypes.EmptyCpcFlowPanel(e.cfg.Level), *contrib
	}

	matrix := cooccur.BuildMatrix(sets, e.cfg.TopN)
	panel := &radartypes.CpcFlowPanel{
		Matrix:               matrix.Matrix,
		Labels:               matrix.Labels,
		Colors:               cooccur.AssignColors(matrix.Labels),
		TotalPatentsAnalyzed: matrix.TotalPatents,
		TotalConnections:     matrix.TotalConnections,
		CPCLevel:             e.cfg.Level,
		YearData:             matrix.YearData,
		CPCDescriptions:      describeLabels(matrix.Labels, matrix.YearData),
	}
	contrib.Methods = append(contrib.Methods,
		"CPC-Co-Klassifikation (Jaccard-Index)",
		fmt.Sprintf("CPC-Level %d (Top %d Codes)", e.cfg.Level, len(matrix.Labels)))
	return panel, *contrib
}

func (e *CpcFlowEngine) failed(err error, contrib *Contribution) (*radartypes.CpcFlowPanel, Contribution) {
	e.log.Warn("cpc flow query failed", logging.Err(err))
	contrib.Warnings = append(contrib.Warnings, fmt.Sprintf("CPC-Abfrage fehlgeschlagen: %v", err))
	return radartypes.EmptyCpcFlowPanel(e.cfg.Level), *contrib
}

// describeLabels resolves human-readable names for the matrix labels and
// every code the year slider can reach.
func describeLabels(labels []string, yearData *radartypes.CPCYearData) map[string]string {
	all := make([]string, 0, len(labels))
	all = append(all, labels...)
	if yearData != nil {
		all = append(all, yearData.AllLabels...)
	}
	return cpc.DescribeAll(all)
}
