// Package metrics implements the deterministic indicator math shared by
// the radar panels: growth rates, market concentration, lifecycle phase
// classification, and citation indices. All functions are pure; invalid
// input yields zero values, never errors or panics.
package metrics

import (
	"math"
	"sort"

	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// Phase is a technology lifecycle phase with its English and German label.
type Phase struct {
	EN string
	DE string
}

var (
	PhaseEmerging  = Phase{"Emerging", "Aufkommend"}
	PhaseGrowing   = Phase{"Growing", "Wachsend"}
	PhaseMature    = Phase{"Mature", "Ausgereift"}
	PhaseDeclining = Phase{"Declining", "Rückläufig"}
	// PhaseSaturated is the >= 90% band of a fitted curve: the field has
	// stopped expanding but is not shrinking, which "Declining" would imply.
	PhaseSaturated = Phase{"Saturation", "Sättigung"}
	PhaseUnknown   = Phase{"Unknown", "Unbekannt"}
)

// CAGR returns the compound annual growth rate in percent over the given
// number of calendar years. Callers pass the year span between the first
// and last non-zero observations, not the number of observations.
// Returns 0 when the span or either endpoint is non-positive.
func CAGR(first, last float64, years int) float64 {
	if years <= 0 || first <= 0 || last <= 0 {
		return 0
	}
	return (math.Pow(last/first, 1.0/float64(years)) - 1.0) * 100.0
}

// HHI returns the Herfindahl-Hirschman index for a set of market shares
// in [0,1], scaled to the conventional 0..10000 range.
func HHI(shares []float64) float64 {
	if len(shares) == 0 {
		return 0
	}
	var sum float64
	for _, s := range shares {
		sum += s * s
	}
	return sum * 10000
}

// ConcentrationLevel translates an HHI value into its English and German
// concentration label.
func ConcentrationLevel(hhi float64) (en, de string) {
	switch {
	case hhi < 1500:
		return "Low", "Gering"
	case hhi < 2500:
		return "Moderate", "Moderat"
	default:
		return "High", "Hoch"
	}
}

// MartiniJohnRatio measures commercialization intensity as patents per
// publication. Returns 0 when there are no publications.
func MartiniJohnRatio(patents, publications int) float64 {
	if publications <= 0 {
		return 0
	}
	return float64(patents) / float64(publications)
}

// SCurveConfidence weights the goodness of an S-curve fit (60%) with data
// coverage (20%, 15+ years count as full) and sample size (20%, 200+
// patents count as full). The result is clamped to [0.10, 0.95] and
// rounded to two decimals.
func SCurveConfidence(rSquared float64, nYears, totalPatents int) float64 {
	dataFactor := math.Min(1.0, float64(nYears)/15.0)
	sampleFactor := math.Min(1.0, float64(totalPatents)/200.0)
	raw := rSquared*0.6 + dataFactor*0.2 + sampleFactor*0.2
	return round2(math.Min(0.95, math.Max(0.1, raw)))
}

// ClassifyPhase maps a fitted maturity percentage onto a lifecycle phase
// using the thresholds of Lee et al. (2016). rSquared weights the
// confidence; pass nil when unknown (defaults to 0.5).
func ClassifyPhase(maturityPercent float64, rSquared *float64) (Phase, float64) {
	r2 := 0.5
	if rSquared != nil {
		r2 = *rSquared
	}
	confidence := round2(math.Min(0.95, r2))
	switch {
	case maturityPercent < 10.0:
		return PhaseEmerging, confidence
	case maturityPercent < 50.0:
		return PhaseGrowing, confidence
	case maturityPercent < 90.0:
		return PhaseMature, confidence
	default:
		return PhaseSaturated, confidence
	}
}

// ClassifyPhaseHeuristic infers a lifecycle phase directly from the yearly
// count pattern. Fallback for series too thin or too noisy for a curve
// fit: it compares first- and second-half averages, the trend over the
// last three years, and the variability of the recent half.
func ClassifyPhaseHeuristic(yearlyCounts []int) (Phase, float64) {
	n := len(yearlyCounts)
	if n < 3 {
		return PhaseUnknown, 0.0
	}

	mid := n / 2
	firstHalf := yearlyCounts[:mid]
	secondHalf := yearlyCounts[mid:]

	avgFirst := mean(firstHalf)
	avgSecond := mean(secondHalf)

	recent := yearlyCounts[n-3:]
	recentGrowth := 0.0
	if recent[0] > 0 {
		recentGrowth = float64(recent[2]-recent[0]) / float64(recent[0])
	}

	var overallGrowth float64
	switch {
	case avgFirst > 0:
		overallGrowth = (avgSecond - avgFirst) / avgFirst
	case avgSecond > 0:
		overallGrowth = 1.0
	default:
		overallGrowth = 0.0
	}

	cv := 1.0
	if len(secondHalf) > 0 && avgSecond > 0 {
		var variance float64
		for _, x := range secondHalf {
			d := float64(x) - avgSecond
			variance += d * d
		}
		variance /= float64(len(secondHalf))
		cv = math.Sqrt(variance) / avgSecond
	}

	total := 0
	for _, c := range yearlyCounts {
		total += c
	}
	if total == 0 {
		return PhaseUnknown, 0.0
	}

	var phase Phase
	var confidence float64
	switch {
	case overallGrowth > 0.5 && recentGrowth > 0.1:
		phase = PhaseEmerging
		confidence = math.Min(0.9, 0.5+overallGrowth*0.3)
	case overallGrowth > 0.1 && recentGrowth > -0.1:
		phase = PhaseGrowing
		confidence = math.Min(0.9, 0.5+(1.0-cv)*0.3)
	case math.Abs(overallGrowth) <= 0.2 && cv < 0.4:
		phase = PhaseMature
		confidence = math.Min(0.9, 0.6+(1.0-cv)*0.3)
	case overallGrowth < -0.1 || recentGrowth < -0.2:
		phase = PhaseDeclining
		confidence = math.Min(0.9, 0.5+math.Abs(overallGrowth)*0.3)
	default:
		phase = PhaseGrowing
		confidence = 0.4
	}

	return phase, round2(confidence)
}

// HIndex returns the largest h such that h papers have at least h
// citations each.
func HIndex(citations []int) int {
	sorted := make([]int, len(citations))
	copy(sorted, citations)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	h := 0
	for i, c := range sorted {
		if c < i+1 {
			break
		}
		h = i + 1
	}
	return h
}

// YoYGrowth returns the year-over-year growth in percent, one decimal.
// Nil when the previous year had no activity: growth from zero is
// undefined, not infinite.
func YoYGrowth(prev, cur int) *float64 {
	if prev == 0 {
		return nil
	}
	g := round1(float64(cur-prev) / float64(prev) * 100.0)
	return &g
}

// MergeCountryData unions per-country patent and project counts into the
// combined country ranking. Sorted by total descending, then country code
// ascending for a stable order; limit <= 0 returns all countries.
func MergeCountryData(patents, projects map[string]int, limit int) []radartypes.CountryCount {
	merged := make(map[string]*radartypes.CountryCount, len(patents)+len(projects))
	for country, count := range patents {
		merged[country] = &radartypes.CountryCount{Country: country, Patents: count}
	}
	for country, count := range projects {
		if entry, ok := merged[country]; ok {
			entry.Projects = count
		} else {
			merged[country] = &radartypes.CountryCount{Country: country, Projects: count}
		}
	}

	out := make([]radartypes.CountryCount, 0, len(merged))
	for _, entry := range merged {
		entry.Total = entry.Patents + entry.Projects
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Country < out[j].Country
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
