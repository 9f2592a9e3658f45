// Package cooccur computes CPC co-classification matrices: which patent
// classification codes appear together on the same patents, normalized by
// the Jaccard index. This is the in-memory path used when the patent
// store carries no normalized patent_cpc table; the SQL-native path
// produces the same shape inside SQLite.
package cooccur

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// PatentCPC is one patent's normalized, deduplicated CPC codes. Codes are
// kept sorted so downstream pair enumeration is deterministic.
type PatentCPC struct {
	Codes []string
	Year  int
}

// NormalizeCPC truncates a CPC code to the given hierarchy level after
// stripping whitespace. Level 4 is the subclass ("H01L"), level 3 the
// class ("H01").
func NormalizeCPC(code string, level int) string {
	clean := strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if len(clean) >= level {
		return clean[:level]
	}
	return clean
}

// ExtractSets turns raw comma-joined CPC rows into per-patent code sets.
// Rows without codes or year are skipped; only patents carrying at least
// two distinct normalized codes survive, anything less cannot co-occur.
func ExtractSets(rows []radar.CPCRow, level int) []PatentCPC {
	result := make([]PatentCPC, 0, len(rows))
	for _, row := range rows {
		if row.Codes == "" || row.Year == 0 {
			continue
		}
		seen := make(map[string]struct{})
		var codes []string
		for _, part := range strings.Split(row.Codes, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			code := NormalizeCPC(part, level)
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
		if len(codes) < 2 {
			continue
		}
		sort.Strings(codes)
		result = append(result, PatentCPC{Codes: codes, Year: row.Year})
	}
	return result
}

// BuildMatrix computes the Jaccard co-classification matrix over the topN
// most frequent codes, plus the per-year tallies covering every code for
// client-side re-aggregation. Fewer than two labels yield an empty matrix
// and no year data.
func BuildMatrix(sets []PatentCPC, topN int) *radar.CPCMatrix {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for _, s := range sets {
		for _, code := range s.Codes {
			if _, ok := counts[code]; !ok {
				firstSeen[code] = len(firstSeen)
			}
			counts[code]++
		}
	}

	// Frequency order, ties by first appearance in the input.
	allCodes := make([]string, 0, len(counts))
	for code := range counts {
		allCodes = append(allCodes, code)
	}
	sort.Slice(allCodes, func(i, j int) bool {
		if counts[allCodes[i]] != counts[allCodes[j]] {
			return counts[allCodes[i]] > counts[allCodes[j]]
		}
		return firstSeen[allCodes[i]] < firstSeen[allCodes[j]]
	})

	topCodes := allCodes
	if len(topCodes) > topN {
		topCodes = topCodes[:topN]
	}
	labels := make([]string, len(topCodes))
	copy(labels, topCodes)

	if len(labels) < 2 {
		return &radar.CPCMatrix{
			Labels:       labels,
			Matrix:       [][]float64{},
			TotalPatents: len(sets),
		}
	}

	n := len(labels)
	codeIndex := make(map[string]int, n)
	for i, code := range labels {
		codeIndex[code] = i
	}

	type pair struct{ a, b int }
	pairCounts := make(map[pair]int)

	pairCountsByYear := make(map[string]map[string]int)
	cpcCountsByYear := make(map[string]map[string]int)
	yearSet := make(map[int]struct{})

	for _, s := range sets {
		yearSet[s.Year] = struct{}{}
		yearKey := strconv.Itoa(s.Year)

		cpcYear := cpcCountsByYear[yearKey]
		if cpcYear == nil {
			cpcYear = make(map[string]int)
			cpcCountsByYear[yearKey] = cpcYear
		}
		pairYear := pairCountsByYear[yearKey]
		if pairYear == nil {
			pairYear = make(map[string]int)
			pairCountsByYear[yearKey] = pairYear
		}

		// Per-year tallies cover every code, not only the top-N, so the
		// client can re-slice the matrix for any year window.
		for _, code := range s.Codes {
			cpcYear[code]++
		}
		for i := 0; i < len(s.Codes); i++ {
			for j := i + 1; j < len(s.Codes); j++ {
				pairYear[s.Codes[i]+"|"+s.Codes[j]]++
			}
		}

		// Overall matrix counts only top-N membership.
		var relevant []int
		for _, code := range s.Codes {
			if idx, ok := codeIndex[code]; ok {
				relevant = append(relevant, idx)
			}
		}
		sort.Ints(relevant)
		for i := 0; i < len(relevant); i++ {
			for j := i + 1; j < len(relevant); j++ {
				pairCounts[pair{relevant[i], relevant[j]}]++
			}
		}
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	totalConnections := 0
	for p, count := range pairCounts {
		if count < 1 {
			continue
		}
		// Each patent lists a code at most once, so the pair count is
		// exactly the intersection of the two patent sets.
		unionSize := counts[labels[p.a]] + counts[labels[p.b]] - count
		jaccard := 0.0
		if unionSize > 0 {
			jaccard = round4(float64(count) / float64(unionSize))
		}
		matrix[p.a][p.b] = jaccard
		matrix[p.b][p.a] = jaccard
		totalConnections++
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	yearData := &radartypes.CPCYearData{
		AllLabels:  allCodes,
		PairCounts: pairCountsByYear,
		CPCCounts:  cpcCountsByYear,
	}
	if len(years) > 0 {
		yearData.MinYear = years[0]
		yearData.MaxYear = years[len(years)-1]
	}

	return &radar.CPCMatrix{
		Labels:           labels,
		Matrix:           matrix,
		TotalConnections: totalConnections,
		TotalPatents:     len(sets),
		YearData:         yearData,
	}
}

// CPCColors maps CPC sections to the display palette.
var CPCColors = map[string]string{
	"A": "#ef4444",
	"B": "#f97316",
	"C": "#eab308",
	"D": "#22c55e",
	"E": "#06b6d4",
	"F": "#3b82f6",
	"G": "#8b5cf6",
	"H": "#ec4899",
	"Y": "#6b7280",
}

const defaultColor = "#9ca3af"

// AssignColors maps each label to its section color by first letter.
func AssignColors(labels []string) []string {
	colors := make([]string, len(labels))
	for i, label := range labels {
		colors[i] = defaultColor
		if label != "" {
			if c, ok := CPCColors[label[:1]]; ok {
				colors[i] = c
			}
		}
	}
	return colors
}

func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
