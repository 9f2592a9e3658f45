// Package sampling draws deterministic, year-stratified samples from
// patent populations for the co-classification fallback path.
//
// The procedure is proportional allocation with systematic midpoint
// selection: the population is partitioned by publication year, small
// strata are taken in full (census), the remaining budget is spread
// proportionally with a Hare largest-remainder correction, and within
// each stratum elements are picked at indices int(step/2 + i*step) over
// the input order. No random number generator is involved: identical
// input always yields identical output.
//
// References: Cochran (1977), Sampling Techniques, ch. 5 and 7;
// Madow & Madow (1944) on systematic sampling.
package sampling

import (
	"math"
	"sort"
	"strconv"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

const (
	// DefaultSampleSize is the standard sample target for the CPC
	// co-classification analysis.
	DefaultSampleSize = 10000

	// CensusThreshold is the stratum size at or below which the whole
	// stratum enters the sample.
	CensusThreshold = 5
)

// Stratum describes one year's slice of the population and sample.
type Stratum struct {
	PopulationCount int
	SampleCount     int
	IsCensus        bool
}

// Result is a drawn sample with its provenance metadata.
type Result struct {
	// Sampled holds the selected rows ordered by year, then input order.
	Sampled []radar.CPCRow

	PopulationSize   int
	SampleSize       int
	SamplingFraction float64
	Strata           map[int]Stratum
	WasSampled       bool
}

// Stratified draws a proportional year-stratified sample of at most
// target rows. Populations that already fit pass through unchanged in
// input order. target < 1 is a programmer error.
func Stratified(rows []radar.CPCRow, target int) (*Result, error) {
	if target < 1 {
		return nil, errors.InvalidParam("sampling target must be >= 1").
			WithDetail("target=" + strconv.Itoa(target))
	}

	population := len(rows)
	if population <= target {
		strata := make(map[int]Stratum)
		for _, indices := range groupByYear(rows) {
			year := rows[indices[0]].Year
			strata[year] = Stratum{
				PopulationCount: len(indices),
				SampleCount:     len(indices),
				IsCensus:        true,
			}
		}
		sampled := make([]radar.CPCRow, population)
		copy(sampled, rows)
		return &Result{
			Sampled:          sampled,
			PopulationSize:   population,
			SampleSize:       population,
			SamplingFraction: 1.0,
			Strata:           strata,
			WasSampled:       false,
		}, nil
	}

	strata := groupByYear(rows)
	sizes := make(map[int]int, len(strata))
	for year, indices := range strata {
		sizes[year] = len(indices)
	}
	allocation := allocateProportional(sizes, target, CensusThreshold)

	years := make([]int, 0, len(strata))
	for year := range strata {
		years = append(years, year)
	}
	sort.Ints(years)

	var selected []int
	info := make(map[int]Stratum, len(strata))
	for _, year := range years {
		indices := strata[year]
		nh := allocation[year]
		isCensus := nh >= len(indices)

		info[year] = Stratum{
			PopulationCount: len(indices),
			SampleCount:     nh,
			IsCensus:        isCensus,
		}

		if isCensus {
			selected = append(selected, indices...)
		} else {
			selected = append(selected, systematicSelect(indices, nh)...)
		}
	}

	sampled := make([]radar.CPCRow, len(selected))
	for i, idx := range selected {
		sampled[i] = rows[idx]
	}

	return &Result{
		Sampled:          sampled,
		PopulationSize:   population,
		SampleSize:       len(sampled),
		SamplingFraction: float64(len(sampled)) / float64(population),
		Strata:           info,
		WasSampled:       true,
	}, nil
}

// groupByYear maps each year to the input indices belonging to it,
// preserving input order within a stratum.
func groupByYear(rows []radar.CPCRow) map[int][]int {
	groups := make(map[int][]int)
	for idx, row := range rows {
		groups[row.Year] = append(groups[row.Year], idx)
	}
	return groups
}

// allocateProportional distributes the sample budget over strata. Census
// strata (size <= threshold) reserve their full size first; the rest of
// the budget is spread proportionally with floor, then a Hare
// largest-remainder pass fills the rounding deficit, never exceeding a
// stratum's population. Remainder ties break by year ascending.
func allocateProportional(sizes map[int]int, target, threshold int) map[int]int {
	censusTotal := 0
	census := make(map[int]bool, len(sizes))
	for year, size := range sizes {
		if size <= threshold {
			census[year] = true
			censusTotal += size
		}
	}

	remaining := target - censusTotal
	nonCensusTotal := 0
	for year, size := range sizes {
		if !census[year] {
			nonCensusTotal += size
		}
	}

	allocation := make(map[int]int, len(sizes))

	if remaining <= 0 || nonCensusTotal == 0 {
		for year, size := range sizes {
			switch {
			case census[year]:
				allocation[year] = size
			case remaining > 0:
				// Keep at least one element per stratum while any
				// budget is left, so every year stays represented.
				allocation[year] = min(1, size)
			default:
				allocation[year] = 0
			}
		}
		return allocation
	}

	type remainder struct {
		year int
		frac float64
	}
	remainders := make([]remainder, 0, len(sizes))

	allocatedSum := 0
	for year, size := range sizes {
		if census[year] {
			allocation[year] = size
			allocatedSum += size
			continue
		}
		exact := float64(remaining) * float64(size) / float64(nonCensusTotal)
		floored := int(math.Floor(exact))
		if floored > size {
			floored = size
		}
		allocation[year] = floored
		allocatedSum += floored
		remainders = append(remainders, remainder{year: year, frac: exact - float64(floored)})
	}

	deficit := target - allocatedSum
	sort.Slice(remainders, func(i, j int) bool {
		if remainders[i].frac != remainders[j].frac {
			return remainders[i].frac > remainders[j].frac
		}
		return remainders[i].year < remainders[j].year
	})

	for _, r := range remainders {
		if deficit <= 0 {
			break
		}
		if allocation[r.year] < sizes[r.year] {
			allocation[r.year]++
			deficit--
		}
	}

	return allocation
}

// systematicSelect picks n indices with even spacing and midpoint start.
func systematicSelect(indices []int, n int) []int {
	total := len(indices)
	if n >= total {
		out := make([]int, total)
		copy(out, indices)
		return out
	}
	if n <= 0 {
		return nil
	}

	step := float64(total) / float64(n)
	start := step / 2.0
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, indices[int(start+float64(i)*step)])
	}
	return out
}

