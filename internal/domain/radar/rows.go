// Package radar holds the domain model of the technology radar: the row
// shapes read from the patent and project stores, the ports implemented by
// the outbound API clients, and pure name normalization rules. Everything
// here is persistence- and transport-agnostic.
package radar

import (
	"time"

	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// YearCount is one year's record tally.
type YearCount struct {
	Year  int `db:"year"`
	Count int `db:"count"`
}

// ActorCount is one applicant's or organization's record tally.
type ActorCount struct {
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// ActorYearCount is one actor's tally within a single year.
type ActorYearCount struct {
	Year  int    `db:"year"`
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// CountryCount is one country's record tally.
type CountryCount struct {
	Country string `db:"country"`
	Count   int    `db:"count"`
}

// PairCount is an undirected co-occurrence edge between two actors or
// two countries.
type PairCount struct {
	A     string `db:"a"`
	B     string `db:"b"`
	Count int    `db:"count"`
}

// CPCRow is one patent's raw comma-joined CPC codes and publication year.
type CPCRow struct {
	Codes string `db:"codes"`
	Year  int    `db:"year"`
}

// FundingYearRow is one year's EC funding volume and project count.
type FundingYearRow struct {
	Year     int     `db:"year"`
	Funding  float64 `db:"funding"`
	Projects int     `db:"projects"`
}

// ProgrammeFundingRow aggregates funding per framework programme.
type ProgrammeFundingRow struct {
	Programme string  `db:"programme"`
	Funding   float64 `db:"funding"`
	Projects  int     `db:"projects"`
}

// ProgrammeYearRow aggregates funding per framework programme and year.
type ProgrammeYearRow struct {
	Year      int     `db:"year"`
	Programme string  `db:"programme"`
	Funding   float64 `db:"funding"`
	Projects  int     `db:"projects"`
}

// InstrumentRow aggregates projects per funding scheme and year.
type InstrumentRow struct {
	Scheme  string  `db:"scheme"`
	Year    int     `db:"year"`
	Count   int     `db:"count"`
	Funding float64 `db:"funding"`
}

// OrganizationRow is one organization with its project count and flags.
type OrganizationRow struct {
	Name          string `db:"name"`
	Count         int    `db:"count"`
	Country       string `db:"country"`
	IsSME         bool   `db:"is_sme"`
	IsCoordinator bool   `db:"is_coordinator"`
}

// CityCount is one city's organization tally.
type CityCount struct {
	City    string `db:"city"`
	Country string `db:"country"`
	Count   int    `db:"count"`
}

// CPCMatrix is a CPC co-classification result: top-N labels, the symmetric
// Jaccard matrix over them, and the per-year tallies behind it. It is
// produced either SQL-natively from the normalized patent_cpc table or by
// the in-memory co-occurrence kernel on the sampled fallback path.
type CPCMatrix struct {
	Labels           []string
	Matrix           [][]float64
	TotalConnections int
	TotalPatents     int
	YearData         *radartypes.CPCYearData
}

// Paper is one scholarly publication as the research-impact analysis sees
// it, already mapped out of the upstream wire format.
type Paper struct {
	Title                    string
	Year                     int
	CitationCount            int
	InfluentialCitationCount int
	ReferenceCount           int
	Venue                    string
	Authors                  []string
	FieldsOfStudy            []string
	PublicationTypes         []string
}

// ResolvedEntity is a legal entity resolved against the LEI registry.
type ResolvedEntity struct {
	LEI       string
	LegalName string
	Country   string
	City      string
}

// ResolutionCacheEntry is one row of the persistent entity-resolution
// cache. Negative results are stored with LEI and LegalName both nil so
// that known-unresolvable names do not burn API calls for the TTL window.
type ResolutionCacheEntry struct {
	RawName    string    `db:"raw_name"`
	LEI        *string   `db:"lei"`
	LegalName  *string   `db:"legal_name"`
	Country    *string   `db:"country"`
	City       *string   `db:"city"`
	ResolvedAt time.Time `db:"resolved_at"`
}

// IsNegative reports whether the entry caches a failed resolution.
func (e *ResolutionCacheEntry) IsNegative() bool {
	return e.LEI == nil && e.LegalName == nil
}

// Entity converts a positive cache entry back into a ResolvedEntity.
// Returns nil for negative entries.
func (e *ResolutionCacheEntry) Entity() *ResolvedEntity {
	if e.IsNegative() {
		return nil
	}
	ent := &ResolvedEntity{}
	if e.LEI != nil {
		ent.LEI = *e.LEI
	}
	if e.LegalName != nil {
		ent.LegalName = *e.LegalName
	}
	if e.Country != nil {
		ent.Country = *e.Country
	}
	if e.City != nil {
		ent.City = *e.City
	}
	return ent
}
