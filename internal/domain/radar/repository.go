package radar

import (
	"context"
	"time"
)

// PatentStore reads the local patent database. Implementations are
// read-only; every query matches the technology term against the
// full-text index and restricts publication years to [startYear, endYear].
type PatentStore interface {
	// CountByYear returns publication counts per year, ascending.
	CountByYear(ctx context.Context, technology string, startYear, endYear int) ([]YearCount, error)

	// CountFamiliesByYear returns distinct patent-family counts per year.
	CountFamiliesByYear(ctx context.Context, technology string, startYear, endYear int) ([]YearCount, error)

	// TopApplicants returns the most active applicants by patent count,
	// descending. Names come normalized (upper-cased, suffix-stripped)
	// when the store carries the normalized applicant tables.
	TopApplicants(ctx context.Context, technology string, startYear, endYear, limit int) ([]ActorCount, error)

	// TopApplicantsByYear returns per-year applicant counts for timeline
	// views.
	TopApplicantsByYear(ctx context.Context, technology string, startYear, endYear, limit int) ([]ActorYearCount, error)

	// CountByCountry returns patent counts grouped by the publication
	// office code (first two characters of the publication number).
	CountByCountry(ctx context.Context, technology string, startYear, endYear int) ([]CountryCount, error)

	// CountByApplicantCountry returns patent counts grouped by applicant
	// residence country.
	CountByApplicantCountry(ctx context.Context, technology string, startYear, endYear int) ([]CountryCount, error)

	// CoApplicants returns co-filing pairs with joint patent counts.
	CoApplicants(ctx context.Context, technology string, startYear, endYear, limit int) ([]PairCount, error)

	// CPCCodesWithYears returns raw per-patent CPC code strings for the
	// in-memory co-occurrence fallback. The limit caps the scan.
	CPCCodesWithYears(ctx context.Context, technology string, startYear, endYear, limit int) ([]CPCRow, error)

	// HasCPCTable reports whether the normalized patent_cpc table exists.
	HasCPCTable(ctx context.Context) (bool, error)

	// ComputeCPCJaccard builds the CPC co-classification matrix inside
	// SQLite from the normalized patent_cpc table.
	ComputeCPCJaccard(ctx context.Context, technology string, startYear, endYear, topN, level int) (*CPCMatrix, error)

	// SuggestTitles returns patent titles matching a prefix query.
	SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error)

	// LastFullYear returns the last calendar year the store covers
	// completely. ok is false when the store holds no dated records.
	LastFullYear(ctx context.Context) (year int, ok bool, err error)
}

// ProjectStore reads the local EU research project database (CORDIS
// extract). Same conventions as PatentStore.
type ProjectStore interface {
	CountByYear(ctx context.Context, technology string, startYear, endYear int) ([]YearCount, error)

	// CountByCountry returns distinct project counts per participating
	// organization country.
	CountByCountry(ctx context.Context, technology string, startYear, endYear int) ([]CountryCount, error)

	FundingByYear(ctx context.Context, technology string, startYear, endYear int) ([]FundingYearRow, error)
	FundingByProgramme(ctx context.Context, technology string, startYear, endYear, limit int) ([]ProgrammeFundingRow, error)
	FundingByYearAndProgramme(ctx context.Context, technology string, startYear, endYear int) ([]ProgrammeYearRow, error)
	FundingByInstrument(ctx context.Context, technology string, startYear, endYear int) ([]InstrumentRow, error)

	TopOrganizationsWithCountry(ctx context.Context, technology string, startYear, endYear, limit int) ([]OrganizationRow, error)
	OrganizationsByCity(ctx context.Context, technology string, startYear, endYear, limit int) ([]CityCount, error)
	OrganizationsByYear(ctx context.Context, technology string, startYear, endYear, limit int) ([]ActorYearCount, error)

	// CoParticipation returns organization pairs that share projects.
	CoParticipation(ctx context.Context, technology string, startYear, endYear, limit int) ([]PairCount, error)

	// CountryCollaborationPairs returns country pairs with joint project
	// counts.
	CountryCollaborationPairs(ctx context.Context, technology string, startYear, endYear, limit int) ([]PairCount, error)

	// CrossBorderShare returns the share of matched projects whose
	// consortium spans at least minCountries distinct countries.
	CrossBorderShare(ctx context.Context, technology string, startYear, endYear, minCountries int) (float64, error)

	SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error)

	LastFullYear(ctx context.Context) (year int, ok bool, err error)
}

// ResolutionCache persists entity-resolution results across requests.
// Lookup must honor the TTL: expired rows count as misses.
type ResolutionCache interface {
	// Lookup returns the cached entry for the key, or nil on miss.
	Lookup(ctx context.Context, rawName string) (*ResolutionCacheEntry, error)

	// Store upserts an entry. Negative results are stored too.
	Store(ctx context.Context, entry *ResolutionCacheEntry) error

	// Purge removes entries resolved before the cutoff and returns how
	// many were deleted.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
