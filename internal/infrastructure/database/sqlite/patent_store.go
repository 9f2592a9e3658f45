package sqlite

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// Fixed result caps for queries whose fan-out is bounded by the analysis,
// not by the caller.
const (
	patentCountryLimit          = 20
	patentApplicantCountryLimit = 30
)

// PatentStore implements radar.PatentStore against the local patent
// extract: the patents table with its FTS5 index over title/abstract,
// plus optional normalized applicant and CPC side tables.
type PatentStore struct {
	db *sqlx.DB
}

// NewPatentStore wraps an open patent database.
func NewPatentStore(db *sqlx.DB) *PatentStore {
	return &PatentStore{db: db}
}

var _ radar.PatentStore = (*PatentStore)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Yearly aggregations
// ─────────────────────────────────────────────────────────────────────────────

// CountByYear returns publication counts per year, ascending.
func (s *PatentStore) CountByYear(ctx context.Context, technology string, startYear, endYear int) ([]radar.YearCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT CAST(SUBSTR(p.publication_date, 1, 4) AS INTEGER) AS year,
		       COUNT(*) AS count
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.publication_date IS NOT NULL
		  AND LENGTH(p.publication_date) >= 4`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY year ORDER BY year")

	var rows []radar.YearCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count patents by year")
	}
	return rows, nil
}

// CountFamiliesByYear returns distinct patent-family counts per year.
func (s *PatentStore) CountFamiliesByYear(ctx context.Context, technology string, startYear, endYear int) ([]radar.YearCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT CAST(SUBSTR(p.publication_date, 1, 4) AS INTEGER) AS year,
		       COUNT(DISTINCT p.family_id) AS count
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.publication_date IS NOT NULL
		  AND LENGTH(p.publication_date) >= 4
		  AND p.family_id IS NOT NULL`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY year ORDER BY year")

	var rows []radar.YearCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count patent families by year")
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Applicants
// ─────────────────────────────────────────────────────────────────────────────

// TopApplicants returns the most active applicants by patent count. The
// normalized side tables resolve multi-applicant patents correctly; the
// denormalized fallback splits the comma-joined column and re-aggregates.
func (s *PatentStore) TopApplicants(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.ActorCount, error) {
	normalized, err := hasTable(ctx, s.db, "patent_applicants")
	if err != nil {
		return nil, err
	}
	if normalized {
		return s.topApplicantsNormalized(ctx, technology, startYear, endYear, limit)
	}
	return s.topApplicantsDenormalized(ctx, technology, startYear, endYear, limit)
}

func (s *PatentStore) topApplicantsNormalized(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.ActorCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT a.normalized_name AS name,
		       COUNT(DISTINCT pa.patent_id) AS count
		FROM patents_fts fts
		JOIN patent_applicants pa ON pa.patent_id = fts.rowid
		JOIN applicants a ON a.id = pa.applicant_id
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY a.normalized_name ORDER BY count DESC, a.normalized_name LIMIT ?")
	args = append(args, limit)

	var rows []radar.ActorCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank patent applicants")
	}
	return rows, nil
}

func (s *PatentStore) topApplicantsDenormalized(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.ActorCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.applicant_names AS name, COUNT(*) AS count
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.applicant_names IS NOT NULL
		  AND p.applicant_names != ''`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY p.applicant_names ORDER BY count DESC, p.applicant_names LIMIT ?")
	args = append(args, limit)

	var raw []radar.ActorCount
	if err := s.db.SelectContext(ctx, &raw, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank patent applicants")
	}

	counts := make(map[string]int, len(raw))
	for _, row := range raw {
		for _, part := range strings.Split(row.Name, ",") {
			name := strings.ToUpper(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			counts[name] += row.Count
		}
	}
	return sortedActorCounts(counts, limit), nil
}

// TopApplicantsByYear returns per-year applicant counts for timeline views.
// Names stay as stored (comma-joined in the denormalized column); the
// caller normalizes when it merges actors across sources.
func (s *PatentStore) TopApplicantsByYear(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.ActorYearCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.applicant_names AS name,
		       CAST(SUBSTR(p.publication_date, 1, 4) AS INTEGER) AS year,
		       COUNT(*) AS count
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.applicant_names IS NOT NULL
		  AND p.applicant_names != ''
		  AND p.publication_date IS NOT NULL
		  AND LENGTH(p.publication_date) >= 4`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY p.applicant_names, year ORDER BY count DESC, year, p.applicant_names LIMIT ?")
	args = append(args, limit*10)

	var rows []radar.ActorYearCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank patent applicants by year")
	}
	return rows, nil
}

// CoApplicants returns co-filing pairs with joint patent counts. Without
// the normalized tables, pairs are derived from the comma-joined column.
func (s *PatentStore) CoApplicants(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.PairCount, error) {
	normalized, err := hasTable(ctx, s.db, "patent_applicants")
	if err != nil {
		return nil, err
	}
	if normalized {
		return s.coApplicantsNormalized(ctx, technology, startYear, endYear, limit)
	}
	return s.coApplicantsDenormalized(ctx, technology, startYear, endYear, limit)
}

func (s *PatentStore) coApplicantsNormalized(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.PairCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT a1.normalized_name AS a,
		       a2.normalized_name AS b,
		       COUNT(DISTINCT pa1.patent_id) AS count
		FROM patents_fts fts
		JOIN patent_applicants pa1 ON pa1.patent_id = fts.rowid
		JOIN patent_applicants pa2 ON pa2.patent_id = pa1.patent_id
		                           AND pa2.applicant_id > pa1.applicant_id
		JOIN applicants a1 ON a1.id = pa1.applicant_id
		JOIN applicants a2 ON a2.id = pa2.applicant_id
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY a1.normalized_name, a2.normalized_name ORDER BY count DESC, a, b LIMIT ?")
	args = append(args, limit)

	var rows []radar.PairCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank co-applicant pairs")
	}
	return rows, nil
}

func (s *PatentStore) coApplicantsDenormalized(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.PairCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.applicant_names AS name, COUNT(*) AS count
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.applicant_names LIKE '%,%'`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY p.applicant_names ORDER BY count DESC, p.applicant_names LIMIT ?")
	args = append(args, limit)

	var raw []radar.ActorCount
	if err := s.db.SelectContext(ctx, &raw, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank co-applicant pairs")
	}

	type pairKey struct{ a, b string }
	pairs := make(map[pairKey]int)
	for _, row := range raw {
		seen := make(map[string]bool)
		var names []string
		for _, part := range strings.Split(row.Name, ",") {
			name := strings.ToUpper(strings.TrimSpace(part))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				a, b := names[i], names[j]
				if b < a {
					a, b = b, a
				}
				pairs[pairKey{a, b}] += row.Count
			}
		}
	}

	out := make([]radar.PairCount, 0, len(pairs))
	for key, count := range pairs {
		out = append(out, radar.PairCount{A: key.a, B: key.b, Count: count})
	}
	sortPairCounts(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Countries
// ─────────────────────────────────────────────────────────────────────────────

// CountByCountry returns patent counts grouped by the publication office
// code (first two characters of the publication number).
func (s *PatentStore) CountByCountry(ctx context.Context, technology string, startYear, endYear int) ([]radar.CountryCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT UPPER(SUBSTR(p.publication_number, 1, 2)) AS country,
		       COUNT(*) AS count
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.publication_number IS NOT NULL
		  AND LENGTH(p.publication_number) >= 2`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" GROUP BY country ORDER BY count DESC, country LIMIT ?")
	args = append(args, patentCountryLimit)

	var rows []radar.CountryCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count patents by office country")
	}
	return rows, nil
}

// CountByApplicantCountry returns patent counts grouped by applicant
// residence country, tallied from the comma-joined countries column. Every
// occurrence counts, so a patent with two German applicants adds two.
func (s *PatentStore) CountByApplicantCountry(ctx context.Context, technology string, startYear, endYear int) ([]radar.CountryCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.applicant_countries
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.applicant_countries IS NOT NULL
		  AND p.applicant_countries != ''`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)

	var raw []string
	if err := s.db.SelectContext(ctx, &raw, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count patents by applicant country")
	}

	counts := make(map[string]int)
	for _, joined := range raw {
		for _, part := range strings.Split(joined, ",") {
			country := strings.ToUpper(strings.TrimSpace(part))
			if len(country) == 2 {
				counts[country]++
			}
		}
	}

	out := make([]radar.CountryCount, 0, len(counts))
	for country, count := range counts {
		out = append(out, radar.CountryCount{Country: country, Count: count})
	}
	sortCountryCounts(out)
	if len(out) > patentApplicantCountryLimit {
		out = out[:patentApplicantCountryLimit]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CPC classification
// ─────────────────────────────────────────────────────────────────────────────

// CPCCodesWithYears returns raw per-patent CPC code strings plus the
// publication year for the in-memory co-occurrence fallback.
func (s *PatentStore) CPCCodesWithYears(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.CPCRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.cpc_codes AS codes,
		       CAST(SUBSTR(p.publication_date, 1, 4) AS INTEGER) AS year
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		  AND p.cpc_codes IS NOT NULL
		  AND p.cpc_codes != ''
		  AND p.publication_date IS NOT NULL
		  AND LENGTH(p.publication_date) >= 4`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.publication_date", startYear, endYear)
	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	var raw []radar.CPCRow
	if err := s.db.SelectContext(ctx, &raw, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to read patent cpc codes")
	}

	rows := raw[:0]
	for _, row := range raw {
		if row.Codes != "" && row.Year != 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// HasCPCTable reports whether the normalized patent_cpc table exists.
func (s *PatentStore) HasCPCTable(ctx context.Context) (bool, error) {
	return hasTable(ctx, s.db, "patent_cpc")
}

// SuggestTitles returns patent titles matching a prefix query.
func (s *PatentStore) SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error) {
	var raw []string
	err := s.db.SelectContext(ctx, &raw, `
		SELECT COALESCE(p.title, '')
		FROM patents_fts fts
		JOIN patents p ON p.id = fts.rowid
		WHERE patents_fts MATCH ?
		LIMIT ?`,
		SanitizeFTSPrefix(prefix), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to query patent title suggestions")
	}

	titles := raw[:0]
	for _, t := range raw {
		if t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// LastFullYear returns the last calendar year the extract covers
// completely.
func (s *PatentStore) LastFullYear(ctx context.Context) (int, bool, error) {
	return lastFullYear(ctx, s.db, `
		SELECT MAX(publication_date) FROM patents
		WHERE publication_date IS NOT NULL
		  AND LENGTH(publication_date) >= 7`)
}
