package sqlite

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

const projectCountryLimit = 20

// ProjectStore implements radar.ProjectStore against the local EU research
// project extract: the projects table with its FTS5 index over
// title/objective plus the per-project organizations table.
type ProjectStore struct {
	db *sqlx.DB
}

// NewProjectStore wraps an open project database.
func NewProjectStore(db *sqlx.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

var _ radar.ProjectStore = (*ProjectStore)(nil)

func (s *ProjectStore) CountByYear(ctx context.Context, technology string, startYear, endYear int) ([]radar.YearCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT CAST(SUBSTR(p.start_date, 1, 4) AS INTEGER) AS year,
		       COUNT(*) AS count
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		WHERE projects_fts MATCH ?
		  AND p.start_date IS NOT NULL
		  AND LENGTH(p.start_date) >= 4`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY year ORDER BY year")

	var rows []radar.YearCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count projects by year")
	}
	return rows, nil
}

// CountByCountry returns distinct project counts per participating
// organization country.
func (s *ProjectStore) CountByCountry(ctx context.Context, technology string, startYear, endYear int) ([]radar.CountryCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o.country AS country,
		       COUNT(DISTINCT o.project_id) AS count
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		JOIN organizations o ON o.project_id = p.id
		WHERE projects_fts MATCH ?
		  AND o.country IS NOT NULL
		  AND o.country != ''`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY o.country ORDER BY count DESC, o.country LIMIT ?")
	args = append(args, projectCountryLimit)

	var rows []radar.CountryCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count projects by country")
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Funding
// ─────────────────────────────────────────────────────────────────────────────

func (s *ProjectStore) FundingByYear(ctx context.Context, technology string, startYear, endYear int) ([]radar.FundingYearRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT CAST(SUBSTR(p.start_date, 1, 4) AS INTEGER) AS year,
		       SUM(p.ec_max_contribution) AS funding,
		       COUNT(*) AS projects
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		WHERE projects_fts MATCH ?
		  AND p.start_date IS NOT NULL
		  AND LENGTH(p.start_date) >= 4
		  AND p.ec_max_contribution IS NOT NULL`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY year ORDER BY year")

	var rows []radar.FundingYearRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to sum funding by year")
	}
	return rows, nil
}

// FundingByProgramme aggregates funding per framework programme, highest
// funded first. Programmes come back as stored; an empty programme is the
// caller's to relabel.
func (s *ProjectStore) FundingByProgramme(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.ProgrammeFundingRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT COALESCE(p.framework_programme, '') AS programme,
		       SUM(p.ec_max_contribution) AS funding,
		       COUNT(*) AS projects
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		WHERE projects_fts MATCH ?
		  AND p.ec_max_contribution IS NOT NULL`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY p.framework_programme ORDER BY funding DESC, programme")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	var rows []radar.ProgrammeFundingRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to sum funding by programme")
	}
	return rows, nil
}

func (s *ProjectStore) FundingByYearAndProgramme(ctx context.Context, technology string, startYear, endYear int) ([]radar.ProgrammeYearRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT CAST(SUBSTR(p.start_date, 1, 4) AS INTEGER) AS year,
		       COALESCE(p.framework_programme, '') AS programme,
		       SUM(p.ec_max_contribution) AS funding,
		       COUNT(*) AS projects
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		WHERE projects_fts MATCH ?
		  AND p.start_date IS NOT NULL
		  AND LENGTH(p.start_date) >= 4
		  AND p.ec_max_contribution IS NOT NULL`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY year, p.framework_programme ORDER BY year, p.framework_programme")

	var rows []radar.ProgrammeYearRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to sum funding by year and programme")
	}
	return rows, nil
}

func (s *ProjectStore) FundingByInstrument(ctx context.Context, technology string, startYear, endYear int) ([]radar.InstrumentRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT p.funding_scheme AS scheme,
		       CAST(SUBSTR(p.start_date, 1, 4) AS INTEGER) AS year,
		       COUNT(*) AS count,
		       SUM(COALESCE(p.ec_max_contribution, 0)) AS funding
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		WHERE projects_fts MATCH ?
		  AND p.funding_scheme IS NOT NULL
		  AND p.funding_scheme != ''
		  AND p.start_date IS NOT NULL
		  AND LENGTH(p.start_date) >= 4`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY p.funding_scheme, year ORDER BY year, count DESC, scheme")

	var rows []radar.InstrumentRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to sum funding by instrument")
	}
	for i := range rows {
		rows[i].Funding = round2(rows[i].Funding)
	}
	return rows, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Organizations
// ─────────────────────────────────────────────────────────────────────────────

func (s *ProjectStore) TopOrganizationsWithCountry(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.OrganizationRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o.name AS name,
		       COALESCE(o.country, '') AS country,
		       COUNT(DISTINCT o.project_id) AS count,
		       MAX(CASE WHEN UPPER(o.sme) = 'YES' THEN 1 ELSE 0 END) AS is_sme,
		       MAX(CASE WHEN o.role = 'coordinator' THEN 1 ELSE 0 END) AS is_coordinator
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		JOIN organizations o ON o.project_id = p.id
		WHERE projects_fts MATCH ?
		  AND o.name IS NOT NULL`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY o.name, o.country ORDER BY count DESC, o.name, o.country LIMIT ?")
	args = append(args, limit)

	var rows []radar.OrganizationRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank project organizations")
	}
	return rows, nil
}

func (s *ProjectStore) OrganizationsByCity(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.CityCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o.city AS city,
		       COALESCE(o.country, '') AS country,
		       COUNT(DISTINCT o.project_id) AS count
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		JOIN organizations o ON o.project_id = p.id
		WHERE projects_fts MATCH ?
		  AND o.city IS NOT NULL
		  AND o.city != ''`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY o.city, o.country ORDER BY count DESC, o.city, o.country LIMIT ?")
	args = append(args, limit)

	var rows []radar.CityCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to group organizations by city")
	}
	return rows, nil
}

func (s *ProjectStore) OrganizationsByYear(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.ActorYearCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o.name AS name,
		       CAST(SUBSTR(p.start_date, 1, 4) AS INTEGER) AS year,
		       COUNT(DISTINCT p.id) AS count
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		JOIN organizations o ON o.project_id = p.id
		WHERE projects_fts MATCH ?
		  AND o.name IS NOT NULL
		  AND p.start_date IS NOT NULL
		  AND LENGTH(p.start_date) >= 4`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterSubstr(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY o.name, year ORDER BY count DESC, year, o.name LIMIT ?")
	args = append(args, limit)

	var rows []radar.ActorYearCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to group organizations by year")
	}
	return rows, nil
}

// CoParticipation returns organization pairs that share projects.
func (s *ProjectStore) CoParticipation(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.PairCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o1.name AS a,
		       o2.name AS b,
		       COUNT(DISTINCT o1.project_id) AS count
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		JOIN organizations o1 ON o1.project_id = p.id
		JOIN organizations o2 ON o2.project_id = o1.project_id
		                      AND o2.id > o1.id
		WHERE projects_fts MATCH ?
		  AND o1.name IS NOT NULL
		  AND o2.name IS NOT NULL`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY o1.name, o2.name ORDER BY count DESC, a, b LIMIT ?")
	args = append(args, limit)

	var rows []radar.PairCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank co-participation pairs")
	}
	return rows, nil
}

// CountryCollaborationPairs returns country pairs with joint project
// counts.
func (s *ProjectStore) CountryCollaborationPairs(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.PairCount, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT o1.country AS a,
		       o2.country AS b,
		       COUNT(DISTINCT o1.project_id) AS count
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		JOIN organizations o1 ON o1.project_id = p.id
		JOIN organizations o2 ON o2.project_id = o1.project_id
		                      AND o2.country > o1.country
		WHERE projects_fts MATCH ?
		  AND o1.country IS NOT NULL AND o1.country != ''
		  AND o2.country IS NOT NULL AND o2.country != ''`)
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&sb, &args, "p.start_date", startYear, endYear)
	sb.WriteString(" GROUP BY o1.country, o2.country ORDER BY count DESC, a, b LIMIT ?")
	args = append(args, limit)

	var rows []radar.PairCount
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank country collaboration pairs")
	}
	return rows, nil
}

// CrossBorderShare returns the share of matched projects whose consortium
// spans at least minCountries distinct countries, rounded to 4 decimals.
func (s *ProjectStore) CrossBorderShare(ctx context.Context, technology string, startYear, endYear, minCountries int) (float64, error) {
	var where strings.Builder
	where.WriteString("WHERE projects_fts MATCH ?")
	args := []interface{}{SanitizeFTS(technology)}
	yearFilterDate(&where, &args, "p.start_date", startYear, endYear)

	var total int
	totalSQL := `
		SELECT COUNT(DISTINCT p.id)
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		` + where.String()
	if err := s.db.GetContext(ctx, &total, totalSQL, args...); err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count matched projects")
	}
	if total == 0 {
		return 0, nil
	}

	var cross int
	crossSQL := `
		SELECT COUNT(*) FROM (
			SELECT o.project_id
			FROM projects_fts fts
			JOIN projects p ON p.id = fts.rowid
			JOIN organizations o ON o.project_id = p.id
			` + where.String() + `
			  AND o.country IS NOT NULL AND o.country != ''
			GROUP BY o.project_id
			HAVING COUNT(DISTINCT o.country) >= ?
		)`
	crossArgs := append(append([]interface{}{}, args...), minCountries)
	if err := s.db.GetContext(ctx, &cross, crossSQL, crossArgs...); err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count cross-border projects")
	}

	return round4(float64(cross) / float64(total)), nil
}

// SuggestTitles returns project titles matching a prefix query.
func (s *ProjectStore) SuggestTitles(ctx context.Context, prefix string, limit int) ([]string, error) {
	var raw []string
	err := s.db.SelectContext(ctx, &raw, `
		SELECT COALESCE(p.title, '')
		FROM projects_fts fts
		JOIN projects p ON p.id = fts.rowid
		WHERE projects_fts MATCH ?
		LIMIT ?`,
		SanitizeFTSPrefix(prefix), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to query project title suggestions")
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
func (s *ProjectStore) LastFullYear(ctx context.Context) (int, bool, error) {
	return lastFullYear(ctx, s.db, `
		SELECT MAX(start_date) FROM projects
		WHERE start_date IS NOT NULL
		  AND LENGTH(start_date) >= 7`)
}
