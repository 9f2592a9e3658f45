package sqlite

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

type codeCount struct {
	Code  string `db:"code"`
	Count int    `db:"count"`
}

type codeYearCount struct {
	Code  string `db:"code"`
	Year  int    `db:"year"`
	Count int    `db:"count"`
}

type pairYearCount struct {
	A     string `db:"a"`
	B     string `db:"b"`
	Year  int    `db:"year"`
	Count int    `db:"count"`
}

// ComputeCPCJaccard builds the CPC co-classification matrix inside SQLite
// from the normalized patent_cpc table: FTS matches are materialized into
// a temp table, codes truncated to the classification level, then the
// top-N codes, their pairwise intersections and per-year tallies come out
// of plain GROUP BYs. No sampling; every matching patent participates.
//
// SQLite temp tables are connection-local, so the whole flow is pinned to
// a single pooled connection.
func (s *PatentStore) ComputeCPCJaccard(ctx context.Context, technology string, startYear, endYear, topN, level int) (*radar.CPCMatrix, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to pin sqlite connection")
	}
	defer conn.Close()

	dropTempTables(ctx, conn)
	defer dropTempTables(context.WithoutCancel(ctx), conn)

	if _, err := conn.ExecContext(ctx, `
		CREATE TEMP TABLE _matched AS
		SELECT fts.rowid AS patent_id
		FROM patents_fts fts
		WHERE patents_fts MATCH ?`,
		SanitizeFTS(technology)); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to materialize fts matches")
	}

	codesSQL := `
		CREATE TEMP TABLE _matched_codes AS
		SELECT DISTINCT pc.patent_id AS patent_id,
		       SUBSTR(pc.cpc_code, 1, ?) AS code,
		       pc.pub_year AS pub_year
		FROM patent_cpc pc
		JOIN _matched m ON m.patent_id = pc.patent_id`
	codesArgs := []interface{}{level}
	if startYear > 0 {
		codesSQL += " WHERE pc.pub_year >= ?"
		codesArgs = append(codesArgs, startYear)
		if endYear > 0 {
			codesSQL += " AND pc.pub_year <= ?"
			codesArgs = append(codesArgs, endYear)
		}
	} else if endYear > 0 {
		codesSQL += " WHERE pc.pub_year <= ?"
		codesArgs = append(codesArgs, endYear)
	}
	if _, err := conn.ExecContext(ctx, codesSQL, codesArgs...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to truncate cpc codes")
	}

	var top []codeCount
	if err := conn.SelectContext(ctx, &top, `
		SELECT code, COUNT(DISTINCT patent_id) AS count
		FROM _matched_codes
		GROUP BY code
		ORDER BY count DESC, code
		LIMIT ?`, topN); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to rank cpc codes")
	}
	if len(top) == 0 {
		return &radar.CPCMatrix{Labels: []string{}, Matrix: [][]float64{}}, nil
	}

	var totalPatents int
	if err := conn.GetContext(ctx, &totalPatents,
		`SELECT COUNT(DISTINCT patent_id) FROM _matched_codes`); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count analyzed patents")
	}

	var all []codeCount
	if err := conn.SelectContext(ctx, &all, `
		SELECT code, COUNT(DISTINCT patent_id) AS count
		FROM _matched_codes
		GROUP BY code
		ORDER BY count DESC, code`); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to list cpc codes")
	}

	topCodes := make([]string, len(top))
	for i, c := range top {
		topCodes[i] = c.Code
	}
	allCodes := make([]string, len(all))
	for i, c := range all {
		allCodes[i] = c.Code
	}

	coSQL, coArgs, err := sqlx.In(`
		SELECT a.code AS a, b.code AS b, COUNT(DISTINCT a.patent_id) AS count
		FROM _matched_codes a
		JOIN _matched_codes b ON b.patent_id = a.patent_id AND a.code < b.code
		WHERE a.code IN (?) AND b.code IN (?)
		GROUP BY a.code, b.code`, topCodes, topCodes)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to expand cpc pair query")
	}
	var coPairs []radar.PairCount
	if err := conn.SelectContext(ctx, &coPairs, coSQL, coArgs...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count cpc co-occurrences")
	}

	countSQL, countArgs, err := sqlx.In(`
		SELECT code, COUNT(DISTINCT patent_id) AS count
		FROM _matched_codes
		WHERE code IN (?)
		GROUP BY code`, topCodes)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to expand cpc count query")
	}
	var perCode []codeCount
	if err := conn.SelectContext(ctx, &perCode, countSQL, countArgs...); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count patents per cpc code")
	}

	var yearCodes []codeYearCount
	if err := conn.SelectContext(ctx, &yearCodes, `
		SELECT code, pub_year AS year, COUNT(DISTINCT patent_id) AS count
		FROM _matched_codes
		WHERE pub_year IS NOT NULL
		GROUP BY code, pub_year`); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count cpc codes per year")
	}

	var yearPairs []pairYearCount
	if err := conn.SelectContext(ctx, &yearPairs, `
		SELECT a.code AS a, b.code AS b, a.pub_year AS year,
		       COUNT(DISTINCT a.patent_id) AS count
		FROM _matched_codes a
		JOIN _matched_codes b ON b.patent_id = a.patent_id
		                      AND a.code < b.code
		                      AND a.pub_year = b.pub_year
		WHERE a.pub_year IS NOT NULL
		GROUP BY a.code, b.code, a.pub_year`); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to count cpc pairs per year")
	}

	return assembleCPCMatrix(topCodes, allCodes, totalPatents, coPairs, perCode, yearCodes, yearPairs), nil
}

func dropTempTables(ctx context.Context, conn *sqlx.Conn) {
	_, _ = conn.ExecContext(ctx, `DROP TABLE IF EXISTS _matched_codes`)
	_, _ = conn.ExecContext(ctx, `DROP TABLE IF EXISTS _matched`)
}

func assembleCPCMatrix(topCodes, allCodes []string, totalPatents int, coPairs []radar.PairCount, perCode []codeCount, yearCodes []codeYearCount, yearPairs []pairYearCount) *radar.CPCMatrix {
	counts := make(map[string]int, len(perCode))
	for _, c := range perCode {
		counts[c.Code] = c.Count
	}

	idx := make(map[string]int, len(topCodes))
	for i, code := range topCodes {
		idx[code] = i
	}

	matrix := make([][]float64, len(topCodes))
	for i := range matrix {
		matrix[i] = make([]float64, len(topCodes))
	}

	connections := 0
	for _, pair := range coPairs {
		union := counts[pair.A] + counts[pair.B] - pair.Count
		jaccard := 0.0
		if union > 0 {
			jaccard = round4(float64(pair.Count) / float64(union))
		}
		i, j := idx[pair.A], idx[pair.B]
		matrix[i][j] = jaccard
		matrix[j][i] = jaccard
		connections++
	}

	result := &radar.CPCMatrix{
		Labels:           topCodes,
		Matrix:           matrix,
		TotalConnections: connections,
		TotalPatents:     totalPatents,
	}

	if len(yearCodes) == 0 && len(yearPairs) == 0 {
		return result
	}

	yearData := &radartypes.CPCYearData{
		AllLabels:  allCodes,
		PairCounts: make(map[string]map[string]int),
		CPCCounts:  make(map[string]map[string]int),
	}
	minYear, maxYear := 0, 0
	observe := func(year int) {
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}

	for _, row := range yearCodes {
		observe(row.Year)
		key := strconv.Itoa(row.Year)
		if yearData.CPCCounts[key] == nil {
			yearData.CPCCounts[key] = make(map[string]int)
		}
		yearData.CPCCounts[key][row.Code] = row.Count
	}
	for _, row := range yearPairs {
		observe(row.Year)
		key := strconv.Itoa(row.Year)
		if yearData.PairCounts[key] == nil {
			yearData.PairCounts[key] = make(map[string]int)
		}
		yearData.PairCounts[key][fmt.Sprintf("%s|%s", row.A, row.B)] = row.Count
	}

	yearData.MinYear = minYear
	yearData.MaxYear = maxYear
	result.YearData = yearData
	return result
}
