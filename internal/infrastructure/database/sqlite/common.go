package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// The extracts carry two date-filter conventions: aggregations grouped by
// year compare the four leading date digits as strings, everything else
// compares full ISO dates. Both are kept so query plans stay identical to
// the shipped databases' indexes.

func yearFilterSubstr(sb *strings.Builder, args *[]interface{}, col string, startYear, endYear int) {
	if startYear > 0 {
		sb.WriteString(" AND SUBSTR(" + col + ", 1, 4) >= ?")
		*args = append(*args, strconv.Itoa(startYear))
	}
	if endYear > 0 {
		sb.WriteString(" AND SUBSTR(" + col + ", 1, 4) <= ?")
		*args = append(*args, strconv.Itoa(endYear))
	}
}

func yearFilterDate(sb *strings.Builder, args *[]interface{}, col string, startYear, endYear int) {
	if startYear > 0 {
		sb.WriteString(" AND " + col + " >= ?")
		*args = append(*args, fmt.Sprintf("%d-01-01", startYear))
	}
	if endYear > 0 {
		sb.WriteString(" AND " + col + " <= ?")
		*args = append(*args, fmt.Sprintf("%d-12-31", endYear))
	}
}

// hasTable probes sqlite_master for a table. The extracts ship with and
// without the normalized side tables, so stores decide per query.
func hasTable(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var found string
	err := db.GetContext(ctx, &found,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to probe sqlite_master").WithDetail(name)
	}
	return true, nil
}

// lastFullYear applies the completeness rule shared by both extracts: the
// year of the newest record counts as complete only when that record's
// month is November or later, otherwise the previous year is the last
// complete one.
func lastFullYear(ctx context.Context, db *sqlx.DB, query string) (int, bool, error) {
	var maxDate sql.NullString
	if err := db.GetContext(ctx, &maxDate, query); err != nil {
		return 0, false, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to read max record date")
	}
	if !maxDate.Valid || len(maxDate.String) < 7 {
		return 0, false, nil
	}
	year, err := strconv.Atoi(maxDate.String[:4])
	if err != nil {
		return 0, false, nil
	}
	month, err := strconv.Atoi(maxDate.String[5:7])
	if err != nil {
		return 0, false, nil
	}
	if month >= 11 {
		return year, true, nil
	}
	return year - 1, true, nil
}

// sortedActorCounts flattens a tally map ordered by count desc, name asc.
func sortedActorCounts(counts map[string]int, limit int) []radar.ActorCount {
	out := make([]radar.ActorCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, radar.ActorCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sortPairCounts orders pairs by count desc, then (a, b) asc.
func sortPairCounts(pairs []radar.PairCount) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

// sortCountryCounts orders countries by count desc, then code asc.
func sortCountryCounts(countries []radar.CountryCount) {
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].Count != countries[j].Count {
			return countries[i].Count > countries[j].Count
		}
		return countries[i].Country < countries[j].Country
	})
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
