package panels_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/database/sqlite"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/testutil"
)

const fixtureTech = "quantum computing"

// fixtureQuery spans the full seeded window of the test databases.
func fixtureQuery() panels.Query {
	return panels.Query{Technology: fixtureTech, StartYear: 2018, EndYear: 2023}
}

func nopLog() logging.Logger { return logging.NewNop() }

func newPatentStore(t *testing.T) radar.PatentStore {
	t.Helper()
	return sqlite.NewPatentStore(testutil.NewPatentDB(t))
}

func newProjectStore(t *testing.T) radar.ProjectStore {
	t.Helper()
	return sqlite.NewProjectStore(testutil.NewProjectDB(t))
}

// closedPatentStore returns a store whose every query fails, for the
// degradation paths.
func closedPatentStore(t *testing.T) radar.PatentStore {
	t.Helper()
	db := testutil.NewPatentDB(t)
	require.NoError(t, db.Close())
	return sqlite.NewPatentStore(db)
}

func closedProjectStore(t *testing.T) radar.ProjectStore {
	t.Helper()
	db := testutil.NewProjectDB(t)
	require.NoError(t, db.Close())
	return sqlite.NewProjectStore(db)
}

func growth(v float64) *float64 { return &v }

// scriptedPatentStore serves canned rows for the handful of queries a
// test cares about. Everything else panics through the embedded nil
// interface, which is exactly what calling it would deserve.
type scriptedPatentStore struct {
	radar.PatentStore

	yearly   []radar.YearCount
	lastYear int
	lastOK   bool
	hasCPC   bool
	cpcRows  []radar.CPCRow
}

func (s *scriptedPatentStore) CountByYear(context.Context, string, int, int) ([]radar.YearCount, error) {
	return s.yearly, nil
}

func (s *scriptedPatentStore) LastFullYear(context.Context) (int, bool, error) {
	return s.lastYear, s.lastOK, nil
}

func (s *scriptedPatentStore) HasCPCTable(context.Context) (bool, error) {
	return s.hasCPC, nil
}

func (s *scriptedPatentStore) CPCCodesWithYears(context.Context, string, int, int, int) ([]radar.CPCRow, error) {
	return s.cpcRows, nil
}

type stubPublications struct {
	counts map[int]int
	err    error
}

func (s *stubPublications) CountByYear(context.Context, string, int, int) (map[int]int, error) {
	return s.counts, s.err
}

type stubPapers struct {
	papers   []radar.Paper
	err      error
	gotLimit int
}

func (s *stubPapers) SearchPapers(_ context.Context, _ string, _, _, limit int) ([]radar.Paper, error) {
	s.gotLimit = limit
	return s.papers, s.err
}

type stubResolver struct {
	entities  map[string]*radar.ResolvedEntity
	err       error
	gotNames  []string
	gotBudget int
}

func (s *stubResolver) ResolveEntity(_ context.Context, name string) (*radar.ResolvedEntity, error) {
	return s.entities[radar.NormalizeCacheKey(name)], s.err
}

func (s *stubResolver) ResolveBatch(_ context.Context, names []string, maxAPICalls int) (map[string]*radar.ResolvedEntity, error) {
	s.gotNames = append([]string(nil), names...)
	s.gotBudget = maxAPICalls
	out := make(map[string]*radar.ResolvedEntity, len(names))
	for _, name := range names {
		if entity, ok := s.entities[name]; ok {
			out[name] = entity
		}
	}
	return out, s.err
}
