package testutil

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/database/sqlite"
)

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustYear(t *testing.T, date string) int {
	t.Helper()
	y, err := strconv.Atoi(date[:4])
	require.NoError(t, err)
	return y
}

// openFixture creates a migrated temp-file database that is removed when
// the test finishes.
func openFixture(t *testing.T, name, migrationDir string) *sqlx.DB {
	t.Helper()
	return openFixtureAt(t, filepath.Join(t.TempDir(), name), migrationDir)
}

// openFixtureAt is openFixture with a caller-chosen file path, for tests
// that also need to point configuration at the database file.
func openFixtureAt(t *testing.T, path, migrationDir string) *sqlx.DB {
	t.Helper()
	db, err := sqlite.Open(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db.DB, sqlite.MigrationsFS(), migrationDir))
	return db
}

// NewGleifCacheDB returns an empty, migrated entity-resolution cache.
func NewGleifCacheDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return openFixture(t, "gleif_cache.db", sqlite.GleifCacheMigrations)
}

// NewGleifCacheDBAt is NewGleifCacheDB at a caller-chosen path.
func NewGleifCacheDBAt(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	return openFixtureAt(t, path, sqlite.GleifCacheMigrations)
}

// ─────────────────────────────────────────────────────────────────────────────
// Patent fixture
// ─────────────────────────────────────────────────────────────────────────────

type patentSeed struct {
	id        int
	pubNumber string
	familyID  string
	title     string
	abstract  string
	pubDate   string
	names     string
	countries string
	cpcCodes  string
}

// PatentSeeds is the corpus behind NewPatentDB: eight patents matching the
// phrase "quantum computing" spread over 2018-2023 plus one solar patent
// that must never match. The newest publication date is 2023-11-30, so the
// last full year of the fixture is 2023.
var PatentSeeds = []patentSeed{
	{1, "EP3584001A1", "F100", "Quantum computing processor with superconducting circuits",
		"A processor for quantum computing built from superconducting resonators.",
		"2018-03-15", "INTERNATIONAL BUSINESS MACHINES CORP", "US", "G06N10/00,H01L29/66"},
	{2, "US2019200002A1", "F100", "Error correction for quantum computing",
		"Syndrome decoding hardware for quantum computing error correction.",
		"2019-06-20", "INTERNATIONAL BUSINESS MACHINES CORP", "US", "G06N10/70"},
	{3, "EP3584003A1", "F101", "Superconducting qubit device for quantum computing",
		"A flux-tunable qubit for quantum computing workloads.",
		"2019-09-10", "GOOGLE LLC", "US", "G06N10/00,H01L39/22"},
	{4, "US2020100004A1", "F102", "Quantum computing control electronics",
		"Cryogenic control electronics for quantum computing systems.",
		"2020-01-20", "GOOGLE LLC,INTERNATIONAL BUSINESS MACHINES CORP", "US,US", "G06N10/40"},
	{5, "EP3790005A1", "F103", "Photonic quantum computing device",
		"Integrated photonics for measurement-based quantum computing.",
		"2021-05-05", "PSIQUANTUM CORP,TECHNISCHE UNIVERSITEIT DELFT", "US,NL", "G06N10/00,G02F1/01"},
	{6, "CN114300006A", "F104", "Annealing method for quantum computing",
		"A quantum computing annealing schedule with adaptive pauses.",
		"2022-07-12", "ALIBABA GROUP HOLDING LTD", "CN", "G06N10/60"},
	{7, "EP4170007A1", "F105", "Trapped ion quantum computing apparatus",
		"Ion-trap chain shuttling for scalable quantum computing.",
		"2023-02-28", "IONQ INC", "US", "G06N10/40,H01J49/42"},
	{8, "US2023300008A1", "F106", "Hybrid quantum computing architecture",
		"Classical-quantum computing co-processing architecture.",
		"2023-11-30", "INTERNATIONAL BUSINESS MACHINES CORP", "US", "G06N10/80"},
	{9, "EP3700009A1", "F107", "Solar panel tracking mount",
		"A dual-axis tracking mount for photovoltaic modules.",
		"2020-04-01", "SUNPOWER CORP", "US", "H02S20/32"},
}

// NewPatentDB returns a migrated patent database seeded with PatentSeeds,
// including the normalized applicants and patent_cpc side tables.
func NewPatentDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return NewPatentDBAt(t, filepath.Join(t.TempDir(), "patents.db"))
}

// NewPatentDBAt is NewPatentDB at a caller-chosen path.
func NewPatentDBAt(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	db := openFixtureAt(t, path, sqlite.PatentMigrations)

	applicantIDs := map[string]int{}
	for _, p := range PatentSeeds {
		_, err := db.Exec(`
			INSERT INTO patents
				(id, publication_number, family_id, title, abstract,
				 publication_date, applicant_names, applicant_countries, cpc_codes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.id, p.pubNumber, p.familyID, p.title, p.abstract,
			p.pubDate, p.names, p.countries, p.cpcCodes)
		require.NoError(t, err)

		year := mustYear(t, p.pubDate)
		for _, name := range splitCSV(p.names) {
			id, ok := applicantIDs[name]
			if !ok {
				id = len(applicantIDs) + 1
				applicantIDs[name] = id
				_, err = db.Exec(`INSERT INTO applicants (id, name, normalized_name) VALUES (?, ?, ?)`,
					id, name, radar.NormalizeApplicantName(name))
				require.NoError(t, err)
			}
			_, err = db.Exec(`INSERT INTO patent_applicants (patent_id, applicant_id) VALUES (?, ?)`,
				p.id, id)
			require.NoError(t, err)
		}
		for _, code := range splitCSV(p.cpcCodes) {
			_, err = db.Exec(`INSERT INTO patent_cpc (patent_id, cpc_code, pub_year) VALUES (?, ?, ?)`,
				p.id, code, year)
			require.NoError(t, err)
		}
	}
	return db
}

// DropPatentSideTables removes the normalized applicant and CPC tables so
// tests can exercise the denormalized fallback paths.
func DropPatentSideTables(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS patent_cpc`,
		`DROP TABLE IF EXISTS patent_applicants`,
		`DROP TABLE IF EXISTS applicants`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Project fixture
// ─────────────────────────────────────────────────────────────────────────────

type projectSeed struct {
	id        int
	acronym   string
	title     string
	objective string
	startDate string
	endDate   string
	ec        float64
	totalCost float64
	programme string
	scheme    string
}

type organizationSeed struct {
	id        int
	projectID int
	name      string
	country   string
	city      string
	sme       string
	role      string
}

// ProjectSeeds is the corpus behind NewProjectDB: three projects matching
// "quantum computing" starting 2019, 2020 and 2022 plus one solar project.
// The newest start date is 2022-09-01, so the last full year is 2021.
var ProjectSeeds = []projectSeed{
	{1, "QFLAG", "Quantum computing flagship platform",
		"Develop a scalable quantum computing platform for European industry.",
		"2019-01-01", "2021-12-31", 2500000, 3000000, "H2020", "RIA"},
	{2, "QMIT", "Quantum computing error mitigation",
		"An error mitigation toolchain for near-term quantum computing.",
		"2020-06-01", "2023-05-31", 1500000, 1500000, "H2020", "ERC"},
	{3, "QNET", "Quantum computing network pilot",
		"Pilot network linking national quantum computing testbeds.",
		"2022-09-01", "2025-08-31", 4200000, 5000000, "HORIZON", "RIA"},
	{4, "SUNGRID", "Solar grid balancing",
		"Grid-scale integration of photovoltaic generation.",
		"2021-03-01", "2024-02-29", 1000000, 1200000, "H2020", "IA"},
}

// OrganizationSeeds lists the consortium members of ProjectSeeds.
var OrganizationSeeds = []organizationSeed{
	{1, 1, "TECHNISCHE UNIVERSITEIT DELFT", "NL", "Delft", "no", "coordinator"},
	{2, 1, "CENTRE NATIONAL DE LA RECHERCHE SCIENTIFIQUE", "FR", "Paris", "no", "participant"},
	{3, 1, "FRAUNHOFER GESELLSCHAFT", "DE", "Muenchen", "no", "participant"},
	{4, 2, "TECHNISCHE UNIVERSITEIT DELFT", "NL", "Delft", "no", "coordinator"},
	{5, 2, "QUBITWORKS GMBH", "DE", "Berlin", "YES", "participant"},
	{6, 3, "CENTRE NATIONAL DE LA RECHERCHE SCIENTIFIQUE", "FR", "Paris", "no", "coordinator"},
	{7, 3, "TECHNISCHE UNIVERSITEIT DELFT", "NL", "Delft", "no", "participant"},
	{8, 3, "AALTO KORKEAKOULUSAATIO", "FI", "Espoo", "no", "participant"},
	{9, 4, "SUNGRID SL", "ES", "Madrid", "YES", "coordinator"},
}

// NewProjectDB returns a migrated project database seeded with
// ProjectSeeds and OrganizationSeeds.
func NewProjectDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return NewProjectDBAt(t, filepath.Join(t.TempDir(), "projects.db"))
}

// NewProjectDBAt is NewProjectDB at a caller-chosen path.
func NewProjectDBAt(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	db := openFixtureAt(t, path, sqlite.ProjectMigrations)

	for _, p := range ProjectSeeds {
		_, err := db.Exec(`
			INSERT INTO projects
				(id, acronym, title, objective, start_date, end_date,
				 ec_max_contribution, total_cost, framework_programme, funding_scheme)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.id, p.acronym, p.title, p.objective, p.startDate, p.endDate,
			p.ec, p.totalCost, p.programme, p.scheme)
		require.NoError(t, err)
	}
	for _, o := range OrganizationSeeds {
		_, err := db.Exec(`
			INSERT INTO organizations (id, project_id, name, country, city, sme, role)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.id, o.projectID, o.name, o.country, o.city, o.sme, o.role)
		require.NoError(t, err)
	}
	return db
}
