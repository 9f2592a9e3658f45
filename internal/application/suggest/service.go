// Package suggest turns patent and project titles into autocomplete
// suggestions. Short queries get a curated list; everything else is mined
// from title n-grams, so the vocabulary follows the corpus instead of a
// maintained taxonomy.
package suggest

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
)

const (
	// DefaultLimit is used when the caller passes a non-positive limit.
	DefaultLimit = 8
	// MaxLimit caps the number of suggestions per request.
	MaxLimit = 20

	minQueryRunes     = 2
	patentTitleLimit  = 500
	projectTitleLimit = 200
)

// defaultSuggestions is the curated list served for empty or too-short
// queries. Alphabetical, drawn from the busiest patent classes and EU
// project domains.
var defaultSuggestions = []string{
	"Artificial Intelligence",
	"Autonomous Vehicles",
	"Battery Technology",
	"Blockchain",
	"Carbon Capture",
	"CRISPR",
	"Cybersecurity",
	"Electric Vehicles",
	"Fuel Cells",
	"Gene Therapy",
	"Graphene",
	"Hydrogen Energy",
	"Internet of Things",
	"Laser Technology",
	"Machine Learning",
	"Nanotechnology",
	"Perovskite Solar",
	"Photovoltaic",
	"Quantum Computing",
	"Robotics",
	"Semiconductor",
	"Solid-State Batteries",
	"Superconductor",
	"Wind Energy",
}

// Service mines technology-term suggestions. Either store may be nil;
// a failing store is skipped with a log entry, never an error.
type Service struct {
	patents  radar.PatentStore
	projects radar.ProjectStore
	log      logging.Logger
}

func NewService(patents radar.PatentStore, projects radar.ProjectStore, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{patents: patents, projects: projects, log: logger.Named("suggest")}
}

// Suggest returns up to limit suggestions for q. Queries shorter than two
// runes after trimming fall back to the curated defaults.
func (s *Service) Suggest(ctx context.Context, q string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minQueryRunes {
		return append([]string(nil), defaultSuggestions[:limit]...)
	}

	var titles []string
	if s.patents != nil {
		rows, err := s.patents.SuggestTitles(ctx, q, patentTitleLimit)
		if err != nil {
			s.log.Warn("patent suggestions failed", logging.Err(err))
		} else {
			titles = append(titles, rows...)
		}
	}
	if s.projects != nil {
		rows, err := s.projects.SuggestTitles(ctx, q, projectTitleLimit)
		if err != nil {
			s.log.Warn("cordis suggestions failed", logging.Err(err))
		} else {
			titles = append(titles, rows...)
		}
	}
	if len(titles) == 0 {
		return []string{}
	}

	terms := extractTerms(titles, q)
	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}
