package radar

import "context"

// PublicationCounter counts scholarly publications per year for a
// technology term. Implemented by the OpenAIRE client.
type PublicationCounter interface {
	// CountByYear returns a year-to-count map. Years whose upstream
	// request failed are absent from the map; an error is returned only
	// when no year could be fetched at all.
	CountByYear(ctx context.Context, technology string, startYear, endYear int) (map[int]int, error)
}

// PaperSearcher retrieves scholarly papers for a technology term within
// a publication-year window. Implemented by the Semantic Scholar client.
type PaperSearcher interface {
	// SearchPapers returns up to limit papers, possibly fewer when the
	// upstream pagination ends early or a later page fails.
	SearchPapers(ctx context.Context, technology string, startYear, endYear, limit int) ([]Paper, error)
}

// EntityResolver resolves organization names against the LEI registry.
// Implemented by the GLEIF client.
type EntityResolver interface {
	// ResolveEntity resolves a single name. A nil entity without error
	// means the registry knows no match.
	ResolveEntity(ctx context.Context, name string) (*ResolvedEntity, error)

	// ResolveBatch resolves many names cache-first. At most maxAPICalls
	// registry requests are made; the remainder map to nil.
	ResolveBatch(ctx context.Context, names []string, maxAPICalls int) (map[string]*ResolvedEntity, error)
}
