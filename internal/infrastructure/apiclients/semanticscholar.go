package apiclients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
)

const (
	semanticScholarService        = "semantic_scholar"
	defaultSemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"
	defaultPaperLimit             = 200
	paperPageSize                 = 100
	paperPagePause                = 100 * time.Millisecond

	paperSearchFields = "title,year,citationCount,venue,authors,fieldsOfStudy," +
		"publicationTypes,influentialCitationCount,referenceCount"
)

// SemanticScholarConfig configures the paper-search client. The API works
// without a key at lower rate limits.
type SemanticScholarConfig struct {
	BaseURL string
	APIKey  string
}

// SemanticScholarClient retrieves scholarly papers from the Semantic
// Scholar Graph API, paging through results with a courtesy pause.
type SemanticScholarClient struct {
	caller
	config SemanticScholarConfig
}

var _ radar.PaperSearcher = (*SemanticScholarClient)(nil)

// NewSemanticScholarClient builds the client.
func NewSemanticScholarClient(cfg SemanticScholarConfig, logger logging.Logger, opts ...Option) *SemanticScholarClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSemanticScholarBaseURL
	}
	c := &SemanticScholarClient{
		caller: newCaller(semanticScholarService, logger),
		config: cfg,
	}
	for _, opt := range opts {
		opt(&c.caller)
	}
	return c
}

// SearchPapers pages through the search results until limit papers are
// gathered or the result set ends. A page failing after the first returns
// the papers gathered so far without an error.
func (c *SemanticScholarClient) SearchPapers(ctx context.Context, technology string, startYear, endYear, limit int) ([]radar.Paper, error) {
	if limit <= 0 {
		limit = defaultPaperLimit
	}

	header := http.Header{}
	if c.config.APIKey != "" {
		header.Set("x-api-key", c.config.APIKey)
	}

	papers := make([]radar.Paper, 0, limit)
	offset := 0
	for {
		pageSize := paperPageSize
		if remaining := limit - len(papers); remaining < pageSize {
			pageSize = remaining
		}

		q := url.Values{}
		q.Set("query", technology)
		q.Set("year", fmt.Sprintf("%d-%d", startYear, endYear))
		q.Set("fields", paperSearchFields)
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(pageSize))

		var page paperSearchPage
		if err := c.getJSON(ctx, c.config.BaseURL+"/paper/search?"+q.Encode(), header, &page); err != nil {
			if offset == 0 {
				return nil, err
			}
			c.logger.Warn("Page failed, returning partial results",
				logging.Int("offset", offset),
				logging.Int("papers", len(papers)),
				logging.Err(err))
			break
		}

		for _, d := range page.Data {
			papers = append(papers, d.toPaper())
		}
		if len(page.Data) == 0 {
			break
		}
		offset += len(page.Data)
		if len(papers) >= limit {
			break
		}
		if page.Total > 0 && offset >= page.Total {
			break
		}

		select {
		case <-ctx.Done():
			return papers, nil
		case <-time.After(paperPagePause):
		}
	}

	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire format
// ─────────────────────────────────────────────────────────────────────────────

type paperSearchPage struct {
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Data   []wirePaper `json:"data"`
}

type wirePaper struct {
	Title                    string       `json:"title"`
	Year                     int          `json:"year"`
	CitationCount            int          `json:"citationCount"`
	InfluentialCitationCount int          `json:"influentialCitationCount"`
	ReferenceCount           int          `json:"referenceCount"`
	Venue                    string       `json:"venue"`
	Authors                  []wireAuthor `json:"authors"`
	FieldsOfStudy            []string     `json:"fieldsOfStudy"`
	PublicationTypes         []string     `json:"publicationTypes"`
}

type wireAuthor struct {
	Name string `json:"name"`
}

func (w wirePaper) toPaper() radar.Paper {
	authors := make([]string, 0, len(w.Authors))
	for _, a := range w.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}
	return radar.Paper{
		Title:                    w.Title,
		Year:                     w.Year,
		CitationCount:            w.CitationCount,
		InfluentialCitationCount: w.InfluentialCitationCount,
		ReferenceCount:           w.ReferenceCount,
		Venue:                    w.Venue,
		Authors:                  authors,
		FieldsOfStudy:            w.FieldsOfStudy,
		PublicationTypes:         w.PublicationTypes,
	}
}
