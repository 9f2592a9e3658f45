package apiclients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

const (
	openaireService         = "openaire"
	defaultOpenAIREBaseURL  = "https://api.openaire.eu"
	defaultOpenAIRETokenURL = "https://services.openaire.eu/uoa-user-management/api/users/getAccessToken"

	// Tokens within this margin of their exp claim are refreshed before use.
	tokenRefreshMargin = 60 * time.Second
	// After a failed refresh the client stays anonymous for this long
	// before trying the token service again.
	tokenRetryBackoff = 60 * time.Second

	openaireMaxParallel = 4
)

// OpenAIREConfig configures the OpenAIRE publications client. Zero-value
// URLs fall back to the public endpoints.
type OpenAIREConfig struct {
	BaseURL      string
	TokenURL     string
	AccessToken  string
	RefreshToken string
}

// OpenAIREClient counts scholarly publications per year via the OpenAIRE
// search API. The API works anonymously; a configured token pair raises
// the rate limits.
type OpenAIREClient struct {
	caller
	config OpenAIREConfig
	token  *tokenState
}

var _ radar.PublicationCounter = (*OpenAIREClient)(nil)

// NewOpenAIREClient builds the client. The access token's JWT exp claim is
// parsed up front so the first request already knows whether to refresh.
func NewOpenAIREClient(cfg OpenAIREConfig, logger logging.Logger, opts ...Option) *OpenAIREClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIREBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultOpenAIRETokenURL
	}
	c := &OpenAIREClient{
		caller: newCaller(openaireService, logger),
		config: cfg,
		token: &tokenState{
			accessToken:  cfg.AccessToken,
			expiresAt:    jwtExpiry(cfg.AccessToken),
			refreshToken: cfg.RefreshToken,
		},
	}
	for _, opt := range opts {
		opt(&c.caller)
	}
	return c
}

// CountByYear issues one request per year concurrently and collects the
// totals. Failed years are skipped; an error is returned only when every
// single year failed.
func (c *OpenAIREClient) CountByYear(ctx context.Context, technology string, startYear, endYear int) (map[int]int, error) {
	counts := make(map[int]int)
	if endYear < startYear {
		return counts, nil
	}

	bearer := c.bearerToken(ctx)

	var (
		mu      sync.Mutex
		lastErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(openaireMaxParallel)
	for year := startYear; year <= endYear; year++ {
		g.Go(func() error {
			n, err := c.countYear(ctx, technology, year, bearer)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				c.logger.Warn("Year query failed",
					logging.Int("year", year),
					logging.Err(err))
				return nil
			}
			counts[year] = n
			return nil
		})
	}
	_ = g.Wait()

	if len(counts) == 0 && lastErr != nil {
		return nil, errors.Wrap(lastErr, errors.CodeAPIRequestFailed, "openaire: every year query failed")
	}
	return counts, nil
}

func (c *OpenAIREClient) countYear(ctx context.Context, technology string, year int, bearer string) (int, error) {
	q := url.Values{}
	q.Set("keywords", technology)
	q.Set("fromDateAccepted", fmt.Sprintf("%d-01-01", year))
	q.Set("toDateAccepted", fmt.Sprintf("%d-12-31", year))
	q.Set("format", "json")
	q.Set("size", "1")

	header := http.Header{}
	if bearer != "" {
		header.Set("Authorization", "Bearer "+bearer)
	}

	var payload openairePayload
	if err := c.getJSON(ctx, c.config.BaseURL+"/search/publications?"+q.Encode(), header, &payload); err != nil {
		return 0, err
	}
	return int(payload.Response.Header.Total.Value), nil
}

// TokenInfo returns the raw access token currently held and whether a
// refresh token is configured. The API health check inspects the token's
// JWT expiry through this.
func (c *OpenAIREClient) TokenInfo() (accessToken string, hasRefreshToken bool) {
	c.token.mu.Lock()
	defer c.token.mu.Unlock()
	return c.token.accessToken, c.token.refreshToken != ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Token state machine
// ─────────────────────────────────────────────────────────────────────────────

// tokenState moves between three states: empty (anonymous), valid until
// the JWT exp, and refreshing. One refresh is in flight at a time;
// concurrent callers wait for it instead of hammering the token service.
type tokenState struct {
	mu           sync.Mutex
	accessToken  string
	expiresAt    time.Time // zero when the exp claim could not be parsed
	refreshToken string
	retryAt      time.Time // set after a failed refresh
	refreshing   chan struct{}
}

// needsRefreshLocked reports whether the held token must be replaced
// before use. A token without a parseable exp claim is used as-is.
func (s *tokenState) needsRefreshLocked(now time.Time) bool {
	if s.refreshToken == "" || now.Before(s.retryAt) {
		return false
	}
	if s.accessToken == "" {
		return true
	}
	if s.expiresAt.IsZero() {
		return false
	}
	return s.expiresAt.Sub(now) <= tokenRefreshMargin
}

// bearerToken returns the token to authenticate with, refreshing it first
// when it is missing or about to expire. An empty string means anonymous
// access.
func (c *OpenAIREClient) bearerToken(ctx context.Context) string {
	s := c.token
	for {
		s.mu.Lock()
		if !s.needsRefreshLocked(time.Now()) {
			token := s.accessToken
			s.mu.Unlock()
			return token
		}
		if s.refreshing != nil {
			inflight := s.refreshing
			s.mu.Unlock()
			select {
			case <-inflight:
				continue
			case <-ctx.Done():
				return ""
			}
		}
		inflight := make(chan struct{})
		s.refreshing = inflight
		refreshToken := s.refreshToken
		s.mu.Unlock()

		token, err := c.refreshAccessToken(ctx, refreshToken)

		s.mu.Lock()
		s.refreshing = nil
		if err != nil {
			s.accessToken = ""
			s.expiresAt = time.Time{}
			s.retryAt = time.Now().Add(tokenRetryBackoff)
		} else {
			s.accessToken = token
			s.expiresAt = jwtExpiry(token)
			s.retryAt = time.Time{}
		}
		current := s.accessToken
		s.mu.Unlock()
		close(inflight)

		if err != nil {
			c.logger.Warn("Token refresh failed, continuing anonymously", logging.Err(err))
		}
		return current
	}
}

func (c *OpenAIREClient) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	endpoint := c.config.TokenURL + "?refreshToken=" + url.QueryEscape(refreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeAPIAuthFailed, "openaire: building token request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeAPIAuthFailed, "openaire: token refresh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.CodeAPIAuthFailed, "openaire: token refresh returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, errors.CodeSerialization, "openaire: decoding token response")
	}
	if payload.AccessToken == "" {
		return "", errors.New(errors.CodeAPIAuthFailed, "openaire: token response without access_token")
	}
	return payload.AccessToken, nil
}

// jwtExpiry extracts the exp claim from a JWT without verifying the
// signature. Returns the zero time when the token cannot be parsed.
func jwtExpiry(raw string) time.Time {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return time.Time{}
	}
	payload := parts[1]
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return time.Time{}
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(decoded, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(claims.Exp, 0)
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire format
// ─────────────────────────────────────────────────────────────────────────────

// openairePayload is the slice of the search response we care about:
// response.header.total.$ carries the hit count, sometimes as a number,
// sometimes as a string.
type openairePayload struct {
	Response struct {
		Header struct {
			Total struct {
				Value flexibleInt `json:"$"`
			} `json:"total"`
		} `json:"header"`
	} `json:"response"`
}

// flexibleInt decodes a JSON number or a numeric string.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexibleInt(n)
	return nil
}
