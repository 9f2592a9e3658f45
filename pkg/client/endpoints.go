package client

import (
	"context"
	"net/url"
	"strconv"

	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// Health fetches GET /health.
func (c *Client) Health(ctx context.Context) (*radartypes.HealthResponse, error) {
	var resp radartypes.HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Metadata fetches GET /api/v1/data/metadata.
func (c *Client) Metadata(ctx context.Context) (*radartypes.MetadataResponse, error) {
	var resp radartypes.MetadataResponse
	if err := c.get(ctx, "/api/v1/data/metadata", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggestions fetches autocomplete terms for the given prefix. A limit of
// zero or less leaves the server default in place.
func (c *Client) Suggestions(ctx context.Context, q string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp radartypes.SuggestionsResponse
	if err := c.get(ctx, "/api/v1/suggestions?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Radar runs the full radar analysis for one technology term. A zero Years
// is replaced by the API default before sending, since the wire format
// treats an explicit zero as invalid.
func (c *Client) Radar(ctx context.Context, req radartypes.RadarRequest) (*radartypes.RadarResponse, error) {
	if req.Years == 0 {
		req.Years = radartypes.DefaultYears
	}

	var resp radartypes.RadarResponse
	if err := c.post(ctx, "/api/v1/radar", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
