// Package client talks to a running hm API server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// Client is an HTTP client for the hm API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. token is sent as a bearer token when non-empty.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// ListingsResponse is the body of every listing collection endpoint.
type ListingsResponse struct {
	Listings []property.DisplayRecord `json:"listings"`
	Count    int                      `json:"count"`
	Stale    bool                     `json:"stale"`
	Warning  string                   `json:"warning,omitempty"`
}

// CacheStatus is the body of GET /api/cache.
type CacheStatus struct {
	FastCount   int        `json:"fast_count"`
	AllCount    int        `json:"all_count"`
	Limit       int        `json:"limit"`
	TTL         string     `json:"ttl"`
	Valid       bool       `json:"valid"`
	Loading     bool       `json:"loading"`
	Initialized bool       `json:"initialized"`
	LastFetch   *time.Time `json:"last_fetch,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Listings returns the fast tier.
func (c *Client) Listings(ctx context.Context) (*ListingsResponse, error) {
	return c.listings(ctx, http.MethodGet, "/api/listings")
}

// All returns the full tier.
func (c *Client) All(ctx context.Context) (*ListingsResponse, error) {
	return c.listings(ctx, http.MethodGet, "/api/listings/all")
}

// Featured returns featured listings.
func (c *Client) Featured(ctx context.Context) (*ListingsResponse, error) {
	return c.listings(ctx, http.MethodGet, "/api/listings/featured")
}

// Search runs a text search.
func (c *Client) Search(ctx context.Context, query string) (*ListingsResponse, error) {
	return c.listings(ctx, http.MethodGet, "/api/listings/search?"+url.Values{"q": {query}}.Encode())
}

// Filter applies criteria on the server.
func (c *Client) Filter(ctx context.Context, criteria property.Criteria) (*ListingsResponse, error) {
	path := "/api/listings/filter"
	if q := CriteriaQuery(criteria).Encode(); q != "" {
		path += "?" + q
	}
	return c.listings(ctx, http.MethodGet, path)
}

// Refresh forces the server to refetch the sheet.
func (c *Client) Refresh(ctx context.Context) (*ListingsResponse, error) {
	return c.listings(ctx, http.MethodPost, "/api/listings/refresh")
}

// Listing returns one listing by slug.
func (c *Client) Listing(ctx context.Context, slug string) (*property.DisplayRecord, error) {
	var rec property.DisplayRecord
	if err := c.do(ctx, http.MethodGet, "/api/listings/"+url.PathEscape(slug), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CacheStatus returns the server's cache summary.
func (c *Client) CacheStatus(ctx context.Context) (*CacheStatus, error) {
	var st CacheStatus
	if err := c.do(ctx, http.MethodGet, "/api/cache", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// CriteriaQuery encodes criteria as filter query parameters.
func CriteriaQuery(c property.Criteria) url.Values {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set("property_type", c.PropertyType)
	set("operation_type", c.OperationType)
	set("city", c.City)
	if c.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*c.MinPrice, 'f', -1, 64))
	}
	if c.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*c.MaxPrice, 'f', -1, 64))
	}
	if c.MinBedrooms != nil {
		q.Set("min_bedrooms", strconv.Itoa(*c.MinBedrooms))
	}
	if c.MaxBedrooms != nil {
		q.Set("max_bedrooms", strconv.Itoa(*c.MaxBedrooms))
	}
	if c.FeaturedOnly {
		q.Set("featured", "true")
	}
	return q
}

func (c *Client) listings(ctx context.Context, method, path string) (*ListingsResponse, error) {
	var resp ListingsResponse
	if err := c.do(ctx, method, path, &resp); err != nil {
		return nil, err
	}
	if resp.Listings == nil {
		resp.Listings = []property.DisplayRecord{}
	}
	return &resp, nil
}

// do executes a request with the auth header and decodes the JSON result.
func (c *Client) do(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("server error: %s", http.StatusText(resp.StatusCode))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
