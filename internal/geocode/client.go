// Package geocode looks up coordinates for locations against an external
// Nominatim-style service and backfills them under a rate limit.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the service has no result for the query.
var ErrNotFound = errors.New("geocode: not found")

// Result is a resolved coordinate pair.
type Result struct {
	Latitude  float64
	Longitude float64
}

// Client defines the contract for querying the geocoding service.
type Client interface {
	Lookup(ctx context.Context, query string) (*Result, error)
}

// HTTPClient implements Client over HTTP against a /search endpoint that
// returns a JSON array of candidates, best match first.
type HTTPClient struct {
	baseURL   *url.URL
	userAgent string
	client    *http.Client
	logger    *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed geocoding client.
func NewHTTPClient(baseURL, userAgent string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	return &HTTPClient{
		baseURL:   parsed,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Lookup resolves a free-form address query to coordinates.
func (c *HTTPClient) Lookup(ctx context.Context, query string) (*Result, error) {
	rel := &url.URL{Path: "/search"}
	q := rel.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Printf("geocode: unexpected status %d for query %q", resp.StatusCode, query)
		return nil, fmt.Errorf("geocode: upstream returned %d", resp.StatusCode)
	}

	var payload []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(payload) == 0 {
		return nil, ErrNotFound
	}
	return convertToResult(payload[0])
}

// apiEntry mirrors the upstream shape: coordinates arrive as strings.
type apiEntry struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func convertToResult(entry apiEntry) (*Result, error) {
	lat, err := strconv.ParseFloat(entry.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", entry.Lat, err)
	}
	lon, err := strconv.ParseFloat(entry.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", entry.Lon, err)
	}
	return &Result{Latitude: lat, Longitude: lon}, nil
}
