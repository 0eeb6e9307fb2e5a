// Package opendata fetches Wi-Fi point records from the municipal
// open-data endpoint that seeds the map.
package opendata

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Record is one usable point from the open-data source.
type Record struct {
	Latitude  float64
	Longitude float64
	Address   *string
}

// Client defines the contract for pulling point records from upstream.
type Client interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPClient constructs a new HTTP-backed open-data client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse open-data url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
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

// Fetch retrieves the full point listing from upstream.
func (c *HTTPClient) Fetch(ctx context.Context) ([]Record, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "/points"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint.String()).Msg("open-data upstream returned unexpected status")
		return nil, fmt.Errorf("opendata: upstream returned %d", resp.StatusCode)
	}

	var payload []pointPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode open-data response: %w", err)
	}

	records := convertRecords(payload)
	if dropped := len(payload) - len(records); dropped > 0 {
		c.logger.Warn().Int("dropped", dropped).Int("total", len(payload)).Msg("open-data records without usable coordinates skipped")
	}
	return records, nil
}

type pointPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   *string  `json:"address"`
	Name      *string  `json:"name"`
}

// convertRecords keeps only records whose coordinates exist and fall in
// the valid WGS84 range. The address falls back to the venue name when
// the source row carries no street address.
func convertRecords(payload []pointPayload) []Record {
	records := make([]Record, 0, len(payload))
	for _, p := range payload {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		lat, lon := *p.Latitude, *p.Longitude
		if !validCoordinates(lat, lon) {
			continue
		}

		rec := Record{Latitude: lat, Longitude: lon}
		switch {
		case p.Address != nil && *p.Address != "":
			rec.Address = p.Address
		case p.Name != nil && *p.Name != "":
			rec.Address = p.Name
		}
		records = append(records, rec)
	}
	return records
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
