package geo

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

	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
)

const (
	defaultEndpoint        = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent       = "BrunoMarketplace/1.0 (routing geocoder)"
	defaultTimeout         = 4 * time.Second
	responseBodyReadLimit  = 1024
	nominatimProviderLabel = "nominatim"
)

// Geocoder resolves free-form location text to coordinates. ok=false with a
// nil error means the provider had no result for the query.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinates, bool, error)
}

// NominatimClient talks to a Nominatim-compatible search endpoint.
type NominatimClient struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// NominatimOption configures optional client behavior.
type NominatimOption func(*NominatimClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) NominatimOption {
	return func(c *NominatimClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoint overrides the search endpoint URL.
func WithEndpoint(endpoint string) NominatimOption {
	return func(c *NominatimClient) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			c.endpoint = trimmed
		}
	}
}

// WithUserAgent overrides the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(agent string) NominatimOption {
	return func(c *NominatimClient) {
		trimmed := strings.TrimSpace(agent)
		if trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithTimeout bounds each geocode request.
func WithTimeout(timeout time.Duration) NominatimOption {
	return func(c *NominatimClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewNominatimClient builds a geocoder client with sane defaults.
func NewNominatimClient(opts ...NominatimOption) *NominatimClient {
	client := &NominatimClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   defaultEndpoint,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Geocode looks up the first match for the query text.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (Coordinates, bool, error) {
	if c == nil {
		return Coordinates{}, false, pkgerrors.New(pkgerrors.CodeDependency, "geocoder client not configured")
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Coordinates{}, false, pkgerrors.New(pkgerrors.CodeValidation, "geocode query is required")
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Coordinates{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse geocoder endpoint")
	}
	q := u.Query()
	q.Set("q", trimmed)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Coordinates{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build geocode request")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Coordinates{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return Coordinates{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "geocode request failed")
	}

	var apiResp []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Coordinates{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode geocode response")
	}
	if len(apiResp) == 0 {
		return Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(apiResp[0].Lat, 64)
	if err != nil {
		return Coordinates{}, false, nil
	}
	lng, err := strconv.ParseFloat(apiResp[0].Lon, 64)
	if err != nil {
		return Coordinates{}, false, nil
	}

	coords := Coordinates{Lat: lat, Lng: lng}
	if !coords.Valid() {
		return Coordinates{}, false, nil
	}
	return coords, true, nil
}
