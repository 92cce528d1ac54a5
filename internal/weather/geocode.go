// Package weather resolves free-text places to administrative regions and
// fetches the township forecast for them.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultGeocodeBaseURL is the public Nominatim search endpoint.
	DefaultGeocodeBaseURL = "https://nominatim.openstreetmap.org/search"

	// geocodeUserAgent identifies this service to the geocoder, which
	// rejects anonymous clients.
	geocodeUserAgent = "commutebot/1.0"

	// DefaultLookupTimeout bounds one lookup request.
	DefaultLookupTimeout = 10 * time.Second
)

// Place is a resolved location: the city (county-level) and district
// (township-level) names the forecast API is keyed by.
type Place struct {
	City     string
	District string
	Lat      string
	Lon      string
}

// Geocoder resolves place names against a Nominatim-style search API.
type Geocoder struct {
	httpClient *http.Client
	baseURL    string
}

// GeocoderOption configures the geocoder.
type GeocoderOption func(*Geocoder)

// WithGeocoderBaseURL overrides the endpoint, primarily for tests.
func WithGeocoderBaseURL(baseURL string) GeocoderOption {
	return func(g *Geocoder) {
		g.baseURL = baseURL
	}
}

// WithGeocoderHTTP sets a custom HTTP client.
func WithGeocoderHTTP(httpClient *http.Client) GeocoderOption {
	return func(g *Geocoder) {
		g.httpClient = httpClient
	}
}

// NewGeocoder creates a geocoder.
func NewGeocoder(opts ...GeocoderOption) *Geocoder {
	g := &Geocoder{
		httpClient: &http.Client{Timeout: DefaultLookupTimeout},
		baseURL:    DefaultGeocodeBaseURL,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type geocodeResult struct {
	Lat     string         `json:"lat"`
	Lon     string         `json:"lon"`
	Address geocodeAddress `json:"address"`
}

type geocodeAddress struct {
	Town         string `json:"town"`
	CityDistrict string `json:"city_district"`
	Suburb       string `json:"suburb"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	City         string `json:"city"`
	County       string `json:"county"`
	State        string `json:"state"`
}

// Resolve maps a free-text place name to a city and district. The field
// fallback chains mirror how the geocoder labels Taiwanese administrative
// levels inconsistently across result types.
func (g *Geocoder) Resolve(ctx context.Context, placeName string) (*Place, error) {
	params := url.Values{}
	params.Set("q", placeName)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", geocodeUserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocoder sent unusable response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no match for place %q", placeName)
	}

	addr := results[0].Address
	district := firstNonEmpty(addr.Town, addr.CityDistrict, addr.Suburb, addr.Village, addr.Municipality)
	city := firstNonEmpty(addr.City, addr.County, addr.State)
	if city == "" || district == "" {
		return nil, fmt.Errorf("place %q resolved without a city/district", placeName)
	}

	return &Place{
		City:     city,
		District: district,
		Lat:      results[0].Lat,
		Lon:      results[0].Lon,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
