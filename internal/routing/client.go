// Package routing implements the client for the distance-matrix routing
// service that supplies time-dependent travel durations.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

const (
	// DefaultBaseURL is the production distance-matrix endpoint.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

	// DefaultTimeout bounds a single routing request. There is exactly one
	// attempt per query; callers decide what a failure means.
	DefaultTimeout = 10 * time.Second

	// statusOK is the success sentinel the API uses both at the top level
	// and per element.
	statusOK = "OK"
)

// Client queries the routing service. It implements commute.RouteClient.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	language   string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL overrides the endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a routing client.
func NewClient(apiKey, language string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("routing API key is required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		language:   language,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// response mirrors the slice of the distance-matrix payload this service
// consumes.
type response struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []element `json:"elements"`
	} `json:"rows"`
}

type element struct {
	Status   string     `json:"status"`
	Duration *valueText `json:"duration"`
	Traffic  *valueText `json:"duration_in_traffic"`
	Distance *valueText `json:"distance"`
}

type valueText struct {
	Value int64  `json:"value"`
	Text  string `json:"text"`
}

// Route issues one distance-matrix query. Exactly one of the query's
// departure and arrival timestamps must be set; the zero one is omitted
// from the request.
func (c *Client) Route(ctx context.Context, q commute.RouteQuery) (*commute.Route, error) {
	params := url.Values{}
	params.Set("origins", q.Origin)
	params.Set("destinations", q.Destination)
	params.Set("mode", q.Mode.APIValue())
	params.Set("key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if !q.DepartureTime.IsZero() {
		params.Set("departure_time", strconv.FormatInt(q.DepartureTime.Unix(), 10))
	} else {
		params.Set("arrival_time", strconv.FormatInt(q.ArrivalTime.Unix(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build routing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &commute.UnavailableError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &commute.UnavailableError{Err: err}
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &commute.MalformedResponseError{Field: "body"}
	}

	return c.extract(ctx, &parsed)
}

// extract validates the response shape the API contract promises and maps
// it onto a Route.
func (c *Client) extract(ctx context.Context, parsed *response) (*commute.Route, error) {
	if parsed.Status != statusOK {
		return nil, &commute.ExternalAPIError{Status: parsed.Status}
	}
	if len(parsed.Rows) == 0 || len(parsed.Rows[0].Elements) == 0 {
		return nil, &commute.MalformedResponseError{Field: "rows[0].elements[0]"}
	}

	elem := parsed.Rows[0].Elements[0]
	if elem.Status != statusOK {
		return nil, &commute.ExternalAPIError{Status: elem.Status}
	}
	if elem.Duration == nil {
		return nil, &commute.MalformedResponseError{Field: "duration"}
	}

	route := &commute.Route{
		Duration:     time.Duration(elem.Duration.Value) * time.Second,
		DurationText: elem.Duration.Text,
	}
	if elem.Traffic != nil {
		route.TrafficDuration = time.Duration(elem.Traffic.Value) * time.Second
		route.TrafficDurationText = elem.Traffic.Text
	}
	if elem.Distance != nil {
		route.DistanceText = elem.Distance.Text
	}

	c.logger.DebugContext(ctx, "routing query answered",
		slog.Duration("duration", route.Duration),
		slog.Duration("traffic_duration", route.TrafficDuration))

	return route, nil
}
