package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultForecastBaseURL is the open-data township forecast endpoint.
const DefaultForecastBaseURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore"

// datasetByCity maps county-level names to their township forecast dataset
// ids. Cities outside this table have no township dataset and fail the
// lookup.
var datasetByCity = map[string]string{
	"宜蘭縣": "F-D0047-003",
	"桃園市": "F-D0047-007",
	"新竹縣": "F-D0047-011",
	"苗栗縣": "F-D0047-015",
	"彰化縣": "F-D0047-019",
	"南投縣": "F-D0047-023",
	"雲林縣": "F-D0047-027",
	"嘉義縣": "F-D0047-031",
	"屏東縣": "F-D0047-035",
	"臺東縣": "F-D0047-039",
	"花蓮縣": "F-D0047-043",
	"澎湖縣": "F-D0047-047",
	"基隆市": "F-D0047-051",
	"新竹市": "F-D0047-055",
	"嘉義市": "F-D0047-059",
	"臺北市": "F-D0047-063",
	"高雄市": "F-D0047-067",
	"新北市": "F-D0047-071",
	"臺中市": "F-D0047-075",
	"臺南市": "F-D0047-079",
	"連江縣": "F-D0047-083",
	"金門縣": "F-D0047-087",
}

// Weather element names in the dataset.
const (
	elementWeather = "天氣現象"
	elementMinTemp = "最低溫度"
	elementMaxTemp = "最高溫度"
	elementPoP12h  = "12小時降雨機率"
)

// ForecastClient fetches township forecasts from the open-data API.
type ForecastClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ForecastOption configures the client.
type ForecastOption func(*ForecastClient)

// WithForecastBaseURL overrides the endpoint, primarily for tests.
func WithForecastBaseURL(baseURL string) ForecastOption {
	return func(f *ForecastClient) {
		f.baseURL = baseURL
	}
}

// WithForecastHTTP sets a custom HTTP client.
func WithForecastHTTP(httpClient *http.Client) ForecastOption {
	return func(f *ForecastClient) {
		f.httpClient = httpClient
	}
}

// NewForecastClient creates a forecast client.
func NewForecastClient(apiKey string, opts ...ForecastOption) *ForecastClient {
	f := &ForecastClient{
		httpClient: &http.Client{Timeout: DefaultLookupTimeout},
		baseURL:    DefaultForecastBaseURL,
		apiKey:     apiKey,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type forecastResponse struct {
	Records struct {
		Locations []struct {
			Location []struct {
				WeatherElement []struct {
					ElementName string `json:"ElementName"`
					Time        []struct {
						StartTime    string `json:"StartTime"`
						EndTime      string `json:"EndTime"`
						ElementValue []map[string]string `json:"ElementValue"`
					} `json:"Time"`
				} `json:"WeatherElement"`
			} `json:"Location"`
		} `json:"Locations"`
	} `json:"records"`
}

// Report is the forecast extract for one target time.
type Report struct {
	Weather string
	MinTemp string
	MaxTemp string
	PoP     string
}

// String renders the report the way the reminder messages do.
func (r Report) String() string {
	var parts []string
	if r.Weather != "" {
		parts = append(parts, r.Weather)
	}
	if r.MinTemp != "" && r.MaxTemp != "" {
		parts = append(parts, fmt.Sprintf("氣溫 %s~%s°C", r.MinTemp, r.MaxTemp))
	}
	if r.PoP != "" {
		parts = append(parts, fmt.Sprintf("降雨機率 %s%%", r.PoP))
	}
	if len(parts) == 0 {
		return "查無該時間的天氣資料"
	}
	return strings.Join(parts, "，")
}

// Forecast returns the report for the district at the target time. Element
// windows that do not cover the target are skipped; missing elements leave
// their report fields empty rather than failing.
func (f *ForecastClient) Forecast(ctx context.Context, city, district string, at time.Time) (*Report, error) {
	dataset, ok := datasetByCity[city]
	if !ok {
		return nil, fmt.Errorf("no forecast dataset for city %q", city)
	}

	params := url.Values{}
	params.Set("Authorization", f.apiKey)
	params.Set("locationName", district)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.baseURL+"/"+dataset+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast API unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("forecast API sent unusable response: %w", err)
	}

	return extractReport(&parsed, at), nil
}

func extractReport(parsed *forecastResponse, at time.Time) *Report {
	report := &Report{}

	for _, locations := range parsed.Records.Locations {
		for _, loc := range locations.Location {
			for _, element := range loc.WeatherElement {
				for _, entry := range element.Time {
					if !windowCovers(entry.StartTime, entry.EndTime, at) {
						continue
					}
					if len(entry.ElementValue) == 0 {
						continue
					}
					value := entry.ElementValue[0]

					switch element.ElementName {
					case elementWeather:
						if report.Weather == "" {
							report.Weather = value["Weather"]
						}
					case elementMinTemp:
						if report.MinTemp == "" {
							report.MinTemp = value["MinTemperature"]
						}
					case elementMaxTemp:
						if report.MaxTemp == "" {
							report.MaxTemp = value["MaxTemperature"]
						}
					case elementPoP12h:
						if pop := value["ProbabilityOfPrecipitation"]; pop != "" && pop != "-" {
							report.PoP = pop
						}
					}
				}
			}
		}
	}

	return report
}

// windowCovers parses the entry window and reports whether it contains the
// target instant.
func windowCovers(start, end string, at time.Time) bool {
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return false
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return false
	}
	return !at.Before(startTime) && at.Before(endTime)
}
