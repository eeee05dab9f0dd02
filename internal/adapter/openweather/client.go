// Package openweather implements domain.WeatherProvider against the
// OpenWeatherMap current-weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/observability"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// maxErrorBody bounds how much of an error response is copied into errors.
const maxErrorBody = 512

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweather API error: status %d: %s", e.StatusCode, e.Message)
}

// Client implements domain.WeatherProvider.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates an OpenWeatherMap client. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// CurrentWeather fetches current conditions by place name when q.Location is
// set, otherwise by coordinates.
func (c *Client) CurrentWeather(ctx context.Context, q domain.WeatherQuery) (domain.WeatherData, error) {
	params := url.Values{
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	if q.Location != "" {
		params.Set("q", q.Location)
	} else {
		params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	}

	start := time.Now()
	data, err := c.doRequest(ctx, c.baseURL+"/weather?"+params.Encode())
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherData{}, err
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()

	if data.Location == "" {
		data.Location = q.Location
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherData{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherData{}, fmt.Errorf("weather request: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var parsed errorResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
		c.logger.Warn("weather provider rejected request", "status", resp.StatusCode, "message", apiErr.Message)
		return domain.WeatherData{}, apiErr
	}

	var owm response
	if err := json.NewDecoder(resp.Body).Decode(&owm); err != nil {
		return domain.WeatherData{}, fmt.Errorf("decode response: %w", err)
	}

	return owm.toWeatherData(c.now()), nil
}

// redactKey strips the API key from url.Error messages.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if key == "" || !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{
		Op:  urlErr.Op,
		URL: strings.ReplaceAll(urlErr.URL, key, "REDACTED"),
		Err: urlErr.Err,
	}
}

// OpenWeatherMap API response types.

type response struct {
	Name    string       `json:"name"`
	Main    mainBlock    `json:"main"`
	Wind    windBlock    `json:"wind"`
	Weather []conditions `json:"weather"`
	Vis     *float64     `json:"visibility"` // metres
}

type mainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure"`
}

type windBlock struct {
	Speed float64 `json:"speed"` // m/s
	Deg   float64 `json:"deg"`
}

type conditions struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (r response) toWeatherData(now time.Time) domain.WeatherData {
	data := domain.WeatherData{
		Temperature:          int(math.Round(r.Main.Temp)),
		FeelsLike:            int(math.Round(r.Main.FeelsLike)),
		Humidity:             r.Main.Humidity,
		Pressure:             r.Main.Pressure,
		WindSpeed:            domain.KnotsFromMetersPerSecond(r.Wind.Speed),
		WindDirection:        domain.CompassDirection(r.Wind.Deg),
		WindDirectionDegrees: int(math.Round(r.Wind.Deg)),
		Location:             r.Name,
		LastUpdated:          now,
	}
	if r.Vis != nil {
		data.Visibility = domain.KilometersFromMeters(*r.Vis)
	}
	if len(r.Weather) > 0 {
		data.Description = capitalize(r.Weather[0].Description)
		data.Icon = r.Weather[0].Icon
	}
	return data
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
