package weather

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Kind classifies a failed weather lookup.
type Kind int

const (
	KindConfig Kind = iota
	KindHTTP
	KindFormat
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindHTTP:
		return "http"
	case KindFormat:
		return "format"
	default:
		return "unexpected"
	}
}

// Error is returned by Client.Current. Its message is the text shown to the
// caller of the get_weather tool.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfig, KindHTTP:
		return "Error: " + e.Detail
	case KindFormat:
		return "Error in format data from API: " + e.Detail
	default:
		return "Unexpected error: " + e.Detail
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Report holds the fields of a current-conditions lookup.
type Report struct {
	City       string
	TempC      float64
	WindKph    float64
	Condition  string
	FeelsLikeC float64
}

// Format renders the report as the five-line block returned by get_weather.
func (r *Report) Format() string {
	return fmt.Sprintf("Weather in city %s\nTemperature: %s°C\nWind: %s Kph\nCondition: %s\nFeels like: %s°C",
		r.City, formatFloat(r.TempC), formatFloat(r.WindKph), r.Condition, formatFloat(r.FeelsLikeC))
}

// formatFloat prints whole numbers with a trailing ".0", including values
// the API sent as JSON integers, so 5 renders as "5.0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

// Observer is notified after every upstream request.
type Observer func(outcome string, elapsed time.Duration)

// Client queries the weatherapi.com current conditions endpoint.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout bounds each upstream request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// WithObserver registers a callback for upstream request outcomes.
func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.observer = o }
}

// NewClient creates a client for the given endpoint. An empty apiKey is
// allowed; lookups then fail with KindConfig without touching the network.
func NewClient(baseURL, apiKey string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
		logger:  logger.With().Str("component", "weather_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var requiredFields = []string{
	"location.name",
	"current.temp_c",
	"current.wind_kph",
	"current.condition.text",
	"current.feelslike_c",
}

// CheckConfig reports a KindConfig error when no API key is set.
func (c *Client) CheckConfig() error {
	if c.apiKey == "" {
		return &Error{Kind: KindConfig, Detail: "can't find API KEY"}
	}
	return nil
}

// Current fetches the current conditions for city.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := c.current(ctx, city)
	if c.observer != nil {
		outcome := "success"
		var werr *Error
		if errors.As(err, &werr) {
			outcome = werr.Kind.String()
		}
		c.observer(outcome, time.Since(start))
	}
	return report, err
}

func (c *Client) current(ctx context.Context, city string) (*Report, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Detail: "invalid weather API URL", Cause: err}
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Detail: "could not create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("city", city).Str("host", u.Host).Msg("Requesting current weather")

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error carries the full URL, key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, &Error{Kind: KindHTTP, Detail: fmt.Sprintf("request failed: %v", err), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindHTTP, Detail: fmt.Sprintf("could not read response: %v", err), Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := fmt.Sprintf("weather API returned %s", resp.Status)
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
			detail += ": " + msg.String()
		}
		c.logger.Warn().Str("city", city).Int("status", resp.StatusCode).Msg("Weather API request failed")
		return nil, &Error{Kind: KindHTTP, Detail: detail}
	}

	if !gjson.ValidBytes(body) {
		return nil, &Error{Kind: KindUnexpected, Detail: "response body is not valid JSON"}
	}

	fields := gjson.GetManyBytes(body, requiredFields...)
	for i, f := range fields {
		if !f.Exists() || f.Type == gjson.Null {
			return nil, &Error{Kind: KindFormat, Detail: fmt.Sprintf("missing field %q", requiredFields[i])}
		}
	}
	for _, i := range []int{1, 2, 4} {
		if fields[i].Type != gjson.Number {
			return nil, &Error{Kind: KindFormat, Detail: fmt.Sprintf("field %q is not a number", requiredFields[i])}
		}
	}

	return &Report{
		City:       fields[0].String(),
		TempC:      fields[1].Float(),
		WindKph:    fields[2].Float(),
		Condition:  fields[3].String(),
		FeelsLikeC: fields[4].Float(),
	}, nil
}
