package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/rs/zerolog"
)

// WeatherTool calls get_weather on a remote MCP server. Each call opens and
// closes its own session.
type WeatherTool struct {
	url    string
	opts   []transport.StreamableHTTPCOption
	logger zerolog.Logger
}

// NewWeatherTool creates a new WeatherTool for the MCP endpoint at url.
func NewWeatherTool(url string, logger zerolog.Logger, opts ...transport.StreamableHTTPCOption) *WeatherTool {
	return &WeatherTool{url: url, opts: opts, logger: logger}
}

// Name returns the name of the remote tool.
func (t *WeatherTool) Name() string {
	return "get_weather"
}

// GetWeather returns the tool's text, including server-side error texts.
// The error is non-nil only when the call itself failed.
func (t *WeatherTool) GetWeather(ctx context.Context, city string) (string, error) {
	s, err := Dial(ctx, t.url, t.logger, t.opts...)
	if err != nil {
		return "", err
	}
	defer s.Close()

	res, err := s.CallTool(ctx, t.Name(), map[string]any{"city_name": city})
	if err != nil {
		return "", err
	}
	return Text(res), nil
}
