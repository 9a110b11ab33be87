// Package weather implements the get_weather tool on top of weatherapi.com.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"weather-agent/internal/tools"
)

const (
	ToolName = "get_weather"
	ArgCity  = "city_name"
)

// Args represents the arguments for the weather tool.
type Args struct {
	CityName string `json:"city_name"`
}

// Tool answers get_weather calls with a five-line text report or an error text.
type Tool struct {
	*tools.DefaultTool
	client *Client
	logger zerolog.Logger
}

// NewTool creates a get_weather tool backed by client.
func NewTool(client *Client, logger zerolog.Logger) *Tool {
	t := &Tool{
		DefaultTool: tools.NewDefaultTool(ToolName,
			"Get current weather in the given city",
			mcp.WithString(ArgCity,
				mcp.Required(),
				mcp.Description("Name of the city, e.g. Moscow"),
			),
		),
		client: client,
		logger: logger.With().Str("component", "weather_tool").Logger(),
	}
	t.logger.Debug().Str("tool", t.Name()).Msg("Created weather tool")
	return t
}

// Call executes the weather tool with the given arguments. Every outcome is
// reported in-band as text.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("Weather tool panicked")
			result = mcp.NewToolResultError(fmt.Sprintf("Unexpected error: %v", r))
			err = nil
		}
	}()

	// Configuration is checked before the arguments.
	if err := t.client.CheckConfig(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var params Args
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: invalid arguments: %v", err)), nil
		}
	}
	city := strings.TrimSpace(params.CityName)
	if city == "" {
		return mcp.NewToolResultError("Error: " + ArgCity + " is required"), nil
	}

	report, err := t.client.Current(ctx, city)
	if err != nil {
		var werr *Error
		if !errors.As(err, &werr) {
			werr = &Error{Kind: KindUnexpected, Detail: err.Error(), Cause: err}
		}
		t.logger.Info().Str("city", city).Str("kind", werr.Kind.String()).Msg("Weather lookup failed")
		return mcp.NewToolResultError(werr.Error()), nil
	}

	return mcp.NewToolResultText(report.Format()), nil
}
