package agent_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-agent/internal/agent"
	"weather-agent/internal/config"
	"weather-agent/internal/llm"
	"weather-agent/internal/server"
	"weather-agent/pkg/tools"
)

type parisModel struct{}

func (parisModel) Complete(context.Context, string) (string, error) {
	return "Paris", nil
}

func TestAgent_EndToEnd(t *testing.T) {
	var cities []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cities = append(cities, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"location":{"name":"Paris"},"current":{"temp_c":18.0,"wind_kph":11.2,"condition":{"text":"Sunny"},"feelslike_c":17.5}}`))
	}))
	defer upstream.Close()

	cfg := config.Default()
	cfg.Weather.APIKey = "secret"
	cfg.Weather.BaseURL = upstream.URL
	srv, err := server.New(context.Background(), &cfg, zerolog.Nop())
	require.NoError(t, err)
	defer srv.Close()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	a := agent.New(parisModel{}, tools.NewWeatherTool(ts.URL+"/mcp", zerolog.Nop()), zerolog.Nop())
	state, err := a.Ask(context.Background(), "What's the weather in Paris?")
	require.NoError(t, err)

	last, ok := state.Last()
	require.True(t, ok)
	assert.Equal(t, "Paris", state.CityName)
	assert.Equal(t, []string{"Paris"}, cities)
	assert.Equal(t, "Weather in city Paris\n"+
		"Temperature: 18.0°C\n"+
		"Wind: 11.2 Kph\n"+
		"Condition: Sunny\n"+
		"Feels like: 17.5°C", last.Content)
}

func TestAgent_ServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL + "/mcp"
	ts.Close()

	a := agent.New(parisModel{}, tools.NewWeatherTool(url, zerolog.Nop()), zerolog.Nop())
	state, err := a.Ask(context.Background(), "Paris?")
	require.NoError(t, err)

	last, _ := state.Last()
	assert.Contains(t, last.Content, "Error while getting data: ")
}

func TestAgent_AnthropicEmptyText(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude","content":[{"type":"text","text":""}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":0}}`))
	}))
	defer model.Close()

	cfg := config.Default().LLM
	cfg.Provider = config.ProviderAnthropic
	cfg.APIKey = "test-key"
	cfg.BaseURL = model.URL
	m, err := llm.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	fetched := false
	fetcher := fetchFunc(func(context.Context, string) (string, error) {
		fetched = true
		return "", nil
	})

	state, err := agent.New(m, fetcher, zerolog.Nop()).Ask(context.Background(), "hello there")
	require.NoError(t, err)

	last, _ := state.Last()
	assert.Equal(t, agent.MsgNoCity, last.Content)
	assert.Equal(t, "", state.CityName)
	assert.False(t, fetched)
}

type fetchFunc func(ctx context.Context, city string) (string, error)

func (f fetchFunc) GetWeather(ctx context.Context, city string) (string, error) {
	return f(ctx, city)
}
