// Package agent turns a user message into a weather reply: a language model
// extracts the city name, then the get_weather tool is called for it.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"weather-agent/internal/llm"
)

const (
	StepClassifyCity = "city_name_classification"
	StepFetchWeather = "weather_fetching"
)

const (
	MsgNoMessage     = "No message provided"
	MsgNoCity        = "City not specified"
	MsgNoWeatherData = "No weather data"
)

// WeatherFetcher returns the weather text for a city. Tool-level failures
// are part of the text; the error is reserved for failed calls.
type WeatherFetcher interface {
	GetWeather(ctx context.Context, city string) (string, error)
}

// Agent answers one user message per call to Ask.
type Agent struct {
	model    llm.Model
	fetcher  WeatherFetcher
	pipeline *Pipeline
	logger   zerolog.Logger
}

func New(model llm.Model, fetcher WeatherFetcher, logger zerolog.Logger) *Agent {
	a := &Agent{
		model:   model,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "agent").Logger(),
	}
	a.pipeline = NewPipeline(a.logger,
		Step{Name: StepClassifyCity, Run: a.classifyCityName},
		Step{Name: StepFetchWeather, Run: a.fetchWeather},
	)
	return a
}

// Pipeline returns the steps Ask runs.
func (a *Agent) Pipeline() *Pipeline {
	return a.pipeline
}

// Ask runs one turn starting from input. An empty input starts the turn with
// no messages.
func (a *Agent) Ask(ctx context.Context, input string) (State, error) {
	var state State
	if input = strings.TrimSpace(input); input != "" {
		state.Messages = []Message{{Role: RoleUser, Content: input}}
	}

	turn := uuid.NewString()
	ctx = a.logger.With().Str("turn", turn).Logger().WithContext(ctx)
	a.logger.Info().Str("turn", turn).Msg("Turn started")

	return a.pipeline.Run(ctx, state)
}

func (a *Agent) classifyCityName(ctx context.Context, state State) (Update, error) {
	last, ok := state.Last()
	if !ok {
		return Update{Messages: assistant(MsgNoMessage), CityName: city("")}, nil
	}

	prompt, err := renderCityPrompt(last.Content)
	if err != nil {
		return Update{}, err
	}
	out, err := a.model.Complete(ctx, prompt)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		out, err = "", nil
	}
	if err != nil {
		return Update{}, err
	}

	name := strings.TrimSpace(out)
	if !validCityName(name) {
		zerolog.Ctx(ctx).Warn().Str("output", out).Msg("Model output is not a city name")
		return Update{
			Messages: assistant(fmt.Sprintf("Could not recognize a city name in model output: %q", out)),
			CityName: city(""),
		}, nil
	}

	zerolog.Ctx(ctx).Info().Str("city_name", name).Msg("City name extracted")
	return Update{CityName: city(name)}, nil
}

func (a *Agent) fetchWeather(ctx context.Context, state State) (Update, error) {
	if state.CityName == "" {
		return Update{Messages: assistant(MsgNoCity), CityName: city("")}, nil
	}

	text, err := a.fetcher.GetWeather(ctx, state.CityName)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("city_name", state.CityName).Msg("Weather call failed")
		return Update{Messages: assistant(fmt.Sprintf("Error while getting data: %v", err))}, nil
	}
	if text == "" {
		text = MsgNoWeatherData
	}
	return Update{Messages: assistant(text)}, nil
}
