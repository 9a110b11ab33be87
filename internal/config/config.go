// Package config builds the process configuration shared by the weather
// server, the agent CLI and the probe.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// DefaultWeatherAPIURL is the weatherapi.com current conditions endpoint.
	DefaultWeatherAPIURL = "https://api.weatherapi.com/v1/current.json"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is constructed once at startup and passed by pointer to the
// components that need it.
type Config struct {
	LogLevel string

	Server  Server
	Session Session
	Weather Weather
	Agent   Agent
	LLM     LLM
}

// Server configures the MCP tool server.
type Server struct {
	Addr         string `validate:"required,hostname_port"`
	Name         string `validate:"required"`
	Version      string `validate:"required"`
	Instructions string
}

// Session configures MCP session handling on the server.
type Session struct {
	Timeout         time.Duration `validate:"gt=0"`
	CleanupInterval time.Duration `validate:"gt=0"`
	Required        bool
	// RedisURL switches the session store from memory to Redis when set.
	RedisURL    string `validate:"omitempty,url"`
	RedisPrefix string
}

// Weather configures the upstream weather API.
type Weather struct {
	// APIKey may be empty; get_weather then reports the missing key in-band.
	APIKey  string
	BaseURL string `validate:"required,url"`
	// Timeout of zero leaves the HTTP client default in place.
	Timeout time.Duration `validate:"gte=0"`
}

// Agent configures the agent side of the MCP connection.
type Agent struct {
	MCPURL string `validate:"required,url"`
}

// LLM configures the language model used for city extraction.
type LLM struct {
	Provider           string `validate:"oneof=openai anthropic"`
	APIKey             string `validate:"required"`
	BaseURL            string `validate:"omitempty,url"`
	Model              string `validate:"required"`
	MaxTokens          int    `validate:"gt=0"`
	InsecureSkipVerify bool
}

// Default returns the configuration used when no environment overrides exist.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server: Server{
			Addr:    "127.0.0.1:9000",
			Name:    "WeatherAssistantServer",
			Version: "1.0.0",
			Instructions: "This server provides weather tools. " +
				"Call get_weather() to get information about the weather in a city.",
		},
		Session: Session{
			Timeout:         time.Hour,
			CleanupInterval: 5 * time.Minute,
			Required:        true,
			RedisPrefix:     "/weather-agent",
		},
		Weather: Weather{
			BaseURL: DefaultWeatherAPIURL,
		},
		Agent: Agent{
			MCPURL: "http://127.0.0.1:9000/mcp",
		},
		LLM: LLM{
			Provider:           ProviderOpenAI,
			Model:              "gpt-4o-mini",
			MaxTokens:          64,
			InsecureSkipVerify: true,
		},
	}
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads optional dotenv files (".env" when none are given) into the
// process environment and builds the configuration from it.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, errors.Wrap(err, "load dotenv")
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv overlays environment values on top of Default.
func FromEnv(lookup LookupFunc) (*Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.str("LOG_LEVEL", &cfg.LogLevel)

	p.str("SERVER_ADDR", &cfg.Server.Addr)
	p.str("SERVER_NAME", &cfg.Server.Name)

	p.duration("SESSION_TIMEOUT", &cfg.Session.Timeout)
	p.duration("SESSION_CLEANUP_INTERVAL", &cfg.Session.CleanupInterval)
	p.boolean("SESSION_REQUIRED", &cfg.Session.Required)
	p.str("REDIS_URL", &cfg.Session.RedisURL)
	p.str("REDIS_PREFIX", &cfg.Session.RedisPrefix)

	p.str("WEATHER_API_KEY", &cfg.Weather.APIKey)
	p.str("WEATHER_API_URL", &cfg.Weather.BaseURL)
	p.duration("WEATHER_API_TIMEOUT", &cfg.Weather.Timeout)

	p.str("MCP_URL", &cfg.Agent.MCPURL)

	p.str("LLM_PROVIDER", &cfg.LLM.Provider)
	p.str("LLM_API_KEY", &cfg.LLM.APIKey)
	p.str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	p.str("LLM_MODEL", &cfg.LLM.Model)
	p.integer("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	p.boolean("LLM_INSECURE_SKIP_VERIFY", &cfg.LLM.InsecureSkipVerify)

	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return &cfg, nil
}

// ValidateServer checks the sections used by the tool server.
func (c *Config) ValidateServer() error {
	return validate(c.LogLevel, c.Server, c.Session, c.Weather)
}

// ValidateAgent checks the sections used by the agent CLI.
func (c *Config) ValidateAgent() error {
	return validate(c.LogLevel, c.Agent, c.LLM)
}

// ValidateProbe checks the sections used by the probe.
func (c *Config) ValidateProbe() error {
	return validate(c.LogLevel, c.Agent)
}

var validate = func() func(level string, sections ...any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return func(level string, sections ...any) error {
		if err := v.Var(level, "oneof=trace debug info warn error fatal panic disabled"); err != nil {
			return errors.Wrapf(err, "invalid LOG_LEVEL %q", level)
		}
		for _, s := range sections {
			if err := v.Struct(s); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
		}
		return nil
	}
}()

type parser struct {
	lookup LookupFunc
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, errors.Wrapf(err, "parse %s", key))
		return
	}
	*dst = d
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, errors.Wrapf(err, "parse %s", key))
		return
	}
	*dst = b
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, errors.Wrapf(err, "parse %s", key))
		return
	}
	*dst = n
}
