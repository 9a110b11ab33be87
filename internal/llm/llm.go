// Package llm sends single-turn prompts to a chat model.
package llm

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"weather-agent/internal/config"
)

// Model completes a single user prompt deterministically.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("model returned no completion")

// New returns the Model configured by cfg.
func New(cfg config.LLM, logger zerolog.Logger) (Model, error) {
	logger = logger.With().
		Str("component", "llm").
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Logger()

	httpClient := newHTTPClient(cfg.InsecureSkipVerify)
	if cfg.InsecureSkipVerify {
		logger.Warn().Msg("TLS certificate verification is disabled for the model endpoint")
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, httpClient, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg, httpClient, logger), nil
	default:
		return nil, errors.Newf("unknown LLM provider %q", cfg.Provider)
	}
}

func newHTTPClient(insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{Transport: transport}
}
