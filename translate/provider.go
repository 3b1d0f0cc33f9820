// Package translate fills batch task files through an AI provider: Google
// Gemini, any OpenAI-compatible endpoint (OpenAI, Groq, Ollama, custom
// servers) or the offline mock provider.
package translate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGemini       = "gemini"
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
	ProviderMock         = "mock"
)

// DefaultTemperature is the sampling temperature used when none is set.
const DefaultTemperature = 0.3

// ErrNoAPIKey is returned when a provider that needs a key has none.
var ErrNoAPIKey = errors.New("no API key configured")

// Request is one provider call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// Payload is the translations JSON embedded in UserPrompt.
	Payload []byte
}

// Provider completes translation prompts.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Config holds the configuration for an AI translation service.
type Config struct {
	// ID is the provider identifier (gemini, openai, groq, ...).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Temperature is the sampling temperature (0 = DefaultTemperature).
	Temperature float32
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// NeedsKey reports whether the provider refuses to start without APIKey.
	NeedsKey bool
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Config {
	return map[string]Config{
		ProviderGemini: {
			ID:       ProviderGemini,
			Name:     "Google AI (Gemini)",
			Model:    "gemini-2.0-flash-exp",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		ProviderOpenAI: {
			ID:       ProviderOpenAI,
			Name:     "OpenAI",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		ProviderGroq: {
			ID:       ProviderGroq,
			Name:     "Groq",
			BaseURL:  "https://api.groq.com/openai/v1",
			Model:    "llama-3.3-70b-versatile",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1",
			Timeout: 300 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 120 * time.Second,
		},
		ProviderMock: {
			ID:   ProviderMock,
			Name: "Mock",
		},
	}
}

// ProviderIDs returns the known provider IDs, sorted.
func ProviderIDs() []string {
	defs := DefaultProviders()
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve fills unset fields of cfg from the provider's defaults.
func Resolve(cfg Config) (Config, error) {
	def, ok := DefaultProviders()[cfg.ID]
	if !ok {
		return cfg, fmt.Errorf("unknown provider %q (known: %v)", cfg.ID, ProviderIDs())
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.NeedsKey = def.NeedsKey
	return cfg, nil
}

// New constructs the provider described by cfg.
func New(ctx context.Context, cfg Config) (Provider, error) {
	cfg, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.NeedsKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrNoAPIKey)
	}

	switch cfg.ID {
	case ProviderGemini:
		return newGemini(ctx, cfg)
	case ProviderOpenAI, ProviderGroq, ProviderOllama:
		return newOpenAI(cfg)
	case ProviderCustomOpenAI:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%s: a base URL is required", cfg.Name)
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("%s: a model is required", cfg.Name)
		}
		return newOpenAI(cfg)
	default:
		return Mock{}, nil
	}
}

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }
