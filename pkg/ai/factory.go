package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNotConfigured indicates the selected provider has no credentials.
var ErrNotConfigured = errors.New("ai provider not configured")

// Options selects and configures an assistant provider.
type Options struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Logger          zerolog.Logger
}

// New builds the assistant for opts.Provider. It returns ErrNotConfigured when
// the provider's API key is empty.
func New(opts Options) (Assistant, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, ErrNotConfigured
		}
		assistant, err := NewOpenAIAssistant(OpenAIConfig{APIKey: opts.OpenAIAPIKey, Model: opts.Model, Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
		return assistant, nil
	case ProviderAnthropic:
		if opts.AnthropicAPIKey == "" {
			return nil, ErrNotConfigured
		}
		assistant, err := NewAnthropicAssistant(AnthropicConfig{APIKey: opts.AnthropicAPIKey, Model: opts.Model, Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
		return assistant, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}
