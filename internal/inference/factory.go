package inference

import (
	"fmt"
	"strings"
	"time"

	"github.com/timmy/mojiscan/internal/domain"
)

// ProviderType names a supported backend.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

// Config holds configuration shared by all providers.
type Config struct {
	Provider    ProviderType
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// NewGenerator creates a Generator for the configured provider.
// Parameters:
//   - cfg: provider selection, credential and request tuning.
//
// Returns:
//   - Generator: ready-to-use client; safe for concurrent use.
//   - error: wraps domain.ErrConfiguration when the provider or credential is unusable.
func NewGenerator(cfg *Config) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: %s API key is empty", domain.ErrConfiguration, cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: %s model is empty", domain.ErrConfiguration, cfg.Provider)
	}

	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderGemini, "":
		return NewGeminiGenerator(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown inference provider %q", domain.ErrConfiguration, cfg.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

// statusError formats a non-2xx reply, preferring the API's own message.
func statusError(provider string, status int, apiMessage string, body []byte) error {
	if apiMessage != "" {
		return fmt.Errorf("%s API returned error: HTTP %d: %s", provider, status, apiMessage)
	}
	return fmt.Errorf("%s API returned error: HTTP %d: %s", provider, status, string(body))
}

// verifyError classifies a failed credential/model probe. Client errors mean the
// configuration itself is wrong.
func verifyError(provider string, status int, apiMessage string, body []byte) error {
	err := statusError(provider, status, apiMessage, body)
	if status >= 400 && status < 500 {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return err
}
