package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tallyvote/go-tallyeval/internal/llm/providers"
)

// ProviderConfig aliases the provider package's configuration type.
type ProviderConfig = providers.Config

// ObservabilityConfig controls the logging middleware.
type ObservabilityConfig struct {
	// RedactPrompts suppresses prompt text in logs. Scanned forms carry
	// personal data, so this defaults to on.
	RedactPrompts bool `json:"redact_prompts"`

	// LogRawResponses includes full response bodies at debug level.
	LogRawResponses bool `json:"log_raw_responses"`
}

// Config holds the transport client's configuration.
type Config struct {
	// HTTPTimeout is the socket-level timeout of the shared HTTP client.
	// It must exceed DefaultTimeout or it would cut calls short.
	HTTPTimeout time.Duration `json:"http_timeout"`

	// HTTPClient overrides the constructed HTTP client, used by tests.
	HTTPClient *http.Client `json:"-"`

	// DefaultTimeout bounds calls whose request carries no timeout.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// Providers configures the available provider adapters by name.
	Providers map[string]ProviderConfig `json:"providers"`

	Observability ObservabilityConfig `json:"observability"`
}

// DefaultConfig returns a configuration with production defaults and no
// providers; callers fill in Providers from their own configuration.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout:    150 * time.Second,
		DefaultTimeout: 120 * time.Second,
		Observability:  ObservabilityConfig{RedactPrompts: true},
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("config has no providers")
	}
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("default timeout must be positive")
	}
	return nil
}
