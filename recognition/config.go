package recognition

import (
	"fmt"
	"time"

	"github.com/kbukum/chunkscribe/provider"
	"github.com/kbukum/chunkscribe/resilience"
)

// DefaultLanguage is the language hint used when none is configured.
const DefaultLanguage = "he-IL"

// Config is the recognition section of the application config.
type Config struct {
	// Provider selects the registered backend.
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required"`
	URL      string `yaml:"url" mapstructure:"url"`
	Model    string `yaml:"model" mapstructure:"model"`
	Language string `yaml:"language" mapstructure:"language"`
	// Timeout bounds a single recognition call.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// MaxAttempts bounds retries of a failed segment, first call included.
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// Concurrency is how many segments of one source are recognized at once.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1"`
	// Rate caps recognition call starts per second across all sources. 0 disables.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "whisper"
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
}

// Validate checks the recognition settings.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("recognition.provider is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("recognition.max_attempts must be >= 1 (got: %d)", c.MaxAttempts)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("recognition.concurrency must be >= 1 (got: %d)", c.Concurrency)
	}
	retry := c.RetryConfig()
	return retry.Validate()
}

// RetryConfig derives the per-segment retry policy.
func (c *Config) RetryConfig() resilience.RetryConfig {
	r := resilience.DefaultRetryConfig()
	r.MaxAttempts = c.MaxAttempts
	if c.InitialBackoff > 0 {
		r.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		r.MaxBackoff = c.MaxBackoff
	}
	if r.MaxBackoff < r.InitialBackoff {
		r.MaxBackoff = r.InitialBackoff
	}
	r.RetryIf = IsRetryable
	return r
}

// LimiterConfig derives the shared call limiter settings.
func (c *Config) LimiterConfig() resilience.LimiterConfig {
	return resilience.LimiterConfig{Rate: c.Rate}
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *provider.Registry[Provider, Config] {
	return provider.NewRegistry[Provider, Config]()
}
