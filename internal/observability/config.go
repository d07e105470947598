package observability

import (
	"fmt"
	"strings"
	"time"
)

// LoggingConfig selects the slog handler and minimum level.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
}

// Validate returns an error if Provider is not otlp or noop, or the sample
// rate is outside [0, 1]. Disabled configs always validate.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	provider := strings.ToLower(c.Provider)
	if provider != "otlp" && provider != "noop" {
		return fmt.Errorf("invalid tracing provider: %s (must be one of: otlp, noop)", c.Provider)
	}
	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return fmt.Errorf("invalid sample rate: %f (must be between 0.0 and 1.0)", c.SampleRate)
	}
	if provider == "otlp" && c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when tracing is enabled")
	}
	return nil
}

// MetricsConfig contains metrics export configuration. The Prometheus
// registry is always served on the API's Path; setting OTLPEndpoint also
// pushes to a collector every PushInterval.
type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Path         string        `mapstructure:"path" yaml:"path"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool          `mapstructure:"insecure" yaml:"insecure"`
	PushInterval time.Duration `mapstructure:"push_interval" yaml:"push_interval" validate:"gte=0"`
}
