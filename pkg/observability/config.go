package observability

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Endpoint is the OTLP gRPC collector address. Empty keeps tracing
	// in-process without export.
	Endpoint string `mapstructure:"endpoint"`
	// TracingEnabled turns span creation on.
	TracingEnabled bool `mapstructure:"tracing-enabled"`
	// MetricsEnabled turns the metrics pipeline on. Requires Endpoint.
	MetricsEnabled bool `mapstructure:"metrics-enabled"`
	// MetricsInterval is the export interval of the periodic reader.
	MetricsInterval time.Duration `mapstructure:"metrics-interval"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if v.IsSet("otel") {
		if err := v.Sub("otel").UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load otel config: %w", err)
		}
	}

	if cfg.MetricsInterval == 0 {
		cfg.MetricsInterval = 10 * time.Second
	}
	if cfg.MetricsEnabled && cfg.Endpoint == "" {
		return cfg, fmt.Errorf("otel.endpoint is required when metrics are enabled")
	}

	return cfg, nil
}
