package outbox

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	// Topic is where product events are published.
	Topic string `mapstructure:"topic"`
	// DispatchRate caps FetchAndLock calls per second.
	DispatchRate float64 `mapstructure:"dispatch-rate"`
	// DispatchBurst is the rate limiter burst size.
	DispatchBurst int `mapstructure:"dispatch-burst"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if v.IsSet("outbox") {
		if err := v.Sub("outbox").UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load outbox config: %w", err)
		}
	}

	if cfg.Topic == "" {
		cfg.Topic = "product-events"
	}
	if cfg.DispatchRate == 0 {
		cfg.DispatchRate = 100
	}
	if cfg.DispatchBurst == 0 {
		cfg.DispatchBurst = 10
	}

	return cfg, nil
}
