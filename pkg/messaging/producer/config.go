package producer

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Brokers is the bootstrap server list, comma separated.
	Brokers string `mapstructure:"brokers"`
	// ConnectTimeout bounds the initial broker reachability check.
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	sub := v.Sub("kafka")
	if sub == nil {
		return cfg, fmt.Errorf("kafka configuration section is required")
	}
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load kafka config: %w", err)
	}

	if cfg.Brokers == "" {
		return cfg, fmt.Errorf("kafka.brokers is required")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}

	return cfg, nil
}
