package category

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	// Mode selects the checker implementation: "http" or "static".
	Mode string `mapstructure:"mode"`
	// StaticIDs is the accepted category list in static mode.
	StaticIDs []string `mapstructure:"static-ids"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if v.IsSet("category") {
		if err := v.Sub("category").UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load category config: %w", err)
		}
	}

	if cfg.Mode == "" {
		cfg.Mode = "http"
	}
	if cfg.Mode != "http" && cfg.Mode != "static" {
		return cfg, fmt.Errorf("unknown category checker mode %q", cfg.Mode)
	}

	return cfg, nil
}
