package command

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// RetryAttempts is the total attempt budget for a command that loses
	// an append race, including the first try.
	RetryAttempts int `mapstructure:"retry-attempts"`
	// RetryInitialInterval seeds the exponential backoff between attempts.
	RetryInitialInterval time.Duration `mapstructure:"retry-initial-interval"`
	// SnapshotThreshold takes a snapshot every N events per aggregate.
	// Negative disables snapshotting; 0 falls back to the default of 50.
	SnapshotThreshold int `mapstructure:"snapshot-threshold"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config

	if v.IsSet("command") {
		if err := v.Sub("command").UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load command config: %w", err)
		}
	}

	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryAttempts < 1 {
		return cfg, fmt.Errorf("command.retry-attempts must be at least 1")
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = 50 * time.Millisecond
	}
	if cfg.SnapshotThreshold == 0 {
		cfg.SnapshotThreshold = 50
	}
	if cfg.SnapshotThreshold < 0 {
		cfg.SnapshotThreshold = 0
	}

	return cfg, nil
}
