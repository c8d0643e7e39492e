package token

import (
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type tokenOptions struct {
	config  *Config
	disable bool
}

// TokenOption configures the token module.
type TokenOption func(*tokenOptions)

// WithTokenConfig provides a static Config, bypassing viper. For tests.
func WithTokenConfig(cfg Config) TokenOption {
	return func(opts *tokenOptions) {
		opts.config = &cfg
	}
}

// WithDisableValidation swaps in a validator that accepts everything and
// returns admin claims. For tests.
func WithDisableValidation() TokenOption {
	return func(opts *tokenOptions) {
		opts.disable = true
	}
}

// NewTokenModule provides the Validator used to authenticate command callers.
func NewTokenModule(opts ...TokenOption) fx.Option {
	cfg := &tokenOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.disable {
		return fx.Provide(newNoopValidator)
	}

	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			provideConfig,
			newValidator,
		),
	)
}

func provideConfig(opts *tokenOptions, v *viper.Viper) (Config, error) {
	if opts.config != nil {
		return *opts.config, nil
	}
	return loadConfig(v)
}
