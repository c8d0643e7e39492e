// Package observability wires OpenTelemetry tracing and metrics.
package observability

import (
	appconfig "github.com/Sokol111/ecommerce-product-service/pkg/core/config"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/health"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type observabilityOptions struct {
	config *Config
}

type Option func(*observabilityOptions)

// WithConfig provides a static Config, bypassing viper. For tests.
func WithConfig(cfg Config) Option {
	return func(opts *observabilityOptions) {
		opts.config = &cfg
	}
}

func NewObservabilityModule(opts ...Option) fx.Option {
	cfg := &observabilityOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	configOption := fx.Provide(newConfig)
	if cfg.config != nil {
		configOption = fx.Supply(*cfg.config)
	}

	return fx.Options(
		configOption,
		fx.Provide(
			func(lc fx.Lifecycle, log *zap.Logger, conf Config, appConf appconfig.AppConfig, components health.ComponentManager) (trace.TracerProvider, error) {
				if !conf.TracingEnabled {
					log.Info("otel tracing disabled")
					return nil, nil
				}
				return provideTracerProvider(lc, log, conf, appConf, components)
			},
			func(lc fx.Lifecycle, log *zap.Logger, conf Config, appConf appconfig.AppConfig, components health.ComponentManager) (metric.MeterProvider, error) {
				if !conf.MetricsEnabled {
					log.Info("otel metrics disabled")
					return nil, nil
				}
				return provideMeterProvider(lc, log, conf, appConf, components)
			},
		),
		fx.Invoke(
			func(trace.TracerProvider) {},
			func(metric.MeterProvider) {},
		),
	)
}
