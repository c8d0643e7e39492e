package observability

import (
	"context"
	"time"

	appconfig "github.com/Sokol111/ecommerce-product-service/pkg/core/config"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/health"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideMeterProvider(lc fx.Lifecycle, log *zap.Logger, conf Config, appConf appconfig.AppConfig, components health.ComponentManager) (metric.MeterProvider, error) {
	markReady := components.AddComponent("otel-metrics")
	ctx := context.Background()

	res, err := newResource(ctx, appConf)
	if err != nil {
		return nil, err
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(conf.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(conf.MetricsInterval))),
		sdkmetric.WithResource(res),
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetMeterProvider(mp)
			_ = otelruntime.Start(otelruntime.WithMinimumReadMemStatsInterval(time.Second))
			log.Info("otel metrics initialized",
				zap.String("endpoint", conf.Endpoint),
				zap.Duration("interval", conf.MetricsInterval))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return mp.Shutdown(c)
		},
	})

	return mp, nil
}
