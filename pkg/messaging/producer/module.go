package producer

import (
	"context"

	"github.com/Sokol111/ecommerce-product-service/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewProducerModule() fx.Option {
	return fx.Options(
		fx.Provide(newConfig, fx.Private),
		fx.Provide(provideProducer),
	)
}

func provideProducer(lc fx.Lifecycle, log *zap.Logger, conf Config, components health.ComponentManager) (Producer, error) {
	p, err := newProducer(conf, log)
	if err != nil {
		return nil, err
	}

	markReady := components.AddComponent("kafka-producer")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.waitForBrokers(ctx, conf); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Close()
			return nil
		},
	})

	return p, nil
}
