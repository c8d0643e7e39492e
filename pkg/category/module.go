package category

import (
	"github.com/Sokol111/ecommerce-product-service/pkg/http/client"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

func NewCategoryModule() fx.Option {
	return fx.Options(
		fx.Provide(newConfig, fx.Private),
		fx.Provide(provideChecker),
	)
}

func provideChecker(cfg Config, v *viper.Viper) (Checker, error) {
	if cfg.Mode == "static" {
		return NewStaticChecker(cfg.StaticIDs), nil
	}

	httpClient, clientCfg, err := client.Provide("category-service")(v)
	if err != nil {
		return nil, err
	}
	return NewHTTPChecker(httpClient, clientCfg), nil
}
