package command

import "go.uber.org/fx"

func NewCommandModule() fx.Option {
	return fx.Options(
		fx.Provide(newConfig, fx.Private),
		fx.Provide(NewService),
	)
}
