package worker

import "go.uber.org/fx"

// NewWorkersModule forces instantiation of all registered workers so their
// lifecycle hooks are attached even when nothing else depends on them.
func NewWorkersModule() fx.Option {
	return fx.Invoke(
		fx.Annotate(
			func(workers []worker) {},
			fx.ParamTags(`group:"workers"`),
		),
	)
}
