package replay

import "go.uber.org/fx"

func NewReplayModule() fx.Option {
	return fx.Provide(
		NewMongoSnapshotStore,
		NewReplayer,
	)
}
