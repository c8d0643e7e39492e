package outbox

import (
	"embed"

	"github.com/Sokol111/ecommerce-product-service/pkg/core/worker"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo/migrations"
	"go.uber.org/fx"
)

//go:embed migrations/*.json
var migrationsFS embed.FS

func NewOutboxModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			NewStore,
			NewPublisher,
			NewDispatcher,
			worker.Register[*Dispatcher]("outbox-dispatcher", worker.WithReady()),
		),
		fx.Invoke(func(m migrations.Migrator) error {
			return m.UpFromFS("product_outbox_migrations", migrationsFS, "migrations")
		}),
	)
}
