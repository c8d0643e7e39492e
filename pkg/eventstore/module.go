package eventstore

import (
	"embed"

	"github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo/migrations"
	"go.uber.org/fx"
)

//go:embed migrations/*.json
var migrationsFS embed.FS

func NewEventStoreModule() fx.Option {
	return fx.Options(
		fx.Provide(NewMongoStore),
		fx.Invoke(func(m migrations.Migrator) error {
			return m.UpFromFS("product_events_migrations", migrationsFS, "migrations")
		}),
	)
}
