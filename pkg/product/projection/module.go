package projection

import (
	"embed"

	"github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo/migrations"
	"go.uber.org/fx"
)

//go:embed migrations/*.json
var migrationsFS embed.FS

func NewProjectionModule() fx.Option {
	return fx.Options(
		fx.Provide(NewStore),
		fx.Invoke(func(m migrations.Migrator) error {
			return m.UpFromFS("products_migrations", migrationsFS, "migrations")
		}),
	)
}
