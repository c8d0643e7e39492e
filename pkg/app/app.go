// Package app assembles the service from its fx modules.
package app

import (
	"github.com/Sokol111/ecommerce-product-service/pkg/category"
	appconfig "github.com/Sokol111/ecommerce-product-service/pkg/core/config"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/health"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/logger"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/worker"
	"github.com/Sokol111/ecommerce-product-service/pkg/eventstore"
	"github.com/Sokol111/ecommerce-product-service/pkg/messaging/producer"
	"github.com/Sokol111/ecommerce-product-service/pkg/observability"
	"github.com/Sokol111/ecommerce-product-service/pkg/outbox"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo/migrations"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/command"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/projection"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/replay"
	"github.com/Sokol111/ecommerce-product-service/pkg/security/token"
	"go.uber.org/fx"
)

// NewModule wires the complete service: infrastructure first, then the
// event-sourcing core, then the command surface.
func NewModule() fx.Option {
	return fx.Options(
		logger.NewZapLoggingModule(),
		appconfig.NewAppConfigModule(),
		appconfig.NewViperModule(),
		health.NewReadinessModule(),
		worker.NewWorkersModule(),
		observability.NewObservabilityModule(),

		mongo.NewMongoModule(),
		migrations.NewMigrationsModule(),
		producer.NewProducerModule(),
		token.NewTokenModule(),
		category.NewCategoryModule(),

		eventstore.NewEventStoreModule(),
		replay.NewReplayModule(),
		projection.NewProjectionModule(),
		outbox.NewOutboxModule(),
		command.NewCommandModule(),
	)
}
