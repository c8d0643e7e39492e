package observability

import (
	"context"

	appconfig "github.com/Sokol111/ecommerce-product-service/pkg/core/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

func newResource(ctx context.Context, appConf appconfig.AppConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(appConf.ServiceName),
			semconv.ServiceVersionKey.String(appConf.ServiceVersion),
			semconv.DeploymentEnvironmentNameKey.String(appConf.Environment),
		),
	)
}
