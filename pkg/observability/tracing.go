package observability

import (
	"context"
	"time"

	appconfig "github.com/Sokol111/ecommerce-product-service/pkg/core/config"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/health"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideTracerProvider(lc fx.Lifecycle, log *zap.Logger, conf Config, appConf appconfig.AppConfig, components health.ComponentManager) (trace.TracerProvider, error) {
	markReady := components.AddComponent("otel-tracing")
	ctx := context.Background()

	res, err := newResource(ctx, appConf)
	if err != nil {
		return nil, err
	}

	var tp *sdktrace.TracerProvider
	if conf.Endpoint != "" {
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(conf.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	} else {
		log.Info("otel tracing: no collector endpoint, spans stay in-process")
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
			sdktrace.WithResource(res),
		)
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			log.Info("otel tracing initialized", zap.String("endpoint", conf.Endpoint))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return tp.Shutdown(c)
		},
	})

	return tp, nil
}

// GetTraceID returns the current trace id, or "" outside a span.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// WithSpan starts a span and returns the updated context plus an end
// function that records the outcome.
//
//	ctx, end := observability.WithSpan(ctx, "product.create")
//	defer func() { end(err) }()
func WithSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, func(error)) {
	tracer := otel.Tracer("app")
	ctx, span := tracer.Start(ctx, spanName, opts...)

	end := func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "success")
		}
		span.End()
	}
	return ctx, end
}
