package worker

import (
	"context"
	"sync"

	"github.com/Sokol111/ecommerce-product-service/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runnable is a long-running loop driven by a context. A nil return means the
// loop finished; a non-nil error means it died.
type runnable interface {
	Run(ctx context.Context) error
}

type worker interface {
	Start()
	Stop()
}

type Options struct {
	WaitReady       bool
	ShutdownOnError bool
}

type Option func(*Options)

// WithReady delays the loop until every registered component reports ready,
// so a worker never races its own dependencies during startup.
func WithReady() Option {
	return func(o *Options) {
		o.WaitReady = true
	}
}

// WithShutdown stops the whole application when the loop dies.
func WithShutdown() Option {
	return func(o *Options) {
		o.ShutdownOnError = true
	}
}

// loopWorker runs one runnable in a goroutine tied to the fx lifecycle.
type loopWorker struct {
	name       string
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	log        *zap.Logger
	run        func(ctx context.Context) error
	shutdowner fx.Shutdowner
	readiness  health.ReadinessWaiter
	options    Options
}

func (w *loopWorker) Start() {
	w.log.Info("starting worker", zap.String("worker", w.name))
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
}

func (w *loopWorker) loop() {
	if w.options.WaitReady {
		if err := w.readiness.WaitReady(w.ctx); err != nil {
			w.log.Info("worker stopped while waiting for readiness", zap.String("worker", w.name))
			return
		}
	}

	err := w.run(w.ctx)
	if err == nil {
		w.log.Info("worker stopped", zap.String("worker", w.name))
		return
	}

	if w.options.ShutdownOnError {
		w.log.Error("worker fatal error, initiating shutdown", zap.String("worker", w.name), zap.Error(err))
		if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
			w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
		}
		return
	}
	w.log.Error("worker stopped with error", zap.String("worker", w.name), zap.Error(err))
}

// Stop cancels the loop and waits for it to drain.
func (w *loopWorker) Stop() {
	w.log.Info("stopping worker", zap.String("worker", w.name))
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func registerWorker(lc fx.Lifecycle, w worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.Stop()
			return nil
		},
	})
}

// Register provides a lifecycle-managed worker around a dependency with a
// Run(ctx) error method, tagged into the "workers" group.
//
// Options:
//   - WithReady(): wait for all components to be ready before starting
//   - WithShutdown(): trigger application shutdown on fatal error
//
// Example:
//
//	worker.Register[*Dispatcher]("outbox-dispatcher", worker.WithReady())
func Register[T runnable](name string, opts ...Option) any {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	return fx.Annotate(
		func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, readiness health.ReadinessWaiter, dep T) worker {
			w := &loopWorker{
				name:       name,
				log:        log,
				run:        dep.Run,
				shutdowner: shutdowner,
				readiness:  readiness,
				options:    options,
			}
			registerWorker(lc, w)
			return w
		},
		fx.ResultTags(`group:"workers"`),
	)
}
