package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type fakeReadiness struct {
	ready chan struct{}
}

func (f *fakeReadiness) WaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ready:
		return nil
	}
}

type fakeShutdowner struct {
	calls chan struct{}
}

func (f *fakeShutdowner) Shutdown(...fx.ShutdownOption) error {
	f.calls <- struct{}{}
	return nil
}

func TestWorkerWaitsForReadiness(t *testing.T) {
	readiness := &fakeReadiness{ready: make(chan struct{})}
	started := make(chan struct{})

	w := &loopWorker{
		name:      "test-loop",
		log:       zap.NewNop(),
		readiness: readiness,
		options:   Options{WaitReady: true},
		run: func(ctx context.Context) error {
			close(started)
			return nil
		},
	}
	w.Start()
	defer w.Stop()

	select {
	case <-started:
		t.Fatal("loop ran before components were ready")
	case <-time.After(50 * time.Millisecond):
	}

	close(readiness.ready)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("loop never started after readiness")
	}
}

func TestWorkerStopCancelsLoop(t *testing.T) {
	w := &loopWorker{
		name: "test-loop",
		log:  zap.NewNop(),
		run: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
	}
	w.Start()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the running loop")
	}
}

func TestWorkerShutsDownOnFatalError(t *testing.T) {
	shutdowner := &fakeShutdowner{calls: make(chan struct{}, 1)}

	w := &loopWorker{
		name:       "test-loop",
		log:        zap.NewNop(),
		shutdowner: shutdowner,
		options:    Options{ShutdownOnError: true},
		run: func(ctx context.Context) error {
			return errors.New("broker unreachable")
		},
	}
	w.Start()
	defer w.Stop()

	select {
	case <-shutdowner.calls:
	case <-time.After(time.Second):
		t.Fatal("fatal loop error did not trigger shutdown")
	}
}

func TestWorkerErrorWithoutShutdownOption(t *testing.T) {
	shutdowner := &fakeShutdowner{calls: make(chan struct{}, 1)}

	w := &loopWorker{
		name:       "test-loop",
		log:        zap.NewNop(),
		shutdowner: shutdowner,
		run: func(ctx context.Context) error {
			return errors.New("transient failure")
		},
	}
	w.Start()
	w.Stop()

	select {
	case <-shutdowner.calls:
		t.Fatal("shutdown triggered without WithShutdown")
	default:
	}
}

func TestRegisterOptions(t *testing.T) {
	options := Options{}
	for _, opt := range []Option{WithReady(), WithShutdown()} {
		opt(&options)
	}
	require.True(t, options.WaitReady)
	assert.True(t, options.ShutdownOnError)
}
