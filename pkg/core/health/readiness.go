package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

type readiness struct {
	mu         sync.RWMutex
	components map[string]*component
	readyAt    time.Time
	readyChan  chan struct{}
	readyOnce  sync.Once
	logger     *zap.Logger
}

func newReadiness(logger *zap.Logger) *readiness {
	return &readiness{
		components: make(map[string]*component),
		readyChan:  make(chan struct{}),
		logger:     logger,
	}
}

func (r *readiness) AddComponent(name string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; !exists {
		r.components[name] = &component{
			name:      name,
			startedAt: time.Now(),
		}
	}

	return func() { r.markReady(name) }
}

func (r *readiness) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.components[name]
	if !exists || comp.ready {
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()
	r.logger.Info("component ready", zap.String("component", name))

	for _, c := range r.components {
		if !c.ready {
			return
		}
	}

	r.readyAt = time.Now()
	r.readyOnce.Do(func() { close(r.readyChan) })
	r.logger.Info("all components ready", zap.Int("components", len(r.components)))
}

func (r *readiness) IsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.components) == 0 {
		return false
	}
	for _, c := range r.components {
		if !c.ready {
			return false
		}
	}
	return true
}

func (r *readiness) GetStatus() ReadinessStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := ReadinessStatus{
		Ready:      true,
		Components: make([]ComponentStatus, 0, len(r.components)),
		ReadyAt:    r.readyAt,
	}
	for _, c := range r.components {
		if !c.ready {
			status.Ready = false
		}
		status.Components = append(status.Components, ComponentStatus{
			Name:      c.name,
			Ready:     c.ready,
			StartedAt: c.startedAt,
			ReadyAt:   c.readyAt,
		})
	}
	if len(r.components) == 0 {
		status.Ready = false
	}
	return status
}

func (r *readiness) WaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.readyChan:
		return nil
	}
}
