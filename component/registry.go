package component

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/kcoidc/logger"
)

// stopTimeout bounds a single component Stop.
const stopTimeout = 10 * time.Second

// Registry starts components in registration order and stops them in
// reverse. Since a failed start rolls back, the started components are
// always a prefix of the registered ones.
type Registry struct {
	mu         sync.RWMutex
	components []Component
	started    int
	log        *logger.Logger
}

// NewRegistry creates an empty registry. A nil log discards output.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{log: log}
}

// Register appends c. Names must be unique and registration is only
// allowed while nothing is started.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if r.started > 0 {
		return fmt.Errorf("component %s registered after start", name)
	}
	if slices.ContainsFunc(r.components, func(o Component) bool { return o.Name() == name }) {
		return fmt.Errorf("component %s already registered", name)
	}
	r.components = append(r.components, c)
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts the components not yet started. On failure the ones it
// started are stopped again and the start error is returned.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ; r.started < len(r.components); r.started++ {
		c := r.components[r.started]
		if err := c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields(
				logger.FieldComponent, c.Name(),
				logger.FieldError, err.Error(),
			))
			_ = r.stop(ctx)
			return fmt.Errorf("failed to start %s: %w", c.Name(), err)
		}
		r.log.Debug("component started", logger.Fields(logger.FieldComponent, c.Name()))
	}
	return nil
}

// StopAll stops every started component, last started first, and joins
// their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop(ctx)
}

func (r *Registry) stop(ctx context.Context) error {
	var errs []error
	for ; r.started > 0; r.started-- {
		c := r.components[r.started-1]
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", c.Name(), err))
			r.log.Error("component stop failed", logger.Fields(
				logger.FieldComponent, c.Name(),
				logger.FieldError, err.Error(),
			))
			continue
		}
		r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, c.Name()))
	}
	return errors.Join(errs...)
}

// HealthAll reports every registered component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.components))
	for i, c := range r.components {
		out[i] = c.Health(ctx)
	}
	return out
}

// Overall folds component health into one status: unhealthy wins over
// degraded, which wins over healthy. The message names the first
// component with the winning status.
func Overall(name string, results []Health) Health {
	rank := map[HealthStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	out := Health{Name: name, Status: StatusHealthy}
	for _, h := range results {
		if rank[h.Status] > rank[out.Status] {
			out.Status = h.Status
			out.Message = h.Name + ": " + h.Message
		}
	}
	return out
}
