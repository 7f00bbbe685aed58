package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ShutdownCoordinator collects named cleanup hooks and runs them in
// reverse registration order, so dependents stop before the things
// they depend on. A failing hook does not stop the rest.
type ShutdownCoordinator struct {
	mu    sync.Mutex
	hooks []shutdownHook
}

type shutdownHook struct {
	name string
	fn   func(context.Context) error
}

// Register appends a cleanup hook.
func (s *ShutdownCoordinator) Register(name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, shutdownHook{name: name, fn: fn})
}

// Shutdown runs every registered hook, newest first, and joins any
// errors they return.
func (s *ShutdownCoordinator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hooks := make([]shutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		slog.Info("shutting down", "component", h.name)
		if err := h.fn(ctx); err != nil {
			slog.Error("shutdown error", "component", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
