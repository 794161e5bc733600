package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// StopFunc releases a component within the deadline carried by ctx.
type StopFunc func(ctx context.Context) error

type component struct {
	name string
	stop StopFunc
}

// Manager stops the server's components in reverse start order once the
// process is asked to terminate.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	components []component
	stopped    bool
}

// New creates a manager whose Shutdown is bounded by timeout.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register records a started component. Registering after Shutdown stops it immediately.
func (m *Manager) Register(name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		m.stopOne(ctx, component{name: name, stop: stop})
		return
	}
	m.components = append(m.components, component{name: name, stop: stop})
	m.mu.Unlock()
}

// Shutdown stops every registered component, newest first. Failures do not
// prevent later components from stopping; they are joined into the result.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	components := m.components
	m.components = nil
	m.stopped = true
	m.mu.Unlock()

	var result error
	for i := len(components) - 1; i >= 0; i-- {
		result = errors.Join(result, m.stopOne(ctx, components[i]))
	}
	return result
}

func (m *Manager) stopOne(ctx context.Context, c component) error {
	if err := c.stop(ctx); err != nil {
		m.logger.Error("component failed to stop", zap.String("component", c.name), zap.Error(err))
		return err
	}
	m.logger.Info("component stopped", zap.String("component", c.name))
	return nil
}

// Listen cancels the returned context on SIGINT or SIGTERM.
func (m *Manager) Listen(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
