// Package controller implements reconciliation loop controllers for
// self-healing background operations. Each controller runs in its own
// goroutine, reconciles one aspect of system state on an interval, and
// can fail without affecting the others.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wellqio/api/pkg/logger"
)

// Controller is one periodic reconciliation loop. Reconcile must be
// idempotent: running it twice has the same effect as once.
type Controller interface {
	Name() string
	Interval() time.Duration

	// Reconcile returns the number of items it acted on.
	Reconcile(ctx context.Context) (int, error)
}

// Manager runs registered controllers in parallel goroutines.
type Manager struct {
	controllers []Controller
	metrics     *Metrics
	logger      *logger.Logger
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
}

// NewManager creates a new controller manager. metrics may be nil.
func NewManager(metrics *Metrics, log *logger.Logger) *Manager {
	return &Manager{
		metrics: metrics,
		logger:  log.With("component", "controller_manager"),
		stopCh:  make(chan struct{}),
	}
}

// Register adds a controller. Must be called before Start.
func (m *Manager) Register(c Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		panic("cannot register controllers while manager is running")
	}

	m.controllers = append(m.controllers, c)
	m.logger.Info("controller registered", "name", c.Name(), "interval", c.Interval().String())
}

// Start launches all registered controllers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("controller manager already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("starting controller manager", "controller_count", len(m.controllers))

	for _, c := range m.controllers {
		m.wg.Add(1)
		go m.runController(ctx, c)
	}
	return nil
}

// Stop stops all controllers and waits for them to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("controller manager stopped")
	return nil
}

func (m *Manager) runController(ctx context.Context, c Controller) {
	defer m.wg.Done()

	name := c.Name()

	// Run once at startup so a crashed process does not leave stale
	// state sitting until the first tick.
	m.reconcileOnce(ctx, c)

	ticker := time.NewTicker(c.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("controller stopping", "name", name, "reason", "context canceled")
			return
		case <-m.stopCh:
			m.logger.Info("controller stopping", "name", name, "reason", "manager stopped")
			return
		case <-ticker.C:
			m.reconcileOnce(ctx, c)
		}
	}
}

func (m *Manager) reconcileOnce(ctx context.Context, c Controller) {
	name := c.Name()
	start := time.Now()

	processed, err := c.Reconcile(ctx)
	duration := time.Since(start)

	if m.metrics != nil {
		m.metrics.recordReconcile(name, duration, err)
	}

	if err != nil {
		m.logger.Error("reconciliation failed",
			"controller", name,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return
	}
	if processed > 0 {
		m.logger.Info("reconciliation completed",
			"controller", name,
			"items_processed", processed,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
