// Package health watches backend liveness in the background.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/state"
)

// DefaultInterval is the time between background checks.
const DefaultInterval = 30 * time.Second

// Checker probes the backend. *client.Client satisfies it.
type Checker interface {
	Health(ctx context.Context) (client.HealthStatus, error)
}

// Status is the latest known backend liveness. The zero value means no check
// has completed yet.
type Status struct {
	Checked   bool
	Down      bool
	CheckedAt time.Time
	Err       error
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithLogger sets the monitor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// Monitor checks backend health immediately and then on every interval,
// publishing each outcome through its state store.
type Monitor struct {
	checker  Checker
	interval time.Duration
	logger   *slog.Logger
	store    *state.Store[Status]
	now      func() time.Time
}

// NewMonitor creates a Monitor for checker.
func NewMonitor(checker Checker, opts ...Option) *Monitor {
	m := &Monitor{
		checker:  checker,
		interval: DefaultInterval,
		logger:   logger.Nop(),
		store:    state.New(Status{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the latest published status.
func (m *Monitor) Status() Status {
	return m.store.Get()
}

// Subscribe registers fn for every published status.
func (m *Monitor) Subscribe(fn func(Status)) (unsubscribe func()) {
	return m.store.Subscribe(fn)
}

// Check probes the backend once and publishes the result.
func (m *Monitor) Check(ctx context.Context) Status {
	_, err := m.checker.Health(ctx)
	next := Status{
		Checked:   true,
		Down:      err != nil,
		CheckedAt: m.now(),
		Err:       err,
	}

	prev := m.store.Get()
	switch {
	case next.Down && !prev.Down:
		m.logger.Warn("backend unreachable", "error", err)
	case !next.Down && prev.Down:
		m.logger.Info("backend reachable again")
	}

	m.store.Set(next)
	return next
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
