package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/podkeep/podkeep/pkg/compose"
	"github.com/podkeep/podkeep/pkg/config"
	"github.com/podkeep/podkeep/pkg/events"
	"github.com/podkeep/podkeep/pkg/log"
	"github.com/podkeep/podkeep/pkg/metrics"
	"github.com/podkeep/podkeep/pkg/state"
)

// DefaultSettleDelay is how long a freshly restarted deployment unit is
// given to come up before the restart is verified
const DefaultSettleDelay = 10 * time.Second

// Inspector is the capability the monitor needs from the container
// runtime: observe what is running and restart a deployment unit
type Inspector interface {
	// ListRunning returns the names of all currently running containers
	ListRunning(ctx context.Context) (map[string]bool, error)

	// RestartUnit stops and starts the deployment unit containing the
	// given compose descriptor
	RestartUnit(ctx context.Context, composePath string) error
}

// Monitor keeps the containers declared across the configured compose
// descriptors in a running state
type Monitor struct {
	// mu serializes the two timer handlers; a reconciliation pass holds
	// it end to end, including the settle delay and verification
	mu sync.Mutex

	cfg        config.Config
	configPath string
	st         *state.State
	inspector  Inspector
	broker     *events.Broker
	logger     zerolog.Logger

	// settleDelay is overridable so tests verify restarts without waiting
	settleDelay time.Duration
}

// New creates a monitor for the given configuration. The config path is
// kept so every check cycle can pick up descriptor-list changes.
func New(cfg config.Config, configPath string, inspector Inspector) *Monitor {
	return &Monitor{
		cfg:         cfg,
		configPath:  configPath,
		st:          state.New(),
		inspector:   inspector,
		broker:      events.NewBroker(),
		logger:      log.WithComponent("monitor"),
		settleDelay: DefaultSettleDelay,
	}
}

// Events returns the broker publishing this monitor's lifecycle events
func (m *Monitor) Events() *events.Broker {
	return m.broker
}

// Discover rebuilds the managed-container set from all configured
// descriptors. A descriptor that fails to load is logged and skipped;
// the remaining descriptors are still discovered. All prior lifecycle
// history is discarded.
func (m *Monitor) Discover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discover()
}

func (m *Monitor) discover() {
	m.logger.Info().
		Int("compose_files", len(m.cfg.ComposeFiles)).
		Msg("discovering containers")

	m.st.Reset()

	for _, path := range m.cfg.ComposeFiles {
		containers, err := compose.ParseContainers(path)
		if err != nil {
			m.logger.Error().Err(err).Str("file", path).Msg("failed to load compose file")
			continue
		}

		m.logger.Debug().
			Int("containers", len(containers)).
			Str("file", path).
			Msg("parsed compose file")

		for _, c := range containers {
			m.st.Add(c.Name, path)
		}
	}

	total := m.st.ManagedCount()
	m.logger.Info().Int("total", total).Msg("discovery completed")

	metrics.DiscoveryRunsTotal.Inc()
	metrics.ManagedContainers.Set(float64(total))
	m.broker.Publish(events.Event{
		Type:    events.EventDiscoveryCompleted,
		Message: fmt.Sprintf("%d containers managed", total),
	})
}

// ReconcileOnce performs a single check cycle: reload configuration,
// observe the running set, and restart any managed container that is
// absent and eligible. A failed runtime query aborts the cycle without
// touching lifecycle state.
func (m *Monitor) ReconcileOnce(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconcileOnce(ctx)
}

func (m *Monitor) reconcileOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
		metrics.ReconcileCyclesTotal.Inc()
	}()

	m.logger.Debug().Msg("checking container states")

	// A descriptor-list change takes priority over the check itself;
	// the restart pass resumes next cycle on fresh discovery data.
	if cfg, err := config.Load(m.configPath); err != nil {
		m.logger.Warn().Err(err).Msg("failed to reload config")
	} else {
		pathsChanged := !m.cfg.PathsEqual(cfg)
		m.cfg = cfg
		if pathsChanged {
			m.logger.Info().Msg("configuration changed, rediscovering containers")
			m.discover()
			return nil
		}
	}

	if m.st.ManagedCount() == 0 {
		m.logger.Debug().Msg("no containers to check")
		return nil
	}

	running, err := m.inspector.ListRunning(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to get running containers")
		return err
	}

	m.st.UpdateRunning(running)
	metrics.RunningContainers.Set(float64(m.st.RunningManagedCount()))

	now := time.Now()
	for _, name := range m.st.Managed() {
		if m.st.IsRunning(name) {
			continue
		}

		rec := m.st.Get(name)
		m.broker.Publish(events.Event{
			Type:      events.EventContainerDown,
			Container: name,
		})

		if !m.shouldRestart(name, rec, now) {
			continue
		}

		if err := m.attemptRestart(ctx, name, rec); err != nil {
			return err
		}
	}

	return nil
}

// shouldRestart decides whether a down container is eligible for a
// restart attempt this cycle
func (m *Monitor) shouldRestart(name string, rec *state.Record, now time.Time) bool {
	if rec.ConsecutiveFailures >= m.cfg.MaxConsecutiveFailures {
		m.logger.Debug().
			Str("container", name).
			Int("failures", rec.ConsecutiveFailures).
			Int("max", m.cfg.MaxConsecutiveFailures).
			Msg("skipping container, too many failures")
		return false
	}

	if rec.InBackoff(now) {
		m.logger.Debug().
			Str("container", name).
			Dur("backoff", rec.BackoffDuration()).
			Msg("skipping container, in backoff")
		return false
	}

	return true
}

// attemptRestart restarts one container's deployment unit and verifies
// the outcome. The returned error is non-nil only on context
// cancellation; restart failures are recorded, not propagated, so one
// container cannot block attempts for the rest of the cycle.
func (m *Monitor) attemptRestart(ctx context.Context, name string, rec *state.Record) error {
	m.logger.Warn().Str("container", name).Msg("container is down, attempting restart")

	if err := m.inspector.RestartUnit(ctx, rec.ComposeFile); err != nil {
		m.logger.Error().Err(err).Str("container", name).Msg("failed to restart container")
		rec.RecordFailure(time.Now())
		metrics.RestartFailuresTotal.Inc()
		m.broker.Publish(events.Event{
			Type:      events.EventRestartFailed,
			Container: name,
			Message:   err.Error(),
		})
		return nil
	}

	// Give the unit time to come up before judging the attempt
	select {
	case <-time.After(m.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	running, err := m.inspector.ListRunning(ctx)
	if err != nil {
		// Cannot tell success from failure; leave the record alone and
		// let the next cycle observe the truth
		m.logger.Warn().Err(err).Str("container", name).Msg("failed to verify restart")
		return nil
	}

	if running[name] {
		m.logger.Info().Str("container", name).Msg("successfully restarted container")
		rec.RecordSuccess(time.Now())
		metrics.RestartsTotal.Inc()
		m.broker.Publish(events.Event{
			Type:      events.EventRestartSucceeded,
			Container: name,
		})
	} else {
		m.logger.Error().Str("container", name).Msg("container failed to start after restart")
		rec.RecordFailure(time.Now())
		metrics.RestartFailuresTotal.Inc()
		m.broker.Publish(events.Event{
			Type:      events.EventRestartFailed,
			Container: name,
			Message:   "container absent after settle delay",
		})
	}

	return nil
}

// StatusSummary logs the managed/running totals and the per-container
// counters of every container with restart history. Read-only.
func (m *Monitor) StatusSummary() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusSummary()
}

func (m *Monitor) statusSummary() {
	m.logger.Info().
		Int("running", m.st.RunningManagedCount()).
		Int("total", m.st.ManagedCount()).
		Msg("status")

	for _, name := range m.st.Managed() {
		rec := m.st.Get(name)
		if rec.RestartCount == 0 && rec.ConsecutiveFailures == 0 {
			continue
		}
		m.logger.Info().
			Str("container", name).
			Int("restarts", rec.RestartCount).
			Int("consecutive_failures", rec.ConsecutiveFailures).
			Msg("container history")
	}
}

// Run drives the monitor until the context is cancelled: initial
// discovery, one unconditional startup-recovery pass, then the periodic
// loop interleaving check and status timers. Both handlers run on this
// goroutine, so they can never mutate shared state concurrently.
func (m *Monitor) Run(ctx context.Context) error {
	m.Discover()

	m.logger.Info().Msg("performing startup container recovery")
	if err := m.ReconcileOnce(ctx); err != nil {
		m.logger.Error().Err(err).Msg("startup recovery cycle failed")
	}
	m.logger.Info().Msg("startup recovery completed")

	checkTicker := time.NewTicker(m.cfg.CheckInterval())
	defer checkTicker.Stop()
	statusTicker := time.NewTicker(m.cfg.StatusInterval())
	defer statusTicker.Stop()

	m.logger.Info().
		Dur("check_interval", m.cfg.CheckInterval()).
		Dur("status_interval", m.cfg.StatusInterval()).
		Msg("entering monitoring loop")

	for {
		select {
		case <-checkTicker.C:
			if err := m.ReconcileOnce(ctx); err != nil {
				m.logger.Error().Err(err).Msg("container check cycle failed")
			}
		case <-statusTicker.C:
			m.StatusSummary()
			m.Discover()
		case <-ctx.Done():
			m.logger.Info().Msg("monitor stopping")
			return nil
		}
	}
}
