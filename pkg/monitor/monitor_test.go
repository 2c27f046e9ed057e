package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podkeep/podkeep/pkg/config"
)

type listResult struct {
	running map[string]bool
	err     error
}

// fakeInspector simulates the container runtime. ListRunning serves
// queued results first, then snapshots of the running map; RestartUnit
// records every invocation.
type fakeInspector struct {
	running      map[string]bool
	queue        []listResult
	restartErr   error
	restartCalls []string
	listCalls    int

	// onRestart mutates the running map to simulate the unit coming up
	onRestart func(composePath string)
}

func (f *fakeInspector) ListRunning(ctx context.Context) (map[string]bool, error) {
	f.listCalls++
	if len(f.queue) > 0 {
		r := f.queue[0]
		f.queue = f.queue[1:]
		return r.running, r.err
	}
	out := make(map[string]bool, len(f.running))
	for name, up := range f.running {
		out[name] = up
	}
	return out, nil
}

func (f *fakeInspector) RestartUnit(ctx context.Context, composePath string) error {
	f.restartCalls = append(f.restartCalls, composePath)
	if f.restartErr != nil {
		return f.restartErr
	}
	if f.onRestart != nil {
		f.onRestart(composePath)
	}
	return nil
}

// writeUnit creates a deployment-unit directory holding a descriptor
// with the given services block and returns the descriptor path
func writeUnit(t *testing.T, unit, services string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), unit)
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n"+services), 0o644))
	return path
}

func writeMonitorConfig(t *testing.T, path string, composeFiles []string, maxFailures int) {
	t.Helper()
	content := "compose_files:\n"
	for _, f := range composeFiles {
		content += fmt.Sprintf("  - %s\n", f)
	}
	content += fmt.Sprintf("max_consecutive_failures: %d\n", maxFailures)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestMonitor builds a monitor over the given descriptors with a zero
// settle delay and a config file the reconciler can hot-reload
func newTestMonitor(t *testing.T, insp Inspector, composeFiles []string, maxFailures int) *Monitor {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "podkeep.yaml")
	writeMonitorConfig(t, cfgPath, composeFiles, maxFailures)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	m := New(cfg, cfgPath, insp)
	m.settleDelay = 0
	return m
}

func TestReconcileAllRunning(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n  db:\n    image: postgres\n")
	insp := &fakeInspector{running: map[string]bool{
		"app_web_1": true,
		"app_db_1":  true,
	}}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	require.Equal(t, 2, m.st.ManagedCount())

	require.NoError(t, m.ReconcileOnce(context.Background()))

	assert.Empty(t, insp.restartCalls)
	for _, name := range m.st.Managed() {
		rec := m.st.Get(name)
		assert.Equal(t, 0, rec.RestartCount)
		assert.Equal(t, 0, rec.ConsecutiveFailures)
		assert.True(t, rec.LastRestart.IsZero())
	}
}

func TestReconcileRestartSuccess(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{running: map[string]bool{}}
	insp.onRestart = func(string) { insp.running["app_web_1"] = true }
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))

	assert.Equal(t, []string{unit}, insp.restartCalls)
	rec := m.st.Get("app_web_1")
	assert.Equal(t, 1, rec.RestartCount)
	assert.Equal(t, 0, rec.ConsecutiveFailures)
	assert.False(t, rec.LastRestart.IsZero())
}

func TestReconcileRestartVerificationFails(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	// Restart invocation succeeds but the container never shows up
	insp := &fakeInspector{running: map[string]bool{}}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))

	rec := m.st.Get("app_web_1")
	assert.Equal(t, 0, rec.RestartCount)
	assert.Equal(t, 1, rec.ConsecutiveFailures)
	assert.False(t, rec.LastRestart.IsZero())
}

func TestReconcileRestartInvocationFails(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{
		running:    map[string]bool{},
		restartErr: errors.New("podman-compose up failed"),
	}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))

	rec := m.st.Get("app_web_1")
	assert.Equal(t, 1, rec.ConsecutiveFailures)
	assert.Equal(t, 0, rec.RestartCount)
	// Invocation failure skips the settling verification entirely
	assert.Equal(t, 1, insp.listCalls)
}

func TestReconcileVerificationQueryError(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{
		queue: []listResult{
			{running: map[string]bool{}},          // check query: container down
			{err: errors.New("podman ps failed")}, // verification query fails
		},
	}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))

	// Outcome unknown: neither success nor failure is recorded
	rec := m.st.Get("app_web_1")
	assert.Equal(t, 0, rec.RestartCount)
	assert.Equal(t, 0, rec.ConsecutiveFailures)
	assert.True(t, rec.LastRestart.IsZero())
}

func TestReconcileQueryFailureMutatesNothing(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{
		queue: []listResult{{err: errors.New("podman ps failed")}},
	}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	err := m.ReconcileOnce(context.Background())
	assert.Error(t, err)

	assert.Empty(t, insp.restartCalls)
	rec := m.st.Get("app_web_1")
	assert.Equal(t, 0, rec.ConsecutiveFailures)
	assert.True(t, rec.LastRestart.IsZero())
}

func TestReconcileSkipsBackoff(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{running: map[string]bool{}}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	rec := m.st.Get("app_web_1")
	rec.ConsecutiveFailures = 3 // 8s window
	rec.LastRestart = time.Now()

	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Empty(t, insp.restartCalls)

	// Once the window has elapsed the container is eligible again
	rec.LastRestart = time.Now().Add(-9 * time.Second)
	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Len(t, insp.restartCalls, 1)
}

func TestReconcileSkipsExhausted(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{running: map[string]bool{}}
	m := newTestMonitor(t, insp, []string{unit}, 3)

	m.Discover()
	rec := m.st.Get("app_web_1")
	rec.ConsecutiveFailures = 3
	// Backoff long elapsed; the failure cap still blocks the attempt
	rec.LastRestart = time.Now().Add(-time.Hour)

	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Empty(t, insp.restartCalls)

	// Rediscovery is the only recovery path: it rebuilds the record and
	// the container is immediately eligible again
	m.Discover()
	assert.Equal(t, 0, m.st.Get("app_web_1").ConsecutiveFailures)
	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Len(t, insp.restartCalls, 1)
}

func TestReconcileConfigPathChangeTriggersRediscovery(t *testing.T) {
	unitA := writeUnit(t, "appa", "  web:\n    image: nginx\n")
	unitB := writeUnit(t, "appb", "  api:\n    image: api\n")

	insp := &fakeInspector{running: map[string]bool{}}
	m := newTestMonitor(t, insp, []string{unitA}, 5)

	m.Discover()
	require.Equal(t, []string{"appa_web_1"}, m.st.Managed())

	// The descriptor list changes between cycles
	writeMonitorConfig(t, m.configPath, []string{unitA, unitB}, 5)

	require.NoError(t, m.ReconcileOnce(context.Background()))

	// The cycle rediscovers and performs no restart pass, even though
	// every container is down and eligible
	assert.Empty(t, insp.restartCalls)
	assert.Equal(t, 0, insp.listCalls)
	assert.Equal(t, []string{"appa_web_1", "appb_api_1"}, m.st.Managed())

	// The next cycle resumes restarting with fresh discovery data
	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Len(t, insp.restartCalls, 2)
}

func TestReconcileAdoptsChangedValuesWithoutRediscovery(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{running: map[string]bool{"app_web_1": true}}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()

	// Same path list, different threshold: takes effect silently
	writeMonitorConfig(t, m.configPath, []string{unit}, 9)
	require.NoError(t, m.ReconcileOnce(context.Background()))

	assert.Equal(t, 9, m.cfg.MaxConsecutiveFailures)
	assert.Equal(t, 1, insp.listCalls, "no rediscovery, the check ran normally")
}

func TestReconcileConfigReloadFailureContinues(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{running: map[string]bool{"app_web_1": true}}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	require.NoError(t, os.Remove(m.configPath))

	// The active config stays in force and the check proceeds
	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Equal(t, 1, insp.listCalls)
}

func TestDiscoverSurvivesMalformedDescriptor(t *testing.T) {
	unitA := writeUnit(t, "appa", "  web:\n    image: nginx\n")
	broken := writeUnit(t, "appb", "  api: [unterminated\n")
	unitC := writeUnit(t, "appc", "  db:\n    image: postgres\n")

	insp := &fakeInspector{}
	m := newTestMonitor(t, insp, []string{unitA, broken, unitC}, 5)

	m.Discover()

	assert.Equal(t, []string{"appa_web_1", "appc_db_1"}, m.st.Managed())
}

func TestDiscoverSurvivesMissingDescriptor(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	missing := filepath.Join(t.TempDir(), "gone", "docker-compose.yml")

	insp := &fakeInspector{}
	m := newTestMonitor(t, insp, []string{missing, unit}, 5)

	m.Discover()
	assert.Equal(t, []string{"app_web_1"}, m.st.Managed())
}

func TestReconcileEmptyManagedSetIsNoOp(t *testing.T) {
	insp := &fakeInspector{}
	m := newTestMonitor(t, insp, nil, 5)

	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))
	assert.Equal(t, 0, insp.listCalls)
}

func TestRestartAttemptsAreIndependent(t *testing.T) {
	unitA := writeUnit(t, "appa", "  web:\n    image: nginx\n")
	unitB := writeUnit(t, "appb", "  api:\n    image: api\n")

	// Unit A's container never comes back up; unit B must still be
	// attempted and verified in the same cycle
	insp := &fakeInspector{running: map[string]bool{}}
	insp.onRestart = func(path string) {
		if path == unitB {
			insp.running["appb_api_1"] = true
		}
	}

	m := newTestMonitor(t, insp, []string{unitA, unitB}, 5)
	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))

	assert.Len(t, insp.restartCalls, 2)
	assert.Equal(t, 1, m.st.Get("appa_web_1").ConsecutiveFailures)
	assert.Equal(t, 1, m.st.Get("appb_api_1").RestartCount)
}

func TestStatusSummaryDoesNotMutate(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{}
	m := newTestMonitor(t, insp, []string{unit}, 5)

	m.Discover()
	rec := m.st.Get("app_web_1")
	rec.ConsecutiveFailures = 2
	rec.RestartCount = 1
	stamp := time.Now().Add(-time.Minute)
	rec.LastRestart = stamp

	m.StatusSummary()

	assert.Equal(t, 2, rec.ConsecutiveFailures)
	assert.Equal(t, 1, rec.RestartCount)
	assert.Equal(t, stamp, rec.LastRestart)
	assert.Equal(t, 0, insp.listCalls)
}

func TestEventsPublishedOnRestart(t *testing.T) {
	unit := writeUnit(t, "app", "  web:\n    image: nginx\n")
	insp := &fakeInspector{running: map[string]bool{}}
	insp.onRestart = func(string) { insp.running["app_web_1"] = true }
	m := newTestMonitor(t, insp, []string{unit}, 5)

	sub := m.Events().Subscribe()
	defer m.Events().Unsubscribe(sub)

	m.Discover()
	require.NoError(t, m.ReconcileOnce(context.Background()))

	var types []string
	for len(sub) > 0 {
		types = append(types, string((<-sub).Type))
	}
	assert.Contains(t, types, "discovery.completed")
	assert.Contains(t, types, "container.down")
	assert.Contains(t, types, "restart.succeeded")
}
