package state

import (
	"sort"
	"time"
)

// Record tracks the restart lifecycle of a single managed container
type Record struct {
	// ComposeFile is the descriptor that declared this container
	ComposeFile string

	// LastRestart anchors the backoff window; zero until the first
	// restart attempt has succeeded or failed
	LastRestart time.Time

	// RestartCount is the number of verified successful restarts
	RestartCount int

	// ConsecutiveFailures counts failed attempts since the last success
	ConsecutiveFailures int
}

// NewRecord creates a fresh lifecycle record for a container
func NewRecord(composeFile string) *Record {
	return &Record{
		ComposeFile: composeFile,
	}
}

// BackoffDuration returns the minimum wait after a failed restart
// before another attempt is permitted: 2^min(n,6) seconds, capped at 64s
func (r *Record) BackoffDuration() time.Duration {
	n := r.ConsecutiveFailures
	if n > 6 {
		n = 6
	}
	return time.Duration(1<<uint(n)) * time.Second
}

// InBackoff reports whether the container is still inside its backoff
// window at the given time. A record with no restart history is never
// in backoff.
func (r *Record) InBackoff(now time.Time) bool {
	if r.LastRestart.IsZero() {
		return false
	}
	return now.Sub(r.LastRestart) < r.BackoffDuration()
}

// RecordSuccess registers a verified restart: the success count advances,
// the failure streak resets, and the backoff clock is re-stamped.
func (r *Record) RecordSuccess(now time.Time) {
	r.RestartCount++
	r.LastRestart = now
	r.ConsecutiveFailures = 0
}

// RecordFailure registers a failed restart attempt. The backoff clock is
// stamped only on the first failure of a streak; later failures leave it
// alone so the window is anchored to the start of the outage.
func (r *Record) RecordFailure(now time.Time) {
	r.ConsecutiveFailures++
	if r.LastRestart.IsZero() {
		r.LastRestart = now
	}
}

// State holds the managed-container records and the most recent snapshot
// of running container names. It is not safe for concurrent use; the
// monitor serializes all access.
type State struct {
	managed map[string]*Record
	running map[string]bool
}

// New creates an empty monitor state
func New() *State {
	return &State{
		managed: make(map[string]*Record),
		running: make(map[string]bool),
	}
}

// Reset discards all managed records. Rediscovery rebuilds the set from
// scratch, so lifecycle history does not survive it.
func (s *State) Reset() {
	s.managed = make(map[string]*Record)
}

// Add registers a container under the descriptor that declared it,
// replacing any existing record for the same name
func (s *State) Add(name, composeFile string) {
	s.managed[name] = NewRecord(composeFile)
}

// Get returns the record for a container, or nil if it is not managed
func (s *State) Get(name string) *Record {
	return s.managed[name]
}

// UpdateRunning replaces the running-container snapshot
func (s *State) UpdateRunning(running map[string]bool) {
	s.running = running
}

// IsRunning reports whether the container appeared in the most recent
// running snapshot
func (s *State) IsRunning(name string) bool {
	return s.running[name]
}

// ManagedCount returns the number of managed containers
func (s *State) ManagedCount() int {
	return len(s.managed)
}

// RunningManagedCount returns how many managed containers were present
// in the most recent running snapshot
func (s *State) RunningManagedCount() int {
	count := 0
	for name := range s.managed {
		if s.running[name] {
			count++
		}
	}
	return count
}

// Managed returns the managed container names in sorted order so that
// reconciliation and reporting iterate deterministically
func (s *State) Managed() []string {
	names := make([]string, 0, len(s.managed))
	for name := range s.managed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
