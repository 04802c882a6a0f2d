// Package sessions keeps the live workout sessions served over HTTP and MCP.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/stitch/internal/metrics"
	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown or already ended session ids.
	ErrNotFound = errors.New("session not found")
	// ErrNotPerforming is returned when actuals are edited outside a set.
	ErrNotPerforming = errors.New("session is not performing a set")
)

// End reasons recorded in metrics.
const (
	ReasonFinished  = "finished"
	ReasonAbandoned = "abandoned"
	ReasonIdle      = "idle"
	ReasonShutdown  = "shutdown"
)

const defaultReapInterval = time.Minute

// Options configures sessions created by a Manager.
type Options struct {
	TickInterval time.Duration
	IdleTimeout  time.Duration
	ReapInterval time.Duration
	AutoEndRest  bool
	// Scheduler overrides the real ticker, mainly for tests.
	Scheduler workout.Scheduler
}

type entry struct {
	session  *workout.Session
	started  time.Time
	lastSeen time.Time
}

// Manager is a registry of sessions keyed by UUID.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entry

	opts    Options
	metrics *metrics.Manager
	log     *slog.Logger
	now     func() time.Time
}

// NewManager creates an empty manager.
func NewManager(opts Options, m *metrics.Manager, log *slog.Logger) *Manager {
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = defaultReapInterval
	}
	return &Manager{
		sessions: make(map[uuid.UUID]*entry),
		opts:     opts,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Start loads r into a new session and registers it.
func (m *Manager) Start(r models.Routine, lookup models.ExerciseLookup) (uuid.UUID, workout.Snapshot, error) {
	id := uuid.New()
	log := m.log.With("session_id", id.String())

	s := workout.NewSession(workout.Options{
		Scheduler:    m.opts.Scheduler,
		TickInterval: m.opts.TickInterval,
		AutoEndRest:  m.opts.AutoEndRest,
		OnTransition: m.observe,
		Logger:       log,
	})
	if err := s.Load(r, lookup); err != nil {
		return uuid.Nil, workout.Snapshot{}, err
	}

	now := m.now()
	m.mu.Lock()
	m.sessions[id] = &entry{session: s, started: now, lastSeen: now}
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.CounterSessionsStarted.Inc()
	m.metrics.GaugeActiveSessions.Set(float64(n))
	log.Info("session started", "routine_id", r.ID)
	return id, s.Snapshot(), nil
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(id uuid.UUID) (workout.Snapshot, error) {
	e, err := m.touch(id)
	if err != nil {
		return workout.Snapshot{}, err
	}
	return e.session.Snapshot(), nil
}

// Advance advances a session and returns the transition it made.
func (m *Manager) Advance(id uuid.UUID) (workout.Transition, workout.Snapshot, error) {
	e, err := m.touch(id)
	if err != nil {
		return workout.TransitionNone, workout.Snapshot{}, err
	}
	t := e.session.Advance()
	return t, e.session.Snapshot(), nil
}

// SetActuals records weight and/or reps for the current set. Nil values
// are left unchanged.
func (m *Manager) SetActuals(id uuid.UUID, weight *float64, reps *int) (workout.Snapshot, error) {
	e, err := m.touch(id)
	if err != nil {
		return workout.Snapshot{}, err
	}
	if !e.session.SetActuals(weight, reps) {
		return e.session.Snapshot(), ErrNotPerforming
	}
	return e.session.Snapshot(), nil
}

// End stops a session and removes it. The returned snapshot is the state
// just before it was torn down.
func (m *Manager) End(id uuid.UUID) (workout.Snapshot, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return workout.Snapshot{}, ErrNotFound
	}
	snap := m.finish(id, e, "")
	m.metrics.GaugeActiveSessions.Set(float64(n))
	return snap, nil
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run reaps idle sessions every ReapInterval until ctx is done, then ends
// all remaining sessions.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			if n := m.reap(m.now()); n > 0 {
				m.log.Info("reaped idle sessions", "count", n)
			}
		}
	}
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[uuid.UUID]*entry)
	m.mu.Unlock()

	for id, e := range all {
		m.finish(id, e, ReasonShutdown)
	}
	m.metrics.GaugeActiveSessions.Set(0)
}

func (m *Manager) reap(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	stale := make(map[uuid.UUID]*entry)
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			stale[id] = e
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for id, e := range stale {
		m.finish(id, e, ReasonIdle)
	}
	if len(stale) > 0 {
		m.metrics.GaugeActiveSessions.Set(float64(n))
	}
	return len(stale)
}

func (m *Manager) touch(id uuid.UUID) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e, nil
}

// finish tears e down. An empty reason is derived from the session phase.
func (m *Manager) finish(id uuid.UUID, e *entry, reason string) workout.Snapshot {
	snap := e.session.Snapshot()
	if reason == "" {
		reason = ReasonAbandoned
		if snap.Phase == workout.PhaseFinished {
			reason = ReasonFinished
		}
	}
	e.session.Exit()

	m.metrics.CounterSessionsEnded.WithLabelValues(reason).Inc()
	m.metrics.HistSessionDuration.Observe(float64(snap.ElapsedSeconds))
	m.log.Info("session ended", "session_id", id.String(), "reason", reason,
		"elapsed_seconds", snap.ElapsedSeconds, "steps_done", snap.StepIndex)
	return snap
}

func (m *Manager) observe(t workout.Transition) {
	m.metrics.CounterTransitions.WithLabelValues(t.String()).Inc()
}
