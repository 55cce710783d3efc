package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tbxark/healthagent/types"
)

type entry struct {
	session    Session
	inFlight   bool
	cancel     context.CancelFunc
	generation uint64
}

// Manager maps session ids to live sessions. Turns on one session are
// serialised by rejecting a second turn while one is in flight; different
// sessions run concurrently.
type Manager struct {
	controller *Controller

	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewManager(controller *Controller) *Manager {
	return &Manager{
		controller: controller,
		sessions:   make(map[string]*entry),
	}
}

// Start creates a fresh Collecting session. An empty id gets a generated one;
// an existing id is reset as if its kind had been switched.
func (m *Manager) Start(id string, kind types.RecordKind) (Session, error) {
	if !kind.Valid() {
		return Session{}, fmt.Errorf("unknown record kind %q: %w", kind, types.ErrInvariantViolation)
	}
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		m.resetLocked(e, kind)
		return e.session.Clone(), nil
	}
	e := &entry{session: NewSession(id, kind)}
	m.sessions[id] = e
	slog.Debug("Session started", "session", id, "kind", kind)
	return e.session.Clone(), nil
}

// SwitchKind discards the current session, cancelling any in-flight
// collaborator call, and starts an empty one for kind.
func (m *Manager) SwitchKind(id string, kind types.RecordKind) (Session, error) {
	if !kind.Valid() {
		return Session{}, fmt.Errorf("unknown record kind %q: %w", kind, types.ErrInvariantViolation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("session %q: %w", id, types.ErrSessionNotFound)
	}
	m.resetLocked(e, kind)
	return e.session.Clone(), nil
}

func (m *Manager) resetLocked(e *entry, kind types.RecordKind) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.inFlight = false
	e.session = NewSession(e.session.ID, kind)
	slog.Debug("Session reset", "session", e.session.ID, "kind", kind)
}

// Turn runs one user turn. It fails with types.ErrBusy while another turn on
// the same session is in flight and with types.ErrSessionReset when the
// session was switched or removed before the turn finished; in that case the
// turn's result is discarded.
func (m *Manager) Turn(ctx context.Context, id, text string) (*Response, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %q: %w", id, types.ErrSessionNotFound)
	}
	if e.inFlight {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %q: %w", id, types.ErrBusy)
	}
	turnCtx, cancel := context.WithCancel(ctx)
	e.inFlight = true
	e.cancel = cancel
	generation := e.generation
	current := e.session.Clone()
	m.mu.Unlock()

	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			m.release(id, e, generation)
			panic(r)
		}
	}()
	next, resp := m.controller.Reduce(turnCtx, current, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	if live, ok := m.sessions[id]; !ok || live != e || e.generation != generation {
		slog.Debug("Discarding stale turn", "session", id)
		return nil, fmt.Errorf("session %q: %w", id, types.ErrSessionReset)
	}
	e.session = next
	e.inFlight = false
	e.cancel = nil
	return resp, nil
}

// release clears the in-flight mark of a turn that ended without a result,
// unless the session was reset meanwhile.
func (m *Manager) release(id string, e *entry, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if live, ok := m.sessions[id]; ok && live == e && e.generation == generation {
		e.inFlight = false
		e.cancel = nil
	}
}

func (m *Manager) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("session %q: %w", id, types.ErrSessionNotFound)
	}
	return e.session.Clone(), nil
}

// Remove tears the session down. Nothing is committed.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %q: %w", id, types.ErrSessionNotFound)
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	delete(m.sessions, id)
	slog.Debug("Session removed", "session", id)
	return nil
}

// Checkpoint serialises the session for later Restore.
func (m *Manager) Checkpoint(id string) ([]byte, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return MarshalCheckpoint(s)
}

// Restore installs a checkpointed session, replacing any session with the same id.
func (m *Manager) Restore(data []byte) (Session, error) {
	s, err := UnmarshalCheckpoint(data)
	if err != nil {
		return Session{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[s.ID]; ok {
		if e.cancel != nil {
			e.cancel()
		}
		e.generation++
	}
	m.sessions[s.ID] = &entry{session: s}
	return s.Clone(), nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close cancels every in-flight turn and drops all sessions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		if e.cancel != nil {
			e.cancel()
		}
		e.generation++
		delete(m.sessions, id)
	}
}
