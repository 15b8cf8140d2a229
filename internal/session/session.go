// Package session tracks MCP sessions: one record per Mcp-Session-Id,
// holding protocol negotiation state and an unbounded FIFO push queue
// drained by the SSE channel.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
)

// ErrNotFound is returned when a session id is unknown or was evicted.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long a session may go without being touched before the
// cleanup sweep evicts it.
const DefaultTTL = 3600 * time.Second

// ClientInfo mirrors the MCP initialize params' clientInfo object.
type ClientInfo struct {
	Name    string
	Version string
}

// Session is a server-side record created by initialize.
type Session struct {
	ID              string
	ProtocolVersion string
	ClientInfo      ClientInfo
	CreatedAt       time.Time

	mu       sync.Mutex
	lastSeen time.Time
	queue    []interface{}
	waiters  []chan struct{}
}

// Touch updates last-seen to now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Publish enqueues a payload for this session's consumer.
func (s *Session) Publish(payload interface{}) {
	s.mu.Lock()
	s.queue = append(s.queue, payload)
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// Poll returns the next queued payload if one is available without blocking.
func (s *Session) Poll() (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item, true
}

// Wait blocks until an item is available, the context is done, or the
// duration elapses, whichever comes first. It returns immediately if an
// item is already queued.
func (s *Session) Wait(timeout time.Duration, done <-chan struct{}) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		s.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-timer.C:
	case <-done:
	}
}

// Manager is the process-wide session table.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration

	stop chan struct{}
}

// NewManager creates a Manager and starts its background cleanup sweeper.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Close stops the background cleanup sweeper.
func (m *Manager) Close() {
	close(m.stop)
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Cleanup(m.ttl)
		}
	}
}

// Create assigns a fresh UUID v4 and inserts a new Session.
func (m *Manager) Create(protocolVersion string, clientInfo ClientInfo) *Session {
	s := &Session{
		ID:              uuid.NewString(),
		ProtocolVersion: protocolVersion,
		ClientInfo:      clientInfo,
		CreatedAt:       time.Now(),
		lastSeen:        time.Now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	logging.Info("session", "created session %s", logging.TruncateSessionID(s.ID))
	return s
}

// Get returns the session by id, touching last-seen, or ErrNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Publish enqueues payload for the named session, or ErrNotFound if absent.
func (m *Manager) Publish(id string, payload interface{}) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	s.Publish(payload)
	return nil
}

// Cleanup evicts sessions whose last-seen is older than ttl.
func (m *Manager) Cleanup(ttl time.Duration) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.idleSince(now) > ttl {
			delete(m.sessions, id)
			logging.Debug("session", "evicted idle session %s", logging.TruncateSessionID(id))
		}
	}
}

// Count returns the number of live sessions, for diagnostics.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
