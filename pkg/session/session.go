// Package session keeps one Data Map per interactive session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/google/uuid"
)

// CookieName carries the session id between requests
const CookieName = "dm_session"

// Factory builds the integrations for a new session
type Factory func(id string) *datamap.Integrations

// Session owns one Data Map. Operations on it run one at a time.
type Session struct {
	ID      string
	Created time.Time

	mu           sync.Mutex
	integrations *datamap.Integrations
	lastSeen     time.Time // guarded by Manager.mu
}

// Do runs fn with exclusive access to the session's integrations
func (s *Session) Do(fn func(in *datamap.Integrations) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.integrations)
}

// Manager maps session ids to sessions and expires idle ones
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	factory  Factory
	onExpire func(id string)
	now      func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithOnExpire is called (outside the manager lock) for every swept session
func WithOnExpire(fn func(id string)) Option {
	return func(m *Manager) { m.onExpire = fn }
}

// NewManager creates a manager; idle <= 0 keeps sessions until restart
func NewManager(idle time.Duration, factory Factory, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		idle:     idle,
		factory:  factory,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for id and marks it as used
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.now()
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new session when id is
// unknown (expired, forged or empty). created reports the latter.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Create starts a new session with a fresh Data Map
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	now := m.now()
	s := &Session{
		ID:           id,
		Created:      now,
		integrations: m.factory(id),
		lastSeen:     now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	logging.Debug("session created", "sessionID", id, "sessions", count)
	return s
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the idle timeout
func (m *Manager) Sweep() int {
	if m.idle <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.idle)
	var expired []string

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		logging.Debug("session expired", "sessionID", id)
		if m.onExpire != nil {
			m.onExpire(id)
		}
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done
func (m *Manager) Run(ctx context.Context) error {
	if m.idle <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := m.idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logging.Info("expired idle sessions", "count", n, "remaining", m.Len())
			}
		}
	}
}
