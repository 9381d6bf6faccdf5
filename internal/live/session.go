package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/options"
)

// Session holds the form state of one connection.
type Session struct {
	ID           string         `json:"id"`
	Actor        string         `json:"actor"`
	TemplateID   string         `json:"templateId,omitempty"`
	ListingID    string         `json:"listingId,omitempty"`
	State        string         `json:"state,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActiveAt time.Time      `json:"lastActiveAt"`
	Engine       *engine.Engine `json:"-"`

	mu      sync.Mutex
	tracker *options.Tracker
}

// NewSession creates a session for actor with no form open.
func NewSession(actor string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Actor:        actor,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActiveAt = time.Now()
	s.mu.Unlock()
}

// Open binds the session to an engine.
func (s *Session) Open(eng *engine.Engine, listingID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Engine = eng
	s.tracker = options.NewTracker()
	s.TemplateID = eng.Template().ID
	s.ListingID = listingID
	s.State = state
	s.LastActiveAt = time.Now()
}

// Tracker returns the option results of the open form.
func (s *Session) Tracker() *options.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

// Bind records the listing the session's form is stored as.
func (s *Session) Bind(listingID, state string) {
	s.mu.Lock()
	s.ListingID = listingID
	s.State = state
	s.mu.Unlock()
}

// Listing returns the bound listing id and state.
func (s *Session) Listing() (id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ListingID, s.State
}

// Snapshot returns the session's public state.
func (s *Session) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{
		ID:           s.ID,
		Actor:        s.Actor,
		TemplateID:   s.TemplateID,
		ListingID:    s.ListingID,
		State:        s.State,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
	if s.Engine != nil {
		sum.Values = s.Engine.GetValues()
		sum.Errors = s.Engine.GetErrors()
	}
	return sum
}

func (s *Session) expired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

func (s *Session) idle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.LastActiveAt) > timeout
}

// Summary is the JSON view of a session.
type Summary struct {
	ID           string            `json:"id"`
	Actor        string            `json:"actor"`
	TemplateID   string            `json:"templateId,omitempty"`
	ListingID    string            `json:"listingId,omitempty"`
	State        string            `json:"state,omitempty"`
	Values       engine.Values     `json:"values,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActiveAt time.Time         `json:"lastActiveAt"`
}

// Manager handles session creation, lookup and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create creates a new session and returns it.
func (m *Manager) Create(actor string) *Session {
	s := NewSession(actor)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.expired(m.maxAge) || s.idle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.expired(m.maxAge) || s.idle(m.idleTimeout) {
			delete(m.sessions, id)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}
