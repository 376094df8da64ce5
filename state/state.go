package state

import (
	"errdash/dashboard"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory builds the controller for a new browser session
type Factory func() *dashboard.Controller

// AppState holds one dashboard controller per browser session
type AppState struct {
	Sessions map[string]*dashboard.Controller
	sync.RWMutex
}

// Global is the shared application state instance
var Global = NewAppState()

// NewAppState creates an empty session registry
func NewAppState() *AppState {
	return &AppState{
		Sessions: make(map[string]*dashboard.Controller),
	}
}

// NewSessionID returns a fresh random session id
func NewSessionID() string {
	return uuid.NewString()
}

// GetSession safely fetches a session
func (s *AppState) GetSession(id string) (*dashboard.Controller, bool) {
	s.RLock()
	defer s.RUnlock()
	ctrl, exists := s.Sessions[id]
	return ctrl, exists
}

// GetOrCreate returns the controller for id, creating one with a new id when
// id is empty, malformed or unknown. created reports whether the id changed.
func (s *AppState) GetOrCreate(id string, factory Factory) (sessionID string, ctrl *dashboard.Controller, created bool) {
	if _, err := uuid.Parse(id); err == nil {
		if ctrl, ok := s.GetSession(id); ok {
			return id, ctrl, false
		}
	}

	sessionID = NewSessionID()
	ctrl = factory()
	s.AddSession(sessionID, ctrl)
	return sessionID, ctrl, true
}

// AddSession safely adds a session
func (s *AppState) AddSession(id string, ctrl *dashboard.Controller) {
	s.Lock()
	defer s.Unlock()
	s.Sessions[id] = ctrl
}

// RemoveSession drops a session
func (s *AppState) RemoveSession(id string) bool {
	s.Lock()
	defer s.Unlock()
	_, exists := s.Sessions[id]
	delete(s.Sessions, id)
	return exists
}

// Count returns the number of live sessions
func (s *AppState) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.Sessions)
}

// SweepIdle removes sessions unused for longer than idle and returns how many
// went. Sessions with a live subscriber, such as an open websocket, are kept.
func (s *AppState) SweepIdle(idle time.Duration, now time.Time) int {
	s.Lock()
	defer s.Unlock()
	removed := 0
	for id, ctrl := range s.Sessions {
		if ctrl.Subscribers() > 0 {
			continue
		}
		if now.Sub(ctrl.LastActivity()) > idle {
			delete(s.Sessions, id)
			removed++
		}
	}
	return removed
}
