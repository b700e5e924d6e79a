package main

import (
	"sync"
	"time"
)

const maxSessions = 20

// SessionIdleTimeout is how long an empty non-default session survives
// before the janitor stops it. A variable so tests can shorten it.
var SessionIdleTimeout = 2 * time.Minute

// Session is one hosted benchmark that viewers can join.
type Session struct {
	ID      string
	Name    string
	Bench   *Bench
	emptyAt time.Time // zero while the session has viewers
}

// SessionManager handles creation and lookup of benchmark sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults map[string]bool // sessions exempt from idle reaping
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		defaults: make(map[string]bool),
	}
}

// CreateSession starts a new benchmark session. Returns nil if the
// session limit is reached or the bench cannot be built.
func (sm *SessionManager) CreateSession(name string, cfg SimConfig, rec *Recorder, isDefault bool) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	bench, err := NewBench(cfg, rec)
	if err != nil {
		return nil
	}
	sess := &Session{
		ID:      GenerateUUID(),
		Name:    name,
		Bench:   bench,
		emptyAt: time.Now(),
	}
	sm.sessions[sess.ID] = sess
	if isDefault {
		sm.defaults[sess.ID] = true
	}
	go bench.Run()
	return sess
}

// GetSession returns a session by ID, or nil.
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// DefaultSession returns the first default session, or nil.
func (sm *SessionManager) DefaultSession() *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for id := range sm.defaults {
		if s, ok := sm.sessions[id]; ok {
			return s
		}
	}
	return nil
}

// RemoveViewer detaches a viewer; an emptied non-default session starts
// its idle clock.
func (sm *SessionManager) RemoveViewer(sessionID, viewerID string) {
	sm.mu.Lock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.Unlock()
	if !ok {
		return
	}
	sess.Bench.RemoveViewer(viewerID)
	if sess.Bench.ViewerCount() == 0 {
		sm.mu.Lock()
		sess.emptyAt = time.Now()
		sm.mu.Unlock()
	}
}

// MarkActive clears a session's idle clock when a viewer joins.
func (sm *SessionManager) MarkActive(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sess, ok := sm.sessions[sessionID]; ok {
		sess.emptyAt = time.Time{}
	}
}

// ReapIdle stops and removes non-default sessions that have sat empty
// longer than SessionIdleTimeout. Returns how many were reaped.
func (sm *SessionManager) ReapIdle(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	reaped := 0
	for id, sess := range sm.sessions {
		if sm.defaults[id] || sess.emptyAt.IsZero() {
			continue
		}
		if now.Sub(sess.emptyAt) >= SessionIdleTimeout {
			sess.Bench.Stop()
			delete(sm.sessions, id)
			reaped++
		}
	}
	return reaped
}

// Janitor reaps idle sessions until stop closes.
func (sm *SessionManager) Janitor(stop <-chan struct{}) {
	ticker := time.NewTicker(SessionIdleTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			sm.ReapIdle(now)
		case <-stop:
			return
		}
	}
}

// ListSessions returns info about all active sessions.
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Viewers: sess.Bench.ViewerCount(),
			Bodies:  sess.Bench.BodyCount(),
		})
	}
	return list
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// StopAll stops every session, for shutdown.
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, sess := range sm.sessions {
		sess.Bench.Stop()
		delete(sm.sessions, id)
	}
}
