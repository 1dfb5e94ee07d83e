package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go-mcp-server/pkg/protocol"
)

// Session ties one client connection to a private dispatcher instance built
// over the shared catalog. Sessions move through Uninitialized → Active →
// Closed; a closed session's token is never reused (tokens are UUIDs minted
// once at creation).
type Session struct {
	ID         string
	CreatedAt  time.Time
	ClientInfo protocol.ImplementationInfo

	dispatcher *Dispatcher
}

// Dispatcher returns the session's private dispatcher.
func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// SessionManager owns the table of active sessions. It is the only mutable
// shared state in the core, so it carries its own lock; everything reachable
// from a session (the catalog) is write-once at construction.
type SessionManager struct {
	catalog *Catalog

	mu       sync.RWMutex
	sessions map[string]*Session
	draining bool
}

// NewSessionManager creates a manager producing sessions bound to catalog.
func NewSessionManager(catalog *Catalog) *SessionManager {
	return &SessionManager{
		catalog:  catalog,
		sessions: make(map[string]*Session),
	}
}

// Create builds a new Active session with a fresh token and inserts it into
// the table. The insert happens only after the token and dispatcher are
// fully built, so a concurrent lookup can never observe a half-initialized
// session.
func (sm *SessionManager) Create(clientInfo protocol.ImplementationInfo) (*Session, error) {
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		ClientInfo: clientInfo,
		dispatcher: NewDispatcher(sm.catalog),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.draining {
		return nil, &SessionError{Reason: "server is shutting down"}
	}
	sm.sessions[sess.ID] = sess
	activeSessions.Inc()

	log.Infof("Created new session: %s", sess.ID)
	return sess, nil
}

// Get resolves a session token. A missing or unknown token yields a
// SessionError; it never creates a session implicitly.
func (sm *SessionManager) Get(token string) (*Session, error) {
	if token == "" {
		return nil, &SessionError{Reason: "missing session token"}
	}
	sm.mu.RLock()
	sess, ok := sm.sessions[token]
	sm.mu.RUnlock()
	if !ok {
		return nil, &SessionError{Token: token, Reason: "unknown or closed session"}
	}
	return sess, nil
}

// Terminate removes a session from the table. The token is dead afterwards;
// subsequent requests carrying it fail with a SessionError.
func (sm *SessionManager) Terminate(token string) error {
	sm.mu.Lock()
	sess, ok := sm.sessions[token]
	if ok {
		delete(sm.sessions, token)
	}
	sm.mu.Unlock()
	if !ok {
		return &SessionError{Token: token, Reason: "unknown or closed session"}
	}
	activeSessions.Dec()
	log.Infof("Terminated session: %s (lived %s)", sess.ID, time.Since(sess.CreatedAt).Round(time.Millisecond))
	return nil
}

// Len reports the number of active sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Shutdown force-closes every session and clears the table. Individual close
// failures are ignored; after Shutdown no session outlives the server and no
// new session can be created.
func (sm *SessionManager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.draining = true
	for token := range sm.sessions {
		delete(sm.sessions, token)
		activeSessions.Dec()
	}
	log.Infof("Session table drained")
}
