package services

import (
	"errors"
	"log"
	"sync"

	"github.com/damione1/paginated-grid/internal/config"
)

var (
	ErrCallNotFound = errors.New("call not found")
	ErrTooManyCalls = errors.New("too many active calls")
)

// CallManager tracks the live call session of every call id.
type CallManager struct {
	// callId -> session
	sessions map[string]*CallSession

	metrics *Metrics

	mu sync.RWMutex
}

func NewCallManager(metrics *Metrics) *CallManager {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &CallManager{
		sessions: make(map[string]*CallSession),
		metrics:  metrics,
	}
}

// Register makes session the live session of its call. A session already
// registered for the same call is closed and replaced.
func (m *CallManager) Register(session *CallSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	callID := session.CallID()
	prev, exists := m.sessions[callID]
	if !exists && len(m.sessions) >= config.MaxCallsPerInstance {
		return ErrTooManyCalls
	}
	m.sessions[callID] = session

	if exists && prev != session {
		prev.Close()
		log.Printf("⚠️  Replaced call session: call=%s", callID)
	}

	log.Printf("✓ Call session registered: call=%s (total calls: %d)", callID, len(m.sessions))
	return nil
}

// Unregister removes session if it is still the live one for its call.
func (m *CallManager) Unregister(session *CallSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	callID := session.CallID()
	if current, ok := m.sessions[callID]; ok && current == session {
		delete(m.sessions, callID)
		log.Printf("✓ Call session unregistered: call=%s (total calls: %d)", callID, len(m.sessions))
	}
}

// Get returns the live session of callID.
func (m *CallManager) Get(callID string) (*CallSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[callID]
	if !ok {
		return nil, ErrCallNotFound
	}
	return session, nil
}

func (m *CallManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll stops every session; used on shutdown.
func (m *CallManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*CallSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// GetMetrics returns the shared metrics snapshot.
func (m *CallManager) GetMetrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}

func (m *CallManager) Metrics() *Metrics {
	return m.metrics
}
