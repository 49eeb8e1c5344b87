// Package hub implements the connection hub: client session bookkeeping,
// per-session topic subscriptions, and the inbound command grammar over
// a gorilla/websocket transport.
package hub

import (
	"sync"
	"time"
)

// State is a client session's lifecycle state.
type State string

const (
	Connecting State = "connecting"
	Active     State = "active"
	Idle       State = "idle"
	Closing    State = "closing"
	Closed     State = "closed"
)

// Session is owned exclusively by the Hub; no other component may mutate
// it directly.
type Session struct {
	mu sync.RWMutex

	ID        string
	state     State
	topics    map[string]struct{}
	createdAt time.Time
	lastActivity time.Time
	sent      uint64
	received  uint64

	send chan []byte
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		state:        Connecting,
		topics:       make(map[string]struct{}),
		createdAt:    now,
		lastActivity: now,
		send:         make(chan []byte, 32),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Subscribed reports whether the session is subscribed to topic.
func (s *Session) Subscribed(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.topics[topic]
	return ok
}

// Topics returns a snapshot of subscribed topics.
func (s *Session) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

func (s *Session) subscribe(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) unsubscribe(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

func (s *Session) unsubscribeAll() {
	s.mu.Lock()
	s.topics = make(map[string]struct{})
	s.mu.Unlock()
}

func (s *Session) touch(sentDelta, receivedDelta uint64) {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.sent += sentDelta
	s.received += receivedDelta
	s.mu.Unlock()
}

// Stats is a point-in-time snapshot of a session's counters.
type Stats struct {
	ID           string
	State        State
	Topics       []string
	CreatedAt    time.Time
	LastActivity time.Time
	Sent         uint64
	Received     uint64
}

// Stats returns a snapshot of the session.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topics := make([]string, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t)
	}
	return Stats{
		ID: s.ID, State: s.state, Topics: topics,
		CreatedAt: s.createdAt, LastActivity: s.lastActivity,
		Sent: s.sent, Received: s.received,
	}
}
