package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Controller is the control-plane surface the Hub drives in response to
// inbound project_select/project_start/project_stop commands. Implemented
// by internal/orchestrator.Orchestrator; kept as an interface here to
// avoid a hub→orchestrator import cycle.
type Controller interface {
	SelectProject(project string) error
	StartProject(project string) error
	StopProject(project string) error
}

// Hub accepts client sessions over websocket connections, manages their
// topic subscriptions, and fans out dispatched events to subscribers. It
// is the sole async global listener registered on the Output Dispatcher.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader
	maxConns int
	control  Controller

	mu               sync.RWMutex
	sessions         map[string]*Session
	topicSubscribers map[string]map[string]struct{} // topic -> session IDs
	conns            map[string]*websocket.Conn
}

// New creates a Hub. maxConns caps concurrent sessions; zero means
// unbounded.
func New(logger *log.Logger, maxConns int, control Controller) *Hub {
	return &Hub{
		logger:   logger,
		control:  control,
		maxConns: maxConns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions:         make(map[string]*Session),
		topicSubscribers: make(map[string]map[string]struct{}),
		conns:            make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades an incoming request to a websocket session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	atCapacity := h.maxConns > 0 && len(h.sessions) >= h.maxConns
	h.mu.RUnlock()
	if atCapacity {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[Hub] upgrade failed: %v", err)
		return
	}

	session := h.register(conn)
	h.sendTo(session, RespConnected, map[string]any{"session_id": session.ID})

	go h.writePump(session, conn)
	h.readPump(session, conn)
}

func (h *Hub) register(conn *websocket.Conn) *Session {
	session := newSession(uuid.NewString())
	session.setState(Active)

	h.mu.Lock()
	h.sessions[session.ID] = session
	h.conns[session.ID] = conn
	h.mu.Unlock()

	return session
}

// Unregister removes a session from all tables so no further topic
// delivery is attempted against it.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, sessionID)
	delete(h.conns, sessionID)
	for topic, subs := range h.topicSubscribers {
		delete(subs, sessionID)
		if len(subs) == 0 {
			delete(h.topicSubscribers, topic)
		}
	}
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) readPump(session *Session, conn *websocket.Conn) {
	defer func() {
		h.Unregister(session.ID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		session.touch(0, 1)

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendTo(session, RespError, map[string]any{"code": "bad_request", "message": "invalid JSON"})
			continue
		}
		h.handleCommand(session, msg)
	}
}

func (h *Hub) writePump(session *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-session.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleCommand(session *Session, msg InboundMessage) {
	switch msg.Type {
	case CmdPing:
		h.sendTo(session, RespPong, nil)

	case CmdSubscribe:
		h.subscribe(session, msg.Project)
		h.sendTo(session, RespSubscribed, map[string]any{"project": msg.Project})

	case CmdUnsubscribe:
		h.unsubscribe(session, msg.Project)
		h.sendTo(session, RespUnsubscribed, map[string]any{"project": msg.Project})

	case CmdProjectSelect:
		h.selectProject(session, msg.Project)
		if h.control != nil {
			if err := h.control.SelectProject(msg.Project); err != nil {
				h.sendTo(session, RespError, map[string]any{"code": "project_not_found", "message": err.Error()})
				return
			}
		}
		h.sendTo(session, RespProjectSelected, map[string]any{"project": msg.Project})

	case CmdProjectStart:
		if h.control != nil {
			if err := h.control.StartProject(msg.Project); err != nil {
				h.sendTo(session, RespError, map[string]any{"code": "project_start_failed", "message": err.Error()})
				return
			}
		}
		h.sendTo(session, RespStatusChange, map[string]any{"project": msg.Project, "status": "running"})

	case CmdProjectStop:
		if h.control != nil {
			if err := h.control.StopProject(msg.Project); err != nil {
				h.sendTo(session, RespError, map[string]any{"code": "project_stop_failed", "message": err.Error()})
				return
			}
		}
		h.sendTo(session, RespStatusChange, map[string]any{"project": msg.Project, "status": "stopped"})

	default:
		h.sendTo(session, RespError, map[string]any{"code": "unknown_command", "message": msg.Type})
	}
}

func (h *Hub) subscribe(session *Session, topic string) {
	if session.Subscribed(topic) {
		return // already subscribed, idempotent
	}
	session.subscribe(topic)

	h.mu.Lock()
	if h.topicSubscribers[topic] == nil {
		h.topicSubscribers[topic] = make(map[string]struct{})
	}
	h.topicSubscribers[topic][session.ID] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(session *Session, topic string) {
	session.unsubscribe(topic)

	h.mu.Lock()
	if subs, ok := h.topicSubscribers[topic]; ok {
		delete(subs, session.ID)
		if len(subs) == 0 {
			delete(h.topicSubscribers, topic)
		}
	}
	h.mu.Unlock()
}

// selectProject is the atomic unsubscribe-all + subscribe(project)
// operation: project_select p ≡ {unsubscribe all; subscribe p}.
func (h *Hub) selectProject(session *Session, project string) {
	h.mu.Lock()
	for topic, subs := range h.topicSubscribers {
		delete(subs, session.ID)
		if len(subs) == 0 {
			delete(h.topicSubscribers, topic)
		}
	}
	h.mu.Unlock()

	session.unsubscribeAll()
	h.subscribe(session, project)
}

func (h *Hub) sendTo(session *Session, msgType string, data map[string]any) {
	env := newEnvelope(msgType, data)
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Printf("[Hub] marshal failed: %v", err)
		return
	}
	select {
	case session.send <- payload:
		session.touch(1, 0)
	default:
		h.logger.Printf("[Hub] session %s send buffer full, dropping message", session.ID)
	}
}

// OnGestureEvent is the Dispatcher listener the Hub registers as its sole
// global async subscriber: it looks up subscribers for the event's
// project topic and pushes gesture_data to each, wrapping the inner
// classifier data in the project/timestamp envelope every gesture_data
// push carries.
func (h *Hub) OnGestureEvent(project string, timestamp time.Time, data map[string]any) {
	h.mu.RLock()
	subs := h.topicSubscribers[project]
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := h.sessions[id]; ok {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	payload := map[string]any{
		"project":   project,
		"timestamp": float64(timestamp.UnixNano()) / 1e9,
		"data":      data,
	}

	for _, s := range sessions {
		h.sendTo(s, RespGestureData, payload)
	}
}

// Shutdown broadcasts server_shutdown to every session present, then
// closes every connection and clears the tables.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		h.sendTo(s, RespServerShutdown, nil)
	}

	// Give the write pumps a brief, bounded window to flush before close.
	time.Sleep(50 * time.Millisecond)

	h.mu.Lock()
	for _, c := range conns {
		c.Close()
	}
	h.sessions = make(map[string]*Session)
	h.topicSubscribers = make(map[string]map[string]struct{})
	h.conns = make(map[string]*websocket.Conn)
	h.mu.Unlock()
}
