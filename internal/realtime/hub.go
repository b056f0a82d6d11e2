package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/metrics"
)

const sendBufferSize = 16

// Hub tracks open websocket sessions keyed by user and fans events out to them.
type Hub struct {
	cfg     config.RealtimeConfig
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics

	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*Session]struct{}
	admins   map[*Session]struct{}
}

// NewHub builds an empty hub with the provided socket settings.
func NewHub(cfg config.RealtimeConfig, logg *logger.Logger, m *metrics.RealtimeMetrics) (*Hub, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Hub{
		cfg:      cfg,
		logg:     logg,
		metrics:  m,
		sessions: make(map[uuid.UUID]map[*Session]struct{}),
		admins:   make(map[*Session]struct{}),
	}, nil
}

// Session is a single websocket connection owned by one user.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	role   enums.Role
	send   chan Message
	done   chan struct{}
	once   sync.Once
}

func newSession(hub *Hub, userID uuid.UUID, role enums.Role, conn *websocket.Conn) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan Message, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Register attaches the upgraded connection to the hub and starts its pumps.
// The call returns immediately; the session cleans itself up when the peer
// disconnects or stops answering pings.
func (h *Hub) Register(userID uuid.UUID, role enums.Role, conn *websocket.Conn) *Session {
	s := newSession(h, userID, role, conn)
	h.attach(s)
	go s.writePump()
	go s.readPump()
	return s
}

func (h *Hub) attach(s *Session) {
	h.mu.Lock()
	if h.sessions[s.userID] == nil {
		h.sessions[s.userID] = make(map[*Session]struct{})
	}
	h.sessions[s.userID][s] = struct{}{}
	if s.role == enums.RoleAdmin {
		h.admins[s] = struct{}{}
	}
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
}

func (h *Hub) detach(s *Session) {
	h.mu.Lock()
	conns, ok := h.sessions[s.userID]
	if ok {
		if _, present := conns[s]; !present {
			ok = false
		}
		delete(conns, s)
		if len(conns) == 0 {
			delete(h.sessions, s.userID)
		}
	}
	delete(h.admins, s)
	h.mu.Unlock()

	if ok {
		h.metrics.ConnectionClosed()
	}
}

// SendToUser queues the message on every open session of the user.
func (h *Hub) SendToUser(userID uuid.UUID, msg Message) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(msg)
	}
}

// BroadcastToAdmins queues the message on every open admin session.
func (h *Hub) BroadcastToAdmins(msg Message) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.admins))
	for s := range h.admins {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(msg)
	}
}

// DisconnectUser force-closes every session the user has open.
func (h *Hub) DisconnectUser(userID uuid.UUID) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.close()
	}
}

// Close force-closes every open session, used on worker shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	targets := make([]*Session, 0)
	for _, conns := range h.sessions {
		for s := range conns {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.close()
	}
}

func (s *Session) enqueue(msg Message) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
		s.hub.metrics.IncDropped(string(msg.Event))
		s.hub.logg.Warn(s.hub.logg.WithUserID(context.Background(), s.userID.String()), "dropped realtime event, slow consumer")
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			deadline := time.Now().Add(s.hub.cfg.WriteWait)
			_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = s.conn.Close()
		}
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.close()
		s.hub.detach(s)
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
			s.hub.metrics.IncDelivered(string(msg.Event))
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) readPump() {
	defer func() {
		s.close()
		s.hub.detach(s)
	}()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.PongWait))
	})

	// Clients never send application frames; the read loop only services
	// control messages and surfaces disconnects.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
