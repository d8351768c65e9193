package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB

	clientBuffer = 16
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Upgrader for HTTP -> WebSocket. Consider tightening CheckOrigin in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins for production
}

// Hub fans transition events out to connected WebSocket clients. It plugs
// into the engine as an event sink; a slow client loses events rather than
// stalling resolution.
type Hub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[chan wsEnvelope]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{log: log, clients: make(map[chan wsEnvelope]struct{})}
}

// Emit implements the event sink. Non-blocking per client.
func (hub *Hub) Emit(_ context.Context, name string, e models.ScheduleEvent) {
	env := wsEnvelope{Type: name, Data: e}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for ch := range hub.clients {
		select {
		case ch <- env:
		default:
			if hub.log != nil {
				hub.log.Infow("ws_client_slow_dropping_event", "group", e.GroupName)
			}
		}
	}
}

func (hub *Hub) register() chan wsEnvelope {
	ch := make(chan wsEnvelope, clientBuffer)
	hub.mu.Lock()
	hub.clients[ch] = struct{}{}
	hub.mu.Unlock()
	return ch
}

func (hub *Hub) unregister(ch chan wsEnvelope) {
	hub.mu.Lock()
	delete(hub.clients, ch)
	hub.mu.Unlock()
}

func (h *Handler) wsConnect(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event feed not available"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	events := h.hub.register()
	defer h.hub.unregister(events)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Initial hello so clients can confirm the subscription is live.
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsEnvelope{Type: "subscribed"}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case env := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}
