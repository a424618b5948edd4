package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"showconsole/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireEvent is the JSON shape pushed to every connected event-stream
// client: the typed event plus the read-consistent state snapshot it
// carried at publish time.
type wireEvent struct {
	Type  events.Type    `json:"type"`
	Data  map[string]any `json:"data"`
	State any            `json:"state"`
}

// eventClient is one connected WebSocket subscriber to the event stream.
type eventClient struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func (ec *eventClient) enqueue(b []byte) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.closed {
		return
	}
	select {
	case ec.send <- b:
	default:
		// Slow client: drop rather than block the broadcaster.
	}
}

func (ec *eventClient) close() {
	ec.mu.Lock()
	if ec.closed {
		ec.mu.Unlock()
		return
	}
	ec.closed = true
	ec.mu.Unlock()
	close(ec.send)
}

// eventHub fans every bus event out to every connected WebSocket client.
type eventHub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*eventClient]struct{}
}

func newEventHub(log *slog.Logger) *eventHub {
	return &eventHub{log: log, clients: make(map[*eventClient]struct{})}
}

func (h *eventHub) add(ec *eventClient) {
	h.mu.Lock()
	h.clients[ec] = struct{}{}
	h.mu.Unlock()
}

func (h *eventHub) remove(ec *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[ec]
	delete(h.clients, ec)
	h.mu.Unlock()
	if ok {
		ec.close()
	}
}

func (h *eventHub) broadcast(evt events.Event) {
	payload, err := json.Marshal(wireEvent{Type: evt.Type, Data: evt.Data, State: evt.State})
	if err != nil {
		h.log.Error("failed to marshal event for stream", "error", err)
		return
	}
	h.mu.Lock()
	clients := make([]*eventClient, 0, len(h.clients))
	for ec := range h.clients {
		clients = append(clients, ec)
	}
	h.mu.Unlock()
	for _, ec := range clients {
		ec.enqueue(payload)
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	clients := make([]*eventClient, 0, len(h.clients))
	for ec := range h.clients {
		clients = append(clients, ec)
	}
	h.clients = make(map[*eventClient]struct{})
	h.mu.Unlock()
	for _, ec := range clients {
		ec.close()
	}
}

// initStreamRoutes registers the WebSocket event-broadcast endpoint.
func (c *Controller) initStreamRoutes() {
	c.Group.GET("/stream/events", c.handleEventStream)
}

// handleEventStream upgrades to a WebSocket and streams every kernel
// event, starting with a synthetic state snapshot so a freshly connected
// or reconnecting client can synchronize immediately without waiting for
// the next state change.
func (c *Controller) handleEventStream(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		log.Error("event stream upgrade failed", "error", err)
		return err
	}

	client := &eventClient{conn: conn, send: make(chan []byte, clientSendSize)}
	c.hub.add(client)

	initial, _ := json.Marshal(wireEvent{
		Type:  events.TypeStateChanged,
		Data:  map[string]any{"reason": "initial_sync"},
		State: c.Kernel.GetState(),
	})
	client.enqueue(initial)

	go client.writePump()
	go client.readPump(c.hub)

	return nil
}

func (ec *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ec.conn.Close()
	}()

	for {
		select {
		case message, ok := <-ec.send:
			ec.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ec.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ec.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ec.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ec.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only exists to drive the pong/read-deadline handshake and
// detect client disconnects; this stream is push-only from the server.
func (ec *eventClient) readPump(hub *eventHub) {
	defer hub.remove(ec)

	ec.conn.SetReadLimit(512)
	ec.conn.SetReadDeadline(time.Now().Add(pongWait))
	ec.conn.SetPongHandler(func(string) error {
		ec.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ec.conn.ReadMessage(); err != nil {
			return
		}
	}
}
