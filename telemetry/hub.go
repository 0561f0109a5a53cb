package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const hubWriteTimeout = 5 * time.Second

// Hub streams events to dashboard websocket clients. A newly connected
// client first receives the latest report and mode so it never starts blank.
type Hub struct {
	buffer int

	mu         sync.Mutex
	closed     bool
	clients    map[*hubClient]struct{}
	lastReport []byte
	lastMode   []byte
}

type hubClient struct {
	ch chan []byte
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{buffer: buffer, clients: make(map[*hubClient]struct{})}
}

// Publish broadcasts e. A slow client misses the event rather than
// stalling the others; ErrBackpressure reports that at least one did.
func (h *Hub) Publish(e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	switch e.Kind {
	case KindReport:
		h.lastReport = b
	case KindMode:
		h.lastMode = b
	}
	var dropped bool
	for c := range h.clients {
		select {
		case c.ch <- b:
		default:
			dropped = true
		}
	}
	if dropped {
		return ErrBackpressure
	}
	return nil
}

// Clients is the number of connected dashboards.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		close(c.ch)
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) register() (*hubClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &hubClient{ch: make(chan []byte, h.buffer+2)}
	if h.lastReport != nil {
		c.ch <- h.lastReport
	}
	if h.lastMode != nil {
		c.ch <- h.lastMode
	}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("dashboard accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()

	c, ok := h.register()
	if !ok {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.unregister(c)
	slog.Debug("dashboard connected", "remote", r.RemoteAddr)

	// The dashboard only listens; CloseRead handles its close frame.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-c.ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "shutting down")
				return
			}
			if err := h.write(ctx, conn, b); err != nil {
				slog.Debug("dashboard write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, b []byte) error {
	ctx, cancel := context.WithTimeout(ctx, hubWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, b)
}
