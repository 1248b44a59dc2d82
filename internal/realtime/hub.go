package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"leadcrm/internal/telemetry"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pingInterval = 20 * time.Second
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 256
)

var errHubStopped = errors.New("realtime hub stopped")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type client struct {
	conn     *websocket.Conn
	tenantID uuid.UUID
	send     chan Event
	hub      *Hub
}

// Hub manages WebSocket connections and delivers each event only to the
// clients of the event's tenant. Only Run sends on or closes a client's
// send channel.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	pong       chan *client
	done       chan struct{}
	metrics    *telemetry.Metrics
	mu         sync.RWMutex
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(metrics *telemetry.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		pong:       make(chan *client),
		done:       make(chan struct{}),
		metrics:    metrics,
	}
}

// Publish queues an event for local delivery
func (h *Hub) Publish(ctx context.Context, event Event) error {
	select {
	case <-h.done:
		return errHubStopped
	default:
	}
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run manages the hub until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.metrics.ClientConnected(1)
			log.Debug().Str("tenant_id", c.tenantID.String()).Msg("realtime client connected")

			welcome := Event{Type: eventConnection, TenantID: c.tenantID, Timestamp: time.Now().UTC()}
			select {
			case c.send <- welcome:
			default:
				h.drop(c)
			}

		case c := <-h.unregister:
			h.drop(c)

		case c := <-h.pong:
			h.mu.RLock()
			_, ok := h.clients[c]
			h.mu.RUnlock()
			if !ok {
				continue
			}
			pong := Event{Type: eventPong, TenantID: c.tenantID, Timestamp: time.Now().UTC()}
			select {
			case c.send <- pong:
			default:
				h.drop(c)
			}

		case event := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.tenantID != event.TenantID {
					continue
				}
				select {
				case c.send <- event:
				default:
					delete(h.clients, c)
					close(c.send)
					h.metrics.ClientConnected(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.metrics.ClientConnected(-1)
		log.Debug().Str("tenant_id", c.tenantID.String()).Msg("realtime client disconnected")
	}
}

// ServeWS upgrades the request and streams tenantID's events to it
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:     conn,
		tenantID: tenantID,
		send:     make(chan Event, sendBuffer),
		hub:      h,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errHubStopped
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("realtime read error")
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err == nil && msg.Type == "ping" {
			select {
			case c.hub.pong <- c:
			case <-c.hub.done:
				return
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				log.Warn().Err(err).Msg("realtime write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
