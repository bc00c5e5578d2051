package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// client is one websocket subscriber. Writes are serialised per client.
type client struct {
	id        string
	conn      *websocket.Conn
	connected time.Time

	mu sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans telemetry out to every connected websocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger

	messagesSent atomic.Uint64
	sendErrors   atomic.Uint64
}

type HubStats struct {
	Clients      int    `json:"clients"`
	MessagesSent uint64 `json:"messages_sent"`
	SendErrors   uint64 `json:"send_errors"`
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// handle registers the connection and blocks in a read loop until the
// client goes away. Incoming frames are discarded.
func (h *Hub) handle(conn *websocket.Conn) {
	c := &client{id: uuid.NewString(), conn: conn, connected: time.Now()}

	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("telemetry client connected", zap.String("client", c.id), zap.Int("clients", count))

	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		count := len(h.clients)
		h.mu.Unlock()
		h.logger.Info("telemetry client disconnected", zap.String("client", c.id), zap.Int("clients", count))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends tel as JSON to every client. Clients that fail a write
// are closed; their read loop then unregisters them.
func (h *Hub) Broadcast(tel dynamo.Telemetry) error {
	data, err := json.Marshal(tel)
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			h.sendErrors.Add(1)
			h.logger.Debug("telemetry send failed", zap.String("client", c.id), zap.Error(err))
			_ = c.conn.Close()
			continue
		}
		h.messagesSent.Add(1)
	}
	return nil
}

// Run broadcasts a snapshot from source every interval until ctx is done.
// Nothing is sent while no client is connected.
func (h *Hub) Run(ctx context.Context, interval time.Duration, source func() dynamo.Telemetry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if h.ClientCount() == 0 {
			continue
		}
		if err := h.Broadcast(source()); err != nil {
			h.logger.Warn("telemetry encode failed", zap.Error(err))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:      h.ClientCount(),
		MessagesSent: h.messagesSent.Load(),
		SendErrors:   h.sendErrors.Load(),
	}
}
