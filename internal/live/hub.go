// Package live streams domain events to WebSocket clients. The Hub is an
// event bus subscriber; each connection receives the events that match its
// filter.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/logging"
)

// clientBuffer is how many undelivered events a connection may queue before
// new events are dropped for it.
const clientBuffer = 32

// Hub fans domain events out to connected WebSocket clients.
type Hub struct {
	mu             sync.RWMutex
	clients        map[string]*client
	originPatterns []string
	log            *logrus.Logger
}

type client struct {
	id     string
	events chan event.DomainEvent

	mu     sync.RWMutex
	filter Filter
}

func (c *client) setFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
}

func (c *client) matches(evt event.DomainEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Matches(evt)
}

// NewHub creates a Hub accepting connections from the given origin
// patterns. No patterns means same-origin only.
func NewHub(originPatterns ...string) *Hub {
	return &Hub{
		clients:        make(map[string]*client),
		originPatterns: originPatterns,
		log:            logging.Logger,
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleEvent queues evt for every client whose filter matches. A client
// whose queue is full misses the event.
func (h *Hub) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.matches(evt) {
			continue
		}
		select {
		case c.events <- evt:
		default:
			h.log.WithFields(logrus.Fields{
				"session_id": c.id,
				"event_id":   evt.ID,
			}).Warn("live: client queue full, dropping event")
		}
	}
	return nil
}

// ServeHTTP upgrades to WebSocket and streams events until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.WithError(err).Warn("live: websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{id: uuid.New().String(), events: make(chan event.DomainEvent, clientBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
	}()

	h.send(ctx, conn, ServerMessage{Type: "session", Data: SessionData{SessionID: c.id}})

	go h.readLoop(ctx, cancel, conn, c)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt := <-c.events:
			h.send(ctx, conn, ServerMessage{Type: "event", Data: evt})
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.log.WithField("session_id", c.id).WithError(err).Debug("live: read failed")
			}
			return
		}

		switch msg.Type {
		case "subscribe":
			var f Filter
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &f); err != nil {
					h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid subscribe data")
					continue
				}
			}
			c.setFilter(f)
			h.send(ctx, conn, ServerMessage{Type: "subscribed", RequestID: msg.ID, Data: f})
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Hub) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil && ctx.Err() == nil {
		h.log.WithField("type", msg.Type).WithError(err).Debug("live: write failed")
	}
}

func (h *Hub) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
