package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const (
	writeTimeout = 5 * time.Second
	// eventQueueSize bounds the pushed events waiting for one client.
	eventQueueSize = 16
)

// Hub serves method calls over WebSocket and pushes events to every
// connected client.
type Hub struct {
	registry *Registry
	logger   *zap.Logger
	origins  []string

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	events chan Envelope
	cancel context.CancelFunc
	// writes are serialized so a reply frame is never interleaved with a
	// pushed event.
	mu sync.Mutex
}

func (c *client) write(ctx context.Context, env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, env)
}

// NewHub creates a Hub dispatching to registry. origins lists the accepted
// Origin host patterns; empty accepts same-origin only.
func NewHub(registry *Registry, origins []string, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger,
		origins:  origins,
		clients:  make(map[*client]struct{}),
	}
}

// Clients returns the number of connected sockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves calls until the socket closes.
// Calls run concurrently; each reply carries the id of its request.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{conn: conn, events: make(chan Envelope, eventQueueSize), cancel: cancel}
	h.add(c)
	defer h.remove(c)

	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.push(ctx, c)
	}()

	for {
		var req Envelope
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			cancel()
			return
		}

		wg.Add(1)
		go func(req Envelope) {
			defer wg.Done()
			reply := h.registry.Invoke(ctx, req.Channel, MethodCall{Method: req.Method, Args: req.Args}).Envelope()
			reply.ID = req.ID
			reply.Channel = req.Channel
			if err := c.write(ctx, reply); err != nil {
				h.logger.Debug("websocket reply dropped",
					zap.String("channel", req.Channel),
					zap.String("method", req.Method),
					zap.Error(err),
				)
			}
		}(req)
	}
}

// Broadcast queues an event frame for every connected client and never
// waits on a socket. A client whose queue is full is disconnected.
func (h *Hub) Broadcast(topic string, payload any) {
	env := Envelope{Event: topic, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.events <- env:
		default:
			h.logger.Debug("websocket client not keeping up, disconnecting", zap.String("event", topic))
			delete(h.clients, c)
			c.cancel()
		}
	}
}

// push writes queued events to c until the socket's context ends.
func (h *Hub) push(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.events:
			if err := c.write(ctx, env); err != nil {
				h.logger.Debug("dropping websocket client", zap.Error(err))
				c.cancel()
				return
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
