// Package session owns the WebSocket side of the daemon: accepting
// connections, reading request envelopes, fanning dispatches out so one slow
// request never blocks the next, and pushing stream notifications back to the
// client that started the generation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/glossahq/glossa/internal/metrics"
	"github.com/glossahq/glossa/internal/security"
	"github.com/glossahq/glossa/pkg/protocol"
)

// notifyTimeout bounds the write of one stream notification. A client that
// cannot drain its socket for this long loses the notification instead of
// stalling the relay goroutine.
const notifyTimeout = 10 * time.Second

// Dispatcher handles one decoded request envelope and produces its response.
// The router implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, clientID string, env protocol.Envelope) protocol.Response
}

// Config collects the hub's dependencies.
type Config struct {
	// Dispatcher handles every request read off a session. Required.
	Dispatcher Dispatcher

	// Limits applies per client; zero fields take defaults.
	Limits security.RateLimitConfig

	// Metrics defaults to a fresh unregistered set.
	Metrics *metrics.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Hub tracks every live session and routes traffic in both directions:
// requests from the read loops into the dispatcher, stream notifications from
// the relay goroutines back to the originating client.
type Hub struct {
	dispatcher Dispatcher
	limits     security.RateLimitConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a Hub from cfg.
func NewHub(cfg Config) (*Hub, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("session: dispatcher is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics, _ = metrics.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Hub{
		dispatcher: cfg.Dispatcher,
		limits:     cfg.Limits.WithDefaults(),
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		clients:    make(map[string]*Client),
	}, nil
}

// HandleSession is the HTTP handler for session WebSocket connections. It
// runs the full connection lifecycle: accept, register, read loop,
// unregister. Authentication happens upstream in the gateway.
func (h *Hub) HandleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	id, err := newClientID()
	if err != nil {
		h.logger.Error("client id generation failed", "error", err)
		return
	}

	client := &Client{
		ID:          id,
		ConnectedAt: time.Now(),
		conn:        conn,
		limiter:     security.NewRateLimiter(h.limits),
	}

	if !h.add(client) {
		h.logger.Warn("connection rejected",
			"client_id", client.ID,
			"max_clients", h.limits.MaxClients,
		)
		_ = conn.Close(websocket.StatusTryAgainLater, "too many connections")
		return
	}

	h.logger.Info("client connected", "client_id", client.ID)

	h.readLoop(r.Context(), client)

	h.remove(client.ID)
	h.logger.Info("client disconnected", "client_id", client.ID)
}

// add registers the client unless the session cap is reached. Check and
// insert happen under one lock so concurrent accepts cannot exceed the cap.
func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.limits.MaxClients {
		return false
	}
	h.clients[c.ID] = c
	h.metrics.ConnectedClients.Inc()
	return true
}

// remove drops the client if it is still registered. Close leaves entries in
// place for the read loops to unwind, so remove tolerates a second call.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		return
	}
	delete(h.clients, id)
	h.metrics.ConnectedClients.Dec()
}

// readLoop reads envelopes until the connection drops or ctx ends. Each
// accepted request is dispatched on its own goroutine; those share ctx, so a
// stream begun by a request lives exactly as long as its connection.
func (h *Hub) readLoop(ctx context.Context, client *Client) {
	for {
		_, data, err := client.conn.Read(ctx)
		if err != nil {
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn("invalid message from client", "client_id", client.ID, "error", err)
			continue
		}

		if env.Type == protocol.TypeResponse || env.IsNotification() {
			h.logger.Warn("unexpected message type in read loop",
				"client_id", client.ID,
				"type", env.Type,
			)
			continue
		}

		if err := client.limiter.Allow(limitKind(env.Type)); err != nil {
			h.respond(ctx, client, env.ID, protocol.Fail(protocol.CodeRateLimited, "too many requests"))
			continue
		}

		go func() {
			resp := h.dispatcher.Dispatch(ctx, client.ID, env)
			h.respond(ctx, client, env.ID, resp)
		}()
	}
}

// limitKind buckets request types for rate limiting. Stream starts get the
// scarcer budget.
func limitKind(typ protocol.MessageType) string {
	if typ == protocol.TypeGenerateStream {
		return security.KindStream
	}
	return security.KindMessage
}

// respond wraps resp in a RESPONSE envelope echoing the request id and
// writes it back.
func (h *Hub) respond(ctx context.Context, client *Client, id string, resp protocol.Response) {
	env, err := protocol.NewEnvelope(protocol.TypeResponse, id, resp)
	if err != nil {
		h.logger.Error("marshal response failed", "client_id", client.ID, "error", err)
		return
	}
	if err := client.send(ctx, env); err != nil {
		h.logger.Warn("response write failed", "client_id", client.ID, "error", err)
	}
}

// Notify pushes one stream notification to the named client. Unknown ids are
// dropped: the client may have disconnected while its generation was still
// relaying. Notifications carry no envelope id; they correlate by the
// requestId inside the payload.
func (h *Hub) Notify(clientID string, typ protocol.MessageType, payload any) {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("notification dropped", "client_id", clientID, "type", typ)
		return
	}

	env, err := protocol.NewEnvelope(typ, "", payload)
	if err != nil {
		h.logger.Error("marshal notification failed", "client_id", clientID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := client.send(ctx, env); err != nil {
		h.logger.Warn("notification write failed",
			"client_id", clientID,
			"type", typ,
			"error", err,
		)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes every live connection. Read loops observe the close and
// unwind through their usual remove path, so the map is not touched here.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
