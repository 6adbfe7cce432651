// Package client provides a Go client for the glossa daemon. It dials the
// WebSocket session endpoint, correlates requests with their responses, and
// routes stream notifications to per-request subscribers.
//
// Send never returns an error: every failure mode resolves to a structured
// Response so callers use one code path for "request failed" and "request
// succeeded but the daemon said no".
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/glossahq/glossa/pkg/protocol"
)

// Config configures a Client.
type Config struct {
	// URL is the session endpoint, e.g. "ws://127.0.0.1:4765/v1/session".
	// http and https schemes are accepted and upgraded.
	URL string

	// Token is the gateway access token. Empty when the daemon runs open.
	Token string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a connection to the daemon. It is safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	// writeMu serializes frame writes; requests and Close may race.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan protocol.Response
	subs    map[string]chan protocol.Envelope

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the daemon session endpoint. The context bounds only the
// handshake; the connection itself lives until Close.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts *websocket.DialOptions
	if cfg.Token != "" {
		opts = &websocket.DialOptions{
			HTTPHeader: http.Header{"Authorization": []string{"Bearer " + cfg.Token}},
		}
	}

	conn, _, err := websocket.Dial(ctx, cfg.URL, opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    conn,
		logger:  cfg.Logger,
		pending: make(map[string]chan protocol.Response),
		subs:    make(map[string]chan protocol.Envelope),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears the connection down. In-flight Send calls resolve with a
// NO_RESPONSE error and later Sends short-circuit to NO_RUNTIME. Safe to
// call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.markClosed()
		err = c.conn.Close(websocket.StatusNormalClosure, "client closed")
	})
	return err
}

// GenerateRequestID produces a globally unique opaque string. Streaming
// callers put it in the GENERATE_STREAM payload to correlate the token
// notifications that follow.
func GenerateRequestID() string {
	return uuid.NewString()
}

// Send issues one request and waits for the matching response. It never
// returns an error: a closed client yields NO_RUNTIME, a delivery failure
// MESSAGING_ERROR, a connection lost mid-wait NO_RESPONSE, and an abandoned
// context CANCELLED. Anything else is the daemon's own response.
func (c *Client) Send(ctx context.Context, typ protocol.MessageType, payload any) protocol.Response {
	select {
	case <-c.closed:
		return protocol.Fail(protocol.CodeNoRuntime, "client is closed")
	default:
	}

	// Reply types never get a response; refuse them up front instead of
	// letting the call hang.
	if typ == protocol.TypeResponse || (protocol.Envelope{Type: typ}).IsNotification() {
		return protocol.Fail(protocol.CodeMessagingError, "type "+string(typ)+" cannot be sent as a request")
	}

	env, err := protocol.NewEnvelope(typ, GenerateRequestID(), payload)
	if err != nil {
		return protocol.Fail(protocol.CodeMessagingError, "encoding request: "+err.Error())
	}
	data, err := json.Marshal(env)
	if err != nil {
		return protocol.Fail(protocol.CodeMessagingError, "encoding request: "+err.Error())
	}

	ch := make(chan protocol.Response, 1)
	c.mu.Lock()
	c.pending[env.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, env.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.Write(ctx, websocket.MessageText, data)
	c.writeMu.Unlock()
	if err != nil {
		return protocol.Fail(protocol.CodeMessagingError, "sending request: "+err.Error())
	}

	select {
	case resp := <-ch:
		return resp
	case <-ctx.Done():
		return protocol.Fail(protocol.CodeCancelled, "request abandoned: "+ctx.Err().Error())
	}
}

// readLoop demultiplexes inbound frames: responses resolve pending Sends by
// envelope id, notifications fan out to subscribers.
func (c *Client) readLoop() {
	defer c.markClosed()

	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("client: dropping malformed frame", "error", err)
			continue
		}

		switch {
		case env.Type == protocol.TypeResponse:
			c.resolve(env)
		case env.IsNotification():
			c.publish(env)
		default:
			c.logger.Warn("client: dropping unexpected frame", "type", env.Type)
		}
	}
}

func (c *Client) resolve(env protocol.Envelope) {
	var resp protocol.Response
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		resp = protocol.Fail(protocol.CodeInvalidResponse, "decoding response: "+err.Error())
	}

	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	c.mu.Unlock()
	if !ok {
		// The waiter gave up already.
		c.logger.Debug("client: response without a waiter", "id", env.ID)
		return
	}
	// The channel holds one response; a duplicate reply for the same id is
	// dropped instead of blocking the read loop.
	select {
	case ch <- resp:
	default:
	}
}

// markClosed resolves every pending request, wakes Send callers, and ends
// every subscription. Reached from Close and from the read loop unwinding;
// only the first call acts.
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return
	default:
	}
	close(c.closed)

	for id, ch := range c.pending {
		select {
		case ch <- protocol.Fail(protocol.CodeNoResponse, "connection closed before response"):
		default:
		}
		delete(c.pending, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}
