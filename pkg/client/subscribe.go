package client

import (
	"encoding/json"

	"github.com/glossahq/glossa/pkg/protocol"
)

// subscribeBuffer is the per-subscription channel capacity. Tokens for a
// busy stream arrive faster than most consumers drain them; the buffer
// absorbs bursts and the relay drops frames rather than block once it fills.
const subscribeBuffer = 64

// Subscribe returns a channel carrying the stream notifications for one
// request id, in arrival order. Call it before sending the GENERATE_STREAM
// request so no early token slips past. The channel closes on Unsubscribe
// and when the connection ends.
//
// A second Subscribe for the same id replaces the first; the displaced
// channel is closed.
func (c *Client) Subscribe(requestID string) <-chan protocol.Envelope {
	ch := make(chan protocol.Envelope, subscribeBuffer)

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		// Connection already gone; a closed channel ends the consumer's
		// range loop immediately.
		close(ch)
		return ch
	default:
	}

	if prev, ok := c.subs[requestID]; ok {
		close(prev)
	}
	c.subs[requestID] = ch
	return ch
}

// Unsubscribe detaches and closes the subscription for the request id.
// Unknown ids are a no-op.
func (c *Client) Unsubscribe(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subs[requestID]; ok {
		delete(c.subs, requestID)
		close(ch)
	}
}

// publish routes one notification to its subscriber, matching by the
// requestId inside the payload. Notifications nobody tracks are dropped.
func (c *Client) publish(env protocol.Envelope) {
	var key struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(env.Payload, &key); err != nil || key.RequestID == "" {
		c.logger.Debug("client: notification without request id", "type", env.Type)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.subs[key.RequestID]
	if !ok {
		c.logger.Debug("client: notification for untracked request",
			"type", env.Type, "request_id", key.RequestID)
		return
	}
	// The send must not block: the read loop keeps serving responses even
	// when a consumer stalls. Closing races are excluded because every close
	// of a subscription channel happens under c.mu.
	select {
	case ch <- env:
	default:
		c.logger.Warn("client: subscriber full, dropping notification",
			"type", env.Type, "request_id", key.RequestID)
	}
}
