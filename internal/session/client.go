package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/glossahq/glossa/internal/security"
	"github.com/glossahq/glossa/pkg/protocol"
)

// Client is one live WebSocket session. The daemon assigns the id at accept
// time; the extension never sees or chooses it.
type Client struct {
	ID          string
	ConnectedAt time.Time

	conn    *websocket.Conn
	limiter *security.RateLimiter

	writeMu sync.Mutex
}

// send marshals the envelope and writes it to the connection. Writes are
// serialized under writeMu: responses come from per-request dispatch
// goroutines and notifications from relay goroutines, all sharing this
// connection.
func (c *Client) send(ctx context.Context, env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("session: marshal envelope: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("session: write to client %s: %w", c.ID, err)
	}
	return nil
}

func newClientID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "ses-" + hex.EncodeToString(buf[:]), nil
}
