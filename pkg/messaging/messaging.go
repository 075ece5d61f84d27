// Package messaging is an asynchronous request/response channel to the browser
// bridge. Each request carries a correlation ID; the bridge answers with either
// a result or an error for that ID, in any order.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned for requests issued on, or pending at, a closed channel.
	ErrClosed = errors.New("messaging: channel closed")
	// ErrNoReceiver matches remote errors reporting that nobody handled the message.
	ErrNoReceiver = errors.New("messaging: receiving end does not exist")
)

// Requester sends one message and decodes the answer into out (which may be nil).
type Requester interface {
	Request(ctx context.Context, msg any, out any) error
}

// Envelope is the frame written for every request.
type Envelope struct {
	ID      string `json:"id"`
	Message any    `json:"message"`
}

// Reply is the frame the bridge writes back.
type Reply struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// RemoteError is an error reported by the other end of the channel.
type RemoteError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is reports a no_receiver remote error as ErrNoReceiver.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNoReceiver && e.Type == "no_receiver"
}

// Client is a Requester over a single websocket connection.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]chan Reply
	closed  bool
	readErr error
	done    chan struct{}
}

// Dial connects to the bridge at url and starts reading replies.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge %s: %w", url, err)
	}
	conn.SetReadLimit(64 << 20)

	c := &Client{
		conn:    conn,
		logger:  logger.With(zap.String("component", "messaging")),
		pending: make(map[string]chan Reply),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	c.logger.Info("connected to bridge", zap.String("url", url))
	return c, nil
}

// Request implements Requester.
func (c *Client) Request(ctx context.Context, msg any, out any) error {
	id := uuid.NewString()
	replyCh := make(chan Reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	body, err := json.Marshal(Envelope{ID: id, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, body); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	c.logger.Debug("request sent", zap.String("id", id))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closedErr()
	case reply := <-replyCh:
		if reply.Error != nil {
			return reply.Error
		}
		if out == nil || len(reply.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(reply.Result, out); err != nil {
			return fmt.Errorf("failed to decode reply: %w", err)
		}
		return nil
	}
}

func (c *Client) readLoop() {
	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.shutdown(err)
			return
		}

		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			c.logger.Warn("dropping malformed reply", zap.Error(err))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[reply.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("dropping reply with no pending request", zap.String("id", reply.ID))
			continue
		}
		select {
		case ch <- reply:
		default:
			c.logger.Debug("dropping duplicate reply", zap.String("id", reply.ID))
		}
	}
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readErr = err
	close(c.done)
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == nil || errors.Is(c.readErr, ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
}

// Close closes the connection. Pending requests fail with ErrClosed.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}
