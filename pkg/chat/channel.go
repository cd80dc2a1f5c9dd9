package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gathersync-dev/gathersync/pkg/metrics"
)

// Message is one chat line as it travels on the wire.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"message"`
}

// State describes where a Channel is in its connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("chat: not connected")

// ErrAlreadyConnected is returned by Connect on a channel that is already
// connecting or connected.
var ErrAlreadyConnected = errors.New("chat: already connected")

// Handler receives each message appended to the transcript, local sends
// included. It runs on the channel's read goroutine (or the sender's
// goroutine for local echoes) and must not block.
type Handler func(Message)

// Option configures a Channel.
type Option func(*Channel)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// WithHandler installs the message callback.
func WithHandler(h Handler) Option {
	return func(c *Channel) { c.handler = h }
}

// WithLogger sets the channel's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithMetrics wires channel lifecycle and message counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// WithWriteTimeout bounds each frame write. Default 10s.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Channel) { c.writeTimeout = d }
}

// Channel is a realtime group-chat connection for one event.
type Channel struct {
	baseURL string
	eventID string
	sender  string

	dialer       *websocket.Dialer
	handler      Handler
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration

	// writeMu serializes frame writes; gorilla allows one writer at a time.
	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	done     chan struct{}
	messages []Message
}

// NewChannel creates a disconnected channel for eventID. baseURL is the
// server's HTTP or WS origin; http/https schemes are rewritten to ws/wss.
func NewChannel(baseURL, eventID, sender string, opts ...Option) *Channel {
	c := &Channel{
		baseURL:      strings.TrimRight(baseURL, "/"),
		eventID:      eventID,
		sender:       sender,
		dialer:       websocket.DefaultDialer,
		logger:       slog.Default(),
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chat", "event", eventID)
	return c
}

// State reports the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the transcript in arrival order.
func (c *Channel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// endpoint builds the group-chat websocket URL for the channel's event.
func (c *Channel) endpoint() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("chat: bad base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("chat: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/group_chat/" + url.PathEscape(c.eventID) + "/"
	return u.String(), nil
}

// Connect dials the event's chat endpoint and starts the read loop. The
// transcript starts empty; history from before the connection is not
// replayed.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	target, err := c.endpoint()
	if err != nil {
		c.setDisconnected(nil)
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.setDisconnected(nil)
		return fmt.Errorf("chat: dial %s: %w", target, err)
	}

	c.mu.Lock()
	c.state = StateConnected
	c.conn = conn
	c.done = make(chan struct{})
	c.messages = nil
	done := c.done
	c.mu.Unlock()

	c.metrics.ChannelOpened()
	c.logger.Info("chat connected", "url", target)

	go c.readLoop(conn, done)
	return nil
}

// Send transmits text as the channel's sender and echoes it into the local
// transcript before the write resolves. Delivery is fire-and-forget: a
// write failure tears the connection down rather than surfacing per-message
// errors.
func (c *Channel) Send(text string) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	msg := Message{Sender: c.sender, Text: text}
	c.messages = append(c.messages, msg)
	handler := c.handler
	c.mu.Unlock()

	c.metrics.RecordChatMessage("sent")
	if handler != nil {
		handler(msg)
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Error("chat write failed", "error", err)
		c.Disconnect()
		return fmt.Errorf("chat: send: %w", err)
	}
	return nil
}

// readLoop appends incoming frames to the transcript until the connection
// drops. Frames from the channel's own sender are skipped; Send already
// echoed them.
func (c *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.setDisconnected(done)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("chat read error", "error", err)
			}
			return
		}

		c.mu.Lock()
		own := msg.Sender == c.sender
		if !own {
			c.messages = append(c.messages, msg)
		}
		handler := c.handler
		c.mu.Unlock()

		if own {
			continue
		}
		c.metrics.RecordChatMessage("received")
		if handler != nil {
			handler(msg)
		}
	}
}

// Disconnect closes the connection. Safe to call repeatedly and from any
// goroutine; the transcript survives until the next Connect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

// setDisconnected finalizes the transition out of Connected. done
// identifies the connection generation; a stale read loop for an old
// connection must not tear down a newer one.
func (c *Channel) setDisconnected(done chan struct{}) {
	c.mu.Lock()
	if done != nil && c.done != done {
		c.mu.Unlock()
		return
	}
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.mu.Unlock()

	if wasConnected {
		c.metrics.ChannelClosed()
		c.logger.Info("chat disconnected")
	}
}
