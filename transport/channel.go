package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/types"
)

const (
	writeWait               = 10 * time.Second
	pingPeriod              = time.Minute
	defaultSendBufferSize   = 256
	defaultEventBufferSize  = 256
	defaultInitialInterval  = 500 * time.Millisecond
	defaultMaxRetryInterval = 30 * time.Second
)

var (
	// ErrDisconnected is returned by Send while there is no connection, the message is dropped.
	ErrDisconnected = errors.New("transport: not connected")
	// ErrSendBufferFull is returned by Send when the connection does not keep up, the message is dropped.
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	}
	return "unknown"
}

// Event is delivered on Channel.Events in the order the relay sent it.
type Event struct {
	Kind    EventKind
	Message types.WebsocketMessage // EventMessage only
	Err     error                  // EventDisconnected only
}

type Options struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer

	// reconnect backoff
	InitialInterval time.Duration
	MaxInterval     time.Duration

	SendBufferSize  int
	EventBufferSize int

	// ReadLimit is the maximum size of an inbound message in bytes, 0 means unlimited. A snapshot carries every
	// file of the room, a limit below the room's encoded size makes the room unjoinable.
	ReadLimit int64

	Logger hclog.Logger
}

// Channel is a persistent connection to the relay. Run keeps it connected, reconnecting with
// exponential backoff. The relay forgets a session on disconnect, consumers must join again on
// every EventConnected.
type Channel struct {
	opts   Options
	logger hclog.Logger
	events chan Event

	mu   sync.Mutex
	out  chan []byte
	conn *websocket.Conn
}

func New(opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = defaultInitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaultMaxRetryInterval
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = defaultSendBufferSize
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = defaultEventBufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = globals.AppLogger.Named("transport")
	}
	return &Channel{
		opts:   opts,
		logger: logger,
		events: make(chan Event, opts.EventBufferSize),
	}
}

// Events delivers lifecycle changes and inbound messages. It is never closed.
func (c *Channel) Events() <-chan Event {
	return c.events
}

func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out != nil
}

// Send queues a message for the relay. Messages are written in Send order. While disconnected the
// message is dropped and ErrDisconnected returned, nothing is queued for a later connection.
func (c *Channel) Send(event string, payload interface{}) error {
	raw, err := types.EncodeMessage(event, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return ErrDisconnected
	}
	select {
	case c.out <- raw:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Drop closes the current connection, Run will reconnect.
func (c *Channel) Drop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Run connects and stays connected until ctx is done.
func (c *Channel) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	for {
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
		if err == nil {
			b.Reset()
			err = c.serve(ctx, conn)
			c.logger.Info("connection lost", "error", err)
		} else {
			c.logger.Debug("could not connect", "url", c.opts.URL, "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) error {
	if c.opts.ReadLimit > 0 {
		conn.SetReadLimit(c.opts.ReadLimit)
	}
	out := make(chan []byte, c.opts.SendBufferSize)
	done := make(chan struct{})
	c.mu.Lock()
	c.out = out
	c.conn = conn
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writeLoop(conn, out, done)
	}()
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c.emit(ctx, Event{Kind: EventConnected})
	err := c.readLoop(ctx, conn)

	c.mu.Lock()
	c.out = nil
	c.conn = nil
	c.mu.Unlock()
	close(done)
	_ = conn.Close()
	wg.Wait()
	c.emit(ctx, Event{Kind: EventDisconnected, Err: err})
	return err
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Error("could not unmarshal ws message", "error", err)
			continue
		}
		if !c.emit(ctx, Event{Kind: EventMessage, Message: msg}) {
			return ctx.Err()
		}
	}
}

func (c *Channel) writeLoop(conn *websocket.Conn, out <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case raw := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.logger.Debug("could not write to ws connection", "error", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Channel) emit(ctx context.Context, ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
