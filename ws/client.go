package ws

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/types"
)

const (
	sendChannelSize = 1000
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	// room for the envelope and the other fields of a content update
	messageOverhead = 64 * 1024
)

// Client is a middleman between the websocket connection and the hub of the room it joined.
type Client struct {
	id       string
	registry *Registry

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. It is never closed, writers select on done instead.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// current room, only accessed from ReadLoop
	hub    *Hub
	roomId string

	logger hclog.Logger

	// WaitGroup which keeps track of running read/write loops.
	sync.WaitGroup
}

func NewClient(registry *Registry, conn *websocket.Conn) *Client {
	id := uuid.New().String()
	return &Client{
		id:       id,
		registry: registry,
		conn:     conn,
		send:     make(chan []byte, sendChannelSize),
		done:     make(chan struct{}),
		logger:   globals.AppLogger.Named("client").With("connection", id),
	}
}

func (c *Client) Id() string {
	return c.id
}

// Serve runs the read and write loops and returns when both are finished.
func (c *Client) Serve() {
	c.Add(2)
	go c.WriteLoop()
	go c.ReadLoop()
	c.Wait()
}

// Close ends both loops. It is safe to call Close more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Queue hands an encoded message to the write loop. A client that cannot keep up is disconnected.
func (c *Client) Queue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("send buffer full, closing connection")
		c.Close()
		return false
	}
}

// Emit encodes and queues one event.
func (c *Client) Emit(event string, payload interface{}) {
	data, err := types.EncodeMessage(event, payload)
	if err != nil {
		c.logger.Error("could not marshal message", "event", event, "error", err)
		return
	}
	c.Queue(data)
}

func (c *Client) reject(roomId, op, filename, code, message string) {
	c.Emit(types.WireMessageTypeError, types.ErrorMessage{Room: roomId, Code: code, Op: op, Filename: filename, Message: message})
}

// readLimit is the frame size of a content update carrying maxFileSize bytes that all need escaping. 0 means no
// limit, the hub still checks the decoded content.
func readLimit(maxFileSize int) int64 {
	if maxFileSize <= 0 {
		return 0
	}
	return int64(types.MaxEncodedSize(maxFileSize)) + messageOverhead
}

// ReadLoop pumps messages from the websocket connection to the hub.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.leaveRoom(eventDisconnect)
		c.Close()
		c.Done()
	}()
	c.conn.SetReadLimit(readLimit(c.registry.cfg.RoomsConfig.MaxFileSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("ws closed unexpected", "error", err)
			}
			return
		}
		message := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			c.logger.Warn("could not unmarshal ws message", "error", err)
			c.reject("", "", "", types.ErrorCodeBadRequest, "malformed message")
			continue
		}
		c.dispatch(message)
	}
}

func (c *Client) dispatch(message types.WebsocketMessage) {
	data := make(map[string]interface{})
	if len(message.Data) > 0 {
		if err := json.Unmarshal(message.Data, &data); err != nil {
			c.reject("", message.Event, "", types.ErrorCodeBadRequest, "data is not an object")
			return
		}
	}
	roomId, _ := data["room"].(string)
	filename, _ := data["filename"].(string)
	payload, err := decodeIntent(message.Event, data)
	if err != nil {
		c.logger.Debug("could not decode intent", "event", message.Event, "error", err)
		c.reject(roomId, message.Event, filename, types.ErrorCodeBadRequest, err.Error())
		return
	}
	switch message.Event {
	case types.WireMessageTypeJoin:
		c.joinRoom(payload.(types.JoinMessage))

	case types.WireMessageTypeLeave:
		if c.hub != nil && roomId == c.roomId {
			c.leaveRoom(types.WireMessageTypeLeave)
		}

	default:
		if c.hub == nil || roomId != c.roomId {
			c.reject(roomId, message.Event, filename, types.ErrorCodeNotJoined, "not a member of room "+roomId)
			return
		}
		c.hub.submit(inbound{client: c, event: message.Event, payload: payload})
	}
}

// joinRoom moves the connection into msg.Room, leaving the previous room. Joining the current room again
// re-sends the snapshot.
func (c *Client) joinRoom(msg types.JoinMessage) {
	msg.Room = strings.TrimSpace(msg.Room)
	if msg.Room == "" {
		c.reject("", types.WireMessageTypeJoin, "", types.ErrorCodeBadRequest, "empty room id")
		return
	}
	if c.hub != nil && c.roomId != msg.Room {
		c.leaveRoom(types.WireMessageTypeLeave)
	}
	if c.hub == nil {
		c.hub = c.registry.Acquire(msg.Room)
		c.roomId = msg.Room
	}
	c.hub.submit(inbound{client: c, event: types.WireMessageTypeJoin, payload: msg})
}

func (c *Client) leaveRoom(event string) {
	if c.hub == nil {
		return
	}
	c.hub.submit(inbound{client: c, event: event})
	c.registry.Release(c.roomId)
	c.hub = nil
	c.roomId = ""
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.Done()
	}()
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("could not write to ws connection, exiting write loop", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("could not send ping message, exiting write loop")
				return
			}

		case <-c.done:
			return
		}
	}
}
