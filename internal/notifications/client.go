package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sociallink/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Clients only ever send {"type":"ping"}.
	maxFrameSize = 512
	sendBuffer   = 64
)

var (
	pongFrame  = []byte(`{"type":"pong"}`)
	dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
)

// Conn is the part of a websocket connection the pumps drive. The fiber
// websocket connection satisfies it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one open notification stream. Outbound frames are queued on
// Send and written by WritePump; ReadPump answers pings and detects close.
type Client struct {
	Hub    WSHub
	Conn   Conn
	UserID uint
	Send   chan []byte

	closeOnce sync.Once
}

func NewClient(hub WSHub, conn Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// handleFrame answers an application-level ping. Anything else is ignored.
func (c *Client) handleFrame(frame []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(frame, &msg) == nil && msg.Type == "ping" {
		c.TrySend(pongFrame)
	}
}

// ReadPump blocks until the peer disconnects or stops answering pings,
// then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.Conn.SetReadLimit(maxFrameSize)
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				observability.NewWSLogger(c.Hub.Name()).LogError(context.Background(), c.UserID, err, "read")
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// WritePump writes queued frames and a ping every pingPeriod. It returns
// once Send is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		var err error
		select {
		case frame, ok := <-c.Send:
			if !ok {
				_ = c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(websocket.TextMessage, frame)
		case <-ticker.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// TrySend queues frame without blocking. A slow client loses the frame and
// gets a messages_dropped notice instead, telling it to re-fetch.
func (c *Client) TrySend(frame []byte) {
	defer func() {
		// send on a closed channel after unregister
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- frame:
		return
	default:
	}
	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	select {
	case c.Send <- dropNotice:
	default:
	}
}
