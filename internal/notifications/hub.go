package notifications

import (
	"context"
	"errors"
	"sync"

	"sociallink/internal/observability"

	"github.com/gofiber/websocket/v2"
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Limits caps open streams. Zero fields take the defaults.
type Limits struct {
	PerUser int
	Total   int
}

func (l Limits) withDefaults() Limits {
	if l.PerUser <= 0 {
		l.PerUser = 12
	}
	if l.Total <= 0 {
		l.Total = 10000
	}
	return l
}

// Hub fans notifications out to the streams each user has open on this
// process. Cross-process delivery goes through the Notifier's Redis channel,
// which StartWiring feeds into Broadcast.
type Hub struct {
	limits Limits
	log    *observability.WSLogger

	mu      sync.RWMutex
	streams map[uint]map[*Client]struct{}
	open    int
	closed  bool
}

func NewHub(limits Limits) *Hub {
	return &Hub{
		limits:  limits.withDefaults(),
		log:     observability.NewWSLogger("notifications"),
		streams: make(map[uint]map[*Client]struct{}),
	}
}

func (h *Hub) Name() string { return "notification hub" }

// Register adds a stream for userID. It fails once the hub is shut down or
// a limit would be exceeded.
func (h *Hub) Register(userID uint, conn Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed, h.open >= h.limits.Total:
		return nil, ErrServerFull
	case len(h.streams[userID]) >= h.limits.PerUser:
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[*Client]struct{})
	}
	h.streams[userID][client] = struct{}{}
	h.open++
	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes client and closes its send queue. Calling it
// again for the same client does nothing.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.streams[client.UserID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.streams, client.UserID)
	}
	h.open--
	observability.WebSocketConnectionsTotal.Dec()
	client.closeSend()
	h.log.LogDisconnect(context.Background(), client.UserID, "unregistered")
}

// Broadcast queues message on every stream userID has open here.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.streams[userID]) == 0 {
		return
	}
	frame := []byte(message)
	for c := range h.streams[userID] {
		c.TrySend(frame)
	}
}

func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.open
}

// StartWiring forwards every message published on a user channel to that
// user's local streams until ctx is cancelled.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if userID, ok := ParseUserChannel(channel); ok {
			h.Broadcast(userID, payload)
			return
		}
		observability.GlobalLogger.Warn("dropping message on unexpected channel", "channel", channel)
	})
}

// Shutdown sends every stream a going-away close frame and refuses new
// registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for userID, set := range h.streams {
		for client := range set {
			client.closeSend()
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage, goingAway); err != nil {
				h.log.LogError(context.Background(), userID, err, "close")
			}
			_ = client.Conn.Close()
		}
	}
	observability.WebSocketConnectionsTotal.Sub(float64(h.open))
	h.streams = make(map[uint]map[*Client]struct{})
	h.open = 0
	return nil
}
