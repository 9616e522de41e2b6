package ws

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roomloop/internal/observability"
)

const (
	defaultQueueSize = 64
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
	wsRoutingKey     = "ws_events.rooms"
)

// ChannelKind distinguishes room channels from personal user channels.
type ChannelKind string

const (
	ChannelRoom ChannelKind = "room"
	ChannelUser ChannelKind = "user"
)

// Channel is a named fan-out target such as room:12 or user:7.
type Channel struct {
	Kind ChannelKind `json:"kind"`
	ID   int         `json:"id"`
}

func RoomChannel(roomID int) Channel { return Channel{Kind: ChannelRoom, ID: roomID} }
func UserChannel(userID int) Channel { return Channel{Kind: ChannelUser, ID: userID} }

func (c Channel) String() string {
	return fmt.Sprintf("%s:%d", c.Kind, c.ID)
}

// Conn is the subset of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Frame is an encoded event addressed to one channel.
type Frame struct {
	Channel     Channel
	EventType   string
	Payload     []byte
	ExcludeUser int
	ExcludeConn string
}

func (f Frame) excludes(info ConnInfo) bool {
	if f.ExcludeConn != "" {
		return info.ConnID == f.ExcludeConn && info.UserID == f.ExcludeUser
	}
	return f.ExcludeUser != 0 && info.UserID == f.ExcludeUser
}

// Client is one registered connection with its own outbound queue.
type Client struct {
	hub      *Hub
	conn     Conn
	info     ConnInfo
	send     chan []byte
	channels map[Channel]struct{}
}

// Info returns the identity the client was registered with.
func (c *Client) Info() ConnInfo { return c.info }

// Hub routes frames to subscribed connections. Delivery never blocks: a client whose
// queue is full misses the frame.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	channels  map[Channel]map[*Client]struct{}
	queueSize int
	closed    bool
}

// NewHub creates an empty hub. queueSize bounds each client's outbound queue.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		clients:   make(map[*Client]struct{}),
		channels:  make(map[Channel]map[*Client]struct{}),
		queueSize: queueSize,
	}
}

// Run blocks until ctx is cancelled and then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	log.Printf("ws hub: shutting down")
	h.Close()
}

// Close disconnects every client. Later registrations are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// Register adds a connection and starts its writer. It returns nil once the hub is closed.
func (h *Hub) Register(conn Conn, info ConnInfo) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = conn.Close()
		return nil
	}
	c := &Client{
		hub:      h,
		conn:     conn,
		info:     info,
		send:     make(chan []byte, h.queueSize),
		channels: make(map[Channel]struct{}),
	}
	h.clients[c] = struct{}{}
	go c.writeLoop()
	return c
}

// Unregister drops the client from every channel and stops its writer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for ch := range c.channels {
		h.unsubscribeLocked(c, ch)
	}
	delete(h.clients, c)
	close(c.send)
}

// Subscribe adds the client to a channel. Subscribing twice is a no-op.
func (h *Hub) Subscribe(c *Client, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	subs, ok := h.channels[ch]
	if !ok {
		subs = make(map[*Client]struct{})
		h.channels[ch] = subs
	}
	subs[c] = struct{}{}
	c.channels[ch] = struct{}{}
}

// Unsubscribe removes the client from a channel.
func (h *Hub) Unsubscribe(c *Client, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(c, ch)
}

func (h *Hub) unsubscribeLocked(c *Client, ch Channel) {
	delete(c.channels, ch)
	if subs, ok := h.channels[ch]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, ch)
		}
	}
}

// DetachUser removes every connection of userID from the room channel. Their
// connections stay open.
func (h *Hub) DetachUser(roomID int, userID int) int {
	ch := RoomChannel(roomID)
	h.mu.Lock()
	defer h.mu.Unlock()
	detached := 0
	for c := range h.channels[ch] {
		if c.info.UserID == userID {
			h.unsubscribeLocked(c, ch)
			detached++
		}
	}
	return detached
}

// Subscribers reports how many connections listen on ch.
func (h *Hub) Subscribers(ch Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[ch])
}

// Deliver queues the frame for every subscriber of its channel not excluded by it and
// returns how many clients accepted it.
func (h *Hub) Deliver(f Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	queued := 0
	for c := range h.channels[f.Channel] {
		if f.excludes(c.info) {
			continue
		}
		select {
		case c.send <- f.Payload:
			queued++
			observability.IncFanoutDelivered(f.EventType)
		default:
			observability.IncFanoutDropped(f.EventType)
		}
	}
	return queued
}

// push queues a frame for this client only. Control frames use it.
func (c *Client) push(payload []byte) bool {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				c.hub.publishWSError(c.info, err)
				c.hub.Unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.publishWSError(c.info, err)
				c.hub.Unregister(c)
				return
			}
		}
	}
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey, info.lifecycle(eventWSError, err.Error()), headers)
	observability.IncWSEvent(eventWSError)
}
