package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"roomloop/internal/auth"
	"roomloop/internal/observability"
)

const (
	pongWait       = 60 * time.Second
	maxClientFrame = 4096
)

// Membership reports whether a user may receive a room's events.
type Membership interface {
	IsActive(ctx context.Context, roomID int, userID int) (bool, error)
}

// Handler upgrades authenticated requests into hub clients.
type Handler struct {
	hub     *Hub
	tokens  auth.TokenValidator
	members Membership
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, tokens auth.TokenValidator, members Membership) *Handler {
	return &Handler{hub: hub, tokens: tokens, members: members}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, registers the client on its personal channel and
// serves subscribe/unsubscribe/ping frames until the transport closes.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("roomloop/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.Query("token")
	if token == "" {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	roomID := 0
	if raw := c.Query("room_id"); raw != "" {
		roomID, err = strconv.Atoi(raw)
		if err != nil || roomID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
			return
		}
		active, err := h.members.IsActive(ctx, roomID, claims.UserID)
		if err != nil || !active {
			c.JSON(http.StatusForbidden, gin.H{"error": "not an active participant of this room"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		Username:    claims.Username,
		RoomID:      roomID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := h.hub.Register(conn, info)
	if client == nil {
		return
	}
	h.hub.Subscribe(client, UserChannel(info.UserID))
	client.push(encodeControl(frameConnected, 0, map[string]any{"conn_id": info.ConnID, "user_id": info.UserID}))
	if roomID != 0 {
		h.hub.Subscribe(client, RoomChannel(roomID))
		client.push(encodeControl(frameSubscribed, roomID, nil))
	}

	headers := observability.BuildHeaders(requestID, traceID)
	observability.IncWSActive()
	observability.IncWSEvent(eventWSConnect)
	_ = observability.PublishEvent(ctx, wsRoutingKey, info.lifecycle(eventWSConnect, ""), headers)

	// The request context ends when Handle returns; the connection outlives it.
	connCtx := trace.ContextWithSpanContext(context.Background(), span.SpanContext())
	go h.readLoop(connCtx, conn, client, headers)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, headers map[string]string) {
	var closeReason string
	defer func() {
		h.hub.Unregister(client)
		observability.DecWSActive()
		observability.IncWSEvent(eventWSDisconnect)
		_ = observability.PublishEvent(ctx, wsRoutingKey, client.info.lifecycle(eventWSDisconnect, closeReason), headers)
		conn.Close()
	}()

	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(eventWSError)
				_ = observability.PublishEvent(ctx, wsRoutingKey, client.info.lifecycle(eventWSError, closeReason), headers)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleFrame(ctx, client, data)
	}
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		client.push(errorFrame(0, "invalid frame"))
		return
	}

	switch frame.Action {
	case "ping":
		client.push(encodeControl(framePong, 0, nil))
	case "subscribe":
		if frame.RoomID <= 0 {
			client.push(errorFrame(0, "invalid room id"))
			return
		}
		active, err := h.members.IsActive(ctx, frame.RoomID, client.info.UserID)
		if err != nil {
			log.Printf("ws: membership check room=%d user=%d: %v", frame.RoomID, client.info.UserID, err)
			client.push(errorFrame(frame.RoomID, "could not verify membership"))
			return
		}
		if !active {
			client.push(errorFrame(frame.RoomID, "not an active participant of this room"))
			return
		}
		h.hub.Subscribe(client, RoomChannel(frame.RoomID))
		client.push(encodeControl(frameSubscribed, frame.RoomID, nil))
	case "unsubscribe":
		if frame.RoomID <= 0 {
			client.push(errorFrame(0, "invalid room id"))
			return
		}
		h.hub.Unsubscribe(client, RoomChannel(frame.RoomID))
		client.push(encodeControl(frameUnsubscribed, frame.RoomID, nil))
	default:
		client.push(errorFrame(0, "unknown action"))
	}
}
