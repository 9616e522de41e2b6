package ws

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Control frame types sent by the server outside the domain event table.
const (
	frameConnected    = "connected"
	frameSubscribed   = "subscribed"
	frameUnsubscribed = "unsubscribed"
	framePong         = "pong"
	frameError        = "error"
)

type controlFrame struct {
	Type   string `json:"type"`
	RoomID int    `json:"room_id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type clientFrame struct {
	Action string `json:"action"`
	RoomID int    `json:"room_id"`
}

func newConnID() string {
	return uuid.NewString()
}

func encodeControl(typ string, roomID int, data any) []byte {
	payload, _ := json.Marshal(controlFrame{Type: typ, RoomID: roomID, Data: data})
	return payload
}

func errorFrame(roomID int, message string) []byte {
	return encodeControl(frameError, roomID, map[string]string{"error": message})
}
