package feed

import (
	"encoding/json"
	"time"

	"github.com/npezzotti/roomrent/internal/types"
)

type ServerMessage struct {
	Timestamp time.Time        `json:"timestamp"`
	Event     *types.RoomEvent `json:"event,omitempty"`
	Hello     *Hello           `json:"hello,omitempty"`
}

// Hello is sent once when a client connects.
type Hello struct {
	Clients int `json:"clients"`
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}
