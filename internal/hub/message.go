package hub

import (
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every outbound message.
type Envelope struct {
	ID        string         `json:"id"`
	TimestampMs int64        `json:"timestamp_ms"`
	Version   string         `json:"version"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

const wireVersion = "2.0"

func newEnvelope(msgType string, data map[string]any) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		TimestampMs: time.Now().UnixMilli(),
		Version:     wireVersion,
		Type:        msgType,
		Data:        data,
	}
}

// Inbound command types.
const (
	CmdPing           = "ping"
	CmdSubscribe      = "subscribe"
	CmdUnsubscribe    = "unsubscribe"
	CmdProjectSelect  = "project_select"
	CmdProjectStart   = "project_start"
	CmdProjectStop    = "project_stop"
)

// Outbound response/push types.
const (
	RespPong            = "pong"
	RespSubscribed      = "subscribed"
	RespUnsubscribed    = "unsubscribed"
	RespProjectSelected = "project_selected"
	RespStatusChange    = "status_change"
	RespError           = "error"
	RespGestureData     = "gesture_data"
	RespConnected       = "connected"
	RespServerShutdown  = "server_shutdown"
)

// InboundMessage is the parsed shape of a client command.
type InboundMessage struct {
	Type    string `json:"type"`
	Project string `json:"project,omitempty"`
}
