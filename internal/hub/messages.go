package hub

import (
	"encoding/json"

	"launchpad-indexer/internal/domain"
)

// Message types sent by the server besides event types.
const (
	TypeWelcome      = "welcome"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypePong         = "pong"
	TypePrice        = "price"
	TypeMetrics      = "metrics"
	TypeError        = "error"
)

// Message types sent by clients.
const (
	ReqSubscribe   = "subscribe"
	ReqUnsubscribe = "unsubscribe"
	ReqPing        = "ping"
	ReqGetPrice    = "get_price"
	ReqGetMetrics  = "get_metrics"
)

const errInvalidMessage = "Invalid message format"

type request struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels,omitempty"`
	Token    string   `json:"token,omitempty"`
}

type eventMessage struct {
	Type      domain.EventType `json:"type"`
	Data      any              `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

type welcomeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

type channelsMessage struct {
	Type      string   `json:"type"`
	Channels  []string `json:"channels"`
	Timestamp int64    `json:"timestamp"`
}

type pongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type valueMessage struct {
	Type      string `json:"type"`
	Token     string `json:"token"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(errorMessage{Type: TypeError, Message: "internal error"})
	}
	return b
}
