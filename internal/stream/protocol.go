package stream

import (
	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// Client-to-server control actions.
const (
	actionAuthenticate = "authenticate"
	actionSubscribe    = "subscribe"
	actionUnsubscribe  = "unsubscribe"
	actionHeartbeat    = "heartbeat"
)

// clientCommand is the JSON shape of every inbound control message.
type clientCommand struct {
	Action         string                         `json:"action"`
	AuthToken      string                         `json:"authToken,omitempty"`
	Type           bugstream.StreamType           `json:"type,omitempty"`
	Filters        *bugstream.SubscriptionFilters `json:"filters,omitempty"`
	Format         bugstream.Format               `json:"format,omitempty"`
	SubscriptionID string                         `json:"subscriptionId,omitempty"`
}

// handshakeData is the payload of the connection_established message sent
// right after accept.
type handshakeData struct {
	ConnectionID  string `json:"connectionId"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

// subscriptionAck echoes the accepted configuration back to the client.
type subscriptionAck struct {
	SubscriptionID string                         `json:"subscriptionId"`
	StreamType     bugstream.StreamType           `json:"streamType"`
	Filters        *bugstream.SubscriptionFilters `json:"filters,omitempty"`
	Format         bugstream.Format               `json:"format"`
}

// subscriptionFailure reports why a subscribe/unsubscribe was rejected.
type subscriptionFailure struct {
	Error          string               `json:"error"`
	StreamType     bugstream.StreamType `json:"streamType,omitempty"`
	SubscriptionID string               `json:"subscriptionId,omitempty"`
}

// authResult reports the outcome of an in-band authenticate action.
type authResult struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

// heartbeatData carries the server clock so clients can confirm liveness.
type heartbeatData struct {
	ServerTime string `json:"serverTime"`
}
