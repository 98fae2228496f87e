package bugstream

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of StreamMessage on the wire.
type MessageType string

const (
	MessageConnectionEstablished MessageType = "connection_established"
	MessageSubscriptionSuccess   MessageType = "subscription_success"
	MessageSubscriptionError     MessageType = "subscription_error"
	MessageEvent                 MessageType = "event"
	MessageHeartbeat             MessageType = "heartbeat"
	MessageError                 MessageType = "error"
)

// WebSocket close codes used when the server tears a connection down.
const (
	// CloseShutdown is sent when the service is shutting down or the client
	// should reconnect elsewhere (RFC 6455 "going away").
	CloseShutdown = 1001
	// CloseOverloaded is sent when the connection cap is reached
	// (RFC 6455 "try again later").
	CloseOverloaded = 1013
	// CloseStale is the application close code for liveness eviction.
	CloseStale = 4408
)

// StreamMessage is the protocol envelope for every server-to-client message.
// It is the only entity serialized onto the wire.
type StreamMessage struct {
	MessageID      string      `json:"messageId"`
	Type           MessageType `json:"type"`
	SubscriptionID string      `json:"subscriptionId,omitempty"`
	Data           any         `json:"data,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	CorrelationID  string      `json:"correlationId,omitempty"`
}

// NewStreamMessage creates an envelope of the given type with a generated
// message id and the current server time.
func NewStreamMessage(messageType MessageType, data any) StreamMessage {
	return StreamMessage{
		MessageID: uuid.NewString(),
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorMessage creates an `error` envelope reporting a protocol-level
// problem to the offending client. The connection stays open.
func NewErrorMessage(reason string, details string) StreamMessage {
	data := map[string]string{"error": reason}
	if details != "" {
		data["details"] = details
	}
	return NewStreamMessage(MessageError, data)
}
