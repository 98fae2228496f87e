package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// StreamConfig configures the WebSocket streaming client
type StreamConfig struct {
	// BufferSize for the message channel
	BufferSize int

	// HandshakeTimeout for the WebSocket dial
	HandshakeTimeout time.Duration
}

// SetDefaults sets reasonable default values for StreamConfig
func (sc *StreamConfig) SetDefaults() {
	if sc.BufferSize == 0 {
		sc.BufferSize = 100
	}
	if sc.HandshakeTimeout == 0 {
		sc.HandshakeTimeout = 10 * time.Second
	}
}

// command mirrors the server's inbound control message shape.
type command struct {
	Action         string                         `json:"action"`
	AuthToken      string                         `json:"authToken,omitempty"`
	Type           bugstream.StreamType           `json:"type,omitempty"`
	Filters        *bugstream.SubscriptionFilters `json:"filters,omitempty"`
	Format         bugstream.Format               `json:"format,omitempty"`
	SubscriptionID string                         `json:"subscriptionId,omitempty"`
}

// StreamClient is a WebSocket client for the real-time streaming endpoint.
// Control messages go out through the typed methods; everything the server
// sends arrives on the Messages channel.
type StreamClient struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	messages chan bugstream.StreamMessage
	errors   chan error
	done     chan struct{}

	closeOnce sync.Once
}

// Stream dials the server's WebSocket endpoint. The client's token, if set,
// is passed as the token query parameter for inline authentication.
func (c *Client) Stream(ctx context.Context, config StreamConfig) (*StreamClient, error) {
	config.SetDefaults()

	wsURL := c.baseURL.ResolveReference(&url.URL{Path: "/ws"})
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	}
	if c.token != "" {
		values := wsURL.Query()
		values.Set("token", c.token)
		wsURL.RawQuery = values.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	sc := &StreamClient{
		conn:     conn,
		messages: make(chan bugstream.StreamMessage, config.BufferSize),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}
	go sc.readLoop()
	return sc, nil
}

// Messages returns the channel for receiving server messages
func (sc *StreamClient) Messages() <-chan bugstream.StreamMessage {
	return sc.messages
}

// Errors returns the channel for receiving errors
func (sc *StreamClient) Errors() <-chan error {
	return sc.errors
}

// Done returns a channel that's closed when the connection ends
func (sc *StreamClient) Done() <-chan struct{} {
	return sc.done
}

// Authenticate sends an in-band authenticate action
func (sc *StreamClient) Authenticate(token string) error {
	return sc.send(command{Action: "authenticate", AuthToken: token})
}

// Subscribe requests a subscription to the given stream type. The server's
// response arrives on the Messages channel as a subscription_success or
// subscription_error message.
func (sc *StreamClient) Subscribe(streamType bugstream.StreamType, filters *bugstream.SubscriptionFilters, format bugstream.Format) error {
	return sc.send(command{
		Action:  "subscribe",
		Type:    streamType,
		Filters: filters,
		Format:  format,
	})
}

// Unsubscribe removes a subscription by id
func (sc *StreamClient) Unsubscribe(subscriptionID string) error {
	return sc.send(command{Action: "unsubscribe", SubscriptionID: subscriptionID})
}

// Heartbeat sends a client-initiated heartbeat
func (sc *StreamClient) Heartbeat() error {
	return sc.send(command{Action: "heartbeat"})
}

// Close sends a close frame and tears the connection down
func (sc *StreamClient) Close() error {
	var err error
	sc.closeOnce.Do(func() {
		sc.writeMu.Lock()
		_ = sc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		sc.writeMu.Unlock()
		err = sc.conn.Close()
	})
	<-sc.done
	return err
}

func (sc *StreamClient) send(cmd command) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.conn.WriteJSON(cmd)
}

// readLoop decodes server messages until the connection drops.
func (sc *StreamClient) readLoop() {
	defer close(sc.done)
	defer close(sc.messages)
	defer close(sc.errors)

	for {
		var msg bugstream.StreamMessage
		if err := sc.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case sc.errors <- fmt.Errorf("stream read: %w", err):
				default:
				}
			}
			return
		}
		select {
		case sc.messages <- msg:
		default:
			// Channel full, drop the message rather than block the read loop.
		}
	}
}
