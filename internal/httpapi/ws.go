package httpapi

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jarvis-chat/bugstream/internal/stream"
	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

var errTransportClosed = errors.New("transport closed")

const writeTimeout = 10 * time.Second

// wsTransport adapts a gorilla WebSocket connection to the streaming core's
// Transport interface. Writes are serialized with a mutex because the core's
// scheduler and the control-message path run on different goroutines.
type wsTransport struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (t *wsTransport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTransportClosed
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	deadline := time.Now().Add(writeTimeout)
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	return t.conn.Close()
}

func (t *wsTransport) Open() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

var _ bugstream.Transport = (*wsTransport)(nil)

// WSHandler upgrades HTTP requests to WebSocket connections and bridges them
// into the streaming service.
type WSHandler struct {
	service  *stream.Service
	upgrader websocket.Upgrader
	log      *zap.Logger

	// maxMessageBytes caps inbound payloads at the transport layer before
	// they reach the service.
	maxMessageBytes int64
}

// NewWSHandler creates the upgrade handler. maxMessageBytes <= 0 defaults to
// 1 MiB.
func NewWSHandler(service *stream.Service, logger *zap.Logger, maxMessageBytes int64) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxMessageBytes <= 0 {
		maxMessageBytes = 1 << 20
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:             logger.Named("ws"),
		maxMessageBytes: maxMessageBytes,
	}
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// the client goes away. An optional token query parameter (or Authorization
// header) is passed through for inline authentication.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	transport := &wsTransport{conn: conn}
	meta := stream.Metadata{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}

	connectionID, err := h.service.Accept(transport, meta, token)
	if err != nil {
		// The service already closed the transport with the right code.
		h.log.Warn("connection rejected", zap.Error(err))
		return
	}

	h.readLoop(connectionID, conn)
}

// readLoop feeds inbound control messages to the service. Any read error,
// clean close included, tears the connection down exactly once.
func (h *WSHandler) readLoop(connectionID string, conn *websocket.Conn) {
	conn.SetReadLimit(h.maxMessageBytes)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			reason := "transport_error"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "client_closed"
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("websocket read error",
					zap.String("connectionId", connectionID),
					zap.Error(err))
			}
			h.service.Disconnect(connectionID, reason)
			return
		}
		if messageType == websocket.TextMessage {
			h.service.HandleMessage(connectionID, data)
		}
	}
}
