package bugstream

// Transport is one message-oriented client link, a WebSocket in production.
// Implementations must tolerate Write/Close after the peer has gone away;
// the streaming service treats a closed transport as "skip", not an error.
type Transport interface {
	// Write sends one complete wire message to the client.
	Write(data []byte) error

	// Close tears the link down with a close code and reason. Closing an
	// already-closed transport is a no-op.
	Close(code int, reason string) error

	// Open reports whether the link is currently writable.
	Open() bool
}

// Identity is the result of a successful credential validation.
type Identity struct {
	UserID string
	Admin  bool
}

// TokenValidator is the external API-key/token validation capability. The
// streaming service never issues credentials itself; it only delegates.
type TokenValidator interface {
	// Authenticate validates a caller-supplied token. A non-nil error means
	// the token is invalid; the service treats this as non-fatal.
	Authenticate(token string) (Identity, error)
}

// TelemetrySink receives named operational events with structured metadata
// (connection opened/closed, subscription created, events dropped, ...).
// Implementations must be safe for concurrent use and must not block.
type TelemetrySink interface {
	Record(event string, fields map[string]any)
}
