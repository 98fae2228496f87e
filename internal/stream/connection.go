package stream

import (
	"time"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// Metadata is transport-level descriptive information captured at accept
// time. It is never consulted for authorization decisions.
type Metadata struct {
	RemoteAddr string
	UserAgent  string
}

// Connection is one live client transport link. It is owned exclusively by
// the service registry, which is the only component permitted to delete it;
// deletion cascades to every subscription the connection holds.
//
// All fields are guarded by the service mutex.
type Connection struct {
	id        string
	transport bugstream.Transport
	meta      Metadata

	authenticated bool
	userID        string
	tokenRef      string

	subscriptions map[string]*Subscription

	connectedAt  time.Time
	lastActivity time.Time
}

// ID returns the opaque connection id, unique for the process lifetime.
func (c *Connection) ID() string { return c.id }

// Authenticated reports whether the connection holds a validated identity.
func (c *Connection) Authenticated() bool { return c.authenticated }

// UserID returns the authenticated user id, or "" before authentication.
func (c *Connection) UserID() string { return c.userID }

// touch records inbound or outbound activity for liveness accounting.
func (c *Connection) touch(now time.Time) {
	c.lastActivity = now
}

// stale reports whether the connection has been inactive beyond the window.
func (c *Connection) stale(now time.Time, window time.Duration) bool {
	return now.Sub(c.lastActivity) > window
}
