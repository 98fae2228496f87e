package httpclient

import (
	"time"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the bugstream server,
	// e.g. http://localhost:8080
	ServerURL string

	// Timeout applies to individual REST requests
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for Config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// AuthResponse represents a login response
type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PublishBugRequest represents a bug update event to ingest
type PublishBugRequest struct {
	EventType     string                  `json:"eventType"`
	Bug           bugstream.Bug           `json:"bug"`
	Changes       []bugstream.FieldChange `json:"changes,omitempty"`
	Actor         string                  `json:"actor,omitempty"`
	Source        string                  `json:"source,omitempty"`
	CorrelationID string                  `json:"correlationId,omitempty"`
}

// PublishAnalyticsRequest represents an analytics update event to ingest
type PublishAnalyticsRequest struct {
	AnalyticsType string              `json:"analyticsType"`
	Metrics       map[string]any      `json:"metrics"`
	Period        bugstream.TimeRange `json:"period"`
	CorrelationID string              `json:"correlationId,omitempty"`
}

// PublishResponse represents an event ingestion response
type PublishResponse struct {
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsResponse represents the server's streaming statistics
type StatsResponse struct {
	TotalConnections         int    `json:"totalConnections"`
	AuthenticatedConnections int    `json:"authenticatedConnections"`
	TotalSubscriptions       int    `json:"totalSubscriptions"`
	BugQueueDepth            int    `json:"bugQueueDepth"`
	AnalyticsQueueDepth      int    `json:"analyticsQueueDepth"`
	EventsDelivered          uint64 `json:"eventsDelivered"`
	EventsDropped            uint64 `json:"eventsDropped"`
	SendFailures             uint64 `json:"sendFailures"`
	AvgConnectionDurationNs  int64  `json:"avgConnectionDurationNs"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	Connections int       `json:"connections"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
