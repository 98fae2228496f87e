package httpapi

import (
	"time"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// Request/Response types for the HTTP API

// AuthRequest represents a login request
type AuthRequest struct {
	UserID string `json:"userId"`
	Admin  bool   `json:"admin,omitempty"`
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
