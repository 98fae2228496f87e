package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jarvis-chat/bugstream/internal/stream"
	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	service *stream.Service
	jwtAuth *JWTAuth
	log     *zap.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(service *stream.Service, jwtAuth *JWTAuth, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		service: service,
		jwtAuth: jwtAuth,
		log:     logger,
	}
}

// Auth endpoints

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := validateContentType(r); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		h.writeError(w, "userId is required", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.UserID, req.Admin)
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		h.writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, AuthResponse{
		Token:     token,
		UserID:    req.UserID,
		ExpiresAt: expiresAt,
	}, http.StatusOK)
}

// Event ingestion endpoints

// PublishBugEvent handles POST /api/v1/events/bugs
func (h *Handlers) PublishBugEvent(w http.ResponseWriter, r *http.Request) {
	if err := validateContentType(r); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req PublishBugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	eventType := bugstream.EventType(req.EventType)
	if !eventType.Valid() {
		h.writeError(w, "Unknown event type: "+req.EventType, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Bug.ID) == "" {
		h.writeError(w, "bug.id is required", http.StatusBadRequest)
		return
	}

	event := bugstream.NewBugUpdateEvent(eventType, req.Bug, req.Changes)
	event.Actor = req.Actor
	event.Source = req.Source
	event.CorrelationID = req.CorrelationID
	if event.Actor == "" {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			event.Actor = claims.UserID
		}
	}

	h.service.BroadcastBugUpdate(event)

	h.writeJSON(w, PublishResponse{
		EventID:   event.EventID,
		Timestamp: event.Timestamp,
	}, http.StatusAccepted)
}

// PublishAnalyticsEvent handles POST /api/v1/events/analytics
func (h *Handlers) PublishAnalyticsEvent(w http.ResponseWriter, r *http.Request) {
	if err := validateContentType(r); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req PublishAnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	analyticsType := bugstream.AnalyticsType(req.AnalyticsType)
	if !analyticsType.Valid() {
		h.writeError(w, "Unknown analytics type: "+req.AnalyticsType, http.StatusBadRequest)
		return
	}

	event := bugstream.NewAnalyticsUpdateEvent(analyticsType, req.Metrics, req.Period)
	event.CorrelationID = req.CorrelationID

	h.service.BroadcastAnalyticsUpdate(event)

	h.writeJSON(w, PublishResponse{
		EventID:   event.EventID,
		Timestamp: event.Timestamp,
	}, http.StatusAccepted)
}

// Observability endpoints

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.service.Stats(), http.StatusOK)
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()
	h.writeJSON(w, HealthResponse{
		Status:      "healthy",
		Connections: stats.TotalConnections,
		Timestamp:   time.Now().UTC(),
	}, http.StatusOK)
}

// Helpers

func validateContentType(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/json") {
		return nil
	}
	return errInvalidContentType
}

// writeJSON writes a JSON response with the given status code
func (h *Handlers) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("response encoding failed", zap.Error(err))
	}
}

// writeError writes an error response as JSON
func (h *Handlers) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC(),
	}, status)
}
