package bugstream

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a bug lifecycle change.
type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusChanged EventType = "status_changed"
	EventAssigned      EventType = "assigned"
	EventCommented     EventType = "commented"
	EventResolved      EventType = "resolved"
	EventReopened      EventType = "reopened"
)

// Valid reports whether t is one of the known bug event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventStatusChanged, EventAssigned,
		EventCommented, EventResolved, EventReopened:
		return true
	}
	return false
}

// AnalyticsType classifies an analytics update.
type AnalyticsType string

const (
	AnalyticsSummary     AnalyticsType = "summary"
	AnalyticsTrends      AnalyticsType = "trends"
	AnalyticsPatterns    AnalyticsType = "patterns"
	AnalyticsPerformance AnalyticsType = "performance"
)

// Valid reports whether t is one of the known analytics types.
func (t AnalyticsType) Valid() bool {
	switch t {
	case AnalyticsSummary, AnalyticsTrends, AnalyticsPatterns, AnalyticsPerformance:
		return true
	}
	return false
}

// Bug is the point-in-time snapshot carried by a BugUpdateEvent.
type Bug struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity"`
	Assignee    string    `json:"assignee,omitempty"`
	Reporter    string    `json:"reporter,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FieldChange records a single field-level change on a bug.
type FieldChange struct {
	Field    string `json:"field"`
	Previous any    `json:"previous"`
	New      any    `json:"new"`
}

// BugUpdateEvent is an immutable bug-change event produced by the bug
// lifecycle services and consumed by the delivery scheduler. Events are
// never mutated after construction; they are delivered and discarded.
type BugUpdateEvent struct {
	EventID       string        `json:"eventId"`
	Type          EventType     `json:"eventType"`
	Bug           Bug           `json:"bug"`
	Changes       []FieldChange `json:"changes,omitempty"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Actor         string        `json:"actor,omitempty"`
	Source        string        `json:"source,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewBugUpdateEvent creates a new BugUpdateEvent with a generated event id.
// The changes slice is copied so the caller cannot mutate the event afterwards.
func NewBugUpdateEvent(eventType EventType, bug Bug, changes []FieldChange) *BugUpdateEvent {
	var changesCopy []FieldChange
	if len(changes) > 0 {
		changesCopy = make([]FieldChange, len(changes))
		copy(changesCopy, changes)
	}

	return &BugUpdateEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Bug:       bug,
		Changes:   changesCopy,
		Timestamp: time.Now().UTC(),
	}
}

// TimeRange bounds the window an analytics payload was computed over.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AnalyticsUpdateEvent is an immutable analytics snapshot event. Same
// consumption discipline as BugUpdateEvent.
type AnalyticsUpdateEvent struct {
	EventID       string         `json:"eventId"`
	Type          AnalyticsType  `json:"analyticsType"`
	Metrics       map[string]any `json:"metrics"`
	Period        TimeRange      `json:"period"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewAnalyticsUpdateEvent creates a new AnalyticsUpdateEvent with a generated
// event id. The metrics map is copied to keep the event immutable.
func NewAnalyticsUpdateEvent(analyticsType AnalyticsType, metrics map[string]any, period TimeRange) *AnalyticsUpdateEvent {
	metricsCopy := make(map[string]any, len(metrics))
	for k, v := range metrics {
		metricsCopy[k] = v
	}

	return &AnalyticsUpdateEvent{
		EventID:   uuid.NewString(),
		Type:      analyticsType,
		Metrics:   metricsCopy,
		Period:    period,
		Timestamp: time.Now().UTC(),
	}
}
