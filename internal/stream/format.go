package stream

import (
	"time"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// compactBugEvent carries exactly the minimal identifying fields and nothing
// else.
type compactBugEvent struct {
	EventID   string              `json:"eventId"`
	EventType bugstream.EventType `json:"eventType"`
	BugID     string              `json:"bugId"`
	Timestamp time.Time           `json:"timestamp"`
}

// bugSummary is the medium-detail bug projection used by the default format.
type bugSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Severity string `json:"severity"`
	Assignee string `json:"assignee,omitempty"`
}

type jsonBugEvent struct {
	EventID   string                  `json:"eventId"`
	EventType bugstream.EventType     `json:"eventType"`
	Bug       bugSummary              `json:"bug"`
	Changes   []bugstream.FieldChange `json:"changes,omitempty"`
	Actor     string                  `json:"actor,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// projectBugEvent shapes a bug event for delivery in the subscription's
// declared format: compact keeps identifying fields only, detailed is the
// full event verbatim, and json (the default) is a fixed medium projection.
func projectBugEvent(event *bugstream.BugUpdateEvent, format bugstream.Format) any {
	switch format {
	case bugstream.FormatCompact:
		return compactBugEvent{
			EventID:   event.EventID,
			EventType: event.Type,
			BugID:     event.Bug.ID,
			Timestamp: event.Timestamp,
		}
	case bugstream.FormatDetailed:
		return event
	default:
		return jsonBugEvent{
			EventID:   event.EventID,
			EventType: event.Type,
			Bug: bugSummary{
				ID:       event.Bug.ID,
				Title:    event.Bug.Title,
				Status:   event.Bug.Status,
				Severity: event.Bug.Severity,
				Assignee: event.Bug.Assignee,
			},
			Changes:   event.Changes,
			Actor:     event.Actor,
			Timestamp: event.Timestamp,
		}
	}
}

type compactAnalyticsEvent struct {
	EventID       string                  `json:"eventId"`
	AnalyticsType bugstream.AnalyticsType `json:"analyticsType"`
	Timestamp     time.Time               `json:"timestamp"`
}

type jsonAnalyticsEvent struct {
	EventID       string                  `json:"eventId"`
	AnalyticsType bugstream.AnalyticsType `json:"analyticsType"`
	Metrics       map[string]any          `json:"metrics"`
	Period        bugstream.TimeRange     `json:"period"`
	Timestamp     time.Time               `json:"timestamp"`
}

// projectAnalyticsEvent is the analytics counterpart of projectBugEvent.
func projectAnalyticsEvent(event *bugstream.AnalyticsUpdateEvent, format bugstream.Format) any {
	switch format {
	case bugstream.FormatCompact:
		return compactAnalyticsEvent{
			EventID:       event.EventID,
			AnalyticsType: event.Type,
			Timestamp:     event.Timestamp,
		}
	case bugstream.FormatDetailed:
		return event
	default:
		return jsonAnalyticsEvent{
			EventID:       event.EventID,
			AnalyticsType: event.Type,
			Metrics:       event.Metrics,
			Period:        event.Period,
			Timestamp:     event.Timestamp,
		}
	}
}
