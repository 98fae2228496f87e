package stream

import (
	"time"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// Subscription is one client-requested stream registration. It carries a
// weak back-reference to its owning connection (the id, never a pointer);
// the connection registry is the source of truth and cascade-deletes
// subscriptions when the connection goes away.
type Subscription struct {
	ID           string                          `json:"id"`
	ConnectionID string                          `json:"connectionId"`
	StreamType   bugstream.StreamType            `json:"streamType"`
	Filters      *bugstream.SubscriptionFilters  `json:"filters,omitempty"`
	Format       bugstream.Format                `json:"format"`
	CreatedAt    time.Time                       `json:"createdAt"`
	LastActivity time.Time                       `json:"lastActivity"`
}

// MatchesBug reports whether a bug event should be delivered on this
// subscription: the stream type must be compatible with the event type and
// every non-empty filter set must contain the corresponding bug field.
func (s *Subscription) MatchesBug(event *bugstream.BugUpdateEvent) bool {
	if !s.StreamType.MatchesEventType(event.Type) {
		return false
	}
	return s.Filters.MatchesBug(event.Bug)
}

// MatchesAnalytics reports whether an analytics event should be delivered on
// this subscription. Filters carry bug-query predicates only, so stream-type
// compatibility is the whole test.
func (s *Subscription) MatchesAnalytics(event *bugstream.AnalyticsUpdateEvent) bool {
	return s.StreamType.MatchesAnalyticsType(event.Type)
}
