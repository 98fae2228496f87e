package bugstream

// StreamType is a fixed category of bug/analytics events a subscription can
// request.
type StreamType string

const (
	// StreamBugUpdates is the catch-all bug stream: it matches every bug
	// event type unconditionally. The other bug streams each match exactly
	// one event type; the asymmetry is intentional.
	StreamBugUpdates    StreamType = "bug_updates"
	StreamNewBugs       StreamType = "new_bugs"
	StreamStatusChanges StreamType = "status_changes"
	StreamAssignments   StreamType = "assignments"
	StreamComments      StreamType = "comments"
	StreamResolutions   StreamType = "resolutions"

	// StreamAnalytics is the catch-all analytics stream; error_patterns and
	// user_actions narrow to a single analytics type each.
	StreamAnalytics     StreamType = "analytics"
	StreamErrorPatterns StreamType = "error_patterns"
	StreamUserActions   StreamType = "user_actions"
)

// Valid reports whether t is one of the known stream types.
func (t StreamType) Valid() bool {
	switch t {
	case StreamBugUpdates, StreamNewBugs, StreamStatusChanges, StreamAssignments,
		StreamComments, StreamResolutions, StreamAnalytics, StreamErrorPatterns,
		StreamUserActions:
		return true
	}
	return false
}

// Sensitive reports whether subscribing to t requires an authenticated
// connection.
func (t StreamType) Sensitive() bool {
	switch t {
	case StreamAnalytics, StreamErrorPatterns, StreamUserActions:
		return true
	}
	return false
}

// MatchesEventType reports whether a subscription to t receives bug events of
// the given event type. Analytics streams never match bug events.
func (t StreamType) MatchesEventType(eventType EventType) bool {
	switch t {
	case StreamBugUpdates:
		return true
	case StreamNewBugs:
		return eventType == EventCreated
	case StreamStatusChanges:
		return eventType == EventStatusChanged
	case StreamAssignments:
		return eventType == EventAssigned
	case StreamComments:
		return eventType == EventCommented
	case StreamResolutions:
		return eventType == EventResolved
	}
	return false
}

// MatchesAnalyticsType reports whether a subscription to t receives analytics
// events of the given analytics type. Bug streams never match analytics events.
func (t StreamType) MatchesAnalyticsType(analyticsType AnalyticsType) bool {
	switch t {
	case StreamAnalytics:
		return true
	case StreamErrorPatterns:
		return analyticsType == AnalyticsPatterns
	case StreamUserActions:
		return analyticsType == AnalyticsTrends
	}
	return false
}

// Format controls the shape of delivered event payloads.
type Format string

const (
	// FormatJSON is the default medium-detail projection.
	FormatJSON Format = "json"
	// FormatCompact carries only the minimal identifying fields.
	FormatCompact Format = "compact"
	// FormatDetailed carries the full event verbatim.
	FormatDetailed Format = "detailed"
)

// Valid reports whether f is a known payload format.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatCompact, FormatDetailed:
		return true
	}
	return false
}
