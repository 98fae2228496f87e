package bugstream

import "github.com/samber/lo"

// SubscriptionFilters is the structured predicate a client attaches to a
// subscription. Every field is optional; an unset field matches all events,
// a non-empty set requires membership of the corresponding bug field.
type SubscriptionFilters struct {
	Statuses   []string          `json:"status,omitempty"`
	Severities []string          `json:"severity,omitempty"`
	Assignees  []string          `json:"assignee,omitempty"`
	Query      map[string]string `json:"query,omitempty"`
}

// MatchesBug reports whether the bug snapshot passes the filter predicate.
// A nil filter matches everything.
func (f *SubscriptionFilters) MatchesBug(bug Bug) bool {
	if f == nil {
		return true
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, bug.Status) {
		return false
	}
	if len(f.Severities) > 0 && !lo.Contains(f.Severities, bug.Severity) {
		return false
	}
	if len(f.Assignees) > 0 && !lo.Contains(f.Assignees, bug.Assignee) {
		return false
	}
	for field, want := range f.Query {
		if bugField(bug, field) != want {
			return false
		}
	}
	return true
}

// bugField resolves a generic query filter key to the bug field it names.
// Unknown keys resolve to "" so they only match an explicit empty value.
func bugField(bug Bug, field string) string {
	switch field {
	case "id":
		return bug.ID
	case "title":
		return bug.Title
	case "status":
		return bug.Status
	case "severity":
		return bug.Severity
	case "assignee":
		return bug.Assignee
	case "reporter":
		return bug.Reporter
	}
	return ""
}
