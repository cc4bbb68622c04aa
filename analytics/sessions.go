// api/analytics/sessions.go
package analytics

import "funnelpulse/api/models"

// SessionGroups partitions a flat event list into per-session sequences.
// Events keep the relative order in which they were supplied; the query layer
// is responsible for sorting ascending by timestamp, no re-sort happens here.
// Order records sessions by first appearance so that every aggregation pass
// over the groups is deterministic.
type SessionGroups struct {
	Order  []string
	Events map[string][]models.Event
}

// GroupBySession builds session groups from a flat event list. An empty input
// produces empty groups.
func GroupBySession(events []models.Event) SessionGroups {
	groups := SessionGroups{
		Events: make(map[string][]models.Event),
	}
	for _, ev := range events {
		if _, seen := groups.Events[ev.SessionID]; !seen {
			groups.Order = append(groups.Order, ev.SessionID)
		}
		groups.Events[ev.SessionID] = append(groups.Events[ev.SessionID], ev)
	}
	return groups
}
