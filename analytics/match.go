// api/analytics/match.go
package analytics

import "funnelpulse/api/models"

// stepMatches reports whether a single event satisfies a step's criteria.
//
// EventType criteria are evaluated before the URL criterion: once EventType is
// set, the decision is made on event type (and name, when set) alone and the
// URL criterion is never consulted, even if present. Changing this precedence
// changes conversion-rate outputs, so it stays as is.
func stepMatches(ev models.Event, step models.FunnelStep) bool {
	c := step.MatchCriteria
	if c.EventType != "" {
		if ev.EventType != c.EventType {
			return false
		}
		if c.EventName != "" {
			return ev.EventName == c.EventName
		}
		return true
	}
	if c.URL != "" {
		// Exact string equality, no normalization of trailing slashes or
		// query strings.
		return ev.PageURL == c.URL
	}
	return false
}

// sessionReachesStep reports whether at least one event in the session matches
// the step.
func sessionReachesStep(events []models.Event, step models.FunnelStep) bool {
	for _, ev := range events {
		if stepMatches(ev, step) {
			return true
		}
	}
	return false
}
