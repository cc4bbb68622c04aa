// api/models/funnel.go
package models

import "time"

// MatchCriteria decides which events count toward a funnel step.
// EventType criteria take precedence over the URL criterion: when EventType is
// set the URL is never consulted, even if both are present.
type MatchCriteria struct {
	EventType string `json:"eventType,omitempty"`
	EventName string `json:"eventName,omitempty"`
	URL       string `json:"url,omitempty"`
}

// FunnelStep is one ordered stage of a funnel. Step order 0 is the entry.
type FunnelStep struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Order         int           `json:"order"`
	MatchCriteria MatchCriteria `json:"matchCriteria"`
}

// FunnelDefinition is an ordered sequence of steps a visitor is expected to
// pass through. Steps are non-empty with unique, increasing order values.
type FunnelDefinition struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name"`
	Steps     []FunnelStep `json:"steps"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
