// api/models/event.go
package models

import (
	"encoding/json"
	"time"
)

// Event represents a single recorded interaction (page view or custom event).
// Events are immutable once ingested; ordering within a session is by
// timestamp ascending.
type Event struct {
	EventID       string          `json:"eventId"`
	ProjectID     string          `json:"projectId"`
	SessionID     string          `json:"sessionId"`
	EventType     string          `json:"eventType"`
	EventName     string          `json:"eventName,omitempty"`
	PageURL       string          `json:"pageUrl,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	DeviceType    string          `json:"deviceType,omitempty"`
	TrafficSource string          `json:"trafficSource,omitempty"`
	Country       string          `json:"country,omitempty"`
	IPAddress     string          `json:"ipAddress,omitempty"`
	Properties    json.RawMessage `json:"properties,omitempty"`
}
