package analytics

import (
	"fmt"
	"time"

	"funnelpulse/api/models"
)

var testBase = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func typedEvent(sessionID, eventType string, at time.Time) models.Event {
	return models.Event{
		ProjectID: "proj-1",
		SessionID: sessionID,
		EventType: eventType,
		Timestamp: at,
	}
}

func pageView(sessionID, url string, at time.Time) models.Event {
	return models.Event{
		ProjectID: "proj-1",
		SessionID: sessionID,
		EventType: "page_view",
		PageURL:   url,
		Timestamp: at,
	}
}

func typeStep(id, name, eventType string) models.FunnelStep {
	return models.FunnelStep{
		ID:            id,
		Name:          name,
		MatchCriteria: models.MatchCriteria{EventType: eventType},
	}
}

// funnelEvents builds sessions for a simple typed funnel: of total sessions,
// the first reachStep1 also emit step1's event type and the first reachStep2
// of those also emit step2's. Events within a session are one minute apart.
func funnelEvents(total, reachStep1, reachStep2 int, types [3]string) []models.Event {
	var events []models.Event
	for i := 0; i < total; i++ {
		sid := fmt.Sprintf("session-%03d", i)
		at := testBase.Add(time.Duration(i) * time.Second)
		events = append(events, typedEvent(sid, types[0], at))
		if i < reachStep1 {
			events = append(events, typedEvent(sid, types[1], at.Add(time.Minute)))
		}
		if i < reachStep2 {
			events = append(events, typedEvent(sid, types[2], at.Add(2*time.Minute)))
		}
	}
	return events
}
