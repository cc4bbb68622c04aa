// api/store/event_store.go
package store

import (
	"context"
	"fmt"
	"time"

	"funnelpulse/api/database"
	"funnelpulse/api/models"

	"go.uber.org/zap"
)

// EventFilter enumerates the recognized query facets. Optional facets are
// applied only when non-empty.
type EventFilter struct {
	ProjectID     string
	Start         time.Time
	End           time.Time
	DeviceType    string
	TrafficSource string
	Country       string
}

type EventStore struct {
	DB     *database.ClickHouseClient
	logger *zap.Logger
}

func NewEventStore(chClient *database.ClickHouseClient, logger *zap.Logger) *EventStore {
	return &EventStore{
		DB:     chClient,
		logger: logger,
	}
}

// InsertEvents batch-inserts raw interaction events.
func (s *EventStore) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Column names and order must exactly match the ClickHouse table schema.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, project_id, session_id, event_type, event_name, page_url,
			timestamp, device_type, traffic_source, country, ip_address, properties
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.ProjectID,
			event.SessionID,
			event.EventType,
			event.EventName,
			event.PageURL,
			event.Timestamp,
			event.DeviceType,
			event.TrafficSource,
			event.Country,
			event.IPAddress,
			event.Properties,
		)
		if err != nil {
			s.logger.Error("error appending event to batch",
				zap.String("event_id", event.EventID), zap.Error(err))
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.Info("inserted events", zap.Int("count", len(events)))
	return nil
}

// QueryEvents returns all events matching the filter, ordered ascending by
// timestamp. The analysis engine relies on that ordering and performs no
// re-sort of its own.
func (s *EventStore) QueryEvents(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	if filter.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required for event queries")
	}

	query := `
		SELECT event_id, project_id, session_id, event_type, event_name, page_url,
		       timestamp, device_type, traffic_source, country
		FROM events
		WHERE project_id = ? AND timestamp >= ? AND timestamp < ?`
	args := []interface{}{filter.ProjectID, filter.Start, filter.End}

	if filter.DeviceType != "" {
		query += ` AND device_type = ?`
		args = append(args, filter.DeviceType)
	}
	if filter.TrafficSource != "" {
		query += ` AND traffic_source = ?`
		args = append(args, filter.TrafficSource)
	}
	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, filter.Country)
	}

	query += `
		ORDER BY timestamp ASC`

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var results []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(
			&ev.EventID,
			&ev.ProjectID,
			&ev.SessionID,
			&ev.EventType,
			&ev.EventName,
			&ev.PageURL,
			&ev.Timestamp,
			&ev.DeviceType,
			&ev.TrafficSource,
			&ev.Country,
		); err != nil {
			s.logger.Error("error scanning event row", zap.Error(err))
			continue
		}
		results = append(results, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event query: %w", err)
	}

	return results, nil
}
