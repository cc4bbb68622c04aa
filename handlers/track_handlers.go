// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"funnelpulse/api/models"
	"funnelpulse/api/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TrackHandlers struct {
	EventStore *store.EventStore
	logger     *zap.Logger
}

func NewTrackHandlers(s *store.EventStore, logger *zap.Logger) *TrackHandlers {
	return &TrackHandlers{
		EventStore: s,
		logger:     logger,
	}
}

// TrackEvents ingests a batch of interaction events. The frontend sends an
// array of Event objects; event IDs and client IPs are assigned server-side.
func (h *TrackHandlers) TrackEvents(c *gin.Context) {
	var incomingEvents []models.Event
	if err := c.ShouldBindJSON(&incomingEvents); err != nil {
		h.logger.Warn("error binding incoming events", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(incomingEvents) == 0 {
		c.Status(http.StatusOK)
		return
	}

	eventsToInsert := make([]models.Event, 0, len(incomingEvents))
	for _, event := range incomingEvents {
		if event.ProjectID == "" || event.SessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Each event requires projectId and sessionId"})
			return
		}
		event.EventID = uuid.New().String()
		event.IPAddress = c.ClientIP()
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		eventsToInsert = append(eventsToInsert, event)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.EventStore.InsertEvents(ctx, eventsToInsert); err != nil {
		h.logger.Error("error inserting events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record events"})
		return
	}

	c.Status(http.StatusOK)
}
