// api/handlers/funnel_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"funnelpulse/api/analytics"
	"funnelpulse/api/models"
	"funnelpulse/api/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FunnelHandlers struct {
	FunnelStore *store.FunnelStore
	Engine      *analytics.Engine
	logger      *zap.Logger
}

func NewFunnelHandlers(funnelStore *store.FunnelStore, engine *analytics.Engine, logger *zap.Logger) *FunnelHandlers {
	return &FunnelHandlers{
		FunnelStore: funnelStore,
		Engine:      engine,
		logger:      logger,
	}
}

type createFunnelRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Steps     []struct {
		Name          string               `json:"name" binding:"required"`
		MatchCriteria models.MatchCriteria `json:"matchCriteria"`
	} `json:"steps" binding:"required,min=1,dive"`
}

func (h *FunnelHandlers) CreateFunnel(c *gin.Context) {
	var req createFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	steps := make([]models.FunnelStep, 0, len(req.Steps))
	for _, s := range req.Steps {
		if s.MatchCriteria.EventType == "" && s.MatchCriteria.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Each step needs an eventType or url match criterion"})
			return
		}
		steps = append(steps, models.FunnelStep{
			Name:          s.Name,
			MatchCriteria: s.MatchCriteria,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	funnel, err := h.FunnelStore.CreateFunnel(ctx, req.ProjectID, req.Name, steps)
	if err != nil {
		h.logger.Error("error creating funnel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create funnel"})
		return
	}

	c.JSON(http.StatusCreated, funnel)
}

func (h *FunnelHandlers) ListFunnels(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId query parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	funnels, err := h.FunnelStore.ListFunnels(ctx, projectID)
	if err != nil {
		h.logger.Error("error listing funnels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list funnels"})
		return
	}

	c.JSON(http.StatusOK, funnels)
}

func (h *FunnelHandlers) GetFunnel(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	funnel, err := h.FunnelStore.GetFunnel(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		h.logger.Error("error getting funnel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get funnel"})
		return
	}

	c.JSON(http.StatusOK, funnel)
}

func (h *FunnelHandlers) DeleteFunnel(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.FunnelStore.DeleteFunnel(ctx, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		h.logger.Error("error deleting funnel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete funnel"})
		return
	}

	c.Status(http.StatusNoContent)
}

// AnalyzeFunnel runs a full step-conversion analysis over the requested time
// range, with optional deviceType/trafficSource/country facet filters.
func (h *FunnelHandlers) AnalyzeFunnel(c *gin.Context) {
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	opts := analytics.AnalysisOptions{
		DeviceType:    c.Query("deviceType"),
		TrafficSource: c.Query("trafficSource"),
		Country:       c.Query("country"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.Engine.AnalyzeFunnel(ctx, c.Param("id"), start, end, opts)
	if err != nil {
		if errors.Is(err, analytics.ErrFunnelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		h.logger.Error("error analyzing funnel", zap.String("funnel_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze funnel"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeFunnelCohorts buckets funnel entries by day, week, or month and
// tracks per-cohort conversion over time.
func (h *FunnelHandlers) AnalyzeFunnelCohorts(c *gin.Context) {
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	period := analytics.CohortPeriod(c.DefaultQuery("period", "day"))
	if !period.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be one of: day, week, month"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	results, err := h.Engine.AnalyzeFunnelCohorts(ctx, c.Param("id"), start, end, period)
	if err != nil {
		if errors.Is(err, analytics.ErrFunnelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		h.logger.Error("error analyzing cohorts", zap.String("funnel_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze funnel cohorts"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// SuggestFunnels proposes candidate funnels from recurring page-view paths.
func (h *FunnelHandlers) SuggestFunnels(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId query parameter is required"})
		return
	}

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	minSessions := 10
	if minParam := c.Query("minSessions"); minParam != "" {
		parsed, err := strconv.Atoi(minParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'minSessions' parameter. Must be a positive integer."})
			return
		}
		minSessions = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	candidates, err := h.Engine.SuggestFunnels(ctx, projectID, start, end, minSessions)
	if err != nil {
		h.logger.Error("error suggesting funnels", zap.String("project_id", projectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute funnel suggestions"})
		return
	}

	c.JSON(http.StatusOK, candidates)
}

// parseTimeRange reads RFC3339 start/end query params, defaulting to the last
// 7 days. On a malformed value it writes the 400 response and returns ok=false.
func parseTimeRange(c *gin.Context) (start, end time.Time, ok bool) {
	var err error

	startParam := c.Query("start")
	if startParam != "" {
		start, err = time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
	} else {
		start = time.Now().UTC().Add(-7 * 24 * time.Hour)
	}

	endParam := c.Query("end")
	if endParam != "" {
		end, err = time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
	} else {
		end = time.Now().UTC()
	}

	return start, end, true
}
