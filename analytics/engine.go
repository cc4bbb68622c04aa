// api/analytics/engine.go
//
// Package analytics computes funnel conversion, cohort progression, and
// candidate funnels from raw interaction events. All derived structures are
// built fresh per call from a fresh event query and discarded afterwards;
// there is no shared mutable state across requests and no write path back to
// storage.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"funnelpulse/api/models"
	"funnelpulse/api/store"

	"go.uber.org/zap"
)

// ErrFunnelNotFound is returned when the requested funnel definition does not
// exist. Callers can distinguish it from data-access failures, which propagate
// as wrapped errors.
var ErrFunnelNotFound = errors.New("funnel not found")

// EventSource supplies raw events ordered ascending by timestamp.
type EventSource interface {
	QueryEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, error)
}

// FunnelSource supplies funnel definitions with steps in order.
type FunnelSource interface {
	GetFunnel(ctx context.Context, funnelID string) (*models.FunnelDefinition, error)
}

// AnalysisOptions carries the optional event facet filters.
type AnalysisOptions struct {
	DeviceType    string
	TrafficSource string
	Country       string
}

// TimeRange is the analyzed interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FunnelAnalysisResult is the full output of one funnel analysis.
type FunnelAnalysisResult struct {
	Funnel                models.FunnelDefinition `json:"funnel"`
	Steps                 []FunnelStepResult      `json:"steps"`
	TotalUsers            int                     `json:"totalUsers"`
	OverallConversionRate float64                 `json:"overallConversionRate"`
	CriticalDropOff       *FunnelStepResult       `json:"criticalDropOff"`
	Recommendations       []string                `json:"recommendations"`
	TimeRange             TimeRange               `json:"timeRange"`
}

// Engine is a plain constructed value; callers inject its dependencies, so
// independent engines can run side by side in tests.
type Engine struct {
	events  EventSource
	funnels FunnelSource
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(events EventSource, funnels FunnelSource, logger *zap.Logger) *Engine {
	return &Engine{
		events:  events,
		funnels: funnels,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the wall clock used for "as of now" cohort conversions.
// A fixed clock makes cohort analysis reproducible.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// AnalyzeFunnel computes step-by-step conversion statistics for a funnel over
// the given time range. Rerunning it against an unchanged event set yields
// identical results.
func (e *Engine) AnalyzeFunnel(ctx context.Context, funnelID string, start, end time.Time, opts AnalysisOptions) (*FunnelAnalysisResult, error) {
	funnel, err := e.getFunnel(ctx, funnelID)
	if err != nil {
		return nil, err
	}

	groups, err := e.loadSessions(ctx, funnel.ProjectID, start, end, opts)
	if err != nil {
		return nil, err
	}

	stepResults := AnalyzeSteps(funnel.Steps, groups)
	critical := CriticalDropOff(stepResults)

	result := &FunnelAnalysisResult{
		Funnel:          *funnel,
		Steps:           stepResults,
		CriticalDropOff: critical,
		Recommendations: Recommendations(stepResults, critical),
		TimeRange:       TimeRange{Start: start, End: end},
	}
	if len(stepResults) > 0 {
		result.TotalUsers = stepResults[0].UsersReachingStep
		first := stepResults[0].UsersReachingStep
		last := stepResults[len(stepResults)-1].UsersReachingStep
		if first > 0 {
			result.OverallConversionRate = float64(last) / float64(first) * 100
		}
	}

	e.logger.Info("funnel analyzed",
		zap.String("funnel_id", funnelID),
		zap.Int("sessions", len(groups.Order)),
		zap.Int("total_users", result.TotalUsers))
	return result, nil
}

// AnalyzeFunnelCohorts buckets funnel entries between start and end by the
// given period and tracks per-cohort conversion. Events are queried through
// the current moment because cumulative step conversions are measured "as of
// now"; see CohortResult.
func (e *Engine) AnalyzeFunnelCohorts(ctx context.Context, funnelID string, start, end time.Time, period CohortPeriod) ([]CohortResult, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("invalid cohort period %q", period)
	}

	funnel, err := e.getFunnel(ctx, funnelID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	groups, err := e.loadSessions(ctx, funnel.ProjectID, start, now, AnalysisOptions{})
	if err != nil {
		return nil, err
	}

	results := TrackCohorts(funnel, groups, start, end, period, now)
	e.logger.Info("cohorts analyzed",
		zap.String("funnel_id", funnelID),
		zap.String("period", string(period)),
		zap.Int("cohorts", len(results)))
	return results, nil
}

// SuggestFunnels mines the project's sessions for recurring page-view paths
// and proposes candidate funnels.
func (e *Engine) SuggestFunnels(ctx context.Context, projectID string, start, end time.Time, minSessions int) ([]CandidateFunnel, error) {
	groups, err := e.loadSessions(ctx, projectID, start, end, AnalysisOptions{})
	if err != nil {
		return nil, err
	}

	candidates := DetectFunnels(groups, minSessions)
	e.logger.Info("funnel suggestions computed",
		zap.String("project_id", projectID),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

func (e *Engine) getFunnel(ctx context.Context, funnelID string) (*models.FunnelDefinition, error) {
	funnel, err := e.funnels.GetFunnel(ctx, funnelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFunnelNotFound
		}
		return nil, fmt.Errorf("failed to load funnel %s: %w", funnelID, err)
	}
	return funnel, nil
}

func (e *Engine) loadSessions(ctx context.Context, projectID string, start, end time.Time, opts AnalysisOptions) (SessionGroups, error) {
	events, err := e.events.QueryEvents(ctx, store.EventFilter{
		ProjectID:     projectID,
		Start:         start,
		End:           end,
		DeviceType:    opts.DeviceType,
		TrafficSource: opts.TrafficSource,
		Country:       opts.Country,
	})
	if err != nil {
		return SessionGroups{}, fmt.Errorf("failed to query events: %w", err)
	}
	return GroupBySession(events), nil
}
