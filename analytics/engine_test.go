package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"funnelpulse/api/models"
	"funnelpulse/api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEventSource struct {
	events     []models.Event
	err        error
	lastFilter store.EventFilter
}

func (f *fakeEventSource) QueryEvents(_ context.Context, filter store.EventFilter) ([]models.Event, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeFunnelSource struct {
	funnel *models.FunnelDefinition
	err    error
}

func (f *fakeFunnelSource) GetFunnel(_ context.Context, _ string) (*models.FunnelDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.funnel, nil
}

func testEngine(events *fakeEventSource, funnels *fakeFunnelSource) *Engine {
	return NewEngine(events, funnels, zap.NewNop())
}

func TestAnalyzeFunnel_FullResult(t *testing.T) {
	funnel := &models.FunnelDefinition{
		ID:        "funnel-1",
		ProjectID: "proj-1",
		Name:      "Purchase Funnel",
		Steps:     threeStepFunnel(),
	}
	events := &fakeEventSource{events: funnelEvents(100, 40, 10, [3]string{"visit", "signup", "purchase"})}
	engine := testEngine(events, &fakeFunnelSource{funnel: funnel})

	start := testBase
	end := testBase.AddDate(0, 0, 7)
	result, err := engine.AnalyzeFunnel(context.Background(), "funnel-1", start, end, AnalysisOptions{DeviceType: "mobile"})
	require.NoError(t, err)

	assert.Equal(t, 100, result.TotalUsers)
	assert.Equal(t, 10.0, result.OverallConversionRate)
	assert.Equal(t, start, result.TimeRange.Start)
	assert.Equal(t, end, result.TimeRange.End)
	require.NotNil(t, result.CriticalDropOff)
	assert.NotEmpty(t, result.Recommendations)

	// Facet filters reach the event query.
	assert.Equal(t, "proj-1", events.lastFilter.ProjectID)
	assert.Equal(t, "mobile", events.lastFilter.DeviceType)
}

func TestAnalyzeFunnel_NotFound(t *testing.T) {
	engine := testEngine(&fakeEventSource{}, &fakeFunnelSource{err: store.ErrNotFound})

	result, err := engine.AnalyzeFunnel(context.Background(), "missing", testBase, testBase, AnalysisOptions{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrFunnelNotFound)
}

func TestAnalyzeFunnel_DataAccessFailurePropagates(t *testing.T) {
	queryErr := errors.New("clickhouse unavailable")
	funnel := &models.FunnelDefinition{ID: "f", ProjectID: "p", Steps: threeStepFunnel()}
	engine := testEngine(&fakeEventSource{err: queryErr}, &fakeFunnelSource{funnel: funnel})

	result, err := engine.AnalyzeFunnel(context.Background(), "f", testBase, testBase, AnalysisOptions{})
	assert.Nil(t, result)
	// Failures surface as errors instead of being collapsed into an empty
	// result, so callers can tell "no data" from "query failed".
	assert.ErrorIs(t, err, queryErr)
	assert.NotErrorIs(t, err, ErrFunnelNotFound)
}

func TestAnalyzeFunnel_Deterministic(t *testing.T) {
	funnel := &models.FunnelDefinition{ID: "f", ProjectID: "p", Steps: threeStepFunnel()}
	events := &fakeEventSource{events: funnelEvents(60, 30, 9, [3]string{"visit", "signup", "purchase"})}
	engine := testEngine(events, &fakeFunnelSource{funnel: funnel})

	first, err := engine.AnalyzeFunnel(context.Background(), "f", testBase, testBase.AddDate(0, 0, 1), AnalysisOptions{})
	require.NoError(t, err)
	second, err := engine.AnalyzeFunnel(context.Background(), "f", testBase, testBase.AddDate(0, 0, 1), AnalysisOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyzeFunnel_EmptyEventSet(t *testing.T) {
	funnel := &models.FunnelDefinition{ID: "f", ProjectID: "p", Steps: threeStepFunnel()}
	engine := testEngine(&fakeEventSource{}, &fakeFunnelSource{funnel: funnel})

	result, err := engine.AnalyzeFunnel(context.Background(), "f", testBase, testBase, AnalysisOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalUsers)
	assert.Equal(t, 0.0, result.OverallConversionRate)
	assert.Nil(t, result.CriticalDropOff)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, 100.0, result.Steps[0].ConversionRate)
}

func TestAnalyzeFunnelCohorts_UsesInjectedClock(t *testing.T) {
	funnel := cohortFunnel()
	events := &fakeEventSource{events: []models.Event{
		typedEvent("s1", "signup", testBase.Add(time.Hour)),
		typedEvent("s1", "purchase", testBase.AddDate(0, 0, 45)),
	}}
	now := testBase.AddDate(0, 0, 50)
	engine := testEngine(events, &fakeFunnelSource{funnel: funnel}).
		WithClock(func() time.Time { return now })

	results, err := engine.AnalyzeFunnelCohorts(context.Background(), funnel.ID, testBase, testBase, PeriodDay)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The event query runs through "now", not the cohort range end.
	assert.Equal(t, now, events.lastFilter.End)
	assert.Equal(t, 1, results[0].StepConversions["goal"])
	assert.Equal(t, 0, results[0].DayRanges["day_29"]["goal"])

	// A fixed clock makes repeated cohort runs reproducible.
	again, err := engine.AnalyzeFunnelCohorts(context.Background(), funnel.ID, testBase, testBase, PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestAnalyzeFunnelCohorts_InvalidPeriod(t *testing.T) {
	engine := testEngine(&fakeEventSource{}, &fakeFunnelSource{funnel: cohortFunnel()})

	_, err := engine.AnalyzeFunnelCohorts(context.Background(), "f", testBase, testBase, CohortPeriod("hour"))
	assert.Error(t, err)
}

func TestAnalyzeFunnelCohorts_NotFound(t *testing.T) {
	engine := testEngine(&fakeEventSource{}, &fakeFunnelSource{err: store.ErrNotFound})

	_, err := engine.AnalyzeFunnelCohorts(context.Background(), "missing", testBase, testBase, PeriodDay)
	assert.ErrorIs(t, err, ErrFunnelNotFound)
}

func TestSuggestFunnels(t *testing.T) {
	events := &fakeEventSource{events: sessionsWithPath(150, 0, []string{"/", "/product", "/checkout"})}
	engine := testEngine(events, &fakeFunnelSource{})

	candidates, err := engine.SuggestFunnels(context.Background(), "proj-1", testBase, testBase.AddDate(0, 0, 1), 100)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 150, candidates[0].Occurrences)
}
