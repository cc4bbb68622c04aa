package analytics

import (
	"fmt"
	"testing"
	"time"

	"funnelpulse/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cohortFunnel() *models.FunnelDefinition {
	return &models.FunnelDefinition{
		ID:        "funnel-1",
		ProjectID: "proj-1",
		Steps: []models.FunnelStep{
			typeStep("entry", "Signup", "signup"),
			typeStep("goal", "Purchase", "purchase"),
		},
	}
}

func TestTrackCohorts_BucketsByFirstEntryEvent(t *testing.T) {
	day0 := testBase
	day1 := testBase.AddDate(0, 0, 1)
	now := testBase.AddDate(0, 0, 60)

	var events []models.Event
	// s1 enters on day 0 and purchases two days later.
	events = append(events, typedEvent("s1", "signup", day0.Add(10*time.Hour)))
	events = append(events, typedEvent("s1", "purchase", day0.AddDate(0, 0, 2).Add(10*time.Hour)))
	// s2 enters on day 0, never purchases.
	events = append(events, typedEvent("s2", "signup", day0.Add(11*time.Hour)))
	// s3 enters on day 1 and purchases 40 days later, outside every day
	// window but inside the "as of now" measurement.
	events = append(events, typedEvent("s3", "signup", day1.Add(9*time.Hour)))
	events = append(events, typedEvent("s3", "purchase", day1.AddDate(0, 0, 40)))
	// s4 never matches the entry step at all.
	events = append(events, typedEvent("s4", "purchase", day0.Add(12*time.Hour)))

	results := TrackCohorts(cohortFunnel(), GroupBySession(events), day0, day1, PeriodDay, now)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, day0, first.CohortDate)
	assert.Equal(t, 2, first.TotalUsers)
	assert.Equal(t, 2, first.StepConversions["entry"])
	assert.Equal(t, 1, first.StepConversions["goal"])
	// The purchase lands on day 2, so it appears from the day_2 window on.
	assert.Equal(t, 0, first.DayRanges["day_0"]["goal"])
	assert.Equal(t, 0, first.DayRanges["day_1"]["goal"])
	assert.Equal(t, 1, first.DayRanges["day_2"]["goal"])
	assert.Equal(t, 1, first.DayRanges["day_29"]["goal"])
	assert.Equal(t, 2, first.DayRanges["day_0"]["entry"])

	second := results[1]
	assert.Equal(t, day1, second.CohortDate)
	assert.Equal(t, 1, second.TotalUsers)
	// s3's purchase happened 40 days in, beyond day_29 but within "now".
	assert.Equal(t, 1, second.StepConversions["goal"])
	assert.Equal(t, 0, second.DayRanges["day_29"]["goal"])
}

func TestTrackCohorts_DayRangesMonotonic(t *testing.T) {
	now := testBase.AddDate(0, 0, 90)

	var events []models.Event
	for i := 0; i < 20; i++ {
		sid := fmt.Sprintf("s%d", i)
		events = append(events, typedEvent(sid, "signup", testBase.Add(time.Duration(i)*time.Hour)))
		// Purchases spread out over the first four weeks.
		events = append(events, typedEvent(sid, "purchase", testBase.AddDate(0, 0, i+1).Add(time.Hour)))
	}

	results := TrackCohorts(cohortFunnel(), GroupBySession(events), testBase, testBase, PeriodDay, now)
	require.Len(t, results, 1)

	cohort := results[0]
	for _, stepID := range []string{"entry", "goal"} {
		prev := 0
		for day := 0; day < cohortDayWindow; day++ {
			count := cohort.DayRanges[fmt.Sprintf("day_%d", day)][stepID]
			assert.GreaterOrEqual(t, count, prev, "window day_%d must not shrink for %s", day, stepID)
			prev = count
		}
		assert.LessOrEqual(t,
			cohort.DayRanges["day_0"][stepID],
			cohort.DayRanges["day_29"][stepID])
	}
}

func TestTrackCohorts_WeekAndMonthPeriods(t *testing.T) {
	now := testBase.AddDate(1, 0, 0)
	events := []models.Event{
		typedEvent("s1", "signup", testBase.AddDate(0, 0, 8)), // second week, first month
	}

	weekly := TrackCohorts(cohortFunnel(), GroupBySession(events), testBase, testBase.AddDate(0, 0, 14), PeriodWeek, now)
	require.Len(t, weekly, 3)
	assert.Equal(t, 0, weekly[0].TotalUsers)
	assert.Equal(t, 1, weekly[1].TotalUsers)
	assert.Equal(t, 0, weekly[2].TotalUsers)

	monthly := TrackCohorts(cohortFunnel(), GroupBySession(events), testBase, testBase.AddDate(0, 1, 0), PeriodMonth, now)
	require.Len(t, monthly, 2)
	assert.Equal(t, 1, monthly[0].TotalUsers)
	assert.Equal(t, 0, monthly[1].TotalUsers)
}

func TestTrackCohorts_DegenerateFunnel(t *testing.T) {
	groups := GroupBySession([]models.Event{typedEvent("s1", "signup", testBase)})

	assert.Empty(t, TrackCohorts(nil, groups, testBase, testBase, PeriodDay, testBase))
	assert.Empty(t, TrackCohorts(&models.FunnelDefinition{ID: "empty"}, groups, testBase, testBase, PeriodDay, testBase))
}

func TestCohortPeriodValid(t *testing.T) {
	assert.True(t, PeriodDay.Valid())
	assert.True(t, PeriodWeek.Valid())
	assert.True(t, PeriodMonth.Valid())
	assert.False(t, CohortPeriod("hour").Valid())
	assert.False(t, CohortPeriod("").Valid())
}
