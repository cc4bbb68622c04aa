// api/analytics/cohorts.go
package analytics

import (
	"fmt"
	"time"

	"funnelpulse/api/models"
)

// cohortDayWindow is the number of day_N progression windows tracked per
// cohort (day_0 through day_29).
const cohortDayWindow = 30

// CohortResult describes one cohort bucket: the sessions that first entered
// the funnel within the bucket, their cumulative step conversions measured up
// to the moment of analysis, and their day-by-day progression.
//
// StepConversions is an open-ended "as of now" measurement, so repeated calls
// on different days legitimately return different numbers for the same
// bucket. DayRanges windows are fixed relative to the bucket start and are
// reproducible.
type CohortResult struct {
	CohortDate      time.Time                 `json:"cohortDate"`
	TotalUsers      int                       `json:"totalUsers"`
	StepConversions map[string]int            `json:"stepConversions"`
	DayRanges       map[string]map[string]int `json:"dayRanges"`
}

// CohortPeriod controls cohort bucket width.
type CohortPeriod string

const (
	PeriodDay   CohortPeriod = "day"
	PeriodWeek  CohortPeriod = "week"
	PeriodMonth CohortPeriod = "month"
)

// Valid reports whether the period is one of day, week, or month.
func (p CohortPeriod) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return true
	}
	return false
}

// next applies one period increment to t. Months are calendar months.
func (p CohortPeriod) next(t time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	case PeriodMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// TrackCohorts buckets sessions by when their first event matching the funnel
// entry step occurred, then measures per-cohort cumulative conversion per step
// and day_0..day_29 progression.
func TrackCohorts(funnel *models.FunnelDefinition, groups SessionGroups, start, end time.Time, period CohortPeriod, now time.Time) []CohortResult {
	if funnel == nil || len(funnel.Steps) == 0 {
		return []CohortResult{}
	}
	entryStep := funnel.Steps[0]

	// First entry-step match per session, computed once.
	entryTimes := make(map[string]time.Time)
	for _, sid := range groups.Order {
		for _, ev := range groups.Events[sid] {
			if stepMatches(ev, entryStep) {
				entryTimes[sid] = ev.Timestamp
				break
			}
		}
	}

	var results []CohortResult
	for bucketStart := start; !bucketStart.After(end); bucketStart = period.next(bucketStart) {
		bucketEnd := period.next(bucketStart)

		var cohortSessions []string
		for _, sid := range groups.Order {
			entry, ok := entryTimes[sid]
			if !ok {
				continue
			}
			if !entry.Before(bucketStart) && entry.Before(bucketEnd) {
				cohortSessions = append(cohortSessions, sid)
			}
		}

		result := CohortResult{
			CohortDate:      bucketStart,
			TotalUsers:      len(cohortSessions),
			StepConversions: make(map[string]int),
			DayRanges:       make(map[string]map[string]int),
		}

		for _, step := range funnel.Steps {
			result.StepConversions[step.ID] = countReachedWithin(cohortSessions, groups, step, bucketStart, now)
		}

		for day := 0; day < cohortDayWindow; day++ {
			windowEnd := bucketStart.Add(time.Duration(day+1) * 24 * time.Hour)
			dayKey := fmt.Sprintf("day_%d", day)
			result.DayRanges[dayKey] = make(map[string]int)
			for _, step := range funnel.Steps {
				result.DayRanges[dayKey][step.ID] = countReachedWithin(cohortSessions, groups, step, bucketStart, windowEnd)
			}
		}

		results = append(results, result)
	}
	if results == nil {
		results = []CohortResult{}
	}
	return results
}

// countReachedWithin counts distinct sessions with an event matching the step
// inside [from, to).
func countReachedWithin(sessionIDs []string, groups SessionGroups, step models.FunnelStep, from, to time.Time) int {
	count := 0
	for _, sid := range sessionIDs {
		for _, ev := range groups.Events[sid] {
			if !stepMatches(ev, step) {
				continue
			}
			if !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
				count++
				break
			}
		}
	}
	return count
}
