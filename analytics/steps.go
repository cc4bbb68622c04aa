// api/analytics/steps.go
package analytics

import (
	"sort"

	"funnelpulse/api/models"
)

const (
	reasonQuickExit      = "Quick exit - potential usability issue"
	reasonTechnicalError = "Technical error encountered"

	// quickExitThresholdSeconds marks sessions that leave a step almost
	// immediately.
	quickExitThresholdSeconds = 5

	// significanceFloor is the minimum reached-user count for a step to be
	// eligible as the critical drop-off.
	significanceFloor = 50
)

// FunnelStepResult holds the computed statistics for one funnel step.
// Rates are percentages in [0,100]; no rounding is applied here, display
// formatting is the caller's concern.
type FunnelStepResult struct {
	Step                         models.FunnelStep `json:"step"`
	UsersReachingStep            int               `json:"usersReachingStep"`
	ConversionRate               float64           `json:"conversionRate"`
	DropOffRate                  float64           `json:"dropOffRate"`
	AverageTimeToNextStepSeconds float64           `json:"averageTimeToNextStepSeconds"`
	TopDropOffReasons            []string          `json:"topDropOffReasons"`
}

// AnalyzeSteps computes per-step reached counts, conversion and drop-off
// rates, average time to the next step, and heuristic drop-off reasons.
//
// Conversion for step 0 is 100 by definition; for later steps it is the ratio
// against the previous step's reached count, or 0 when that count is zero.
// Reached counts are not assumed monotonic: a later step with looser criteria
// can legitimately match more sessions than an earlier one, and the ratio is
// computed as specified regardless.
func AnalyzeSteps(steps []models.FunnelStep, groups SessionGroups) []FunnelStepResult {
	reached := make([]int, len(steps))
	for i, step := range steps {
		for _, sid := range groups.Order {
			if sessionReachesStep(groups.Events[sid], step) {
				reached[i]++
			}
		}
	}

	results := make([]FunnelStepResult, 0, len(steps))
	for i, step := range steps {
		conversion := 100.0
		if i > 0 {
			if reached[i-1] > 0 {
				conversion = float64(reached[i]) / float64(reached[i-1]) * 100
			} else {
				conversion = 0
			}
		}

		result := FunnelStepResult{
			Step:              step,
			UsersReachingStep: reached[i],
			ConversionRate:    conversion,
			DropOffRate:       100 - conversion,
			TopDropOffReasons: topDropOffReasons(step, groups),
		}
		if i < len(steps)-1 {
			result.AverageTimeToNextStepSeconds = averageTimeToNextStep(step, steps[i+1], groups)
		}
		results = append(results, result)
	}
	return results
}

// averageTimeToNextStep averages, across all sessions that reach the current
// step and later reach the next one, the seconds between the two matching
// events. Returns 0 when no session qualifies.
func averageTimeToNextStep(current, next models.FunnelStep, groups SessionGroups) float64 {
	var total float64
	var qualifying int

	for _, sid := range groups.Order {
		events := groups.Events[sid]

		var currentIdx = -1
		for idx, ev := range events {
			if stepMatches(ev, current) {
				currentIdx = idx
				break
			}
		}
		if currentIdx == -1 {
			continue
		}

		currentTime := events[currentIdx].Timestamp
		for _, ev := range events {
			if stepMatches(ev, next) && ev.Timestamp.After(currentTime) {
				total += ev.Timestamp.Sub(currentTime).Seconds()
				qualifying++
				break
			}
		}
	}

	if qualifying == 0 {
		return 0
	}
	return total / float64(qualifying)
}

// topDropOffReasons inspects every session reaching the step and tallies
// heuristic exit reasons, returning the top 3 by frequency. Ties keep
// first-seen order.
func topDropOffReasons(step models.FunnelStep, groups SessionGroups) []string {
	counts := make(map[string]int)
	var seen []string

	record := func(reason string) {
		if _, ok := counts[reason]; !ok {
			seen = append(seen, reason)
		}
		counts[reason]++
	}

	for _, sid := range groups.Order {
		events := groups.Events[sid]

		matchIdx := -1
		for idx, ev := range events {
			if stepMatches(ev, step) {
				matchIdx = idx
				break
			}
		}
		if matchIdx == -1 {
			continue
		}

		var timeOnStep float64
		if matchIdx+1 < len(events) {
			timeOnStep = events[matchIdx+1].Timestamp.Sub(events[matchIdx].Timestamp).Seconds()
		}
		if timeOnStep < quickExitThresholdSeconds {
			record(reasonQuickExit)
		}
		if events[len(events)-1].EventType == "error" {
			record(reasonTechnicalError)
		}
	}

	sort.SliceStable(seen, func(i, j int) bool {
		return counts[seen[i]] > counts[seen[j]]
	})
	if len(seen) > 3 {
		seen = seen[:3]
	}
	return seen
}

// CriticalDropOff selects the step with the highest drop-off rate among steps
// reached by more than the significance floor of users. Returns nil when no
// step qualifies; ties keep the earliest step.
func CriticalDropOff(results []FunnelStepResult) *FunnelStepResult {
	var critical *FunnelStepResult
	for i := range results {
		if results[i].UsersReachingStep <= significanceFloor {
			continue
		}
		if critical == nil || results[i].DropOffRate > critical.DropOffRate {
			critical = &results[i]
		}
	}
	if critical == nil {
		return nil
	}
	copied := *critical
	return &copied
}
