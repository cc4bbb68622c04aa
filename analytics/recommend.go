// api/analytics/recommend.go
package analytics

import (
	"fmt"
	"strings"
)

const slowStepThresholdSeconds = 300

// Recommendations turns computed step statistics into human-readable
// improvement suggestions. Rules trigger independently; their order here fixes
// the output order.
func Recommendations(steps []FunnelStepResult, critical *FunnelStepResult) []string {
	var recs []string

	if critical != nil && critical.DropOffRate > 50 {
		recs = append(recs, fmt.Sprintf(
			"Focus optimization efforts on %q - %.1f%% of users drop off at this step",
			critical.Step.Name, critical.DropOffRate))
	}

	var slow []string
	for _, s := range steps {
		if s.AverageTimeToNextStepSeconds > slowStepThresholdSeconds {
			slow = append(slow, s.Step.Name)
		}
	}
	if len(slow) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Users take a long time to move past: %s - consider simplifying these steps",
			strings.Join(slow, ", ")))
	}

	if len(steps) > 0 && steps[len(steps)-1].ConversionRate < 10 {
		recs = append(recs,
			"Final step conversion is low - run A/B tests on copy, layout, and calls to action")
	}

	recs = append(recs,
		"Analyze mobile vs desktop behavior separately - conversion patterns often differ by device")

	return recs
}
