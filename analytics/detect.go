// api/analytics/detect.go
package analytics

import (
	"sort"
	"strings"
)

const (
	// maxPathLength caps how many page views of a session feed path mining.
	maxPathLength = 5
	// minPathLength is the shortest sequence considered a funnel candidate.
	minPathLength = 2
	// maxCandidates is how many candidate funnels are returned.
	maxCandidates = 10
)

// DetectedStep is one stage of a proposed funnel.
type DetectedStep struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// CandidateFunnel is a recurring page-view sequence proposed as a funnel.
type CandidateFunnel struct {
	Steps       []DetectedStep `json:"steps"`
	Occurrences int            `json:"occurrences"`
}

// DetectFunnels mines session page-view sequences for recurring path prefixes.
// Sequences seen in at least minSessions sessions are returned, most frequent
// first, capped at ten candidates.
func DetectFunnels(groups SessionGroups, minSessions int) []CandidateFunnel {
	counts := make(map[string]int)
	paths := make(map[string][]string)
	var seen []string

	for _, sid := range groups.Order {
		var urls []string
		for _, ev := range groups.Events[sid] {
			if ev.EventType != "page_view" || ev.PageURL == "" {
				continue
			}
			urls = append(urls, ev.PageURL)
			if len(urls) == maxPathLength {
				break
			}
		}
		if len(urls) < minPathLength {
			continue
		}

		key := strings.Join(urls, "\n")
		if _, ok := counts[key]; !ok {
			seen = append(seen, key)
			paths[key] = urls
		}
		counts[key]++
	}

	var qualifying []string
	for _, key := range seen {
		if counts[key] >= minSessions {
			qualifying = append(qualifying, key)
		}
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		return counts[qualifying[i]] > counts[qualifying[j]]
	})
	if len(qualifying) > maxCandidates {
		qualifying = qualifying[:maxCandidates]
	}

	candidates := make([]CandidateFunnel, 0, len(qualifying))
	for _, key := range qualifying {
		candidate := CandidateFunnel{Occurrences: counts[key]}
		for _, url := range paths[key] {
			candidate.Steps = append(candidate.Steps, DetectedStep{
				URL:  url,
				Name: stepNameForURL(url),
			})
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// stepNameForURL maps a page URL to a human-readable step name with simple
// substring heuristics.
func stepNameForURL(url string) string {
	if url == "/" {
		return "Homepage"
	}
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "product"):
		return "Product Page"
	case strings.Contains(lower, "cart"):
		return "Shopping Cart"
	case strings.Contains(lower, "checkout"):
		return "Checkout"
	case strings.Contains(lower, "signup"):
		return "Sign Up"
	case strings.Contains(lower, "login"):
		return "Login"
	}

	segments := strings.Split(strings.Trim(url, "/"), "/")
	name := strings.Join(segments, " ")
	if name == "" {
		return "Homepage"
	}
	return name
}
