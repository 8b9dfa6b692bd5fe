package explain

import (
	"fmt"
	"sort"
	"strings"

	"anomalyexplain/domain/explanation"
)

const (
	maxPrimaryReasons     = 3
	maxRecommendations    = 5
	focusContribution     = 0.5
	maxFocusFeatures      = 3
	defaultReasonPriority = 1
)

// Reason kinds, also used as metric labels
const (
	KindExtremeOutlier    = "extreme_outlier"
	KindOutlier           = "outlier"
	KindDistributionShift = "distribution_shift"
	KindDuplicate         = "duplicate"
	KindDeviation         = "deviation"
	KindOther             = "other"
)

type reasonRule struct {
	matches  func(lower string) bool
	kind     string
	priority int
}

// reasonRules is evaluated top to bottom; the first match wins.
var reasonRules = []reasonRule{
	{contains("extreme outlier"), KindExtremeOutlier, 10},
	{contains("outlier"), KindOutlier, 8},
	{contains("distribution shift"), KindDistributionShift, 7},
	{contains("duplicate"), KindDuplicate, 6},
	{contains("deviation"), KindDeviation, 5},
}

type recommendationRule struct {
	matches func(lower string) bool
	add     []string
}

// recommendationRules maps one reason to follow-up actions; first match wins.
var recommendationRules = []recommendationRule{
	{contains("outlier"), []string{
		"Verify data collection process for this sample",
		"Check if extreme values are measurement errors",
	}},
	{contains("distribution shift"), []string{
		"Review data preprocessing pipeline",
		"Consider retraining model with recent data",
	}},
	{contains("duplicate"), []string{
		"Check for data leakage or repeated entries",
		"Review data deduplication process",
	}},
}

// riskRules are checked from the highest band down
var riskRules = []struct {
	above float64
	text  string
}{
	{0.8, "High risk sample - requires immediate manual review"},
	{0.6, "Medium risk sample - consider additional validation"},
}

func contains(substr string) func(string) bool {
	return func(lower string) bool {
		return strings.Contains(lower, substr)
	}
}

func classify(reason string) (string, int) {
	lower := strings.ToLower(reason)
	for _, rule := range reasonRules {
		if rule.matches(lower) {
			return rule.kind, rule.priority
		}
	}
	return KindOther, defaultReasonPriority
}

// ReasonPriority scores a reason; higher is more important
func ReasonPriority(reason string) int {
	_, priority := classify(reason)
	return priority
}

// ReasonKind names the rule a reason falls under
func ReasonKind(reason string) string {
	kind, _ := classify(reason)
	return kind
}

// RankReasons returns a copy of reasons stable-sorted by descending priority
func RankReasons(reasons []string) []string {
	ranked := make([]string, len(reasons))
	copy(ranked, reasons)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ReasonPriority(ranked[i]) > ReasonPriority(ranked[j])
	})
	return ranked
}

// GenerateRecommendations derives up to five distinct actions from the
// ranked reasons, strong contributions and the upstream risk score, in that
// order.
func GenerateRecommendations(reasons []string, contributions *explanation.Contributions, riskScore float64) []string {
	var recs []string

	for _, reason := range reasons {
		lower := strings.ToLower(reason)
		for _, rule := range recommendationRules {
			if rule.matches(lower) {
				recs = append(recs, rule.add...)
				break
			}
		}
	}

	var focus []string
	contributions.Each(func(key string, score float64) {
		if score > focusContribution {
			focus = append(focus, key)
		}
	})
	if len(focus) > 0 {
		if len(focus) > maxFocusFeatures {
			focus = focus[:maxFocusFeatures]
		}
		recs = append(recs, fmt.Sprintf("Focus investigation on features: %s", strings.Join(focus, ", ")))
	}

	risk := riskRecommendation(riskScore)
	if risk == "" {
		return dedupe(recs, maxRecommendations)
	}

	// the risk advisory always survives truncation, in the last slot
	recs = dedupe(recs, maxRecommendations-1)
	return append(recs, risk)
}

func riskRecommendation(riskScore float64) string {
	for _, rule := range riskRules {
		if riskScore > rule.above {
			return rule.text
		}
	}
	return ""
}

// dedupe keeps first occurrences in order, up to limit entries
func dedupe(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, limit)
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
