package history

import (
	"strings"

	"github.com/aranea-sec/aranea/internal/domain"
)

// targetPreviewLimit caps how many distinct targets a summary surfaces.
const targetPreviewLimit = 5

// targetArgKeys are the argument keys conventionally carrying a single
// target identifier.
var targetArgKeys = []string{"ip_address", "target_ip"}

// Summarize derives engagement statistics in one pass over the entries.
func Summarize(entries []domain.HistoryEntry) domain.EngagementSummary {
	summary := domain.EngagementSummary{
		TotalTurns: len(entries),
		Targets:    []string{},
	}
	seen := make(map[string]bool)

	for _, e := range entries {
		if e.FunctionExecuted == "" {
			continue
		}
		summary.FunctionsExecuted++
		if strings.Contains(e.FunctionExecuted, "scan") {
			summary.ScansPerformed++
		}
		if strings.Contains(e.FunctionExecuted, "exploit") {
			summary.ExploitsAttempted++
		}
		for _, key := range targetArgKeys {
			target := e.FunctionArgs.String(key)
			if target == "" || seen[target] {
				continue
			}
			seen[target] = true
			if len(summary.Targets) < targetPreviewLimit {
				summary.Targets = append(summary.Targets, target)
			}
		}
	}
	return summary
}
