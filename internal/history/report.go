package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/aranea-sec/aranea/internal/domain"
)

// Report renders the full engagement report as markdown. It is a pure
// function of the supplied entries and metadata; unset metadata fields are
// defaulted.
func Report(entries []domain.HistoryEntry, info domain.EngagementInfo, now time.Time) string {
	info = info.WithDefaults(now)
	summary := Summarize(entries)

	var sb strings.Builder
	sb.WriteString("# Penetration Test Report\n\n")

	sb.WriteString("## Engagement\n\n")
	fmt.Fprintf(&sb, "- **Client**: %s\n", info.Client)
	fmt.Fprintf(&sb, "- **Date**: %s\n", info.Date)
	fmt.Fprintf(&sb, "- **Tester**: %s\n", info.Tester)
	fmt.Fprintf(&sb, "- **Engagement type**: %s\n\n", info.EngagementType)

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Total turns**: %d\n", summary.TotalTurns)
	fmt.Fprintf(&sb, "- **Tool invocations**: %d\n", summary.FunctionsExecuted)
	fmt.Fprintf(&sb, "- **Scans performed**: %d\n", summary.ScansPerformed)
	fmt.Fprintf(&sb, "- **Exploits attempted**: %d\n", summary.ExploitsAttempted)
	if len(summary.Targets) > 0 {
		fmt.Fprintf(&sb, "- **Targets**: %s\n", strings.Join(summary.Targets, ", "))
	} else {
		sb.WriteString("- **Targets**: none recorded\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Activity Log\n\n")
	if len(entries) == 0 {
		sb.WriteString("No activity was recorded during this engagement.\n")
		return sb.String()
	}

	for _, e := range entries {
		fmt.Fprintf(&sb, "### Turn %d\n\n", e.TurnIndex+1)
		if !e.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "*%s*\n\n", e.Timestamp.UTC().Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "**Operator**: %s\n\n", e.Query)
		fmt.Fprintf(&sb, "**Assistant**: %s\n\n", e.ResponseText)
		if e.FunctionExecuted != "" {
			fmt.Fprintf(&sb, "**Tool**: `%s`", e.FunctionExecuted)
			if rendered := e.FunctionArgs.Render(); rendered != "" {
				fmt.Fprintf(&sb, " with `%s`", rendered)
			}
			sb.WriteString("\n\n")
		}
		if e.FormattedResult != "" {
			sb.WriteString(e.FormattedResult)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString("*Generated by the Aranea engagement assistant. Findings above are raw ")
	sb.WriteString("tool evidence; validate each before inclusion in a client deliverable.*\n")
	return sb.String()
}

// RenderSummary renders an engagement summary as a short markdown digest.
func RenderSummary(s domain.EngagementSummary) string {
	var sb strings.Builder
	sb.WriteString("## Engagement Summary\n\n")
	fmt.Fprintf(&sb, "- **Total turns**: %d\n", s.TotalTurns)
	fmt.Fprintf(&sb, "- **Tool invocations**: %d\n", s.FunctionsExecuted)
	fmt.Fprintf(&sb, "- **Scans performed**: %d\n", s.ScansPerformed)
	fmt.Fprintf(&sb, "- **Exploits attempted**: %d\n", s.ExploitsAttempted)
	if len(s.Targets) > 0 {
		fmt.Fprintf(&sb, "- **Targets**: %s\n", strings.Join(s.Targets, ", "))
	} else {
		sb.WriteString("- **Targets**: none recorded\n")
	}
	return sb.String()
}
