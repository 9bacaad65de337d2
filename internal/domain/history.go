package domain

import (
	"time"
)

// HistoryEntry records one completed turn: the user query, the assistant's
// conversational reply, and the capability invocation (if any) with its raw
// and formatted results. Entries are immutable once appended.
type HistoryEntry struct {
	TurnIndex        int       `json:"turn_index"`
	Query            string    `json:"query"`
	ResponseText     string    `json:"response_text"`
	FunctionExecuted string    `json:"function_executed,omitempty"`
	FunctionArgs     *Args     `json:"function_arguments,omitempty"`
	RawResult        string    `json:"raw_result,omitempty"`
	FormattedResult  string    `json:"formatted_result,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// EngagementSummary is derived from a session's history on demand and never
// persisted independently of it.
type EngagementSummary struct {
	TotalTurns        int      `json:"total_turns"`
	FunctionsExecuted int      `json:"functions_executed"`
	ScansPerformed    int      `json:"scans_performed"`
	ExploitsAttempted int      `json:"exploits_attempted"`
	Targets           []string `json:"targets"`
}

// EngagementInfo carries report metadata supplied by the client.
type EngagementInfo struct {
	Client         string `json:"client,omitempty"`
	Date           string `json:"date,omitempty"`
	Tester         string `json:"tester,omitempty"`
	EngagementType string `json:"engagement_type,omitempty"`
}

// WithDefaults fills unset metadata fields with neutral defaults.
func (e EngagementInfo) WithDefaults(now time.Time) EngagementInfo {
	if e.Client == "" {
		e.Client = "Unnamed Client"
	}
	if e.Date == "" {
		e.Date = now.Format("2006-01-02")
	}
	if e.Tester == "" {
		e.Tester = "Aranea Automated Assistant"
	}
	if e.EngagementType == "" {
		e.EngagementType = "Network Penetration Test"
	}
	return e
}
