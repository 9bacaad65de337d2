package history

import (
	"testing"

	"github.com/aranea-sec/aranea/internal/domain"
)

func entryWithFunction(name, argKey, argValue string) domain.HistoryEntry {
	args := domain.NewArgs()
	if argKey != "" {
		args.Set(argKey, argValue)
	}
	return domain.HistoryEntry{
		Query:            "do it",
		FunctionExecuted: name,
		FunctionArgs:     args,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalTurns != 0 || s.FunctionsExecuted != 0 || s.ScansPerformed != 0 || s.ExploitsAttempted != 0 {
		t.Errorf("Expected zero counts, got %+v", s)
	}
	if s.Targets == nil {
		t.Error("Expected non-nil target slice")
	}
	if len(s.Targets) != 0 {
		t.Errorf("Expected no targets, got %v", s.Targets)
	}
}

func TestSummarizeCounts(t *testing.T) {
	entries := []domain.HistoryEntry{
		{Query: "hi", ResponseText: "hello"},
		entryWithFunction("scan_target", "ip_address", "10.0.0.5"),
		entryWithFunction("run_exploit", "target_ip", "10.0.0.5"),
		entryWithFunction("get_sessions", "", ""),
		{Query: "thanks"},
	}

	s := Summarize(entries)
	if s.TotalTurns != 5 {
		t.Errorf("Expected 5 turns, got %d", s.TotalTurns)
	}
	if s.FunctionsExecuted != 3 {
		t.Errorf("Expected 3 functions executed, got %d", s.FunctionsExecuted)
	}
	if s.ScansPerformed != 1 {
		t.Errorf("Expected 1 scan, got %d", s.ScansPerformed)
	}
	if s.ExploitsAttempted != 1 {
		t.Errorf("Expected 1 exploit, got %d", s.ExploitsAttempted)
	}
	if len(s.Targets) != 1 || s.Targets[0] != "10.0.0.5" {
		t.Errorf("Expected single deduplicated target, got %v", s.Targets)
	}
}

func TestSummarizeExactFunctionCount(t *testing.T) {
	var entries []domain.HistoryEntry
	for i := 0; i < 7; i++ {
		entries = append(entries, domain.HistoryEntry{Query: "chat"})
	}
	for i := 0; i < 4; i++ {
		entries = append(entries, entryWithFunction("check_if_host_active", "ip_address", "192.168.1.1"))
	}

	s := Summarize(entries)
	if s.FunctionsExecuted != 4 {
		t.Errorf("Expected exactly 4 functions executed, got %d", s.FunctionsExecuted)
	}
}

func TestSummarizeTargetPreviewCap(t *testing.T) {
	var entries []domain.HistoryEntry
	for i := 0; i < 8; i++ {
		entries = append(entries, entryWithFunction("scan_target", "ip_address", "10.0.0."+string(rune('1'+i))))
	}

	s := Summarize(entries)
	if len(s.Targets) > targetPreviewLimit {
		t.Errorf("Expected at most %d targets, got %d", targetPreviewLimit, len(s.Targets))
	}
}
