// Package format converts raw capability output into presentation artifacts.
//
// Formatting is dispatched by function name; every formatter is a pure
// function of its inputs and any internal failure degrades to a verbatim
// fenced rendering of the raw result, never an error.
package format

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aranea-sec/aranea/internal/domain"
)

// formatterFunc renders the raw result of one capability. A returned error
// (or panic) triggers the generic fenced fallback.
type formatterFunc func(args *domain.Args, raw string) (string, error)

var formatters = map[string]formatterFunc{
	"scan_target":                     formatPortTable,
	"scan_specific_ports":             formatPortTable,
	"scan_specific_port":              formatPortDetail,
	"get_running_services":            formatServiceTable,
	"scan_entire_network":             formatHostDiscovery,
	"check_if_host_active":            formatHostDiscovery,
	"get_ip_of_website":               formatResolvedAddresses,
	"find_vulnerabilities_for_service": formatExploitList,
	"get_sessions":                    formatSessionTable,
	"run_exploit":                     formatExploitRun,
	"execute_command":                 formatCommandOutput,
	"list_active_attacks":             formatAttackTable,
	"find_website_servers":            formatServerSurvey,
	"generate_pentest_report":         formatPassthrough,
	"get_engagement_summary":          formatPassthrough,
}

// Format renders raw capability output for display. Unknown function names
// and formatter failures fall back to a fenced code rendering; Format never
// fails and never mutates raw.
func Format(functionName string, args *domain.Args, raw string) (artifact string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("formatter panicked, using fenced fallback", "function", functionName, "panic", r)
			artifact = Fenced(raw)
		}
	}()

	fn, ok := formatters[functionName]
	if !ok {
		return Fenced(raw)
	}
	out, err := fn(args, raw)
	if err != nil {
		slog.Debug("formatter failed, using fenced fallback", "function", functionName, "error", err)
		return Fenced(raw)
	}
	return out
}

// Fenced wraps raw output in a markdown code fence.
func Fenced(raw string) string {
	return "```\n" + strings.TrimRight(raw, "\n") + "\n```"
}

// formatPassthrough returns the raw result unchanged; used for capabilities
// that already produce markdown.
func formatPassthrough(_ *domain.Args, raw string) (string, error) {
	return raw, nil
}

// formatCommandOutput renders remote command output under its command line.
func formatCommandOutput(args *domain.Args, raw string) (string, error) {
	cmd := args.String("command")
	if cmd == "" {
		return Fenced(raw), nil
	}
	return fmt.Sprintf("**$ %s**\n\n%s", cmd, Fenced(raw)), nil
}
