package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aranea-sec/aranea/internal/domain"
)

// formatHostDiscovery summarizes nmap -sn output as a list of live hosts.
func formatHostDiscovery(_ *domain.Args, raw string) (string, error) {
	var hosts []string
	var current string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Nmap scan report for "); ok {
			current = rest
			continue
		}
		if strings.HasPrefix(line, "Host is up") && current != "" {
			hosts = append(hosts, current)
			current = ""
		}
	}
	if len(hosts) == 0 {
		return "No live hosts were discovered.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Live Hosts (%d)\n\n", len(hosts))
	for _, h := range hosts {
		sb.WriteString("- " + h + "\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// formatResolvedAddresses renders dig-style resolver output (one address per
// line) for a website lookup.
func formatResolvedAddresses(args *domain.Args, raw string) (string, error) {
	var addrs []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			addrs = append(addrs, line)
		}
	}
	if len(addrs) == 0 {
		return "The hostname did not resolve to any address.", nil
	}

	site := args.String("website")
	var sb strings.Builder
	if site != "" {
		fmt.Fprintf(&sb, "**%s** resolves to:\n\n", site)
	} else {
		sb.WriteString("Resolved addresses:\n\n")
	}
	for _, a := range addrs {
		sb.WriteString("- `" + a + "`\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// formatExploitList renders a newline-separated Metasploit module list.
func formatExploitList(args *domain.Args, raw string) (string, error) {
	var modules []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			modules = append(modules, line)
		}
	}
	service := args.String("service_name")
	if len(modules) == 0 {
		if service != "" {
			return fmt.Sprintf("No known exploit modules matched **%s**.", service), nil
		}
		return "No known exploit modules matched the query.", nil
	}

	var sb strings.Builder
	if service != "" {
		fmt.Fprintf(&sb, "### Exploit Modules for %s (%d)\n\n", service, len(modules))
	} else {
		fmt.Fprintf(&sb, "### Exploit Modules (%d)\n\n", len(modules))
	}
	for _, m := range modules {
		sb.WriteString("- `" + m + "`\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// sessionRecord mirrors the JSON the exploitation client emits per session.
type sessionRecord struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Peer       string `json:"peer"`
	Info       string `json:"info"`
	ViaExploit string `json:"via_exploit"`
}

func formatSessionTable(_ *domain.Args, raw string) (string, error) {
	var sessions []sessionRecord
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return "", fmt.Errorf("decode sessions: %w", err)
	}
	if len(sessions) == 0 {
		return "There are no active sessions.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Active Sessions (%d)\n\n", len(sessions))
	sb.WriteString("| ID | Type | Target | Via | Info |\n|----|------|--------|-----|------|\n")
	for _, s := range sessions {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
			s.ID, orDash(s.Type), orDash(s.Peer), orDash(s.ViaExploit), orDash(s.Info))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// exploitRunRecord mirrors the JSON the exploitation client emits after
// launching a module.
type exploitRunRecord struct {
	JobID     int    `json:"job_id"`
	UUID      string `json:"uuid"`
	SessionID int    `json:"session_id"`
}

func formatExploitRun(args *domain.Args, raw string) (string, error) {
	var run exploitRunRecord
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		return "", fmt.Errorf("decode exploit run: %w", err)
	}

	var sb strings.Builder
	name := args.String("exploit_name")
	target := args.String("target_ip")
	if name != "" && target != "" {
		fmt.Fprintf(&sb, "Launched **%s** against `%s`.\n\n", name, target)
	} else {
		sb.WriteString("Exploit launched.\n\n")
	}
	fmt.Fprintf(&sb, "- **Job ID**: %d\n", run.JobID)
	if run.UUID != "" {
		fmt.Fprintf(&sb, "- **UUID**: `%s`\n", run.UUID)
	}
	if run.SessionID > 0 {
		fmt.Fprintf(&sb, "- **Session**: %d (use `execute_command` with this session ID)\n", run.SessionID)
	} else {
		sb.WriteString("- No session opened yet; check `get_sessions` shortly.\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// attackRecord mirrors the JSON the offense manager emits per attack.
type attackRecord struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	StartedAt string `json:"started_at"`
	Running   bool   `json:"running"`
}

func formatAttackTable(_ *domain.Args, raw string) (string, error) {
	var attacks []attackRecord
	if err := json.Unmarshal([]byte(raw), &attacks); err != nil {
		return "", fmt.Errorf("decode attacks: %w", err)
	}
	if len(attacks) == 0 {
		return "There are no active attacks.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Active Attacks (%d)\n\n", len(attacks))
	sb.WriteString("| ID | Target | Started | Status |\n|----|--------|---------|--------|\n")
	for _, a := range attacks {
		status := "running"
		if !a.Running {
			status = "stopped"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", a.ID, a.Target, a.StartedAt, status)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// serverRecord mirrors the JSON the Shodan lookup emits per server.
type serverRecord struct {
	IP           string   `json:"ip"`
	Organization string   `json:"organization"`
	Country      string   `json:"country"`
	City         string   `json:"city"`
	Hostnames    []string `json:"hostnames"`
	Ports        []int    `json:"ports"`
}

func formatServerSurvey(args *domain.Args, raw string) (string, error) {
	var servers []serverRecord
	if err := json.Unmarshal([]byte(raw), &servers); err != nil {
		return "", fmt.Errorf("decode servers: %w", err)
	}
	hostname := args.String("hostname")
	if len(servers) == 0 {
		if hostname != "" {
			return fmt.Sprintf("No exposed servers were found for **%s**.", hostname), nil
		}
		return "No exposed servers were found.", nil
	}

	var sb strings.Builder
	if hostname != "" {
		fmt.Fprintf(&sb, "### Servers for %s (%d)\n\n", hostname, len(servers))
	} else {
		fmt.Fprintf(&sb, "### Servers (%d)\n\n", len(servers))
	}
	for _, s := range servers {
		fmt.Fprintf(&sb, "#### %s\n", s.IP)
		if s.Organization != "" {
			fmt.Fprintf(&sb, "- **Organization**: %s\n", s.Organization)
		}
		if loc := joinNonEmpty(s.City, s.Country); loc != "" {
			fmt.Fprintf(&sb, "- **Location**: %s\n", loc)
		}
		if len(s.Hostnames) > 0 {
			fmt.Fprintf(&sb, "- **Hostnames**: %s\n", strings.Join(s.Hostnames, ", "))
		}
		if len(s.Ports) > 0 {
			parts := make([]string, len(s.Ports))
			for i, p := range s.Ports {
				parts[i] = fmt.Sprint(p)
			}
			fmt.Fprintf(&sb, "- **Open ports**: %s\n", strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
