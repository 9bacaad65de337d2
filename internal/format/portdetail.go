package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aranea-sec/aranea/internal/domain"
)

var latencyPattern = regexp.MustCompile(`\(([0-9.]+)s latency\)`)

// detailRule mines one labeled value out of a script-output block.
type detailRule struct {
	Label  string
	Marker string
}

// serviceDetailRules selects the key:value pairs worth surfacing per service
// family from nmap script output.
var serviceDetailRules = map[string][]detailRule{
	"mysql": {
		{Label: "Protocol", Marker: "Protocol:"},
		{Label: "Version", Marker: "Version:"},
		{Label: "Thread ID", Marker: "Thread ID:"},
	},
	"http": {
		{Label: "Title", Marker: "http-title:"},
		{Label: "Server", Marker: "http-server-header:"},
	},
	"https": {
		{Label: "Title", Marker: "http-title:"},
		{Label: "Server", Marker: "http-server-header:"},
	},
	"ssh": {
		{Label: "Host key (RSA)", Marker: "ssh-hostkey:"},
	},
}

// serviceRecommendations is the static hardening advice list per service.
var serviceRecommendations = map[string][]string{
	"ssh": {
		"Disable password authentication in favor of key-based login.",
		"Disallow direct root login (`PermitRootLogin no`).",
		"Rate-limit authentication attempts (e.g. fail2ban).",
	},
	"http": {
		"Keep the web server patched and hide version banners.",
		"Enforce HTTPS and redirect all plaintext traffic.",
		"Review exposed paths for admin panels and default pages.",
	},
	"https": {
		"Disable legacy TLS versions (1.0/1.1) and weak cipher suites.",
		"Verify certificate validity and hostname coverage.",
	},
	"ftp": {
		"Disable anonymous FTP access unless explicitly required.",
		"Prefer SFTP or FTPS; plain FTP transmits credentials in cleartext.",
	},
	"mysql": {
		"Bind the database to localhost or a private interface.",
		"Remove remote root access and anonymous accounts.",
		"Enforce strong credentials and TLS for remote clients.",
	},
	"telnet": {
		"Replace telnet with SSH; telnet is cleartext and obsolete.",
	},
	"microsoft-ds": {
		"Disable SMBv1 and restrict SMB exposure to trusted networks.",
		"Apply the latest SMB security patches.",
	},
}

var genericRecommendations = []string{
	"Restrict access to this port with firewall rules if it is not publicly required.",
	"Keep the exposed service patched to the latest stable release.",
}

// ancientVersionMarkers flags service versions old enough to be treated as
// critical on sight.
var ancientVersionMarkers = map[string]struct {
	Marker string
	Note   string
}{
	"ftp": {
		Marker: "vsftpd 2.3.4",
		Note:   "vsftpd 2.3.4 ships a known backdoor (CVE-2011-2523); treat this host as trivially exploitable.",
	},
	"ssh": {
		Marker: "OpenSSH 4.",
		Note:   "This OpenSSH release is over a decade old and has multiple public exploits; upgrade immediately.",
	},
}

// formatPortDetail renders nmap output for a single-port scan: state,
// service, version, latency, the verbatim script-output block, mined key
// details, and hardening recommendations, in that fixed order.
func formatPortDetail(args *domain.Args, raw string) (string, error) {
	lines := strings.Split(raw, "\n")

	latency := ""
	if m := latencyPattern.FindStringSubmatch(raw); m != nil {
		latency = m[1] + "s"
	}

	state, service, version, rest := findPortRow(lines)
	if service == "" {
		return "", fmt.Errorf("no port row found")
	}
	scriptBlock := collectScriptBlock(rest)

	target := args.String("ip_address")
	port := args.String("port")

	var sb strings.Builder
	switch {
	case target != "" && port != "":
		fmt.Fprintf(&sb, "### Port %s on %s\n\n", port, target)
	default:
		sb.WriteString("### Port Scan Result\n\n")
	}
	fmt.Fprintf(&sb, "- **State**: %s\n", state)
	fmt.Fprintf(&sb, "- **Service**: %s\n", service)
	if version != "" {
		fmt.Fprintf(&sb, "- **Version**: %s\n", version)
	}
	if latency != "" {
		fmt.Fprintf(&sb, "- **Latency**: %s\n", latency)
	}

	if len(scriptBlock) > 0 {
		sb.WriteString("\n#### Script Output\n\n")
		sb.WriteString(Fenced(strings.Join(scriptBlock, "\n")))
		sb.WriteString("\n")

		if details := mineDetails(service, scriptBlock); len(details) > 0 {
			sb.WriteString("\n#### Details\n\n")
			for _, d := range details {
				sb.WriteString("- " + d + "\n")
			}
		}
	}

	sb.WriteString("\n#### Recommendations\n\n")
	for _, r := range recommendationsFor(service, version) {
		sb.WriteString("- " + r + "\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// findPortRow locates the PORT/STATE/SERVICE header, then the one /tcp data
// row, returning its state, service, version remainder, and the lines after
// the row.
func findPortRow(lines []string) (state, service, version string, rest []string) {
	inTable := false
	for i, line := range lines {
		if !inTable {
			if strings.Contains(line, "PORT") && strings.Contains(line, "STATE") && strings.Contains(line, "SERVICE") {
				inTable = true
			}
			continue
		}
		if !strings.Contains(line, "/tcp") {
			continue
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 3 {
			continue
		}
		state = fields[1]
		service = fields[2]
		if len(fields) > 3 {
			version = strings.Join(fields[3:], " ")
		}
		return state, service, version, lines[i+1:]
	}
	return "", "", "", nil
}

// collectScriptBlock captures the verbatim lines beginning with "|" that
// follow the port row. A non-"|" line that is not a wrapped continuation
// (leading whitespace) ends the block.
func collectScriptBlock(lines []string) []string {
	var block []string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "|"):
			block = append(block, line)
		case len(block) > 0 && line != "" && (line[0] == ' ' || line[0] == '\t'):
			block = append(block, line)
		default:
			return block
		}
	}
	return block
}

// mineDetails applies the per-service keyword rules to the script block.
func mineDetails(service string, block []string) []string {
	rules, ok := serviceDetailRules[service]
	if !ok {
		return nil
	}
	var details []string
	for _, rule := range rules {
		for _, line := range block {
			idx := strings.Index(line, rule.Marker)
			if idx < 0 {
				continue
			}
			value := strings.TrimSpace(line[idx+len(rule.Marker):])
			if value != "" {
				details = append(details, fmt.Sprintf("**%s**: %s", rule.Label, value))
				break
			}
		}
	}
	return details
}

// recommendationsFor returns the static advice list for a service, with the
// ancient-version rule applied first when it matches.
func recommendationsFor(service, version string) []string {
	var recs []string
	if ancient, ok := ancientVersionMarkers[service]; ok && version != "" && strings.Contains(version, ancient.Marker) {
		recs = append(recs, "**[CRITICAL]** "+ancient.Note)
	}
	if svcRecs, ok := serviceRecommendations[service]; ok {
		recs = append(recs, svcRecs...)
	} else {
		recs = append(recs, genericRecommendations...)
	}
	return recs
}
