package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aranea-sec/aranea/internal/domain"
)

// noOpenPortsMessage is the fixed artifact when neither extraction pass
// yields a port.
const noOpenPortsMessage = "No open ports were found on the target."

// wellKnownServices maps well-known ports to a service guess for scanner
// output that reports ports without service names.
var wellKnownServices = map[int]string{
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "domain",
	80:    "http",
	110:   "pop3",
	111:   "rpcbind",
	135:   "msrpc",
	139:   "netbios-ssn",
	143:   "imap",
	443:   "https",
	445:   "microsoft-ds",
	993:   "imaps",
	995:   "pop3s",
	1433:  "ms-sql-s",
	1521:  "oracle",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5432:  "postgresql",
	5900:  "vnc",
	6379:  "redis",
	8080:  "http-proxy",
	8443:  "https-alt",
	27017: "mongodb",
}

// tableTerminators end the nmap data-row section in pass 2.
var tableTerminators = []string{
	"Nmap done",
	"Service detection performed",
	"Service Info:",
	"Read data files",
}

func serviceForPort(port int) string {
	if svc, ok := wellKnownServices[port]; ok {
		return svc
	}
	return "unknown"
}

type portRow struct {
	Port    int
	Service string
	Version string
}

// extractOpenLines is pass 1: rustscan-style "Open <ip>:<port>" lines.
func extractOpenLines(raw string) []portRow {
	var rows []portRow
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "Open ")
		if !ok {
			continue
		}
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSpace(rest[idx+1:]))
		if err != nil {
			continue
		}
		rows = append(rows, portRow{Port: port, Service: serviceForPort(port)})
	}
	return rows
}

// extractTableRows is pass 2: the nmap PORT/STATE/SERVICE table. Rows are
// lines containing "/tcp" after the header, ended by a blank line or a known
// terminator phrase.
func extractTableRows(raw string) []portRow {
	var rows []portRow
	inTable := false
	for _, line := range strings.Split(raw, "\n") {
		if !inTable {
			if strings.Contains(line, "PORT") && strings.Contains(line, "STATE") && strings.Contains(line, "SERVICE") {
				inTable = true
			}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || hasTerminator(trimmed) {
			break
		}
		if !strings.Contains(trimmed, "/tcp") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 {
			continue
		}
		portPart, _, ok := strings.Cut(fields[0], "/")
		if !ok {
			continue
		}
		port, err := strconv.Atoi(portPart)
		if err != nil {
			continue
		}
		row := portRow{Port: port, Service: fields[2]}
		if len(fields) > 3 {
			row.Version = strings.Join(fields[3:], " ")
		}
		rows = append(rows, row)
	}
	return rows
}

func hasTerminator(line string) bool {
	for _, t := range tableTerminators {
		if strings.HasPrefix(line, t) {
			return true
		}
	}
	return false
}

// formatPortTable renders open ports as a markdown table. Pass 1 looks for
// rustscan-style "Open ip:port" lines; only if that yields nothing does pass
// 2 parse the nmap port table.
func formatPortTable(args *domain.Args, raw string) (string, error) {
	rows := extractOpenLines(raw)
	if len(rows) == 0 {
		rows = extractTableRows(raw)
	}
	if len(rows) == 0 {
		return noOpenPortsMessage, nil
	}

	var sb strings.Builder
	target := args.String("ip_address")
	if target != "" {
		fmt.Fprintf(&sb, "### Open Ports on %s\n\n", target)
	} else {
		sb.WriteString("### Open Ports\n\n")
	}
	sb.WriteString("| Port | Service |\n|------|---------|\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %d | %s |\n", r.Port, r.Service)
	}
	fmt.Fprintf(&sb, "\n%d open port(s) found.", len(rows))
	return sb.String(), nil
}

// formatServiceTable renders nmap -sV output as a port/service/version table.
func formatServiceTable(args *domain.Args, raw string) (string, error) {
	rows := extractTableRows(raw)
	if len(rows) == 0 {
		return noOpenPortsMessage, nil
	}

	var sb strings.Builder
	target := args.String("ip_address")
	if target != "" {
		fmt.Fprintf(&sb, "### Services on %s\n\n", target)
	} else {
		sb.WriteString("### Services\n\n")
	}
	sb.WriteString("| Port | Service | Version |\n|------|---------|---------|\n")
	for _, r := range rows {
		version := r.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", r.Port, r.Service, version)
	}
	return sb.String(), nil
}
