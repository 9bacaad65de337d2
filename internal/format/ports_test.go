package format

import (
	"strings"
	"testing"

	"github.com/aranea-sec/aranea/internal/domain"
)

func TestFormatPortTable_OpenLines(t *testing.T) {
	raw := "Open 10.0.0.1:22\nOpen 10.0.0.1:80\n"

	out, err := formatPortTable(nil, raw)
	if err != nil {
		t.Fatalf("formatPortTable returned error: %v", err)
	}

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "| ") && !strings.HasPrefix(line, "| Port") {
			rows = append(rows, line)
		}
	}
	if len(rows) != 2 {
		t.Fatalf("Expected exactly 2 data rows, got %d:\n%s", len(rows), out)
	}
	if rows[0] != "| 22 | ssh |" {
		t.Errorf("Expected port 22 mapped to ssh, got %q", rows[0])
	}
	if rows[1] != "| 80 | http |" {
		t.Errorf("Expected port 80 mapped to http, got %q", rows[1])
	}
}

func TestFormatPortTable_UnknownPortService(t *testing.T) {
	out, err := formatPortTable(nil, "Open 10.0.0.1:31337\n")
	if err != nil {
		t.Fatalf("formatPortTable returned error: %v", err)
	}
	if !strings.Contains(out, "| 31337 | unknown |") {
		t.Errorf("Expected unknown service guess, got:\n%s", out)
	}
}

func TestFormatPortTable_NmapFallback(t *testing.T) {
	raw := `Starting Nmap 7.94 ( https://nmap.org )
Nmap scan report for 10.0.0.5
Host is up (0.0010s latency).
Not shown: 997 closed tcp ports (conn-refused)
PORT     STATE SERVICE
22/tcp   open  ssh
80/tcp   open  http
3306/tcp open  mysql

Nmap done: 1 IP address (1 host up) scanned in 2.05 seconds`

	out, err := formatPortTable(nil, raw)
	if err != nil {
		t.Fatalf("formatPortTable returned error: %v", err)
	}
	for _, want := range []string{"| 22 | ssh |", "| 80 | http |", "| 3306 | mysql |"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected row %q in output:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "3 open port(s)") {
		t.Errorf("Expected port count in output:\n%s", out)
	}
}

func TestFormatPortTable_TerminatorStopsRows(t *testing.T) {
	raw := `PORT   STATE SERVICE
22/tcp open  ssh
Nmap done: 1 IP address
9999/tcp open  fake`

	out, err := formatPortTable(nil, raw)
	if err != nil {
		t.Fatalf("formatPortTable returned error: %v", err)
	}
	if strings.Contains(out, "9999") {
		t.Errorf("Rows after terminator must be ignored:\n%s", out)
	}
}

func TestFormatPortTable_NoPorts(t *testing.T) {
	out, err := formatPortTable(nil, "All 65535 scanned ports on 10.0.0.5 are closed\n")
	if err != nil {
		t.Fatalf("formatPortTable returned error: %v", err)
	}
	if out != noOpenPortsMessage {
		t.Errorf("Expected fixed no-ports message, got %q", out)
	}
}

func TestFormatServiceTable(t *testing.T) {
	raw := `PORT     STATE SERVICE VERSION
22/tcp   open  ssh     OpenSSH 8.2p1 Ubuntu 4ubuntu0.5
80/tcp   open  http    Apache httpd 2.4.41

Service detection performed.`

	args := domain.NewArgs()
	args.Set("ip_address", "10.0.0.5")

	out, err := formatServiceTable(args, raw)
	if err != nil {
		t.Fatalf("formatServiceTable returned error: %v", err)
	}
	if !strings.Contains(out, "Services on 10.0.0.5") {
		t.Errorf("Expected target in heading:\n%s", out)
	}
	if !strings.Contains(out, "| 22 | ssh | OpenSSH 8.2p1 Ubuntu 4ubuntu0.5 |") {
		t.Errorf("Expected version column:\n%s", out)
	}
}
