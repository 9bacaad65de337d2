package directive

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseLiteral_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T)
	}{
		{name: "double quoted", input: `{"ip_address": "192.168.1.100"}`},
		{name: "single quoted", input: `{'service_name': 'apache'}`},
		{name: "mixed scalars", input: `{"session_id": 1, "command": "whoami"}`},
		{name: "list value", input: `{"ip_address": "10.0.0.5", "ports": [22, 80, 443]}`},
		{name: "nested dict", input: `{"exploit_name": "unix/ftp/vsftpd_234_backdoor", "options": {"LHOST": "10.0.0.2"}}`},
		{name: "booleans and none", input: `{"verbose": True, "fast": false, "extra": None}`},
		{name: "empty dict", input: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLiteral(tt.input); err != nil {
				t.Errorf("ParseLiteral(%q) returned error: %v", tt.input, err)
			}
		})
	}
}

func TestParseLiteral_Values(t *testing.T) {
	args, err := ParseLiteral(`{"ip_address": "10.0.0.5", "ports": [22, 80], "opts": {"LPORT": 4444}}`)
	if err != nil {
		t.Fatalf("ParseLiteral returned error: %v", err)
	}

	if got := args.String("ip_address"); got != "10.0.0.5" {
		t.Errorf("Expected ip_address=10.0.0.5, got %q", got)
	}

	ports, ok := args.Get("ports")
	if !ok {
		t.Fatal("Expected ports key")
	}
	if !reflect.DeepEqual(ports, []any{float64(22), float64(80)}) {
		t.Errorf("Expected ports [22 80], got %v", ports)
	}

	if got := args.Keys(); !reflect.DeepEqual(got, []string{"ip_address", "ports", "opts"}) {
		t.Errorf("Expected insertion-ordered keys, got %v", got)
	}
}

func TestParseLiteral_EscapedQuote(t *testing.T) {
	args, err := ParseLiteral(`{"command": "echo \"hi\""}`)
	if err != nil {
		t.Fatalf("ParseLiteral returned error: %v", err)
	}
	if got := args.String("command"); got != `echo "hi"` {
		t.Errorf("Expected unescaped command, got %q", got)
	}
}

func TestParseLiteral_Invalid(t *testing.T) {
	tests := []string{
		`{"key": }`,
		`{"key" "value"}`,
		`{key: "value"}`,
		`{"unterminated": "value}`,
		`{"key": "value"} trailing`,
		`["not", "a", "dict"]`,
		``,
	}

	for _, input := range tests {
		if _, err := ParseLiteral(input); err == nil {
			t.Errorf("ParseLiteral(%q) expected error, got nil", input)
		}
	}
}

func TestParseLiteral_UnicodeEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  string
	}{
		{name: "angle bracket", input: `{"command": "a<b"}`, key: "command", want: "a<b"},
		{name: "ampersand", input: `{"command": "x && y"}`, key: "command", want: "x && y"},
		{name: "bmp rune", input: `{"note": "café"}`, key: "note", want: "café"},
		{name: "surrogate pair", input: `{"note": "😀"}`, key: "note", want: "😀"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := ParseLiteral(tt.input)
			if err != nil {
				t.Fatalf("ParseLiteral(%q) returned error: %v", tt.input, err)
			}
			if got := args.String(tt.key); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseLiteral_RenderRoundTrip(t *testing.T) {
	original, err := ParseLiteral(`{"command": "cat /proc/version && echo a<b >out", "session_id": 3}`)
	if err != nil {
		t.Fatalf("ParseLiteral returned error: %v", err)
	}

	rendered := original.Render()
	if strings.Contains(rendered, `\u003c`) || strings.Contains(rendered, `\u0026`) {
		t.Fatalf("Expected unescaped rendering, got %q", rendered)
	}

	reparsed, err := ParseLiteral(rendered)
	if err != nil {
		t.Fatalf("ParseLiteral(%q) returned error: %v", rendered, err)
	}
	if got := reparsed.String("command"); got != "cat /proc/version && echo a<b >out" {
		t.Errorf("Expected command to survive the round trip, got %q", got)
	}
	if got, ok := reparsed.Int("session_id"); !ok || got != 3 {
		t.Errorf("Expected session_id=3, got %d (%v)", got, ok)
	}
}
