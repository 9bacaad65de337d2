package exploit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/domain"
)

// fakeRPC answers JSON-RPC calls from a method → result table and records
// incoming requests.
type fakeRPC struct {
	t       *testing.T
	results map[string]string
	calls   []rpcRequest
}

func (f *fakeRPC) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Fatalf("Failed to decode request: %v", err)
		}
		f.calls = append(f.calls, req)

		result, ok := f.results[req.Method]
		if !ok {
			w.Write([]byte(`{"error": {"code": -32601, "message": "method not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": ` + result + `}`))
	}
}

func newTestClient(t *testing.T, results map[string]string) (*Client, *fakeRPC) {
	rpc := &fakeRPC{t: t, results: results}
	srv := httptest.NewServer(rpc.handler())
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "test-token")
	c.readDelay = 0
	return c, rpc
}

func TestHealthProbe(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"core.version": `{"version": "6.4.0"}`,
	})
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy probe, got %v", err)
	}
}

func TestHealthProbeRPCError(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{})
	if err := c.Health(context.Background()); err == nil {
		t.Error("Expected error from unknown method")
	}
}

func TestFindExploitsFiltersByService(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"module.exploits": `{"modules": [
			"unix/ftp/vsftpd_234_backdoor",
			"unix/ftp/proftpd_modcopy_exec",
			"windows/smb/ms17_010_eternalblue"
		]}`,
	})

	out, err := c.FindExploits(context.Background(), "FTP")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 matches, got %d: %q", len(lines), out)
	}
	if lines[0] != "unix/ftp/vsftpd_234_backdoor" {
		t.Errorf("Expected vsftpd module first, got %q", lines[0])
	}
}

func TestRunExploitResolvesSession(t *testing.T) {
	c, rpc := newTestClient(t, map[string]string{
		"module.execute": `{"job_id": 3, "uuid": "abc-123"}`,
		"session.list": `{"1": {"type": "shell", "tunnel_peer": "10.0.0.5:6200",
			"info": "", "via_exploit": "unix/ftp/vsftpd_234_backdoor",
			"exploit_uuid": "abc-123"}}`,
	})

	raw, err := c.RunExploit(context.Background(), "unix/ftp/vsftpd_234_backdoor", "10.0.0.5",
		map[string]any{"LPORT": 4444})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var run RunResult
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		t.Fatalf("Expected JSON result, got %v", err)
	}
	if run.JobID != 3 || run.UUID != "abc-123" || run.SessionID != 1 {
		t.Errorf("Expected job 3 uuid abc-123 session 1, got %+v", run)
	}

	execute := rpc.calls[0]
	if execute.Method != "module.execute" {
		t.Fatalf("Expected module.execute first, got %q", execute.Method)
	}
	datastore, ok := execute.Params[2].(map[string]any)
	if !ok {
		t.Fatalf("Expected datastore map, got %T", execute.Params[2])
	}
	if datastore["RHOSTS"] != "10.0.0.5" {
		t.Errorf("Expected RHOSTS set from target, got %v", datastore["RHOSTS"])
	}
	if datastore["LPORT"] != float64(4444) {
		t.Errorf("Expected LPORT carried through, got %v", datastore["LPORT"])
	}
}

func TestSessionsSortedJSON(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"session.list": `{
			"2": {"type": "meterpreter", "tunnel_peer": "10.0.0.6:4444", "info": "NT AUTHORITY\\SYSTEM", "via_exploit": "ms17_010"},
			"1": {"type": "shell", "tunnel_peer": "10.0.0.5:6200", "info": "", "via_exploit": "vsftpd_234_backdoor"}
		}`,
	})

	raw, err := c.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var records []sessionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		t.Fatalf("Expected JSON array, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(records))
	}
	if records[0].ID != 1 || records[1].ID != 2 {
		t.Errorf("Expected sessions sorted by ID, got %+v", records)
	}
	if records[0].Peer != "10.0.0.5:6200" {
		t.Errorf("Expected tunnel peer mapped, got %q", records[0].Peer)
	}
}

func TestExecuteCommandWriteThenRead(t *testing.T) {
	c, rpc := newTestClient(t, map[string]string{
		"session.shell_write": `{"write_count": "7"}`,
		"session.shell_read":  `{"data": "root\n"}`,
	})

	out, err := c.ExecuteCommand(context.Background(), 1, "whoami")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "root\n" {
		t.Errorf("Expected shell output, got %q", out)
	}
	if len(rpc.calls) != 2 || rpc.calls[0].Method != "session.shell_write" || rpc.calls[1].Method != "session.shell_read" {
		t.Errorf("Expected write then read, got %+v", rpc.calls)
	}
	if got := rpc.calls[0].Params[1]; got != "whoami\n" {
		t.Errorf("Expected newline-terminated command, got %q", got)
	}
}

func TestStopSession(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"session.stop": `{"result": "success"}`,
	})

	out, err := c.StopSession(context.Background(), 4)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "Session 4 stopped." {
		t.Errorf("Expected stop confirmation, got %q", out)
	}
}

func TestCapabilitiesArgumentHandling(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"session.stop": `{"result": "success"}`,
	})
	r := capability.NewRegistry()
	RegisterCapabilities(r, c)

	d, err := r.Resolve("stop_session")
	if err != nil {
		t.Fatalf("Expected resolution, got %v", err)
	}

	args := domain.NewArgs()
	args.Set("session_id", float64(4))
	out, err := d.Invoke(context.Background(), args)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "Session 4 stopped." {
		t.Errorf("Expected stop confirmation, got %q", out)
	}

	if _, err := d.Invoke(context.Background(), nil); err == nil {
		t.Error("Expected error for missing session_id")
	}
}
