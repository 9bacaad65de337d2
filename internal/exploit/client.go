// Package exploit implements the exploitation capabilities on top of the
// Metasploit JSON-RPC API.
package exploit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Client talks to msfrpcd's JSON-RPC endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client

	// delay between writing a command to a shell and reading its output
	readDelay time.Duration

	nextID atomic.Int64
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint:  endpoint,
		token:     token,
		http:      &http.Client{Timeout: 60 * time.Second},
		readDelay: time.Second,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metasploit %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metasploit %s returned status %d: %s", method, resp.StatusCode, string(raw))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("metasploit %s error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// Health probes the RPC endpoint. Used at startup to decide whether the
// exploitation domain is available.
func (c *Client) Health(ctx context.Context) error {
	var version struct {
		Version string `json:"version"`
	}
	if err := c.call(ctx, "core.version", nil, &version); err != nil {
		return err
	}
	return nil
}

// FindExploits returns the exploit module names containing the service name,
// one per line.
func (c *Client) FindExploits(ctx context.Context, serviceName string) (string, error) {
	var result struct {
		Modules []string `json:"modules"`
	}
	if err := c.call(ctx, "module.exploits", nil, &result); err != nil {
		return "", err
	}

	needle := strings.ToLower(serviceName)
	var matched []string
	for _, m := range result.Modules {
		if strings.Contains(strings.ToLower(m), needle) {
			matched = append(matched, m)
		}
	}
	return strings.Join(matched, "\n"), nil
}

// RunResult reports a launched exploit. SessionID is zero when no session has
// opened yet.
type RunResult struct {
	JobID     int    `json:"job_id"`
	UUID      string `json:"uuid"`
	SessionID int    `json:"session_id"`
}

// RunExploit launches an exploit module against a target. RHOSTS is set from
// targetIP; the options map overrides or extends the datastore. After launch
// the session list is checked once for a session opened by this run.
func (c *Client) RunExploit(ctx context.Context, exploitName, targetIP string, options map[string]any) (string, error) {
	datastore := map[string]any{"RHOSTS": targetIP}
	for k, v := range options {
		datastore[k] = v
	}

	var launched struct {
		JobID int    `json:"job_id"`
		UUID  string `json:"uuid"`
	}
	if err := c.call(ctx, "module.execute", []any{"exploit", exploitName, datastore}, &launched); err != nil {
		return "", err
	}

	run := RunResult{JobID: launched.JobID, UUID: launched.UUID}

	// Give the exploit a moment to pop a session before checking.
	select {
	case <-time.After(c.readDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if sessions, err := c.sessionList(ctx); err == nil {
		for id, info := range sessions {
			if info.ExploitUUID == launched.UUID {
				run.SessionID = id
				break
			}
		}
	}

	out, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to encode exploit result: %w", err)
	}
	return string(out), nil
}

type sessionInfo struct {
	Type        string `json:"type"`
	TunnelPeer  string `json:"tunnel_peer"`
	Info        string `json:"info"`
	ViaExploit  string `json:"via_exploit"`
	ExploitUUID string `json:"exploit_uuid"`
}

func (c *Client) sessionList(ctx context.Context) (map[int]sessionInfo, error) {
	var keyed map[string]sessionInfo
	if err := c.call(ctx, "session.list", nil, &keyed); err != nil {
		return nil, err
	}

	sessions := make(map[int]sessionInfo, len(keyed))
	for key, info := range keyed {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		sessions[id] = info
	}
	return sessions, nil
}

type sessionRecord struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Peer       string `json:"peer"`
	Info       string `json:"info"`
	ViaExploit string `json:"via_exploit"`
}

// Sessions returns the active sessions as a JSON array sorted by ID.
func (c *Client) Sessions(ctx context.Context) (string, error) {
	sessions, err := c.sessionList(ctx)
	if err != nil {
		return "", err
	}

	ids := make([]int, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	records := make([]sessionRecord, 0, len(ids))
	for _, id := range ids {
		info := sessions[id]
		records = append(records, sessionRecord{
			ID:         id,
			Type:       info.Type,
			Peer:       info.TunnelPeer,
			Info:       info.Info,
			ViaExploit: info.ViaExploit,
		})
	}

	out, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode sessions: %w", err)
	}
	return string(out), nil
}

// ExecuteCommand writes a command to a session's shell and reads the output
// after a short delay.
func (c *Client) ExecuteCommand(ctx context.Context, sessionID int, command string) (string, error) {
	if err := c.call(ctx, "session.shell_write", []any{sessionID, command + "\n"}, nil); err != nil {
		return "", err
	}

	select {
	case <-time.After(c.readDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var read struct {
		Data string `json:"data"`
	}
	if err := c.call(ctx, "session.shell_read", []any{sessionID}, &read); err != nil {
		return "", err
	}
	return read.Data, nil
}

// StopSession kills an active session.
func (c *Client) StopSession(ctx context.Context, sessionID int) (string, error) {
	if err := c.call(ctx, "session.stop", []any{sessionID}, nil); err != nil {
		return "", err
	}
	return fmt.Sprintf("Session %d stopped.", sessionID), nil
}
