package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/domain"
	"github.com/aranea-sec/aranea/internal/events"
	"github.com/aranea-sec/aranea/internal/history"
	"github.com/aranea-sec/aranea/internal/model"
)

type sinkEvent struct {
	SessionID string
	Kind      string
	Data      any
}

// recordingSink collects emitted events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *recordingSink) Send(_ context.Context, sessionID, kind string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{SessionID: sessionID, Kind: kind, Data: data})
	return nil
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func testRegistry(t *testing.T, invoked *int) *capability.Registry {
	t.Helper()
	r := capability.NewRegistry()
	r.Register(capability.Descriptor{
		Name:   "scan_target",
		Domain: capability.DomainRecon,
		Invoke: func(_ context.Context, args *domain.Args) (string, error) {
			if invoked != nil {
				*invoked++
			}
			return "Open " + args.String("ip_address") + ":22", nil
		},
	})
	r.Register(capability.Descriptor{
		Name:   "run_exploit",
		Domain: capability.DomainExploitation,
		Invoke: func(_ context.Context, _ *domain.Args) (string, error) {
			if invoked != nil {
				*invoked++
			}
			return `{"job_id":1,"uuid":"u","session_id":0}`, nil
		},
	})
	r.Register(capability.Descriptor{
		Name:   "failing_tool",
		Domain: capability.DomainRecon,
		Invoke: func(_ context.Context, _ *domain.Args) (string, error) {
			return "", errors.New("tool exploded")
		},
	})
	return r
}

func TestHandleTurnConversationalReply(t *testing.T) {
	sink := &recordingSink{}
	client := &model.StaticClient{Replies: []string{
		"response: Hello there!\nfunction_to_execute: null\nfunction_arguments: null",
	}}
	e := NewEngine(client, testRegistry(t, nil), sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "hi")

	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != events.KindTextNoFunction {
		t.Fatalf("Expected single no-function event, got %v", kinds)
	}
	entries := ledger.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	if entries[0].ResponseText != "Hello there!" || entries[0].FunctionExecuted != "" {
		t.Errorf("Expected conversational entry, got %+v", entries[0])
	}
}

func TestHandleTurnInvokesAndFormats(t *testing.T) {
	sink := &recordingSink{}
	var invoked int
	client := &model.StaticClient{Replies: []string{
		"response: Scanning now.\nfunction_to_execute: scan_target\nfunction_arguments: {\"ip_address\": \"10.0.0.5\"}",
	}}
	e := NewEngine(client, testRegistry(t, &invoked), sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "scan 10.0.0.5")

	kinds := sink.kinds()
	want := []string{events.KindTextWithFunction, events.KindFunctionResult}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, kinds)
	}
	if invoked != 1 {
		t.Errorf("Expected exactly one invocation, got %d", invoked)
	}

	entry := ledger.All()[0]
	if entry.FunctionExecuted != "scan_target" {
		t.Errorf("Expected scan_target recorded, got %q", entry.FunctionExecuted)
	}
	if entry.RawResult != "Open 10.0.0.5:22" {
		t.Errorf("Expected raw result recorded, got %q", entry.RawResult)
	}
	if !strings.Contains(entry.FormattedResult, "| 22 | ssh |") {
		t.Errorf("Expected formatted port table, got %q", entry.FormattedResult)
	}
}

func TestHandleTurnUnknownFunction(t *testing.T) {
	sink := &recordingSink{}
	var invoked int
	client := &model.StaticClient{Replies: []string{
		"response: On it.\nfunction_to_execute: not_a_tool\nfunction_arguments: null",
	}}
	e := NewEngine(client, testRegistry(t, &invoked), sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "do something")

	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != events.KindTextNoFunction {
		t.Fatalf("Expected exactly one no-function event, got %v", kinds)
	}
	if invoked != 0 {
		t.Errorf("Expected no invocation, got %d", invoked)
	}
	if entry := ledger.All()[0]; entry.FunctionExecuted != "" {
		t.Errorf("Expected no function recorded, got %q", entry.FunctionExecuted)
	}
}

func TestHandleTurnDomainUnavailable(t *testing.T) {
	sink := &recordingSink{}
	var invoked int
	registry := testRegistry(t, &invoked)
	registry.SetDomainAvailable(capability.DomainExploitation, false)
	client := &model.StaticClient{Replies: []string{
		"response: Launching.\nfunction_to_execute: run_exploit\nfunction_arguments: {\"exploit_name\": \"x\", \"target_ip\": \"10.0.0.5\"}",
	}}
	e := NewEngine(client, registry, sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "exploit it")

	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != events.KindError {
		t.Fatalf("Expected exactly one error event, got %v", kinds)
	}
	if invoked != 0 {
		t.Errorf("Expected no invocation, got %d", invoked)
	}

	sink.mu.Lock()
	data := sink.events[0].Data.(map[string]string)
	sink.mu.Unlock()
	if !strings.Contains(data["message"], "exploitation") {
		t.Errorf("Expected error naming the domain, got %q", data["message"])
	}

	entry := ledger.All()[0]
	if entry.FunctionExecuted != "run_exploit" {
		t.Errorf("Expected attempted function recorded, got %q", entry.FunctionExecuted)
	}
	if entry.FormattedResult != "" {
		t.Errorf("Expected no formatted result, got %q", entry.FormattedResult)
	}
}

func TestHandleTurnCapabilityFailure(t *testing.T) {
	sink := &recordingSink{}
	client := &model.StaticClient{Replies: []string{
		"response: Trying.\nfunction_to_execute: failing_tool\nfunction_arguments: null",
	}}
	e := NewEngine(client, testRegistry(t, nil), sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "try the tool")

	kinds := sink.kinds()
	want := []string{events.KindTextWithFunction, events.KindError}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, kinds)
	}

	entry := ledger.All()[0]
	if entry.RawResult != "tool exploded" {
		t.Errorf("Expected raw error recorded, got %q", entry.RawResult)
	}
	if entry.FormattedResult != "" {
		t.Errorf("Expected no formatted result, got %q", entry.FormattedResult)
	}
}

func TestHandleTurnMalformedArgumentsObservable(t *testing.T) {
	sink := &recordingSink{}
	client := &model.StaticClient{Replies: []string{
		"response: Scanning.\nfunction_to_execute: scan_target\nfunction_arguments: {broken",
	}}
	e := NewEngine(client, testRegistry(t, nil), sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "scan")

	kinds := sink.kinds()
	if len(kinds) == 0 || kinds[0] != events.KindError {
		t.Fatalf("Expected leading error event for malformed args, got %v", kinds)
	}

	sink.mu.Lock()
	data := sink.events[0].Data.(map[string]string)
	sink.mu.Unlock()
	if !strings.Contains(data["message"], "{broken") {
		t.Errorf("Expected malformed text surfaced, got %q", data["message"])
	}
}

func TestHandleTurnModelFailure(t *testing.T) {
	sink := &recordingSink{}
	client := &model.StaticClient{Err: errors.New("quota exceeded")}
	e := NewEngine(client, testRegistry(t, nil), sink, nil)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "hello")

	kinds := sink.kinds()
	if len(kinds) != 1 || kinds[0] != events.KindError {
		t.Fatalf("Expected single error event, got %v", kinds)
	}
	if ledger.Len() != 1 {
		t.Errorf("Expected turn still recorded, got %d entries", ledger.Len())
	}
}

type recordingRecorder struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	err     error
}

func (r *recordingRecorder) RecordTurn(_ context.Context, _ string, entry domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func TestHandleTurnPersistsCompletedTurn(t *testing.T) {
	sink := &recordingSink{}
	recorder := &recordingRecorder{}
	client := &model.StaticClient{Replies: []string{
		"response: Hi.\nfunction_to_execute: null\nfunction_arguments: null",
	}}
	e := NewEngine(client, testRegistry(t, nil), sink, recorder)

	e.HandleTurn(context.Background(), "s1", history.NewLedger(), "hi")

	if len(recorder.entries) != 1 {
		t.Fatalf("Expected 1 persisted turn, got %d", len(recorder.entries))
	}
	if recorder.entries[0].TurnIndex != 0 {
		t.Errorf("Expected persisted entry to carry its turn index, got %d", recorder.entries[0].TurnIndex)
	}
}

func TestHandleTurnRecorderFailureNotFatal(t *testing.T) {
	sink := &recordingSink{}
	recorder := &recordingRecorder{err: errors.New("db locked")}
	client := &model.StaticClient{Replies: []string{
		"response: Hi.\nfunction_to_execute: null\nfunction_arguments: null",
	}}
	e := NewEngine(client, testRegistry(t, nil), sink, recorder)
	ledger := history.NewLedger()

	e.HandleTurn(context.Background(), "s1", ledger, "hi")

	if ledger.Len() != 1 {
		t.Errorf("Expected turn appended despite recorder failure, got %d", ledger.Len())
	}
}
