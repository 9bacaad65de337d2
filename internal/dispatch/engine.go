// Package dispatch drives one conversational turn end to end: model call,
// directive extraction, capability resolution and invocation, result
// formatting, event emission and history append.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/directive"
	"github.com/aranea-sec/aranea/internal/domain"
	"github.com/aranea-sec/aranea/internal/events"
	"github.com/aranea-sec/aranea/internal/format"
	"github.com/aranea-sec/aranea/internal/history"
	"github.com/aranea-sec/aranea/internal/model"
)

// EventSink delivers one turn event to the session's client.
type EventSink interface {
	Send(ctx context.Context, sessionID, kind string, data any) error
}

// TurnRecorder persists a completed turn. Recorder failures are logged and
// never fail the turn.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, sessionID string, entry domain.HistoryEntry) error
}

// Engine executes turns. All collaborators are injected at construction; the
// engine holds no per-session state of its own.
type Engine struct {
	model    model.Client
	registry *capability.Registry
	sink     EventSink
	recorder TurnRecorder
	now      func() time.Time
}

func NewEngine(client model.Client, registry *capability.Registry, sink EventSink, recorder TurnRecorder) *Engine {
	return &Engine{
		model:    client,
		registry: registry,
		sink:     sink,
		recorder: recorder,
		now:      time.Now,
	}
}

// HandleTurn runs one turn for a session against its ledger. Every branch
// appends exactly one history entry; failures degrade to error events, never
// to a panic or a lost turn.
func (e *Engine) HandleTurn(ctx context.Context, sessionID string, ledger *history.Ledger, query string) {
	entry := domain.HistoryEntry{
		Query:     query,
		Timestamp: e.now(),
	}
	defer func() {
		stored := ledger.Append(entry)
		e.record(ctx, sessionID, stored)
	}()

	reply, err := e.model.Complete(ctx, query)
	if err != nil {
		slog.Error("Model completion failed", "session_id", sessionID, "error", err)
		e.emit(ctx, sessionID, events.KindError, map[string]string{
			"message": fmt.Sprintf("The assistant is unavailable: %v", err),
		})
		entry.RawResult = err.Error()
		return
	}

	parsed := directive.Parse(reply)
	entry.ResponseText = parsed.Directive.UserMessage

	// Malformed argument literals degrade to absent arguments but stay
	// observable.
	if parsed.ArgsErr != nil {
		slog.Warn("Malformed function arguments", "session_id", sessionID, "raw", parsed.ArgsRaw, "error", parsed.ArgsErr)
		e.emit(ctx, sessionID, events.KindError, map[string]string{
			"message": fmt.Sprintf("Could not parse function arguments %q: %v", parsed.ArgsRaw, parsed.ArgsErr),
		})
	}

	functionName := parsed.Directive.FunctionName
	if functionName == "" {
		e.emit(ctx, sessionID, events.KindTextNoFunction, map[string]string{
			"message": parsed.Directive.UserMessage,
		})
		return
	}

	desc, err := e.registry.Resolve(functionName)
	if err != nil {
		var unavailable *capability.DomainUnavailableError
		switch {
		case errors.As(err, &unavailable):
			slog.Warn("Capability domain unavailable", "session_id", sessionID, "function", functionName, "domain", unavailable.Domain)
			e.emit(ctx, sessionID, events.KindError, map[string]string{
				"message": fmt.Sprintf("The %s tools are not available right now; their backing service failed to start.", unavailable.Domain),
			})
			entry.FunctionExecuted = functionName
			entry.FunctionArgs = parsed.Directive.Args
		default:
			// An unknown name is a conversational miss, not an error.
			slog.Info("Unknown function in directive", "session_id", sessionID, "function", functionName)
			e.emit(ctx, sessionID, events.KindTextNoFunction, map[string]string{
				"message": parsed.Directive.UserMessage,
			})
		}
		return
	}

	e.emit(ctx, sessionID, events.KindTextWithFunction, map[string]string{
		"message":  parsed.Directive.UserMessage,
		"function": functionName,
	})

	entry.FunctionExecuted = functionName
	entry.FunctionArgs = parsed.Directive.Args

	// Reporting capabilities read the session's own history.
	raw, err := desc.Invoke(history.NewContext(ctx, ledger), parsed.Directive.Args)
	if err != nil {
		slog.Error("Capability invocation failed", "session_id", sessionID, "function", functionName, "error", err)
		e.emit(ctx, sessionID, events.KindError, map[string]string{
			"message":  err.Error(),
			"function": functionName,
		})
		entry.RawResult = err.Error()
		return
	}

	formatted := format.Format(functionName, parsed.Directive.Args, raw)
	e.emit(ctx, sessionID, events.KindFunctionResult, map[string]string{
		"function": functionName,
		"result":   formatted,
	})
	entry.RawResult = raw
	entry.FormattedResult = formatted
}

func (e *Engine) emit(ctx context.Context, sessionID, kind string, data any) {
	if err := e.sink.Send(ctx, sessionID, kind, data); err != nil {
		slog.Warn("Failed to deliver event", "session_id", sessionID, "event", kind, "error", err)
	}
}

func (e *Engine) record(ctx context.Context, sessionID string, entry domain.HistoryEntry) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordTurn(ctx, sessionID, entry); err != nil {
		slog.Warn("Failed to persist turn", "session_id", sessionID, "error", err)
	}
}
