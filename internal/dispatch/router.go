package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aranea-sec/aranea/internal/history"
)

// queueCapacity bounds how many turns a session may have waiting. A full
// queue rejects new turns instead of blocking the caller.
const queueCapacity = 16

// ErrQueueFull is returned by Submit when a session's turn queue is at
// capacity.
var ErrQueueFull = errors.New("session queue is full")

// ErrClosed is returned by Submit after the router has shut down.
var ErrClosed = errors.New("router is closed")

type session struct {
	queue  chan string
	quit   chan struct{}
	ledger *history.Ledger

	// Guarded by Router.mu. The reaper skips sessions that are mid-turn or
	// have queued work.
	busy       bool
	lastActive time.Time
}

// Router runs one worker goroutine per session. Turns submitted for the same
// session execute strictly in arrival order; distinct sessions run in
// parallel.
type Router struct {
	engine  *Engine
	baseCtx context.Context

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
}

// NewRouter builds a router whose workers run turns under baseCtx.
func NewRouter(baseCtx context.Context, engine *Engine) *Router {
	return &Router{
		engine:   engine,
		baseCtx:  baseCtx,
		sessions: make(map[string]*session),
	}
}

// Submit enqueues one turn for the session, creating its worker on first use.
// The enqueue happens under the router lock so the idle reaper can never
// tear a session down between lookup and enqueue.
func (r *Router) Submit(sessionID, query string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	s := r.ensureSessionLocked(sessionID)

	select {
	case s.queue <- query:
		s.lastActive = time.Now()
		return nil
	default:
		return fmt.Errorf("%w: session %s", ErrQueueFull, sessionID)
	}
}

// Ledger returns the session's history ledger, creating the session if
// needed.
func (r *Router) Ledger(sessionID string) *history.Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureSessionLocked(sessionID).ledger
}

// ensureSessionLocked returns the session, spawning its worker when absent.
// Caller holds r.mu.
func (r *Router) ensureSessionLocked(sessionID string) *session {
	if s, ok := r.sessions[sessionID]; ok {
		return s
	}

	s := &session{
		queue:      make(chan string, queueCapacity),
		quit:       make(chan struct{}),
		ledger:     history.NewLedger(),
		lastActive: time.Now(),
	}
	r.sessions[sessionID] = s

	r.wg.Add(1)
	go r.work(sessionID, s)
	return s
}

// work processes the session's turns one at a time until the session is
// closed. Queued turns not yet started when the session closes are dropped;
// history already appended stays intact.
func (r *Router) work(sessionID string, s *session) {
	defer r.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		default:
		}

		select {
		case <-s.quit:
			return
		case query := <-s.queue:
			r.setBusy(s, true)
			r.engine.HandleTurn(r.baseCtx, sessionID, s.ledger, query)
			r.setBusy(s, false)
		}
	}
}

func (r *Router) setBusy(s *session, busy bool) {
	r.mu.Lock()
	s.busy = busy
	if !busy {
		s.lastActive = time.Now()
	}
	r.mu.Unlock()
}

// CloseSession tears down the session's worker. Unstarted queued turns are
// lost.
func (r *Router) CloseSession(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if ok {
		close(s.quit)
		slog.Info("Session closed", "session_id", sessionID)
	}
}

// ResetSession clears the session's history and returns how many turns were
// dropped.
func (r *Router) ResetSession(sessionID string) int {
	return r.Ledger(sessionID).Clear()
}

// reaperInterval is how often the idle reaper sweeps the session table.
const reaperInterval = time.Minute

// StartIdleReaper runs a background goroutine that tears down sessions with
// no activity for ttl, so abandoned session keys do not hold a worker and a
// ledger forever. onClose, when non-nil, is called with each reaped session
// ID so callers can release related resources (e.g. the event connection).
func (r *Router) StartIdleReaper(ctx context.Context, ttl time.Duration, onClose func(sessionID string)) {
	ticker := time.NewTicker(reaperInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Idle session reaper started", "interval", reaperInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				r.reapIdle(ttl, onClose)
			case <-ctx.Done():
				slog.Info("Idle session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// reapIdle closes every session that is not mid-turn, has an empty queue,
// and has been inactive past ttl.
func (r *Router) reapIdle(ttl time.Duration, onClose func(sessionID string)) {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var reaped []*session
	var ids []string
	for id, s := range r.sessions {
		if s.busy || len(s.queue) > 0 || s.lastActive.After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		reaped = append(reaped, s)
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for i, s := range reaped {
		close(s.quit)
		if onClose != nil {
			onClose(ids[i])
		}
		slog.Info("Idle session reaped", "session_id", ids[i])
	}
}

// Shutdown stops accepting turns and waits for in-flight turns to finish or
// ctx to expire.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for id, s := range r.sessions {
		close(s.quit)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("router shutdown timed out: %w", ctx.Err())
	}
}
