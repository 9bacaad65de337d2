package offense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAttackNotFound is returned when stopping an attack that is not in the
// table. Stop is otherwise idempotent.
var ErrAttackNotFound = errors.New("no active attack matches")

// ErrAttackAlreadyRunning is returned when a flood is requested against a
// target that already has one.
var ErrAttackAlreadyRunning = errors.New("an attack against this target is already running")

type attack struct {
	id        string
	target    string // "ip:port"
	handle    string
	startedAt time.Time

	// launched closes once the runner call has returned and handle is
	// final. Stops wait on it so an in-flight launch cannot leak its
	// container.
	launched chan struct{}
}

// Manager owns the table of active attacks, keyed by "target_ip:target_port".
// All table mutations happen under one mutex so concurrent flood/stop calls
// against the same target serialize.
type Manager struct {
	runner Runner
	now    func() time.Time

	mu      sync.Mutex
	attacks map[string]*attack
}

func NewManager(runner Runner) *Manager {
	return &Manager{
		runner:  runner,
		now:     time.Now,
		attacks: make(map[string]*attack),
	}
}

// Flood starts a background attack against ip:port. The table entry is
// reserved before the runner launches so a concurrent duplicate fails fast;
// launch failure releases the reservation.
func (m *Manager) Flood(ctx context.Context, targetIP, targetPort string) (string, error) {
	target := targetIP + ":" + targetPort

	m.mu.Lock()
	if _, exists := m.attacks[target]; exists {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAttackAlreadyRunning, target)
	}
	a := &attack{id: uuid.NewString(), target: target, startedAt: m.now(), launched: make(chan struct{})}
	m.attacks[target] = a
	m.mu.Unlock()

	handle, err := m.runner.Launch(ctx, a.id, targetIP, targetPort)
	m.mu.Lock()
	a.handle = handle
	// A concurrent stop may have removed the entry already; it is waiting on
	// the launch gate and will stop the real container itself.
	if err != nil && m.attacks[target] == a {
		delete(m.attacks, target)
	}
	m.mu.Unlock()
	close(a.launched)

	if err != nil {
		return "", fmt.Errorf("failed to launch flood against %s: %w", target, err)
	}

	slog.Info("Flood attack started", "attack_id", a.id, "target", target)
	return fmt.Sprintf("Flood attack %s launched against %s. It will run until stopped.", a.id, target), nil
}

// StopByID stops the attack with the given ID.
func (m *Manager) StopByID(ctx context.Context, attackID string) (string, error) {
	m.mu.Lock()
	var found *attack
	for _, a := range m.attacks {
		if a.id == attackID || a.target == attackID {
			found = a
			break
		}
	}
	if found == nil {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: id %s", ErrAttackNotFound, attackID)
	}
	delete(m.attacks, found.target)
	m.mu.Unlock()

	return m.stop(ctx, found)
}

// StopByTarget stops the attack against ip:port.
func (m *Manager) StopByTarget(ctx context.Context, targetIP, targetPort string) (string, error) {
	target := targetIP + ":" + targetPort

	m.mu.Lock()
	a, ok := m.attacks[target]
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: target %s", ErrAttackNotFound, target)
	}
	delete(m.attacks, target)
	m.mu.Unlock()

	return m.stop(ctx, a)
}

func (m *Manager) stop(ctx context.Context, a *attack) (string, error) {
	// Wait out an in-flight launch so the stop targets the real container.
	select {
	case <-a.launched:
	case <-ctx.Done():
		return "", fmt.Errorf("stopping attack %s: %w", a.id, ctx.Err())
	}

	// An empty handle means the launch itself failed; no container to stop.
	if a.handle != "" {
		if err := m.runner.Stop(ctx, a.handle); err != nil {
			return "", fmt.Errorf("failed to stop attack %s: %w", a.id, err)
		}
	}
	slog.Info("Flood attack stopped", "attack_id", a.id, "target", a.target)
	return fmt.Sprintf("Flood attack %s against %s stopped.", a.id, a.target), nil
}

// StopAll tears down every active attack. Called during shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	remaining := make([]*attack, 0, len(m.attacks))
	for _, a := range m.attacks {
		remaining = append(remaining, a)
	}
	m.attacks = make(map[string]*attack)
	m.mu.Unlock()

	for _, a := range remaining {
		select {
		case <-a.launched:
		case <-ctx.Done():
			slog.Warn("Shutdown expired before attack launch settled", "attack_id", a.id)
			continue
		}
		if a.handle == "" {
			continue
		}
		if err := m.runner.Stop(ctx, a.handle); err != nil {
			slog.Warn("Failed to stop attack during shutdown", "attack_id", a.id, "error", err)
		}
	}
}

type attackRecord struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	StartedAt string `json:"started_at"`
	Running   bool   `json:"running"`
}

// List returns the active attacks as a JSON array ordered by start time.
func (m *Manager) List() (string, error) {
	m.mu.Lock()
	records := make([]attackRecord, 0, len(m.attacks))
	for _, a := range m.attacks {
		records = append(records, attackRecord{
			ID:        a.id,
			Target:    a.target,
			StartedAt: a.startedAt.UTC().Format(time.RFC3339),
			Running:   true,
		})
	}
	m.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].StartedAt != records[j].StartedAt {
			return records[i].StartedAt < records[j].StartedAt
		}
		return records[i].Target < records[j].Target
	})

	out, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode attacks: %w", err)
	}
	return string(out), nil
}
