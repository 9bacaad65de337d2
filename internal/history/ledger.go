// Package history maintains the append-only ledger of engagement turns and
// derives summaries and reports from it.
package history

import (
	"sync"

	"github.com/aranea-sec/aranea/internal/domain"
)

// Ledger is the ordered record of one session's turns. Append is the only
// mutator; entries are immutable once appended. A session's worker is the
// only writer, but summaries and reports may be read from other goroutines,
// so access is guarded.
type Ledger struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append stores entry with the next turn index and returns the stored copy.
func (l *Ledger) Append(entry domain.HistoryEntry) domain.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.TurnIndex = len(l.entries)
	l.entries = append(l.entries, entry)
	return entry
}

// All returns the full ordered sequence of entries.
func (l *Ledger) All() []domain.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns the last n entries, or all of them when the ledger is
// shorter. It never fails.
func (l *Ledger) Tail(n int) []domain.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.HistoryEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Len returns the number of recorded turns.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear atomically replaces the sequence with an empty one and returns how
// many entries were dropped.
func (l *Ledger) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	l.entries = nil
	return n
}
