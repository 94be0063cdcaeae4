package pricing

import (
	"time"

	"github.com/Landmarklens/ImobiliareScraper/models"
)

// Retention bounds a record's price history. Zero values disable the
// respective bound.
type Retention struct {
	MaxEntries int
	MaxAge     time.Duration
}

// Ledger is the in-memory form of a record's price history: append-only,
// ordered by observation time ascending, bounded by a retention policy.
// Eviction never removes the two most recent entries, so the previous
// price stays reconstructable from history alone.
type Ledger struct {
	entries   []models.PriceHistoryEntry
	retention Retention
}

func NewLedger(retention Retention) *Ledger {
	return &Ledger{retention: retention}
}

// Append adds an entry and evicts anything beyond the retention bounds.
func (l *Ledger) Append(entry models.PriceHistoryEntry) {
	l.entries = append(l.entries, entry)
	l.prune(entry.ObservedAt)
}

func (l *Ledger) prune(now time.Time) {
	keepFrom := 0
	if l.retention.MaxEntries > 0 && len(l.entries) > l.retention.MaxEntries {
		keepFrom = len(l.entries) - l.retention.MaxEntries
	}
	if l.retention.MaxAge > 0 {
		cutoff := now.Add(-l.retention.MaxAge)
		for keepFrom < len(l.entries) && l.entries[keepFrom].ObservedAt.Before(cutoff) {
			keepFrom++
		}
	}
	// The two newest entries survive any policy.
	if keepFrom > len(l.entries)-2 {
		keepFrom = len(l.entries) - 2
	}
	if keepFrom > 0 {
		l.entries = append(l.entries[:0], l.entries[keepFrom:]...)
	}
}

// Len returns the number of retained entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Latest returns up to n entries, most recent first.
func (l *Ledger) Latest(n int) []models.PriceHistoryEntry {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]models.PriceHistoryEntry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Within returns the entries inside the trailing window ending at now,
// oldest first.
func (l *Ledger) Within(now time.Time, window time.Duration) []models.PriceHistoryEntry {
	cutoff := now.Add(-window)
	var out []models.PriceHistoryEntry
	for _, e := range l.entries {
		if !e.ObservedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// All returns the retained entries oldest first.
func (l *Ledger) All() []models.PriceHistoryEntry {
	out := make([]models.PriceHistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
