package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Landmarklens/ImobiliareScraper/models"
)

func entryAt(t time.Time, price float64) models.PriceHistoryEntry {
	return models.PriceHistoryEntry{Fingerprint: "fp", ObservedAt: t, PriceRON: &price}
}

func TestLedgerBoundsEntryCount(t *testing.T) {
	l := NewLedger(Retention{MaxEntries: 5})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		l.Append(entryAt(base.Add(time.Duration(i)*time.Hour), float64(1000+i)))
	}

	assert.Equal(t, 5, l.Len())
	all := l.All()
	// Oldest retained is the 16th append; the newest is always last.
	assert.Equal(t, base.Add(15*time.Hour), all[0].ObservedAt)
	assert.Equal(t, base.Add(19*time.Hour), all[4].ObservedAt)
}

func TestLedgerEvictsByAge(t *testing.T) {
	l := NewLedger(Retention{MaxAge: 48 * time.Hour})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	l.Append(entryAt(base, 100))
	l.Append(entryAt(base.Add(24*time.Hour), 200))
	l.Append(entryAt(base.Add(96*time.Hour), 300))

	// Only the last two survive: the first is older than the window.
	require.Equal(t, 2, l.Len())
	all := l.All()
	assert.Equal(t, base.Add(24*time.Hour), all[0].ObservedAt)
	assert.Equal(t, base.Add(96*time.Hour), all[1].ObservedAt)
}

func TestLedgerNeverEvictsTwoNewest(t *testing.T) {
	l := NewLedger(Retention{MaxEntries: 1, MaxAge: time.Minute})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	l.Append(entryAt(base, 100))
	l.Append(entryAt(base.Add(365*24*time.Hour), 200))

	// Both entries are outside every bound, yet the previous price must
	// stay reconstructable from history.
	assert.Equal(t, 2, l.Len())
}

func TestLedgerLatestIsNewestFirst(t *testing.T) {
	l := NewLedger(Retention{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		l.Append(entryAt(base.Add(time.Duration(i)*time.Hour), float64(i)))
	}

	latest := l.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, base.Add(3*time.Hour), latest[0].ObservedAt)
	assert.Equal(t, base.Add(2*time.Hour), latest[1].ObservedAt)

	assert.Len(t, l.Latest(10), 4)
}

func TestLedgerWithin(t *testing.T) {
	l := NewLedger(Retention{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Append(entryAt(base, 100))
	l.Append(entryAt(base.Add(10*24*time.Hour), 200))
	l.Append(entryAt(base.Add(20*24*time.Hour), 300))

	now := base.Add(21 * 24 * time.Hour)
	recent := l.Within(now, 14*24*time.Hour)
	require.Len(t, recent, 2)
	assert.Equal(t, base.Add(10*24*time.Hour), recent[0].ObservedAt)
}
