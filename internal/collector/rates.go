package collector

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// ioCounters is a cumulative read/write byte pair for one device or dataset.
type ioCounters struct {
	read  uint64
	write uint64
}

// ioRate is the per-second rate of one key over the last interval.
type ioRate struct {
	key         string
	readPerSec  uint64
	writePerSec uint64
	totalRead   uint64
	totalWrite  uint64
}

// rateTracker turns cumulative counters keyed by name into per-second rates.
// A key seen for the first time reports 0 while its baseline is recorded, and
// keys missing from an update are forgotten. Not safe for concurrent use.
type rateTracker struct {
	prev map[string]ioCounters
	last time.Time
	now  func() time.Time
}

func newRateTracker() *rateTracker {
	return &rateTracker{prev: make(map[string]ioCounters), now: time.Now}
}

// update records cur and returns one rate per key, sorted by key.
func (t *rateTracker) update(cur map[string]ioCounters) []ioRate {
	now := t.now()
	var elapsed time.Duration
	if !t.last.IsZero() {
		elapsed = now.Sub(t.last)
	}
	t.last = now

	keys := lo.Keys(cur)
	slices.Sort(keys)

	rates := make([]ioRate, 0, len(keys))
	for _, k := range keys {
		c := cur[k]
		r := ioRate{key: k, totalRead: c.read, totalWrite: c.write}
		if p, ok := t.prev[k]; ok {
			r.readPerSec = harvest.PerSecond(harvest.SaturatingSub(c.read, p.read), elapsed)
			r.writePerSec = harvest.PerSecond(harvest.SaturatingSub(c.write, p.write), elapsed)
		}
		rates = append(rates, r)
	}

	for k := range t.prev {
		if _, ok := cur[k]; !ok {
			delete(t.prev, k)
		}
	}
	for k, c := range cur {
		t.prev[k] = c
	}
	return rates
}

// tracked returns the number of keys with a recorded baseline.
func (t *rateTracker) tracked() int {
	return len(t.prev)
}
