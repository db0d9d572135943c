package riskengine

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// frequencyLRUSize bounds per-heuristic memory at O(10000) regardless
// of traffic volume.
const frequencyLRUSize = 10000

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// record appends now and drops timestamps older than span, returning
// the resulting count.
func (w *window) record(now time.Time, span time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timestamps = pruneBefore(w.timestamps, now.Add(-span))
	w.timestamps = append(w.timestamps, now)
	return len(w.timestamps)
}

// prune drops timestamps older than cutoff without recording a new
// one, returning the remaining count.
func (w *window) prune(cutoff time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timestamps = pruneBefore(w.timestamps, cutoff)
	return len(w.timestamps)
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// slidingWindowTracker counts events per key within a trailing span.
// Keys live in a bounded LRU so an adversary sending traffic from
// unbounded distinct addresses cannot grow memory past the bound.
type slidingWindowTracker struct {
	span  time.Duration
	cache *lru.Cache[string, *window]
}

func newSlidingWindowTracker(span time.Duration) *slidingWindowTracker {
	cache, err := lru.New[string, *window](frequencyLRUSize)
	if err != nil {
		// Only fails on a non-positive size, which frequencyLRUSize never is.
		panic("riskengine: failed to allocate frequency LRU: " + err.Error())
	}
	return &slidingWindowTracker{span: span, cache: cache}
}

// record adds now to key's window and returns the count within span
// after the addition.
func (t *slidingWindowTracker) record(key string, now time.Time) int {
	w, ok := t.cache.Get(key)
	if !ok {
		w = &window{}
		t.cache.Add(key, w)
	}
	return w.record(now, t.span)
}

// sweep drops timestamps older than 2*span for every key and evicts
// keys left with none. Intended to run on a 5-minute background tick
// so idle keys don't linger in the LRU between accesses.
func (t *slidingWindowTracker) sweep(now time.Time) {
	cutoff := now.Add(-2 * t.span)
	for _, key := range t.cache.Keys() {
		w, ok := t.cache.Peek(key)
		if !ok {
			continue
		}
		if w.prune(cutoff) == 0 {
			t.cache.Remove(key)
		}
	}
}
