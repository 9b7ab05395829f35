package utils

import (
	"sort"
	"sync"
	"time"
)

// SlidingWindow counts events that happened within the trailing span.
// Events must be recorded in non-decreasing time order.
type SlidingWindow struct {
	mu     sync.Mutex
	span   time.Duration
	events []time.Time
}

func NewSlidingWindow(span time.Duration) *SlidingWindow {
	return &SlidingWindow{span: span}
}

// Add records an event and returns how many events the window holds, this one included.
func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expire(now)
	w.events = append(w.events, now)
	return len(w.events)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expire(now)
	return len(w.events)
}

// expire drops events at or before now-span.
func (w *SlidingWindow) expire(now time.Time) {
	cutoff := now.Add(-w.span)
	keep := sort.Search(len(w.events), func(i int) bool {
		return w.events[i].After(cutoff)
	})
	if keep == len(w.events) {
		w.events = w.events[:0]
		return
	}
	w.events = w.events[keep:]
}
