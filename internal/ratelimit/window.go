package ratelimit

import "time"

// Window records dispatch timestamps over a sliding interval. It only keeps
// history; admission is decided by the caller through Allows.
// Not safe for concurrent use.
type Window struct {
	size        time.Duration
	maxRequests int
	timestamps  []time.Time
}

func NewWindow(size time.Duration, maxRequests int) *Window {
	return &Window{size: size, maxRequests: maxRequests}
}

func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.size)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// Count returns the number of timestamps inside (now-size, now].
func (w *Window) Count(now time.Time) int {
	w.prune(now)
	return len(w.timestamps)
}

// Allows reports whether one more request fits in the window at now.
func (w *Window) Allows(now time.Time) bool {
	return w.Count(now) < w.maxRequests
}

// Record appends a dispatch at now.
func (w *Window) Record(now time.Time) {
	w.timestamps = append(w.timestamps, now)
}

// Wait returns how long until the oldest entry leaves the window, or zero
// when a request is admissible now.
func (w *Window) Wait(now time.Time) time.Duration {
	if w.Allows(now) {
		return 0
	}

	// the entry whose expiry brings the count below the cap
	idx := len(w.timestamps) - w.maxRequests
	wait := w.timestamps[idx].Add(w.size).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

func (w *Window) Size() time.Duration {
	return w.size
}

func (w *Window) MaxRequests() int {
	return w.maxRequests
}
