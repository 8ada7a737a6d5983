package ai

import "sync"

// UsageTracker accumulates token usage per call kind for the admin dashboard.
// Counts are process-local and reset on restart.
type UsageTracker struct {
	mu     sync.RWMutex
	calls  map[string]int64
	tokens map[string]int64
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		calls:  make(map[string]int64),
		tokens: make(map[string]int64),
	}
}

// Record adds one call of the given kind and its token count.
func (u *UsageTracker) Record(call string, tokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls[call]++
	u.tokens[call] += int64(tokens)
}

// Usage returns the call and token counts for one call kind.
func (u *UsageTracker) Usage(call string) (calls, tokens int64) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.calls[call], u.tokens[call]
}

// Totals returns the overall call and token counts.
func (u *UsageTracker) Totals() (calls, tokens int64) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, c := range u.calls {
		calls += c
	}
	for _, t := range u.tokens {
		tokens += t
	}
	return calls, tokens
}
