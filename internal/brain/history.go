package brain

import "sync"

// DefaultHistorySize is the history bound used when none is configured.
const DefaultHistorySize = 10

// History is a bounded FIFO of recent interactions.
type History struct {
	mu      sync.RWMutex
	entries []Interaction
	max     int
}

// NewHistory creates a history holding at most max entries.
// Non-positive values use DefaultHistorySize.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{entries: make([]Interaction, 0, max), max: max}
}

// Add appends an interaction, dropping the oldest entries beyond the bound.
func (h *History) Add(entry Interaction) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if excess := len(h.entries) - h.max; excess > 0 {
		h.entries = append(h.entries[:0], h.entries[excess:]...)
	}
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []Interaction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Interaction, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of stored interactions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Max returns the bound.
func (h *History) Max() int {
	return h.max
}
