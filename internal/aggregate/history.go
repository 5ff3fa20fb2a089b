package aggregate

import (
	"sync"

	"github.com/sells-group/prospect-cli/internal/model"
)

// DefaultHistorySize is how many entries a History keeps.
const DefaultHistorySize = 10

// History is a bounded, newest-first list of completed runs. It is safe for
// concurrent use.
type History struct {
	mu      sync.Mutex
	size    int
	entries []model.HistoryEntry
}

// NewHistory creates a History holding at most size entries. A non-positive
// size uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Record prepends e, evicting the oldest entry when full.
func (h *History) Record(e model.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]model.HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.size {
		h.entries = h.entries[:h.size]
	}
}

// Entries returns a copy of the history, newest first.
func (h *History) Entries() []model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
