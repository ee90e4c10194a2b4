// Package history keeps a linear undo/redo log of settings documents.
package history

import (
	"sync"

	"github.com/datarhei/settings/document"
)

// DefaultLimit is the number of entries kept if no limit is given.
const DefaultLimit = 50

// History is a bounded list of document snapshots with a cursor. Entries
// after the cursor can be redone. Pushing discards them.
type History struct {
	mu sync.Mutex

	entries []document.Document
	cursor  int
	limit   int
}

// New creates a history that keeps at most limit entries.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &History{
		cursor: -1,
		limit:  limit,
	}
}

// Push adds a copy of the document after the cursor. The oldest entries are
// dropped if the limit is exceeded.
func (h *History) Push(doc document.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.cursor+1], doc.Clone())

	if excess := len(h.entries) - h.limit; excess > 0 {
		clear(h.entries[:excess])
		h.entries = h.entries[excess:]
	}

	h.cursor = len(h.entries) - 1
}

// Undo moves the cursor back and returns a copy of the entry there. It
// returns false if there is nothing to undo.
func (h *History) Undo() (document.Document, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor <= 0 {
		return nil, false
	}

	h.cursor--

	return h.entries[h.cursor].Clone(), true
}

// Redo moves the cursor forward and returns a copy of the entry there. It
// returns false if there is nothing to redo.
func (h *History) Redo() (document.Document, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= len(h.entries)-1 {
		return nil, false
	}

	h.cursor++

	return h.entries[h.cursor].Clone(), true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cursor > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cursor < len(h.entries)-1
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.entries)
}

// Cursor returns the index of the current entry, -1 if empty.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cursor
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	h.cursor = -1
}
