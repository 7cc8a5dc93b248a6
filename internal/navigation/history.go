package navigation

import (
	"strings"
	"sync"
)

// Listener is notified with the query string of every new location.
type Listener func(query string)

// History is an in-memory browser-style location stack. It is the one shared
// place the page's query string lives; writers always hand it complete strings.
// Listeners see locations in the order they were set and must not change the
// history themselves.
type History struct {
	// dispatch is held across a change and its notification.
	dispatch  sync.Mutex
	mu        sync.Mutex
	entries   []string
	index     int
	nextID    int
	listeners map[int]Listener
}

// NewHistory creates a history positioned at the initial query.
func NewHistory(initial string) *History {
	return &History{
		entries:   []string{strings.TrimPrefix(initial, "?")},
		listeners: make(map[int]Listener),
	}
}

// Location returns the current query string.
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Len returns the number of entries on the stack.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Push appends query as a new entry, dropping any forward entries.
func (h *History) Push(query string) {
	query = strings.TrimPrefix(query, "?")
	h.dispatch.Lock()
	defer h.dispatch.Unlock()
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], query)
	h.index = len(h.entries) - 1
	listeners := h.snapshotListeners()
	h.mu.Unlock()
	notify(listeners, query)
}

// PushState encodes s and pushes it.
func (h *History) PushState(s NavState) {
	h.Push(Encode(s))
}

// Replace overwrites the current entry.
func (h *History) Replace(query string) {
	query = strings.TrimPrefix(query, "?")
	h.dispatch.Lock()
	defer h.dispatch.Unlock()
	h.mu.Lock()
	h.entries[h.index] = query
	listeners := h.snapshotListeners()
	h.mu.Unlock()
	notify(listeners, query)
}

// Navigate models a manual edit of the address bar.
func (h *History) Navigate(query string) {
	h.Push(query)
}

// Back moves one entry back. It returns false at the start of the stack.
func (h *History) Back() bool {
	return h.move(-1)
}

// Forward moves one entry forward. It returns false at the end of the stack.
func (h *History) Forward() bool {
	return h.move(1)
}

func (h *History) move(delta int) bool {
	h.dispatch.Lock()
	defer h.dispatch.Unlock()
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = next
	query := h.entries[next]
	listeners := h.snapshotListeners()
	h.mu.Unlock()
	notify(listeners, query)
	return true
}

// Subscribe registers fn for location changes. The returned func removes it.
func (h *History) Subscribe(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// snapshotListeners must be called with mu held.
func (h *History) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(h.listeners))
	for i := 0; i < h.nextID; i++ {
		if fn, ok := h.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(listeners []Listener, query string) {
	for _, fn := range listeners {
		fn(query)
	}
}
