package seestar

// DefaultHistorySize is the number of recent events a client keeps.
const DefaultHistorySize = 5

// History is a bounded FIFO of events; once full, each append evicts the
// oldest entry.
type History struct {
	buf   []Event
	start int
	size  int
}

// NewHistory creates a history holding at most capacity events.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]Event, capacity)}
}

// Append adds ev, evicting the oldest event when full.
func (h *History) Append(ev Event) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = ev
		h.size++
		return
	}
	h.buf[h.start] = ev
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored events.
func (h *History) Len() int {
	return h.size
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Events returns the stored events oldest first.
func (h *History) Events() []Event {
	out := make([]Event, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
