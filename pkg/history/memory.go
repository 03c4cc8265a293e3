package history

import "sync"

// Entry is a single location in the history.
type Entry struct {
	URL string
}

// Memory is a stack of entries with a cursor.
type Memory struct {
	mu       sync.Mutex
	entries  []Entry
	index    int
	listener func(url string)
}

// NewMemory creates a history whose only entry is initial.
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{entries: []Entry{{URL: initial}}}
}

// Push adds a new entry after the cursor, discarding forward entries.
func (m *Memory) Push(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], Entry{URL: url})
	m.index = len(m.entries) - 1
}

// Replace overwrites the entry at the cursor.
func (m *Memory) Replace(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = Entry{URL: url}
}

// Location returns the URL at the cursor.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index].URL
}

// Listen sets the traversal listener. Only one listener is kept.
func (m *Memory) Listen(fn func(url string)) {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
}

// Back moves the cursor one entry back. It returns false at the start.
func (m *Memory) Back() bool {
	return m.Go(-1)
}

// Forward moves the cursor one entry forward. It returns false at the end.
func (m *Memory) Forward() bool {
	return m.Go(1)
}

// Go moves the cursor by delta entries and notifies the listener.
// It returns false, without notifying, when the target is out of range.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = target
	url := m.entries[target].URL
	fn := m.listener
	m.mu.Unlock()

	if fn != nil {
		fn(url)
	}
	return true
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the cursor position.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Entries returns a copy of all entries.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
