// Package notify maintains the bounded, self-expiring list of user-facing
// event notifications shown on the inventory dashboard.
package notify

import (
	"sync"
	"time"
)

// Kind classifies a notification.
type Kind string

const (
	// KindInfo marks informational events such as sales.
	KindInfo Kind = "info"
	// KindSuccess marks positive events such as restocks.
	KindSuccess Kind = "success"
	// KindWarning marks conditions needing attention such as low stock.
	KindWarning Kind = "warning"
)

// Notification is a single dashboard notification. The ID doubles as the
// creation timestamp in nanoseconds.
type Notification struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	// DefaultCapacity bounds the list to the most recent entries.
	DefaultCapacity = 10
	// DefaultTTL is how long each notification stays before auto-removal.
	DefaultTTL = 5 * time.Second
)

// Config groups optional Manager settings.
type Config struct {
	Capacity int
	TTL      time.Duration
	// OnDrop is invoked with the number of notifications evicted when the
	// capacity bound truncates the list.
	OnDrop func(count int)
}

// Manager owns the notification list. Entries are kept most-recent-first,
// truncated to capacity, and each one is removed TTL after its own creation
// regardless of later pushes.
type Manager struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	onDrop   func(int)
	list     []Notification
	timers   map[int64]*time.Timer
	lastID   int64
	closed   bool
}

// NewManager constructs a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		onDrop:   cfg.OnDrop,
		timers:   make(map[int64]*time.Timer),
	}
}

// Push prepends a notification and schedules its removal. It returns the
// stored notification so callers can reference its id.
func (m *Manager) Push(kind Kind, title, message string) Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Notification{}
	}
	now := time.Now()
	id := now.UnixNano()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id

	n := Notification{ID: id, Kind: kind, Title: title, Message: message, Timestamp: now}
	m.list = append([]Notification{n}, m.list...)
	if len(m.list) > m.capacity {
		evicted := m.list[m.capacity:]
		for _, old := range evicted {
			m.cancelTimerLocked(old.ID)
		}
		m.list = m.list[:m.capacity]
		if m.onDrop != nil {
			m.onDrop(len(evicted))
		}
	}
	m.timers[id] = time.AfterFunc(m.ttl, func() { m.expire(id) })
	return n
}

// Info pushes an informational notification.
func (m *Manager) Info(title, message string) { m.Push(KindInfo, title, message) }

// Success pushes a success notification.
func (m *Manager) Success(title, message string) { m.Push(KindSuccess, title, message) }

// Warning pushes a warning notification.
func (m *Manager) Warning(title, message string) { m.Push(KindWarning, title, message) }

// Dismiss removes a notification immediately and cancels its pending expiry.
// It reports whether the id was present.
func (m *Manager) Dismiss(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked(id)
	return m.removeLocked(id)
}

// List returns a copy of the current notifications, most recent first.
func (m *Manager) List() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.list))
	copy(out, m.list)
	return out
}

// Len reports the current list length.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.list)
}

// Close cancels every pending expiry and rejects further pushes. Safe to call
// more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.list = nil
}

func (m *Manager) expire(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, id)
	m.removeLocked(id)
}

func (m *Manager) cancelTimerLocked(id int64) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) removeLocked(id int64) bool {
	for i, n := range m.list {
		if n.ID == id {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return true
		}
	}
	return false
}
