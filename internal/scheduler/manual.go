package scheduler

import (
	"sync"
	"time"
)

// ManualTicker fires only when Tick is called. It lets callers drive
// recurring tasks step by step.
type ManualTicker struct {
	mu      sync.Mutex
	tasks   map[int]func()
	next    int
	started int
}

// NewManualTicker creates an idle manual ticker
func NewManualTicker() *ManualTicker {
	return &ManualTicker{tasks: make(map[int]func())}
}

// Every registers fn; interval is ignored
func (m *ManualTicker) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.started++
	m.tasks[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Tick runs every registered task once, synchronously
func (m *ManualTicker) Tick() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.tasks))
	for _, fn := range m.tasks {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Active returns the number of registered, unstopped tasks
func (m *ManualTicker) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Started returns how many tasks were ever registered
func (m *ManualTicker) Started() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}
