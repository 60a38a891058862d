package execution

import "sync"

// monthLocks serializes lifecycle mutations per month label. Concurrent
// StartTracking calls for the same month must not race past the
// existing-record check.
type monthLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMonthLocks() *monthLocks {
	return &monthLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for the given month and returns its release func
func (l *monthLocks) lock(month string) func() {
	l.mu.Lock()
	m, ok := l.locks[month]
	if !ok {
		m = &sync.Mutex{}
		l.locks[month] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
