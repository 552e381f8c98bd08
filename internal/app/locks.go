package app

import "sync"

// RecordLocks hands out one mutex per CTF record so that ledger writes
// and sweep transitions touching the same record serialize, while
// unrelated records proceed independently.
type RecordLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRecordLocks creates an empty lock registry.
func NewRecordLocks() *RecordLocks {
	return &RecordLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the mutex for the given record ID and returns the
// matching unlock function.
func (l *RecordLocks) Acquire(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Forget drops the mutex for a record that no longer exists, so the
// registry does not grow for the life of the process. Callers forget an
// ID only after its record is deleted; a later Acquire for the same ID
// starts fresh.
func (l *RecordLocks) Forget(id string) {
	l.mu.Lock()
	delete(l.locks, id)
	l.mu.Unlock()
}
