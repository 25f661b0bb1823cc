package shared

import (
	"fmt"
	"sync"
)

// ProductLockKey builds keys for per-product ledger critical sections.
func ProductLockKey(productID int64) string {
	return fmt.Sprintf("kardex:product:%d:lock", productID)
}

// KeyMutex serializes work per string key. The kardex write path holds the
// product key across its append-then-recompute sequence so two writers on the
// same product cannot interleave; writes to different products proceed in
// parallel.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex constructs a KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key, blocking until available.
func (m *KeyMutex) Lock(key string) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the mutex for key. Entries are removed once no goroutine
// waits on them to keep the map from growing with the product catalog.
func (m *KeyMutex) Unlock(key string) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if ok {
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
	}
	m.mu.Unlock()

	if ok {
		l.mu.Unlock()
	}
}
