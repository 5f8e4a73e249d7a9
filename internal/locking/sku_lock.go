// Package locking implements the per-sku serializing lock: reserveStock,
// releaseStock, and adjustStock for a given sku take this lock across
// their check+mutate+persist sequence, standing in for a database row
// lock in this single-process design.
package locking

import "sync"

// SKULocks is a table of per-sku mutexes, created lazily on first use.
type SKULocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSKULocks builds an empty lock table.
func NewSKULocks() *SKULocks {
	return &SKULocks{locks: make(map[string]*sync.Mutex)}
}

func (l *SKULocks) lockFor(sku string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[sku]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sku] = m
	}
	return m
}

// WithLock runs fn while holding the lock for sku, serializing every
// reserve/release/adjust attempt against that sku against one another.
func (l *SKULocks) WithLock(sku string, fn func() error) error {
	m := l.lockFor(sku)
	m.Lock()
	defer m.Unlock()
	return fn()
}
