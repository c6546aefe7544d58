package keylock

import "sync"

// KeyedMutex hands out one mutex per string key. Used for the
// single-writer-per-theme guarantees around version creation and
// publishing.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock blocks until the key's mutex is held.
func (k *KeyedMutex) Lock(key string) {
	e := k.acquire(key)
	e.mu.Lock()
}

// TryLock attempts the key's mutex without blocking and reports whether
// it was acquired.
func (k *KeyedMutex) TryLock(key string) bool {
	e := k.acquire(key)
	if e.mu.TryLock() {
		return true
	}
	k.release(key)
	return false
}

// Unlock releases the key's mutex. The per-key entry is dropped once no
// holder or waiter references it.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	k.release(key)
}

func (k *KeyedMutex) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(k.locks, key)
	}
}
