package dsa

import "sync"

// ─── Keyed Mutex ────────────────────────────────────────────────────────────
// Per-key mutual exclusion for account-level serialization.
// Mutations against the same account must never interleave — the balance and
// the page accumulator are read-modify-write state — while mutations against
// different accounts proceed fully in parallel.
//
// Locks are created on first use and retained: the key space (one entry per
// active account) is small relative to the ledger itself.

// KeyedMutex provides a mutex per string key.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex registry.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
// Calling Unlock for a key that is not locked panics, as with sync.Mutex.
func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Len returns the number of keys that have been locked at least once.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
