// Package keymutex provides per-key mutual exclusion, used to serialize
// first-login base folder creation per user without a process-wide lock.
package keymutex

import "sync"

// KeyMutex hands out one mutex per string key. Mutexes are created lazily
// and kept for the process lifetime; the key space (user ids) is small.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key. Unlocking a never-locked key panics,
// same as sync.Mutex.
func (k *KeyMutex) Unlock(key string) {
	k.get(key).Unlock()
}
