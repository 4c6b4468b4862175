package keylock

import "sync"

// Registry hands out one mutex per key so writers on the same batch or
// farmer serialize while unrelated keys proceed concurrently. Entries are
// never removed; the key space (batch IDs, farmer addresses) is small and
// long-lived for the life of the process.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (r *Registry) Lock(key string) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()
	l.Lock()
}

// Unlock releases the mutex for key. Panics if Lock was never called for it.
func (r *Registry) Unlock(key string) {
	r.mu.Lock()
	l := r.locks[key]
	r.mu.Unlock()
	l.Unlock()
}
