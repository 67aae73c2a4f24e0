package pipeline

import "sync"

// keyedRWMutex hands out one RWMutex per key and forgets it once nobody
// holds or waits on it.
type keyedRWMutex struct {
	mu    sync.Mutex
	locks map[string]*refRWMutex
}

type refRWMutex struct {
	sync.RWMutex
	refs int
}

func newKeyedRWMutex() *keyedRWMutex {
	return &keyedRWMutex{locks: make(map[string]*refRWMutex)}
}

func (k *keyedRWMutex) acquire(key string) *refRWMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &refRWMutex{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *keyedRWMutex) release(key string, l *refRWMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock takes the exclusive lock for key and returns its unlock func.
func (k *keyedRWMutex) Lock(key string) func() {
	l := k.acquire(key)
	l.Lock()
	return func() {
		l.Unlock()
		k.release(key, l)
	}
}

// RLock takes the shared lock for key and returns its unlock func.
func (k *keyedRWMutex) RLock(key string) func() {
	l := k.acquire(key)
	l.RLock()
	return func() {
		l.RUnlock()
		k.release(key, l)
	}
}

func (k *keyedRWMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
