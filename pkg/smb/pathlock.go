package smb

import "sync"

// PathLocks serializes work on the same remote path while letting different
// paths proceed in parallel. Locks are created on first use and kept for the
// lifetime of the PathLocks.
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPathLocks creates an empty lock set.
func NewPathLocks() *PathLocks {
	return &PathLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *PathLocks) lockFor(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mu, ok := l.locks[path]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	l.locks[path] = mu
	return mu
}

// Lock blocks until path is free and returns the function that frees it.
func (l *PathLocks) Lock(path string) (unlock func()) {
	mu := l.lockFor(path)
	mu.Lock()
	return mu.Unlock
}

// Len returns the number of paths that have a lock.
func (l *PathLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
