// Package workspace serializes pipeline work per workspace.
package workspace

import "sync"

// Locks hands out one mutex per workspace. Concurrent batches and draft
// operations for the same workspace serialize on it; different workspaces
// never contend.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Get returns the mutex for the workspace, creating it on first use.
func (l *Locks) Get(workspaceID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[workspaceID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[workspaceID] = lock
	}
	return lock
}
