package workspace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocks_SameWorkspaceSameMutex(t *testing.T) {
	locks := NewLocks()
	assert.Same(t, locks.Get("ws-1"), locks.Get("ws-1"))
	assert.NotSame(t, locks.Get("ws-1"), locks.Get("ws-2"))
}

func TestLocks_ConcurrentGet(t *testing.T) {
	locks := NewLocks()

	var wg sync.WaitGroup
	results := make([]*sync.Mutex, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = locks.Get("ws-1")
		}(i)
	}
	wg.Wait()

	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}

func TestLocks_SerializesCriticalSections(t *testing.T) {
	locks := NewLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := locks.Get("ws-1")
			lock.Lock()
			counter++
			lock.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}
