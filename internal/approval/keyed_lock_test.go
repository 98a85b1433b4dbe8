package approval

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLock(t *testing.T) {
	t.Run("同键互斥", func(t *testing.T) {
		locks := newKeyedLock()
		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				locks.Lock("article-1")
				defer locks.Unlock("article-1")
				counter++
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, counter)
	})

	t.Run("不同键互不阻塞", func(t *testing.T) {
		locks := newKeyedLock()
		locks.Lock("a")
		done := make(chan struct{})
		go func() {
			locks.Lock("b")
			locks.Unlock("b")
			close(done)
		}()
		<-done
		locks.Unlock("a")
	})

	t.Run("释放后回收条目", func(t *testing.T) {
		locks := newKeyedLock()
		locks.Lock("a")
		locks.Unlock("a")

		locks.mu.Lock()
		assert.Empty(t, locks.locks)
		locks.mu.Unlock()
	})

	t.Run("解锁未持有的键触发 panic", func(t *testing.T) {
		locks := newKeyedLock()
		assert.Panics(t, func() { locks.Unlock("ghost") })
	})
}
