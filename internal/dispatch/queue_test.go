package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestQueue_RunsInOrder(t *testing.T) {
	q := NewQueue("test")
	defer q.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		q.Async(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_TasksNeverOverlap(t *testing.T) {
	q := NewQueue("test")
	defer q.Close()

	var running, overlaps atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Async(func() {
					if running.Add(1) > 1 {
						overlaps.Add(1)
					}
					running.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	q.Flush()
	assert.Zero(t, overlaps.Load())
}

func TestQueue_AsyncFromTaskDoesNotBlock(t *testing.T) {
	q := NewQueue("test")
	defer q.Close()

	var inner atomic.Bool
	q.Async(func() {
		q.Async(func() { inner.Store(true) })
	})
	q.Flush()
	q.Flush()
	assert.True(t, inner.Load())
}

func TestQueue_PanicIsRecovered(t *testing.T) {
	q := NewQueue("test", WithLogger(zaptest.NewLogger(t)))
	defer q.Close()

	q.Async(func() { panic("boom") })
	var after atomic.Bool
	q.Async(func() { after.Store(true) })
	q.Flush()
	assert.True(t, after.Load())
}

func TestQueue_CloseDrainsAndRejects(t *testing.T) {
	q := NewQueue("test")
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		q.Async(func() { ran.Add(1) })
	}
	q.Close()
	assert.Equal(t, int32(10), ran.Load())

	q.Async(func() { ran.Add(1) })
	assert.False(t, q.Sync(func() {}))
	assert.Equal(t, int32(10), ran.Load())

	q.Close()
}
