package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncRunsSubmittedJobs(t *testing.T) {
	a := NewAsync(4)
	defer a.Stop()

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		a.Submit(func() {
			atomic.AddInt64(&count, 1)
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, int64(100), atomic.LoadInt64(&count))
}

func TestSyncWaitsForPriorJobs(t *testing.T) {
	a := NewAsync(4)
	defer a.Stop()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 20; i++ {
		i := i
		a.Submit(func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	done := make(chan struct{})
	a.Sync(func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sync continuation never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 20)
}

func TestSyncOrderingAcrossMultipleBarriers(t *testing.T) {
	a := NewAsync(2)
	defer a.Stop()

	var mu sync.Mutex
	var log []string

	for i := 0; i < 5; i++ {
		a.Submit(func() {
			mu.Lock()
			log = append(log, "job-a")
			mu.Unlock()
		})
	}
	firstSync := make(chan struct{})
	a.Sync(func() {
		mu.Lock()
		log = append(log, "sync-1")
		mu.Unlock()
		close(firstSync)
	})
	<-firstSync

	for i := 0; i < 5; i++ {
		a.Submit(func() {
			mu.Lock()
			log = append(log, "job-b")
			mu.Unlock()
		})
	}
	secondSync := make(chan struct{})
	a.Sync(func() {
		mu.Lock()
		log = append(log, "sync-2")
		mu.Unlock()
		close(secondSync)
	})
	<-secondSync

	mu.Lock()
	defer mu.Unlock()
	firstSyncIndex := indexOf(log, "sync-1")
	secondSyncIndex := indexOf(log, "sync-2")
	require.GreaterOrEqual(t, firstSyncIndex, 5)
	require.Greater(t, secondSyncIndex, firstSyncIndex)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestStopDropsQueuedJobsAndReturns(t *testing.T) {
	a := NewAsync(1)

	var ran int64
	block := make(chan struct{})
	a.Submit(func() {
		<-block
		atomic.AddInt64(&ran, 1)
	})
	for i := 0; i < 10; i++ {
		a.Submit(func() {
			atomic.AddInt64(&ran, 1)
		})
	}

	close(block)
	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSleepFor(t *testing.T) {
	a := NewAsync(1)
	defer a.Stop()

	start := time.Now()
	done := make(chan struct{})
	a.SleepFor(20*time.Millisecond, func() {
		close(done)
	})
	<-done
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
