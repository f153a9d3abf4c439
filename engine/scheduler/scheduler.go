// Package scheduler runs submitted jobs on a fixed worker pool and
// provides a sync barrier: enqueue a continuation that is guaranteed to
// run only after every job submitted before it has completed. A plain
// buffered channel (the teacher's engine/systems/job.go JobSystem) has no
// way to express "wait until the queue is drained AND no worker is mid-job"
// without an auxiliary signal, so this package uses a mutex-guarded queue
// plus two condition variables instead.
package scheduler

import (
	"sync"

	"github.com/scintillator/scsynth/engine/containers"
	"github.com/scintillator/scsynth/engine/core"
)

// Job is one unit of work the scheduler runs on a worker goroutine.
type Job func()

// Async is the job queue plus N worker goroutines plus one sync-watcher
// goroutine described in spec.md §4.5.
type Async struct {
	mu           sync.Mutex
	notEmpty     *sync.Cond
	idle         *sync.Cond
	queue        *containers.Queue[Job]
	syncQueue    *containers.Queue[func()]
	activeCount  int
	quit         bool
	workersDone  sync.WaitGroup
	watcherDone  sync.WaitGroup
}

// NewAsync starts numWorkers worker goroutines and one sync-watcher
// goroutine, all initially blocked waiting for work.
func NewAsync(numWorkers int) *Async {
	if numWorkers < 1 {
		numWorkers = 1
	}
	a := &Async{
		queue:     containers.NewQueue[Job](16),
		syncQueue: containers.NewQueue[func()](4),
	}
	a.notEmpty = sync.NewCond(&a.mu)
	a.idle = sync.NewCond(&a.mu)

	for i := 0; i < numWorkers; i++ {
		a.workersDone.Add(1)
		go a.workerLoop()
	}
	a.watcherDone.Add(1)
	go a.syncWatcherLoop()

	return a
}

// Submit enqueues a job for some worker to run. Safe to call concurrently.
func (a *Async) Submit(job Job) {
	a.mu.Lock()
	a.queue.Push(job)
	a.mu.Unlock()
	a.notEmpty.Broadcast()
}

// Sync enqueues continuation to run once every job submitted before this
// call has completed. Per spec.md §4.5's ordering guarantee, jobs
// submitted concurrently with or after this call may or may not precede
// continuation; callers must not rely on that race going either way.
func (a *Async) Sync(continuation func()) {
	a.mu.Lock()
	a.syncQueue.Push(continuation)
	a.mu.Unlock()
	a.notEmpty.Broadcast()
}

// workerLoop implements spec.md §4.5's worker loop: wait for work, pop and
// run with the lock released, then either keep pulling the next job
// without sleeping or go idle and signal the idle condition.
func (a *Async) workerLoop() {
	defer a.workersDone.Done()
	a.mu.Lock()
	for {
		for a.queue.Len() == 0 && !a.quit {
			a.notEmpty.Wait()
		}
		if a.quit {
			a.mu.Unlock()
			return
		}
		job, _ := a.queue.Pop()
		a.activeCount++
		a.mu.Unlock()

		runJob(job)

		a.mu.Lock()
		a.activeCount--
		if a.queue.Len() == 0 {
			a.idle.Signal()
		}
	}
}

func runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("scheduler: job panicked: %v", r)
		}
	}()
	job()
}

// syncWatcherLoop implements spec.md §4.5's sync-watcher loop: wait for a
// pending continuation, then wait until the job queue is empty and no
// worker is active, then drain the continuation queue in order with no
// lock held.
func (a *Async) syncWatcherLoop() {
	defer a.watcherDone.Done()
	a.mu.Lock()
	for {
		for a.syncQueue.Len() == 0 && !a.quit {
			a.notEmpty.Wait()
		}
		if a.quit && a.syncQueue.Len() == 0 {
			a.mu.Unlock()
			return
		}

		for (a.queue.Len() > 0 || a.activeCount > 0) && !a.quit {
			a.idle.Wait()
		}
		if a.quit {
			a.mu.Unlock()
			return
		}

		var continuations []func()
		for {
			c, ok := a.syncQueue.Pop()
			if !ok {
				break
			}
			continuations = append(continuations, c)
		}
		a.mu.Unlock()

		for _, c := range continuations {
			runContinuation(c)
		}

		a.mu.Lock()
	}
}

func runContinuation(c func()) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("scheduler: sync continuation panicked: %v", r)
		}
	}()
	c()
}

// Stop sets the quit flag, broadcasts every condition, and waits for the
// worker and watcher goroutines to exit. Jobs still in the queue are
// silently dropped, matching spec.md §4.5's cancellation semantics.
func (a *Async) Stop() {
	a.mu.Lock()
	a.quit = true
	a.mu.Unlock()
	a.notEmpty.Broadcast()
	a.idle.Broadcast()
	a.workersDone.Wait()
	a.watcherDone.Wait()
}
