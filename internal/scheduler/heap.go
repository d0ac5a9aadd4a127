// Package scheduler runs named jobs at wall-clock times on a small worker
// pool. Jobs are kept in a min-heap ordered by due time.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when scheduling on a stopped scheduler
var ErrStopped = errors.New("scheduler is stopped")

// Job is a named unit of work due at RunAt
type Job struct {
	Name  string
	RunAt time.Time
	Run   func(ctx context.Context)
	index int // index in the heap (for heap.Interface)
}

// jobHeap is a min-heap of Jobs ordered by RunAt
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	return h[i].RunAt.Before(h[j].RunAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x interface{}) {
	job := x.(*Job)
	job.index = len(*h)
	*h = append(*h, job)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil // avoid memory leak
	job.index = -1
	*h = old[0 : n-1]
	return job
}

// Scheduler manages jobs using a min-heap and a worker pool
type Scheduler struct {
	heap     jobHeap
	mu       sync.Mutex
	wakeup   chan struct{}
	jobs     map[string]*Job // for O(1) lookup by name
	queue    chan *Job
	workers  int
	executed int
	workerWg sync.WaitGroup
	started  bool
	stopped  bool
	stopCh   chan struct{}
	now      func() time.Time
}

// New creates a scheduler with the given number of workers
func New(workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	s := &Scheduler{
		heap:    make(jobHeap, 0),
		wakeup:  make(chan struct{}, 1),
		jobs:    make(map[string]*Job),
		queue:   make(chan *Job, workers),
		workers: workers,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	heap.Init(&s.heap)
	return s
}

// Start starts the dispatch loop and its worker pool. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.workerWg.Add(1)
		go s.worker(ctx)
	}

	go s.run(ctx)
}

// Stop stops dispatching and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.workerWg.Wait()
}

// Schedule adds a job, replacing any pending job with the same name
func (s *Scheduler) Schedule(name string, runAt time.Time, run func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	if existing, ok := s.jobs[name]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.jobs, name)
	}

	job := &Job{Name: name, RunAt: runAt, Run: run}
	heap.Push(&s.heap, job)
	s.jobs[name] = job

	// Wake up the dispatcher if this is the earliest job
	if s.heap[0] == job {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Every runs a job at the times next returns, rescheduling after each run
func (s *Scheduler) Every(name string, next func(now time.Time) time.Time, run func(ctx context.Context)) error {
	var wrapped func(ctx context.Context)
	wrapped = func(ctx context.Context) {
		run(ctx)
		// Only fails once stopped
		_ = s.Schedule(name, next(s.now()), wrapped)
	}
	return s.Schedule(name, next(s.now()), wrapped)
}

// Cancel removes a pending job
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, job.index)
	delete(s.jobs, name)
	return true
}

// NextRun returns when the named job is due
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return job.RunAt, true
}

// run is the dispatch loop
func (s *Scheduler) run(ctx context.Context) {
	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		var wait time.Duration
		if s.heap.Len() == 0 {
			wait = 24 * time.Hour
		} else {
			next := s.heap[0]
			wait = next.RunAt.Sub(s.now())

			if wait <= 0 {
				job := heap.Pop(&s.heap).(*Job)
				delete(s.jobs, job.Name)
				s.mu.Unlock()

				select {
				case s.queue <- job:
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
				continue
			}
		}

		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// worker executes dispatched jobs until stopped
func (s *Scheduler) worker(ctx context.Context) {
	defer s.workerWg.Done()

	for {
		select {
		case job := <-s.queue:
			job.Run(ctx)
			s.mu.Lock()
			s.executed++
			s.mu.Unlock()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stats returns statistics about the scheduler
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Scheduled: len(s.jobs),
		Executed:  s.executed,
		Workers:   s.workers,
	}
}

// Stats contains statistics about the scheduler
type Stats struct {
	Scheduled int
	Executed  int
	Workers   int
}
