package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestScheduler_Schedule(t *testing.T) {
	s := New(2)
	s.Start(context.Background())
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	err := s.Schedule("test1", time.Now().Add(100*time.Millisecond), func(ctx context.Context) {
		mu.Lock()
		executed = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	if !executed {
		t.Error("Job was not executed")
	}
	mu.Unlock()
}

func TestScheduler_Cancel(t *testing.T) {
	s := New(2)
	s.Start(context.Background())
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	err := s.Schedule("test1", time.Now().Add(100*time.Millisecond), func(ctx context.Context) {
		mu.Lock()
		executed = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	if !s.Cancel("test1") {
		t.Error("Cancel returned false")
	}
	if s.Cancel("test1") {
		t.Error("Second cancel should return false")
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if executed {
		t.Error("Job was executed despite being cancelled")
	}
	mu.Unlock()
}

func TestScheduler_Ordering(t *testing.T) {
	s := New(1)
	s.Start(context.Background())
	defer s.Stop()

	var results []int
	var mu sync.Mutex
	record := func(n int) func(context.Context) {
		return func(context.Context) {
			mu.Lock()
			results = append(results, n)
			mu.Unlock()
		}
	}

	// Schedule jobs in reverse order
	s.Schedule("job3", time.Now().Add(150*time.Millisecond), record(3))
	s.Schedule("job1", time.Now().Add(50*time.Millisecond), record(1))
	s.Schedule("job2", time.Now().Add(100*time.Millisecond), record(2))

	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0] != 1 || results[1] != 2 || results[2] != 3 {
		t.Errorf("Jobs executed in wrong order: %v", results)
	}
}

func TestScheduler_RescheduleReplaces(t *testing.T) {
	s := New(2)
	s.Start(context.Background())
	defer s.Stop()

	count := 0
	var mu sync.Mutex

	s.Schedule("test1", time.Now().Add(100*time.Millisecond), func(context.Context) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Same name replaces the pending job
	s.Schedule("test1", time.Now().Add(50*time.Millisecond), func(context.Context) {
		mu.Lock()
		count += 10
		mu.Unlock()
	})

	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	if count != 10 {
		t.Errorf("Expected count=10 (only second job), got %d", count)
	}
	mu.Unlock()
}

func TestScheduler_Every(t *testing.T) {
	s := New(1)
	s.Start(context.Background())
	defer s.Stop()

	var mu sync.Mutex
	runs := 0
	next := func(now time.Time) time.Time { return now.Add(30 * time.Millisecond) }
	if err := s.Every("tick", next, func(context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Every failed: %v", err)
	}

	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	if runs < 2 {
		t.Errorf("Expected recurring job to run at least twice, got %d", runs)
	}
	mu.Unlock()

	if _, ok := s.NextRun("tick"); !ok {
		t.Error("Expected recurring job to stay scheduled")
	}
}

func TestScheduler_Stats(t *testing.T) {
	s := New(5)
	s.Start(context.Background())
	defer s.Stop()

	s.Schedule("job1", time.Now().Add(1*time.Hour), func(context.Context) {})
	s.Schedule("job2", time.Now().Add(2*time.Hour), func(context.Context) {})
	s.Schedule("job3", time.Now().Add(3*time.Hour), func(context.Context) {})

	stats := s.Stats()
	if stats.Scheduled != 3 {
		t.Errorf("Expected 3 scheduled jobs, got %d", stats.Scheduled)
	}
	if stats.Workers != 5 {
		t.Errorf("Expected 5 workers, got %d", stats.Workers)
	}
}

func TestScheduler_StoppedRejects(t *testing.T) {
	s := New(1)
	s.Start(context.Background())
	s.Stop()

	if err := s.Schedule("late", time.Now(), func(context.Context) {}); err != ErrStopped {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}
