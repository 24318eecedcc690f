package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"property_recommend/config"
	"property_recommend/services"
)

type fakeRefresher struct {
	mu     sync.Mutex
	calls  []time.Time
	err    error
	block  chan struct{}
	called chan struct{}
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{called: make(chan struct{}, 16)}
}

func (f *fakeRefresher) RefreshActive(ctx context.Context, since time.Time, concurrency int) (services.RefreshStats, error) {
	f.mu.Lock()
	f.calls = append(f.calls, since)
	f.mu.Unlock()
	f.called <- struct{}{}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return services.RefreshStats{Processed: 1}, f.err
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scheduler.RefreshIntervalSec = 600
	cfg.Scheduler.LookbackHours = 2
	return cfg
}

func TestCheckTasksRunsDueTask(t *testing.T) {
	f := newFakeRefresher()
	s := NewScheduler(testConfig(), f)
	now := time.Now()

	s.checkTasks(context.Background(), now)
	s.wg.Wait()

	if f.count() != 1 {
		t.Fatalf("refresh calls = %d, want 1", f.count())
	}
	if since := f.calls[0]; !since.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("since = %v, want lookback of 2h", since)
	}
	st := s.Status()[TaskRefreshRecommendations]
	if st.IsRunning || !st.NextRun.Equal(now.Add(10*time.Minute)) {
		t.Errorf("status = %+v", st)
	}

	// 未到下次运行时间
	s.checkTasks(context.Background(), now.Add(time.Minute))
	s.wg.Wait()
	if f.count() != 1 {
		t.Errorf("task ran before it was due")
	}
}

func TestCheckTasksSkipsRunningTask(t *testing.T) {
	f := newFakeRefresher()
	f.block = make(chan struct{})
	s := NewScheduler(testConfig(), f)
	now := time.Now()

	s.checkTasks(context.Background(), now)
	<-f.called
	s.checkTasks(context.Background(), now.Add(time.Hour))
	close(f.block)
	s.wg.Wait()

	if f.count() != 1 {
		t.Errorf("refresh calls = %d, want 1 while running", f.count())
	}
}

func TestFailedRunIsRescheduled(t *testing.T) {
	f := newFakeRefresher()
	f.err = errors.New("store down")
	s := NewScheduler(testConfig(), f)
	now := time.Now()

	s.checkTasks(context.Background(), now)
	s.wg.Wait()
	if st := s.Status()[TaskRefreshRecommendations]; !st.NextRun.After(now) {
		t.Errorf("failed task not rescheduled: %+v", st)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFakeRefresher()
	s := NewScheduler(testConfig(), f)
	s.checkInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	select {
	case <-f.called:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ran the refresh task")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
