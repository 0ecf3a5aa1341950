package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestScheduler_TickSkipsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var runs atomic.Int32

	s := New("test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		close(entered)
		<-release
		return nil
	}, zaptest.NewLogger(t))

	done := make(chan bool)
	go func() { done <- s.Tick() }()
	<-entered

	if s.Tick() {
		t.Error("overlapping tick should be skipped")
	}
	if !s.InFlight() {
		t.Error("expected a run in flight")
	}

	close(release)
	if !<-done {
		t.Error("first tick should have run")
	}
	if runs.Load() != 1 {
		t.Errorf("expected 1 run, got %d", runs.Load())
	}
}

func TestScheduler_StopWaitsForInFlightRun(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool

	s := New("test", time.Hour, func(ctx context.Context) error {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		finished.Store(true)
		return nil
	}, zaptest.NewLogger(t))

	go s.Tick()
	<-entered

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !finished.Load() {
		t.Error("stop returned before the in-flight run finished")
	}
	if s.Tick() {
		t.Error("tick after stop must not run")
	}
}

func TestScheduler_StopTimeout(t *testing.T) {
	entered := make(chan struct{})
	s := New("test", time.Hour, func(ctx context.Context) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}, zap.NewNop())

	go s.Tick()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestScheduler_StartRunsPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := New("test", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zaptest.NewLogger(t))

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected running after start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runs.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", runs.Load())
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.IsRunning() {
		t.Error("expected stopped")
	}

	after := runs.Load()
	time.Sleep(60 * time.Millisecond)
	if runs.Load() != after {
		t.Error("runs continued after stop")
	}

	if err := s.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("restart should fail with ErrStopped, got %v", err)
	}
}

func TestScheduler_TaskErrorKeepsScheduling(t *testing.T) {
	var runs atomic.Int32
	s := New("test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("pass failed")
	}, zaptest.NewLogger(t))

	s.Tick()
	s.Tick()
	if runs.Load() != 2 {
		t.Errorf("expected 2 runs, got %d", runs.Load())
	}
}
