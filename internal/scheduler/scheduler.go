package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/quocanhngo/pricewatch/internal/metrics"
	"go.uber.org/zap"
)

// Task is one unit of periodic work
type Task func(ctx context.Context) error

var ErrStopped = errors.New("scheduler stopped")

// Scheduler runs a task at a fixed interval, never more than one at a time.
// A tick that arrives while the previous run is still going is dropped.
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	cron     *gocron.Scheduler
	log      *zap.Logger

	mu      sync.Mutex
	armed   bool
	stopped bool
	busy    atomic.Bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(name string, interval time.Duration, task Task, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		cron:     gocron.NewScheduler(time.UTC),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start arms the timer. The first run happens immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.armed {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be positive", s.name)
	}

	if _, err := s.cron.Every(s.interval).Do(func() { s.Tick() }); err != nil {
		return fmt.Errorf("schedule %s: %w", s.name, err)
	}
	s.cron.StartAsync()
	s.armed = true

	s.log.Info("scheduler started",
		zap.String("job", s.name),
		zap.Duration("interval", s.interval),
	)
	return nil
}

// Tick runs the task now unless a run is already in flight or the scheduler
// was stopped. It reports whether the task ran.
func (s *Scheduler) Tick() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.mu.Unlock()
		metrics.SkippedTicks.Inc()
		s.log.Warn("previous run still in progress, skipping tick", zap.String("job", s.name))
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer s.busy.Store(false)

	start := time.Now()
	if err := s.task(s.ctx); err != nil {
		s.log.Error("scheduled run failed",
			zap.String("job", s.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return true
	}
	s.log.Debug("scheduled run finished",
		zap.String("job", s.name),
		zap.Duration("duration", time.Since(start)),
	)
	return true
}

// Stop disarms the timer and waits for an in-flight run to finish, or for
// ctx to expire. No run starts after Stop returns.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasArmed := s.armed
	s.armed = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if wasArmed {
			s.cron.Stop()
		}
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.log.Info("scheduler stopped", zap.String("job", s.name))
		return nil
	case <-ctx.Done():
		// abandon the run: its context is cancelled so it can unwind
		s.cancel()
		return fmt.Errorf("stop %s: %w", s.name, ctx.Err())
	}
}

// IsRunning reports whether the timer is armed
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// InFlight reports whether a run is executing right now
func (s *Scheduler) InFlight() bool {
	return s.busy.Load()
}
