package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper runs one pass of the periodic status sweeps
type Sweeper interface {
	RunSweeps(ctx context.Context) error
}

// Scheduler runs a Sweeper on a fixed interval until stopped
type Scheduler struct {
	sweeper Sweeper
	logger  *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new Scheduler
func NewScheduler(sweeper Sweeper, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start runs the sweeps once immediately and then every interval. Calling Start
// on a running scheduler does nothing.
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, interval, s.done)

	s.logger.Infof("Scheduler started, running every %s", interval)
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()

	if err := s.sweeper.RunSweeps(ctx); err != nil {
		s.logger.Errorf("Scheduled sweep failed: %v", err)
		return
	}

	s.logger.WithField("duration", time.Since(start).String()).Debug("Scheduled sweep finished")
}

// Stop cancels the loop and waits for a running sweep to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	s.logger.Info("Scheduler stopped")
}
