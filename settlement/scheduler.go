/*
scheduler.go - Periodic remittance generation

PURPOSE:
  Runs the Generator on a fixed interval so payouts happen without an
  operator hitting the HTTP endpoint.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on Start
  - Each run gets its own timeout-free context, cancelled by Stop
  - One scheduler per process; runs never overlap

USAGE:
  s := settlement.NewScheduler(generator, time.Hour, logger)
  s.Start()
  // ... later
  s.Stop()
*/
package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Scheduler triggers Generator.Run every Interval. A zero Interval
// disables it.
type Scheduler struct {
	Generator *Generator
	Interval  time.Duration
	Logger    *log.Logger

	// OnRun, if set, observes each completed run.
	OnRun func(GenerationResult, error)

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(g *Generator, interval time.Duration, logger *log.Logger) *Scheduler {
	return &Scheduler{Generator: g, Interval: interval, Logger: logger}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger()
	if s.Interval <= 0 {
		logger.Info("scheduler disabled")
		return
	}
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)

	logger.Info("scheduler started", "interval", s.Interval)
}

// Stop cancels any in-flight run and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.logger().Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.Generator.Run(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger().Error("scheduled remittance run failed", "err", err)
	}
	if s.OnRun != nil {
		s.OnRun(result, err)
	}
}

func (s *Scheduler) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger.WithPrefix("scheduler")
	}
	return log.Default().WithPrefix("scheduler")
}
