package scheduler

import (
	"context"
	"time"

	"tradesim/internal/logger"
)

// Job 是一次周期任务。返回 error 只用于记录，不中断调度。
type Job func(ctx context.Context) error

// Interval runs a named job on a fixed ticker until ctx is cancelled.
// A panicking or failing run is logged and the loop keeps going.
type Interval struct {
	name     string
	interval time.Duration
	job      Job
}

func NewInterval(name string, interval time.Duration, job Job) *Interval {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Interval{name: name, interval: interval, job: job}
}

func (s *Interval) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.safeRun(ctx)
		}
	}
}

func (s *Interval) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[SCHED] %s panic: %v", s.name, r)
		}
	}()
	if err := s.job(ctx); err != nil {
		logger.Warnf("[SCHED] %s failed: %v", s.name, err)
	}
}
