package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalRunsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	s := NewInterval("test", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestIntervalSurvivesPanicsAndErrors(t *testing.T) {
	var runs atomic.Int32
	s := NewInterval("test", 5*time.Millisecond, func(context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			panic("boom")
		}
		return assert.AnError
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond,
		"panic and error runs must not stop the loop")
}
