package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) CleanupEarlyArrivals(context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestWorker_RunsUntilCancelled(t *testing.T) {
	c := &countingCleaner{err: errors.New("db down")}
	w := NewWorker(c, 10*time.Millisecond, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorker_Disabled(t *testing.T) {
	c := &countingCleaner{}
	NewWorker(c, time.Millisecond, false).Run(context.Background())
	NewWorker(c, 0, true).Run(context.Background())
	assert.Equal(t, int32(0), c.calls.Load())
}
