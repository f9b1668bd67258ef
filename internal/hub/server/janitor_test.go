package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct{ calls atomic.Int32 }

func (c *countingPurger) PurgeExpiredSessions(context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestJanitorRunsUntilCancelled(t *testing.T) {
	p := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewJanitor(p, 10*time.Millisecond).Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("purge ran %d times", p.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
