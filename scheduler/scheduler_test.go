package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
)

type counter struct{ n atomic.Int32 }

func (c *counter) Trigger() { c.n.Add(1) }

func TestStartRejectsBadCron(t *testing.T) {
	s := New()
	s.Register("relay", "not a cron", &counter{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid cron error")
	}
}

func TestTriggerNow(t *testing.T) {
	s := New()
	a, b := &counter{}, &counter{}
	s.Register("a", "", a)
	s.Register("b", "@every 1h", b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.TriggerNow()

	if a.n.Load() != 1 || b.n.Load() != 1 {
		t.Fatalf("expected one trigger each, got %d and %d", a.n.Load(), b.n.Load())
	}
}
