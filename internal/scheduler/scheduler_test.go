package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAddRejectsInvalidJobs(t *testing.T) {
	s := New(zerolog.Nop())

	noop := func(context.Context) error { return nil }
	if err := s.Add(Job{Interval: time.Second, Run: noop}); err == nil {
		t.Fatal("nameless job should be rejected")
	}
	if err := s.Add(Job{Name: "x", Run: noop}); err == nil {
		t.Fatal("zero interval should be rejected")
	}
	if err := s.Add(Job{Name: "x", Interval: time.Second}); err == nil {
		t.Fatal("job without run function should be rejected")
	}
	if err := s.Add(Job{Name: "x", Interval: time.Second, Run: noop}); err != nil {
		t.Fatalf("valid job should be accepted: %v", err)
	}
}

func TestRunRequiresJobs(t *testing.T) {
	s := New(zerolog.Nop())
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("running without jobs should fail")
	}
}

func TestRunExecutesJobsUntilCancelled(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int64
	err := s.Add(Job{
		Name:     "tick",
		Interval: 50 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run should return the context error, got %v", err)
	}
	if runs.Load() < 2 {
		t.Fatalf("job should have run repeatedly, got %d runs", runs.Load())
	}
}

func TestRunContinuesAfterJobFailure(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int64
	err := s.Add(Job{
		Name:     "flaky",
		Interval: 50 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return errors.New("transient")
		},
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	_ = s.Run(ctx)
	if runs.Load() < 2 {
		t.Fatalf("failing job should keep its schedule, got %d runs", runs.Load())
	}
}
