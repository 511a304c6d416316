// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("remote")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Minute

	var transitions []string
	cfg.OnStateChange = func(name string, from, to CircuitBreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	cb := NewCircuitBreaker(cfg)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }

	fail := func(ctx context.Context) error { return NewTransientError("down", nil) }
	ok := func(ctx context.Context) error { return nil }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN, got %v", cb.State())
	}

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("open breaker must not call through")
	}

	clock = clock.Add(2 * time.Minute)
	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("probe should run, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED after successful probe, got %v", cb.State())
	}

	want := []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_IgnoresCancellation(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("remote")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Errorf("cancellation should not open the breaker, got %v", cb.State())
	}
}

func TestRetryWithCircuitBreaker_FailsFastWhenOpen(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("remote")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)

	calls := 0
	op := func(ctx context.Context) error {
		calls++
		return NewTransientError("down", nil)
	}

	_ = RetryWithCircuitBreaker(context.Background(), fastConfig(3), cb, op)
	if calls != 3 {
		t.Fatalf("first run should use the full retry budget, got %d calls", calls)
	}

	err := RetryWithCircuitBreaker(context.Background(), fastConfig(3), cb, op)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 3 {
		t.Errorf("open breaker should skip the backend, got %d calls", calls)
	}
}
