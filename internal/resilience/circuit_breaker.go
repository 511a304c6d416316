// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // calls go through
	StateOpen                                // calls are rejected
	StateHalfOpen                            // one probe call is in flight
)

var stateNames = [...]string{"CLOSED", "OPEN", "HALF_OPEN"}

func (s CircuitBreakerState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int              // consecutive failures before opening
	Timeout          time.Duration    // how long to stay open before probing
	IsFailure        func(error) bool // which errors count against the backend
	OnStateChange    func(name string, from, to CircuitBreakerState)
}

// DefaultCircuitBreakerConfig returns defaults tuned for a remote classifier:
// after five failed classifications in a row the backend is skipped for a
// minute and every paragraph falls back immediately.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Timeout:          time.Minute,
		// a cancelled run says nothing about the backend
		IsFailure: IsRetryable,
	}
}

// ErrCircuitOpen is matched by every error the breaker returns when it
// rejects a call
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreaker stops calling a backend that keeps failing. Once open it
// rejects calls until Timeout has passed, then lets a single probe through:
// a successful probe closes it, a failed one opens it again.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    CircuitBreakerState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn unless the breaker is open
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		waited := cb.now().Sub(cb.openedAt)
		if waited < cb.config.Timeout {
			return fmt.Errorf("%w: %s after %d failures, retry in %v",
				ErrCircuitOpen, cb.config.Name, cb.failures, (cb.config.Timeout - waited).Round(time.Second))
		}
		cb.transition(StateHalfOpen)
	case StateHalfOpen:
		return fmt.Errorf("%w: %s is probing the backend", ErrCircuitOpen, cb.config.Name)
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case cb.config.IsFailure(err):
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.openedAt = cb.now()
			cb.transition(StateOpen)
		}
	case err == nil:
		cb.failures = 0
		cb.transition(StateClosed)
	case cb.state == StateHalfOpen:
		// the probe was cut short without telling us anything; probe again
		// on the next call
		cb.openedAt = time.Time{}
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
