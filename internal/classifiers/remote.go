// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifiers

import (
	"context"
	"errors"
	"log/slog"

	"docsafe/internal/document"
	"docsafe/internal/llm"
	"docsafe/internal/resilience"
)

// Remote defaults
const (
	DefaultThreshold   = 0.85
	RemoteConfidence   = 0.75
	FallbackConfidence = 0.0
)

// RemoteConfig tunes the remote classifier
type RemoteConfig struct {
	// Threshold is the local confidence at or above which the backend is not consulted
	Threshold float64
	Retry     resilience.RetryConfig
	Breaker   resilience.CircuitBreakerConfig
	Logger    *slog.Logger
}

// DefaultRemoteConfig returns a 0.85 threshold, three attempts with 1s/2s
// backoff and a 20 second timeout per attempt.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Threshold: DefaultThreshold,
		Retry:     resilience.DefaultRetryConfig(),
		Breaker:   resilience.DefaultCircuitBreakerConfig("remote-classifier"),
	}
}

// Remote consults a model backend for paragraphs the local classifier is
// unsure about. Backend failures never fail the paragraph: after the retry
// budget is spent the result falls back to body text.
type Remote struct {
	local   Classifier
	backend llm.Backend
	cfg     RemoteConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewRemote wraps a local classifier with a backend
func NewRemote(local Classifier, backend llm.Backend, cfg RemoteConfig) *Remote {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Breaker.FailureThreshold <= 0 {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig("remote-classifier")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			if to == resilience.StateOpen {
				logger.Warn("backend unavailable, falling back locally", "breaker", name, "backend", backend.Name())
				return
			}
			logger.Info("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		}
	}
	return &Remote{
		local:   local,
		backend: backend,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
		logger:  logger,
	}
}

// Local runs only the wrapped local classifier
func (r *Remote) Local(ctx context.Context, text string, c Context) (Result, error) {
	return r.local.Classify(ctx, text, c)
}

// Confident reports whether a local result skips the backend
func (r *Remote) Confident(res Result) bool {
	return res.Confidence >= r.cfg.Threshold
}

// Classify returns the local result when it is confident enough, otherwise
// the backend's label. Only cancellation of ctx is reported as an error.
func (r *Remote) Classify(ctx context.Context, text string, c Context) (Result, error) {
	local, err := r.local.Classify(ctx, text, c)
	if err != nil {
		return Result{}, err
	}
	if r.Confident(local) {
		return local, nil
	}

	prompt := llm.ClassifyPrompt(text, c.Previous)
	var label document.StyleLabel
	err = resilience.RetryWithCircuitBreaker(ctx, r.cfg.Retry, r.breaker, func(ctx context.Context) error {
		resp, err := r.backend.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		label, err = llm.ParseLabel(resp)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		r.logger.Warn("remote classification failed, using fallback",
			"backend", r.backend.Name(),
			"paragraph", c.Index,
			"circuit_open", errors.Is(err, resilience.ErrCircuitOpen),
			"error", err)
		return Result{document.BodyText, FallbackConfidence, SourceFallback}, nil
	}

	return Result{label, RemoteConfidence, SourceRemote}, nil
}

// Decide asks the backend whether a paragraph belongs in the output.
// Any failure other than cancellation keeps the paragraph.
func (r *Remote) Decide(ctx context.Context, text string) (llm.Decision, error) {
	prompt := llm.FilterPrompt(text)
	decision, err := resilience.RetryWithResult(ctx, r.cfg.Retry, func(ctx context.Context) (llm.Decision, error) {
		var d llm.Decision
		err := r.breaker.Execute(ctx, func(ctx context.Context) error {
			resp, err := r.backend.Generate(ctx, prompt)
			if err != nil {
				return err
			}
			d, err = llm.ParseDecision(resp)
			return err
		})
		return d, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return llm.Include, ctxErr
		}
		r.logger.Warn("remote filter decision failed, keeping paragraph", "backend", r.backend.Name(), "error", err)
		return llm.Include, nil
	}
	return decision, nil
}
