// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifiers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
	"docsafe/internal/llm"
	"docsafe/internal/resilience"
)

// fakeBackend replays responses in order; the last one repeats
type fakeBackend struct {
	mu        sync.Mutex
	responses []string
	err       error
	hang      bool
	calls     int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	i := f.calls - 1
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRemote() RemoteConfig {
	cfg := DefaultRemoteConfig()
	cfg.Retry = resilience.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
		AttemptTimeout:  time.Second,
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

const lowConfidenceText = "The meeting is scheduled for next Tuesday."

func TestRemote_SkipsBackendWhenConfident(t *testing.T) {
	b := &fakeBackend{responses: []string{"Heading 1"}}
	r := NewRemote(NewRule(), b, fastRemote())

	got, err := r.Classify(context.Background(), "• Wear gloves", Context{})
	require.NoError(t, err)
	assert.Equal(t, document.ListParagraph, got.Label)
	assert.Equal(t, SourceRule, got.Source)
	assert.Equal(t, 0, b.Calls())
}

func TestRemote_UsesBackendBelowThreshold(t *testing.T) {
	b := &fakeBackend{responses: []string{"Heading 3"}}
	r := NewRemote(NewRule(), b, fastRemote())

	got, err := r.Classify(context.Background(), lowConfidenceText, Context{Previous: "x"})
	require.NoError(t, err)
	assert.Equal(t, document.Heading3, got.Label)
	assert.Equal(t, SourceRemote, got.Source)
	assert.Equal(t, RemoteConfidence, got.Confidence)
}

func TestRemote_RetriesMalformedAnswer(t *testing.T) {
	b := &fakeBackend{responses: []string{"hmm, hard to say", "List Paragraph"}}
	r := NewRemote(NewRule(), b, fastRemote())

	got, err := r.Classify(context.Background(), lowConfidenceText, Context{})
	require.NoError(t, err)
	assert.Equal(t, document.ListParagraph, got.Label)
	assert.Equal(t, 2, b.Calls())
}

func TestRemote_FallsBackAfterRetries(t *testing.T) {
	b := &fakeBackend{err: errors.New("503 service unavailable")}
	r := NewRemote(NewRule(), b, fastRemote())

	got, err := r.Classify(context.Background(), lowConfidenceText, Context{})
	require.NoError(t, err, "backend failures never fail the paragraph")
	assert.Equal(t, document.BodyText, got.Label)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, 3, b.Calls())
}

func TestRemote_HungBackendTimesOut(t *testing.T) {
	cfg := fastRemote()
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.AttemptTimeout = 10 * time.Millisecond

	b := &fakeBackend{hang: true}
	r := NewRemote(NewRule(), b, cfg)

	start := time.Now()
	got, err := r.Classify(context.Background(), lowConfidenceText, Context{})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, 2, b.Calls())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRemote_CancellationIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &fakeBackend{responses: []string{"Heading 1"}}
	r := NewRemote(NewRule(), b, fastRemote())

	_, err := r.Classify(ctx, lowConfidenceText, Context{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemote_OpenBreakerSkipsBackend(t *testing.T) {
	cfg := fastRemote()
	cfg.Breaker = resilience.DefaultCircuitBreakerConfig("test")
	cfg.Breaker.FailureThreshold = 1

	b := &fakeBackend{err: errors.New("503 service unavailable")}
	r := NewRemote(NewRule(), b, cfg)

	for i := 0; i < 3; i++ {
		got, err := r.Classify(context.Background(), lowConfidenceText, Context{Index: i})
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, got.Source)
	}
	assert.Equal(t, 3, b.Calls(), "only the first paragraph reaches the backend")
}

func TestRemote_Decide(t *testing.T) {
	r := NewRemote(NewRule(), &fakeBackend{responses: []string{"FILTER"}}, fastRemote())
	d, err := r.Decide(context.Background(), "Page 4 of 210")
	require.NoError(t, err)
	assert.Equal(t, llm.Exclude, d)

	r = NewRemote(NewRule(), &fakeBackend{err: errors.New("503 service unavailable")}, fastRemote())
	d, err = r.Decide(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, llm.Include, d, "failures keep the paragraph")
}

func TestComposite_CountsSources(t *testing.T) {
	c, err := New(Options{
		Strategy: StrategyLLM,
		Backend:  &fakeBackend{responses: []string{"Heading 4"}},
		Remote:   fastRemote(),
	})
	require.NoError(t, err)
	require.NotNil(t, c.Remote)

	_, err = c.Classify(context.Background(), "• Wear gloves", Context{})
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), lowConfidenceText, Context{})
	require.NoError(t, err)

	snap := c.Stats.Snapshot()
	assert.Equal(t, int64(1), snap.RuleHits)
	assert.Equal(t, int64(1), snap.RemoteHits)
	assert.Equal(t, int64(0), snap.Fallbacks)
}
