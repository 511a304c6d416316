// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package classifiers assigns style labels to paragraph text. Every strategy
// returns a label from the same closed set, so strategies can be stacked:
// exact table, then rules, then a remote model for low-confidence cases.
package classifiers

import (
	"context"
	"sync/atomic"

	"docsafe/internal/document"
)

// Source records which strategy produced a result
type Source string

const (
	SourceRule     Source = "rule"
	SourceExact    Source = "exact"
	SourcePattern  Source = "pattern"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Context carries what a classifier may know about the paragraph's position
type Context struct {
	Index    int
	Previous string
}

// Result is a label with the confidence of the rule that produced it
type Result struct {
	Label      document.StyleLabel `json:"label" yaml:"label"`
	Confidence float64             `json:"confidence" yaml:"confidence"`
	Source     Source              `json:"source" yaml:"source"`
}

// Classifier maps paragraph text to a style label
type Classifier interface {
	Classify(ctx context.Context, text string, c Context) (Result, error)
}

// Stats counts results by source. Safe for concurrent use.
type Stats struct {
	rule, exact, remote, fallback atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	RuleHits   int64 `json:"rule_hits" yaml:"rule_hits"`
	ExactHits  int64 `json:"exact_hits" yaml:"exact_hits"`
	RemoteHits int64 `json:"remote_hits" yaml:"remote_hits"`
	Fallbacks  int64 `json:"fallbacks" yaml:"fallbacks"`
}

// Record counts one result
func (s *Stats) Record(r Result) {
	switch r.Source {
	case SourceRule:
		s.rule.Add(1)
	case SourceExact, SourcePattern:
		s.exact.Add(1)
	case SourceRemote:
		s.remote.Add(1)
	case SourceFallback:
		s.fallback.Add(1)
	}
}

// Restore seeds the counters, used when resuming a run
func (s *Stats) Restore(snap StatsSnapshot) {
	s.rule.Store(snap.RuleHits)
	s.exact.Store(snap.ExactHits)
	s.remote.Store(snap.RemoteHits)
	s.fallback.Store(snap.Fallbacks)
}

// Snapshot returns the current counts
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RuleHits:   s.rule.Load(),
		ExactHits:  s.exact.Load(),
		RemoteHits: s.remote.Load(),
		Fallbacks:  s.fallback.Load(),
	}
}

// Counting wraps a classifier and records every result in stats
type Counting struct {
	Next  Classifier
	Stats *Stats
}

func (c *Counting) Classify(ctx context.Context, text string, cc Context) (Result, error) {
	r, err := c.Next.Classify(ctx, text, cc)
	if err == nil {
		c.Stats.Record(r)
	}
	return r, err
}
