// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifiers

import (
	"fmt"
	"strings"

	"docsafe/internal/llm"
)

// Strategy names accepted by New
const (
	StrategyRule    = "rule"
	StrategyPattern = "pattern"
	StrategyLLM     = "llm"
)

// Options configures New
type Options struct {
	Strategy string
	Table    *Table      // pattern and llm strategies
	Backend  llm.Backend // llm strategy
	Remote   RemoteConfig
}

// Composite is the configured classifier chain plus its counters
type Composite struct {
	Classifier
	Stats  *Stats
	Remote *Remote // nil unless the llm strategy is active
}

// New builds the classifier chain for a strategy:
//
//	rule:    rule tree
//	pattern: literal table, structural patterns, rule tree
//	llm:     as pattern, plus the backend below the confidence threshold
func New(opts Options) (*Composite, error) {
	stats := &Stats{}
	c := &Composite{Stats: stats}

	var chain Classifier
	switch strings.ToLower(opts.Strategy) {
	case StrategyRule, "":
		chain = NewRule()
	case StrategyPattern:
		chain = NewExact(opts.Table)
	case StrategyLLM:
		if opts.Backend == nil {
			return nil, fmt.Errorf("strategy %q requires an llm backend", opts.Strategy)
		}
		c.Remote = NewRemote(NewExact(opts.Table), opts.Backend, opts.Remote)
		chain = c.Remote
	default:
		return nil, fmt.Errorf("unknown classification strategy %q", opts.Strategy)
	}

	c.Classifier = &Counting{Next: chain, Stats: stats}
	return c, nil
}
