// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"log/slog"
	"strings"

	"docsafe/internal/classifiers"
	"docsafe/internal/config"
	"docsafe/internal/filters"
	"docsafe/internal/formatting"
	"docsafe/internal/llm"
	"docsafe/internal/patterns"
	"docsafe/internal/safety"
)

// newBackend is swapped in tests
var newBackend = llm.New

// Components is everything the pipeline needs, built once from configuration
type Components struct {
	Library    *patterns.Library
	Safety     *safety.Classifier
	Classifier *classifiers.Composite
	Pipeline   *filters.Pipeline
	Guide      *formatting.StyleGuide
}

// BuildClassifier constructs the stage 3 classifier chain for the configured
// strategy. The literal table is loaded when configured; the llm strategy
// also connects to the configured backend.
func BuildClassifier(cfg *config.Config, logger *slog.Logger) (*classifiers.Composite, error) {
	if cfg == nil {
		cfg = config.LoadConfigOrDefault("")
	}
	opts := classifiers.Options{Strategy: cfg.Defaults.Strategy}

	if path := strings.TrimSpace(cfg.Classifier.ExactTable); path != "" {
		table, err := classifiers.LoadTable(path)
		if err != nil {
			return nil, err
		}
		opts.Table = table
	}

	if strings.EqualFold(cfg.Defaults.Strategy, classifiers.StrategyLLM) {
		backend, err := newBackend(cfg.BackendConfig())
		if err != nil {
			return nil, fmt.Errorf("llm backend: %w", err)
		}
		opts.Backend = backend
		opts.Remote = cfg.RemoteConfig()
		opts.Remote.Logger = logger
	}

	return classifiers.New(opts)
}

// BuildComponents builds the pattern library with any extra expressions,
// the navigation rules with any extra literals, the classifier chain and
// the style guide.
func BuildComponents(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if cfg == nil {
		cfg = config.LoadConfigOrDefault("")
	}

	lib, err := patterns.New(cfg.Patterns.Extra)
	if err != nil {
		return nil, err
	}
	nav := lib.Navigation.WithExtras(cfg.Filters.DocumentTitles, cfg.Filters.InternalReferences)

	classifier, err := BuildClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	guide := formatting.DefaultStyleGuide()
	if path := strings.TrimSpace(cfg.StyleGuide.Path); path != "" {
		if guide, err = formatting.LoadStyleGuide(path); err != nil {
			return nil, err
		}
	}

	sc := safety.NewClassifier(lib)
	return &Components{
		Library:    lib,
		Safety:     sc,
		Classifier: classifier,
		Pipeline:   filters.NewPipeline(nav, classifier, sc),
		Guide:      guide,
	}, nil
}
