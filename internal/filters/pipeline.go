// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"context"
	"fmt"

	"docsafe/internal/classifiers"
	"docsafe/internal/document"
	"docsafe/internal/patterns"
	"docsafe/internal/safety"
)

// Removal records a paragraph dropped by a stage
type Removal struct {
	Paragraph document.Paragraph `json:"paragraph" yaml:"paragraph"`
	Stage     string             `json:"stage" yaml:"stage"`
	Reason    string             `json:"reason" yaml:"reason"`
}

// Apply runs one stage over a sequence. The kept paragraphs keep their
// order; every dropped paragraph is returned with its reason.
func Apply(stage Stage, paragraphs []document.Paragraph) (kept []document.Paragraph, removed []Removal) {
	for _, p := range paragraphs {
		if reason, drop := stage.Check(p.Text); drop {
			removed = append(removed, Removal{Paragraph: p, Stage: stage.Name(), Reason: reason})
			continue
		}
		kept = append(kept, p)
	}
	return kept, removed
}

// Result is the output of a full pipeline run
type Result struct {
	Paragraphs []document.ClassifiedParagraph `json:"paragraphs" yaml:"paragraphs"`
	Removed    []Removal                      `json:"removed" yaml:"removed"`
}

// Pipeline runs navigation removal, metadata removal and classification.
// Each stage consumes the whole output of the previous one.
type Pipeline struct {
	navigation Stage
	metadata   Stage
	classifier classifiers.Classifier
	safety     *safety.Classifier
}

// NewPipeline creates a pipeline. A nil nav uses the built-in navigation
// rules, a nil classifier the rule tree and a nil safety classifier the
// built-in pattern library.
func NewPipeline(nav *patterns.Navigation, classifier classifiers.Classifier, sc *safety.Classifier) *Pipeline {
	if classifier == nil {
		classifier = classifiers.NewRule()
	}
	if sc == nil {
		sc = safety.NewClassifier(nil)
	}
	return &Pipeline{
		navigation: NewNavigationStage(nav),
		metadata:   NewMetadataStage(nav),
		classifier: classifier,
		safety:     sc,
	}
}

// Filter runs stages 1 and 2 only. Empty paragraphs are skipped silently.
func (p *Pipeline) Filter(paragraphs []document.Paragraph) ([]document.Paragraph, []Removal) {
	var nonEmpty []document.Paragraph
	for _, para := range paragraphs {
		if !para.IsEmpty() {
			nonEmpty = append(nonEmpty, para)
		}
	}
	kept, removed := Apply(p.navigation, nonEmpty)
	kept, more := Apply(p.metadata, kept)
	return kept, append(removed, more...)
}

// Classify runs stage 3 and the safety assessment over already filtered
// paragraphs. It stops at the first classifier error, which only happens
// when ctx is cancelled.
func (p *Pipeline) Classify(ctx context.Context, paragraphs []document.Paragraph) ([]document.ClassifiedParagraph, error) {
	out := make([]document.ClassifiedParagraph, 0, len(paragraphs))
	previous := ""
	for _, para := range paragraphs {
		cp, err := p.ClassifyOne(ctx, para, previous)
		if err != nil {
			return out, err
		}
		out = append(out, cp)
		previous = para.Text
	}
	return out, nil
}

// ClassifyOne labels and assesses a single paragraph
func (p *Pipeline) ClassifyOne(ctx context.Context, para document.Paragraph, previous string) (document.ClassifiedParagraph, error) {
	r, err := p.classifier.Classify(ctx, para.Text, classifiers.Context{Index: para.Index, Previous: previous})
	if err != nil {
		return document.ClassifiedParagraph{}, fmt.Errorf("classify paragraph %d: %w", para.Index, err)
	}
	return document.ClassifiedParagraph{
		Paragraph:  para,
		Style:      r.Label,
		Confidence: r.Confidence,
		Source:     string(r.Source),
		Safety:     p.safety.Assess(para.Text),
	}, nil
}

// Run filters and classifies a paragraph source
func (p *Pipeline) Run(ctx context.Context, src document.Source) (*Result, error) {
	kept, removed := p.Filter(src.Paragraphs())
	classified, err := p.Classify(ctx, kept)
	res := &Result{Paragraphs: classified, Removed: removed}
	if err != nil {
		return res, err
	}
	return res, nil
}
