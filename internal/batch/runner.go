// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docsafe/internal/classifiers"
	"docsafe/internal/document"
	"docsafe/internal/filters"
	"docsafe/internal/fingerprint"
	"docsafe/internal/llm"
	"docsafe/internal/progress"
)

// StageRemote names removals decided by the model backend
const StageRemote = "remote"

// DefaultSaveEvery is the snapshot cadence in processed paragraphs
const DefaultSaveEvery = 50

// Config tunes a runner
type Config struct {
	SaveEvery int
	// Workers above 1 classify that many paragraphs concurrently
	Workers int
	Logger  *slog.Logger
}

// Result is the outcome of a completed run
type Result struct {
	Paragraphs  []document.ClassifiedParagraph `json:"paragraphs" yaml:"paragraphs"`
	Removed     []filters.Removal              `json:"removed" yaml:"removed"`
	Stats       classifiers.StatsSnapshot      `json:"stats" yaml:"stats"`
	Resumed     bool                           `json:"resumed" yaml:"resumed"`
	ResumedFrom int                            `json:"resumed_from" yaml:"resumed_from"`
}

// Runner processes one document unattended. Progress is saved every
// SaveEvery paragraphs and when ctx is cancelled, and a later run over the
// same content resumes from the last snapshot.
type Runner struct {
	pipeline   *filters.Pipeline
	classifier *classifiers.Composite
	store      *progress.Store
	cfg        Config
	logger     *slog.Logger
	pool       *workerPool
}

// NewRunner creates a runner. The pipeline must classify with the same
// composite so that its counters end up in the snapshots.
func NewRunner(pipeline *filters.Pipeline, classifier *classifiers.Composite, store *progress.Store, cfg Config) *Runner {
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = DefaultSaveEvery
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{pipeline: pipeline, classifier: classifier, store: store, cfg: cfg, logger: logger}
	r.pool = newWorkerPool(cfg.Workers, r.process)
	return r
}

// Run filters and classifies doc. On cancellation the committed progress
// is saved and ctx.Err() is returned; the snapshot is removed on success.
func (r *Runner) Run(ctx context.Context, doc *document.Document) (*Result, error) {
	hash := fingerprint.Hash(fingerprint.FullText(doc.Paragraphs()))

	snap, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if snap.Matches(hash) {
		res.Resumed = true
		res.ResumedFrom = snap.NextIndex
		r.classifier.Stats.Restore(snap.Stats)
		r.logger.Info("resuming batch run", "document", doc.Path, "next", snap.NextIndex)
	} else {
		if snap != nil {
			r.logger.Info("discarding progress for different content", "document", snap.Document)
		}
		snap = &progress.Snapshot{Document: doc.Path, DocumentHash: hash}
	}

	kept, removed := r.pipeline.Filter(doc.Paragraphs())
	snap.Filtered = len(removed)
	if snap.NextIndex > len(kept) {
		return nil, fmt.Errorf("progress for %s is past the end of the document (%d > %d)", doc.Path, snap.NextIndex, len(kept))
	}

	lastSaved := snap.NextIndex
	for snap.NextIndex < len(kept) {
		if ctx.Err() != nil {
			return nil, r.interrupt(ctx, snap)
		}

		end := min(snap.NextIndex+r.cfg.Workers, len(kept))
		jobs := make([]job, 0, end-snap.NextIndex)
		for pos := snap.NextIndex; pos < end; pos++ {
			j := job{pos: pos, para: kept[pos]}
			if pos > 0 {
				j.previous = kept[pos-1].Text
			}
			jobs = append(jobs, j)
		}

		for _, o := range r.pool.run(ctx, jobs) {
			if o.err != nil {
				if ctx.Err() != nil {
					return nil, r.interrupt(ctx, snap)
				}
				return nil, o.err
			}
			if o.excluded {
				snap.Excluded = append(snap.Excluded, kept[o.pos].Index)
			} else {
				snap.Results = append(snap.Results, o.result)
			}
			snap.NextIndex = o.pos + 1
		}

		if snap.NextIndex-lastSaved >= r.cfg.SaveEvery {
			if err := r.save(snap); err != nil {
				return nil, err
			}
			lastSaved = snap.NextIndex
			r.logger.Info("progress saved", "processed", snap.NextIndex, "total", len(kept),
				"remote_hits", snap.Stats.RemoteHits, "fallbacks", snap.Stats.Fallbacks)
		}
	}

	if err := r.store.Clear(); err != nil {
		return nil, err
	}

	res.Paragraphs = snap.Results
	res.Removed = append(removed, excludedRemovals(doc, snap.Excluded)...)
	res.Stats = r.classifier.Stats.Snapshot()
	return res, nil
}

func (r *Runner) save(snap *progress.Snapshot) error {
	snap.Stats = r.classifier.Stats.Snapshot()
	if err := r.store.Save(snap); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// interrupt saves what has been committed and reports the cancellation
func (r *Runner) interrupt(ctx context.Context, snap *progress.Snapshot) error {
	if err := r.save(snap); err != nil {
		return errors.Join(ctx.Err(), err)
	}
	r.logger.Info("run interrupted, progress saved", "processed", snap.NextIndex, "file", r.store.Path())
	return ctx.Err()
}

// process asks the backend whether a low-confidence paragraph belongs in
// the output at all before classifying it
func (r *Runner) process(ctx context.Context, j job) outcome {
	if remote := r.classifier.Remote; remote != nil {
		local, err := remote.Local(ctx, j.para.Text, classifiers.Context{Index: j.para.Index, Previous: j.previous})
		if err != nil {
			return outcome{pos: j.pos, err: err}
		}
		if !remote.Confident(local) {
			decision, err := remote.Decide(ctx, j.para.Text)
			if err != nil {
				return outcome{pos: j.pos, err: err}
			}
			if decision == llm.Exclude {
				return outcome{pos: j.pos, excluded: true}
			}
		}
	}

	cp, err := r.pipeline.ClassifyOne(ctx, j.para, j.previous)
	if err != nil {
		return outcome{pos: j.pos, err: err}
	}
	return outcome{pos: j.pos, result: cp}
}

func excludedRemovals(doc *document.Document, indexes []int) []filters.Removal {
	if len(indexes) == 0 {
		return nil
	}
	byIndex := make(map[int]document.Paragraph, len(doc.Paras))
	for _, p := range doc.Paras {
		byIndex[p.Index] = p
	}
	out := make([]filters.Removal, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, filters.Removal{Paragraph: byIndex[i], Stage: StageRemote, Reason: "excluded by model"})
	}
	return out
}
