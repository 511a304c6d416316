// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsafe/internal/backup"
	"docsafe/internal/batch"
	"docsafe/internal/classifiers"
	"docsafe/internal/config"
	"docsafe/internal/document"
	"docsafe/internal/docx"
	"docsafe/internal/extractors"
	"docsafe/internal/filters"
	"docsafe/internal/fingerprint"
	"docsafe/internal/formatting"
	"docsafe/internal/integrity"
	"docsafe/internal/observability"
	"docsafe/internal/progress"
	"docsafe/internal/safety"
	"docsafe/internal/store"
)

// Audit operations written by Process
const (
	OpAssess = "assess"
	OpFormat = "format"
)

var (
	// ErrUnsupportedOutput is returned for output paths that are neither .docx nor .html
	ErrUnsupportedOutput = errors.New("unsupported output format")

	// ErrIntegrity is returned when BlockOnIntegrityFailure is set and the
	// written output does not reproduce the surviving paragraphs
	ErrIntegrity = errors.New("output failed integrity validation")
)

// ProcessConfig holds configuration for one document run
type ProcessConfig struct {
	InputPath string
	// OutputPath is the .docx or .html to write. Empty means assess only.
	OutputPath string
	// PriorFingerprint is a fingerprint file of an earlier version of the
	// document; its numerical values must survive into the output.
	PriorFingerprint string
	// BlockOnIntegrityFailure removes, or rolls back, an output that fails
	// validation and returns ErrIntegrity
	BlockOnIntegrityFailure bool

	Config     *config.Config
	Components *Components // built from Config when nil

	// Optional collaborators
	Store    *store.SQLiteStore
	Backups  *backup.Manager
	Progress *progress.Store // switches classification to the resumable batch runner
	Observer *observability.StandardObserver
}

// ProcessResult holds the results of a processing run
type ProcessResult struct {
	OperationID string `json:"operation_id" yaml:"operation_id"`
	InputPath   string `json:"input_path" yaml:"input_path"`
	OutputPath  string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Strategy    string `json:"strategy" yaml:"strategy"`

	Fingerprint *fingerprint.Fingerprint       `json:"fingerprint" yaml:"fingerprint"`
	Safety      safety.Report                  `json:"safety" yaml:"safety"`
	Zones       []safety.ProhibitedZone        `json:"zones" yaml:"zones"`
	Removed     []filters.Removal              `json:"removed" yaml:"removed"`
	Paragraphs  []document.ClassifiedParagraph `json:"paragraphs" yaml:"paragraphs"`
	Stats       classifiers.StatsSnapshot      `json:"stats" yaml:"stats"`
	Resumed     bool                           `json:"resumed,omitempty" yaml:"resumed,omitempty"`

	Tables    []formatting.Table  `json:"tables,omitempty" yaml:"tables,omitempty"`
	Changes   []formatting.Change `json:"changes,omitempty" yaml:"changes,omitempty"`
	Styled    int                 `json:"styled" yaml:"styled"`
	Preserved int                 `json:"preserved" yaml:"preserved"`
	Review    int                 `json:"requires_review" yaml:"requires_review"`

	Integrity      *integrity.Report          `json:"integrity,omitempty" yaml:"integrity,omitempty"`
	ParagraphCheck *integrity.ParagraphReport `json:"paragraph_check,omitempty" yaml:"paragraph_check,omitempty"`
	PriorCheck     *integrity.Report          `json:"prior_check,omitempty" yaml:"prior_check,omitempty"`
	Blocked        bool                       `json:"blocked,omitempty" yaml:"blocked,omitempty"`

	BackupID       string `json:"backup_id,omitempty" yaml:"backup_id,omitempty"`
	OutputBackupID string `json:"output_backup_id,omitempty" yaml:"output_backup_id,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Valid reports whether every integrity check that ran passed
func (r *ProcessResult) Valid() bool {
	if r.Integrity != nil && !r.Integrity.OverallValid {
		return false
	}
	if r.ParagraphCheck != nil && !r.ParagraphCheck.Matched {
		return false
	}
	if r.PriorCheck != nil && !r.PriorCheck.NumericalValuesPreserved {
		return false
	}
	return true
}

// Process runs extraction, fingerprinting, filtering, classification,
// rendering and output validation for one document. The input file is
// never written.
func Process(ctx context.Context, pc ProcessConfig) (*ProcessResult, error) {
	start := time.Now()
	cfg := pc.Config
	if cfg == nil {
		cfg = config.LoadConfigOrDefault("")
	}
	obs := pc.Observer
	if obs == nil {
		obs = observability.NewStandardObserver(observability.ObservabilityOff, io.Discard)
	}
	logger := obs.Logger()

	comps := pc.Components
	if comps == nil {
		var err error
		if comps, err = BuildComponents(cfg, logger); err != nil {
			return nil, err
		}
	}

	res := &ProcessResult{
		OperationID: uuid.NewString(),
		InputPath:   pc.InputPath,
		OutputPath:  pc.OutputPath,
		Strategy:    cfg.Defaults.Strategy,
	}
	defer func() { res.Duration = time.Since(start) }()

	if pc.OutputPath != "" {
		if err := checkOutputPath(pc.InputPath, pc.OutputPath); err != nil {
			return nil, err
		}
	}

	doc, err := extract(ctx, obs, pc.InputPath)
	if err != nil {
		return nil, err
	}
	res.Title = doc.Title

	if err := fingerprintAndAssess(ctx, obs, pc, comps, doc, res); err != nil {
		return nil, err
	}

	if err := classify(ctx, obs, pc, cfg, comps, doc, res); err != nil {
		return res, err
	}

	if pc.OutputPath == "" {
		audit(ctx, pc.Store, logger, store.AuditEntry{
			Operation: OpAssess, DocumentPath: pc.InputPath, OperationID: res.OperationID, Success: true,
			Details: fmt.Sprintf("%d paragraphs kept, %d removed", len(res.Paragraphs), len(res.Removed)),
		})
		return res, nil
	}

	if pc.Backups != nil {
		if res.BackupID, err = pc.Backups.Create(ctx, pc.InputPath, res.Fingerprint, res.OperationID); err != nil {
			return res, err
		}
		if fileExists(pc.OutputPath) {
			if res.OutputBackupID, err = pc.Backups.Create(ctx, pc.OutputPath, nil, res.OperationID); err != nil {
				return res, err
			}
		}
	}

	engine, err := formatting.NewEngine(comps.Guide)
	if err != nil {
		return res, err
	}
	out := engine.Render(res.Paragraphs)
	engine.RenderTables(out, doc.Tabs, comps.Safety)
	res.Tables = out.Tables
	res.Changes = out.Changes
	res.Styled, res.Preserved, res.Review = out.Counts()

	done := obs.StartTiming("core", "write", pc.OutputPath)
	if err := writeOutput(pc.InputPath, pc.OutputPath, out, doc.Title); err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return res, err
	}
	done(true, map[string]interface{}{"changes": len(out.Changes)})

	if err := verifyOutput(comps, pc, doc.Tabs, res); err != nil {
		return res, err
	}

	valid := res.Valid()
	if !valid {
		logger.Warn("output failed integrity validation",
			"output", pc.OutputPath,
			"failures", strings.Join(res.Integrity.Failures(), ","))
	}
	audit(ctx, pc.Store, logger, store.AuditEntry{
		Operation: OpFormat, DocumentPath: pc.InputPath, OperationID: res.OperationID, Success: valid,
		Details: fmt.Sprintf("output=%s styled=%d preserved=%d review=%d changes=%d",
			pc.OutputPath, res.Styled, res.Preserved, res.Review, len(res.Changes)),
	})

	if !valid && pc.BlockOnIntegrityFailure {
		res.Blocked = true
		if err := discardOutput(ctx, pc, res); err != nil {
			return res, fmt.Errorf("%w; discarding output: %v", ErrIntegrity, err)
		}
		return res, ErrIntegrity
	}
	return res, nil
}

func extract(ctx context.Context, obs *observability.StandardObserver, path string) (*document.Document, error) {
	done := obs.StartTiming("extractors", "extract", path)
	step := obs.Step("extractors", "extract", path)
	doc, err := extractors.Extract(ctx, path)
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		step(false, err.Error())
		return nil, err
	}
	done(true, map[string]interface{}{"paragraphs": len(doc.Paras), "tables": len(doc.Tabs)})
	step(true, fmt.Sprintf("%d paragraphs, %d tables", len(doc.Paras), len(doc.Tabs)))
	return doc, nil
}

func fingerprintAndAssess(ctx context.Context, obs *observability.StandardObserver, pc ProcessConfig, comps *Components, doc *document.Document, res *ProcessResult) error {
	step := obs.Step("fingerprint", "build", pc.InputPath)
	fp, err := fingerprint.NewBuilder(comps.Library).Build(doc)
	if err != nil {
		step(false, err.Error())
		return err
	}
	step(true, fp.FullTextHash[:12])
	res.Fingerprint = fp

	res.Zones = comps.Safety.IdentifyZones(doc)
	res.Safety = comps.Safety.Report(doc)
	obs.Metric("safety", "zones", len(res.Zones))
	obs.Detail("safety", res.Safety.RecommendedApproach)

	if pc.Store != nil {
		if _, err := pc.Store.SaveFingerprint(ctx, pc.InputPath, fp); err != nil {
			return err
		}
		if err := pc.Store.SaveZones(ctx, pc.InputPath, res.Zones); err != nil {
			return err
		}
	}
	return nil
}

func classify(ctx context.Context, obs *observability.StandardObserver, pc ProcessConfig, cfg *config.Config, comps *Components, doc *document.Document, res *ProcessResult) error {
	done := obs.StartTiming("filters", "run", pc.InputPath)
	step := obs.Step("filters", "filter and classify", pc.InputPath)

	if pc.Progress != nil {
		runner := batch.NewRunner(comps.Pipeline, comps.Classifier, pc.Progress, batch.Config{
			SaveEvery: cfg.Batch.SaveEvery,
			Workers:   cfg.Batch.Workers,
			Logger:    obs.Logger(),
		})
		br, err := runner.Run(ctx, doc)
		if err != nil {
			done(false, map[string]interface{}{"error": err.Error()})
			step(false, err.Error())
			return err
		}
		res.Paragraphs, res.Removed, res.Stats, res.Resumed = br.Paragraphs, br.Removed, br.Stats, br.Resumed
	} else {
		fr, err := comps.Pipeline.Run(ctx, doc)
		if err != nil {
			done(false, map[string]interface{}{"error": err.Error()})
			step(false, err.Error())
			return err
		}
		res.Paragraphs, res.Removed = fr.Paragraphs, fr.Removed
		res.Stats = comps.Classifier.Stats.Snapshot()
	}

	done(true, map[string]interface{}{"kept": len(res.Paragraphs), "removed": len(res.Removed)})
	step(true, fmt.Sprintf("kept %d, removed %d", len(res.Paragraphs), len(res.Removed)))
	obs.Metric("classifiers", "rule_hits", res.Stats.RuleHits)
	obs.Metric("classifiers", "remote_hits", res.Stats.RemoteHits)
	return nil
}

// checkOutputPath refuses to write over the input and rejects unknown
// output extensions before any work is done
func checkOutputPath(input, output string) error {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".docx", ".html", ".htm":
	default:
		return fmt.Errorf("%s: %w", output, ErrUnsupportedOutput)
	}
	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if absIn == absOut {
		return fmt.Errorf("%s: %w", output, docx.ErrSameFile)
	}
	if a, errA := os.Stat(absIn); errA == nil {
		if b, errB := os.Stat(absOut); errB == nil && os.SameFile(a, b) {
			return fmt.Errorf("%s: %w", output, docx.ErrSameFile)
		}
	}
	return nil
}

func writeOutput(input, output string, out *formatting.Output, title string) error {
	if strings.EqualFold(filepath.Ext(output), ".docx") {
		entries := make([]docx.Entry, 0, len(out.Paragraphs))
		for _, p := range out.Paragraphs {
			entries = append(entries, docx.Entry{Text: p.Text, Style: p.Style, Properties: p.Properties})
		}
		tables := make([]docx.TableEntry, 0, len(out.Tables))
		for _, t := range out.Tables {
			rows := make([][]docx.Entry, 0, len(t.Rows))
			for _, row := range t.Rows {
				cells := make([]docx.Entry, 0, len(row))
				for _, c := range row {
					cells = append(cells, docx.Entry{Text: c.Text, Style: document.Normal, Properties: c.Properties})
				}
				rows = append(rows, cells)
			}
			tables = append(tables, docx.TableEntry{Rows: rows})
		}
		return docx.Save(input, output, entries, tables...)
	}
	return writeHTMLFile(output, out, title)
}

func writeHTMLFile(output string, out *formatting.Output, title string) error {
	tmp, err := os.CreateTemp(filepath.Dir(output), ".docsafe-*.html")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := formatting.WriteHTML(tmp, out, title); err != nil {
		tmp.Close()
		return fmt.Errorf("write html: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmpName, output); err != nil {
		return fmt.Errorf("rename output into place: %w", err)
	}
	return nil
}

// verifyOutput reads the written artifact back and compares it with a
// fingerprint of the paragraphs that survived filtering followed by every
// table cell
func verifyOutput(comps *Components, pc ProcessConfig, tables []document.Table, res *ProcessResult) error {
	kept := make([]document.Paragraph, 0, len(res.Paragraphs))
	for _, cp := range res.Paragraphs {
		kept = append(kept, cp.Paragraph)
	}
	kept = append(kept, document.CellParagraphs(tables)...)
	expected, err := fingerprint.NewBuilder(comps.Library).Build(document.FromParagraphs(kept))
	if err != nil {
		return err
	}

	var candidate string
	if strings.EqualFold(filepath.Ext(pc.OutputPath), ".docx") {
		written, err := docx.Read(pc.OutputPath)
		if err != nil {
			return fmt.Errorf("re-read output: %w", err)
		}
		paras := append(written.Paras, document.CellParagraphs(written.Tabs)...)
		candidate = fingerprint.FullText(paras)
		pr := integrity.ValidateParagraphs(expected, paras)
		res.ParagraphCheck = &pr
	} else {
		f, err := os.Open(pc.OutputPath)
		if err != nil {
			return fmt.Errorf("re-read output: %w", err)
		}
		defer f.Close()
		if candidate, err = integrity.ExtractHTMLText(f); err != nil {
			return err
		}
	}
	res.Integrity = integrity.Validate(expected, candidate)

	if pc.PriorFingerprint != "" {
		prior, err := fingerprint.ReadFile(pc.PriorFingerprint)
		if err != nil {
			return err
		}
		res.PriorCheck = integrity.Validate(prior, candidate)
	}
	return nil
}

// discardOutput restores the previous output when one was backed up and
// removes the new one otherwise
func discardOutput(ctx context.Context, pc ProcessConfig, res *ProcessResult) error {
	if res.OutputBackupID != "" && pc.Backups != nil {
		if pc.Backups.Rollback(ctx, res.OutputBackupID, pc.OutputPath) {
			return nil
		}
		return fmt.Errorf("rollback %s failed", res.OutputBackupID)
	}
	if err := os.Remove(pc.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func audit(ctx context.Context, s *store.SQLiteStore, logger *slog.Logger, e store.AuditEntry) {
	if s == nil {
		return
	}
	if err := s.AppendAudit(ctx, e); err != nil {
		logger.Warn("failed to write audit entry", "operation", e.Operation, "error", err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
