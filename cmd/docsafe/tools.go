// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docsafe/internal/classifiers"
	"docsafe/internal/core"
	"docsafe/internal/document"
	"docsafe/internal/extractors"
	"docsafe/internal/filters"
	"docsafe/internal/fingerprint"
	"docsafe/internal/formatting"
	"docsafe/internal/integrity"
	"docsafe/internal/patterns"
)

// emit writes v as JSON or YAML when one of those formats is selected and
// calls text otherwise
func (a *app) emit(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch a.cfg.Defaults.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func (a *app) fingerprintCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fingerprint INPUT",
		Short: "Compute the content fingerprint of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := patterns.New(a.cfg.Patterns.Extra)
			if err != nil {
				return err
			}
			fp, _, err := fingerprint.NewBuilder(lib).BuildFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output != "" {
				if err := fingerprint.WriteFile(output, fp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint written to %s\n", output)
				return nil
			}
			return a.emit(cmd.OutOrStdout(), fp, func(w io.Writer) {
				fmt.Fprintf(w, "%-18s %s\n", "Full text hash:", fp.FullTextHash)
				fmt.Fprintf(w, "%-18s %s\n", "Structure hash:", fp.StructureHash)
				fmt.Fprintf(w, "%-18s %d\n", "Paragraphs:", len(fp.ParagraphHashes))
				fmt.Fprintf(w, "%-18s %d\n", "Words:", fp.WordCount)
				fmt.Fprintf(w, "%-18s %d\n", "Characters:", fp.CharacterCount)
				fmt.Fprintf(w, "%-18s %s\n", "Numerical values:", strings.Join(fp.NumericalValues, ", "))
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the fingerprint as JSON to this file")
	return cmd
}

type verifyReport struct {
	Document   string                     `json:"document" yaml:"document"`
	Integrity  *integrity.Report          `json:"integrity" yaml:"integrity"`
	Paragraphs *integrity.ParagraphReport `json:"paragraphs,omitempty" yaml:"paragraphs,omitempty"`
}

func (r verifyReport) valid() bool {
	return r.Integrity.OverallValid && (r.Paragraphs == nil || r.Paragraphs.Matched)
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify DOCUMENT FINGERPRINT",
		Short: "Check a document against a saved fingerprint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := fingerprint.ReadFile(args[1])
			if err != nil {
				return err
			}
			rep := verifyReport{Document: args[0]}

			var candidate string
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".html", ".htm":
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				if candidate, err = integrity.ExtractHTMLText(f); err != nil {
					return err
				}
			default:
				doc, err := extractors.Extract(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				candidate = fingerprint.FullText(doc.Paras)
				pr := integrity.ValidateParagraphs(fp, doc.Paras)
				rep.Paragraphs = &pr
			}
			rep.Integrity = integrity.Validate(fp, candidate)

			if err := a.emit(cmd.OutOrStdout(), rep, func(w io.Writer) {
				if rep.valid() {
					fmt.Fprintln(w, "✓ document matches fingerprint")
					return
				}
				for _, f := range rep.Integrity.Failures() {
					fmt.Fprintf(w, "✗ %s\n", f)
				}
				if len(rep.Integrity.MissingValues) > 0 {
					fmt.Fprintf(w, "  missing: %s\n", strings.Join(rep.Integrity.MissingValues, ", "))
				}
				if rep.Paragraphs != nil && !rep.Paragraphs.Matched {
					fmt.Fprintf(w, "✗ paragraphs changed %v, missing %d, extra %d\n",
						rep.Paragraphs.Changed, rep.Paragraphs.Missing, rep.Paragraphs.Extra)
				}
			}); err != nil {
				return err
			}
			if !rep.valid() {
				return errValidation
			}
			return nil
		},
	}
}

type filterReport struct {
	Document   string               `json:"document" yaml:"document"`
	Kept       int                  `json:"kept" yaml:"kept"`
	Removed    []filters.Removal    `json:"removed" yaml:"removed"`
	Paragraphs []document.Paragraph `json:"paragraphs,omitempty" yaml:"paragraphs,omitempty"`
}

func (a *app) filterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "filter INPUT",
		Short: "Show which paragraphs the navigation and metadata filters remove",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// filtering never consults the remote model
			a.cfg.Defaults.Strategy = classifiers.StrategyRule
			comps, err := core.BuildComponents(a.cfg, a.obs.Logger())
			if err != nil {
				return err
			}
			doc, err := extractors.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			kept, removed := comps.Pipeline.Filter(document.NonEmpty(doc))

			rep := filterReport{Document: args[0], Kept: len(kept), Removed: removed}
			if a.cfg.Defaults.Verbose {
				rep.Paragraphs = kept
			}
			return a.emit(cmd.OutOrStdout(), rep, func(w io.Writer) {
				fmt.Fprintf(w, "%d kept, %d removed\n", len(kept), len(removed))
				for _, rm := range removed {
					fmt.Fprintf(w, "%6d  %-11s %-36s %s\n", rm.Paragraph.Index, rm.Stage, rm.Reason, rm.Paragraph.Text)
				}
				if a.cfg.Defaults.Verbose {
					for _, p := range kept {
						fmt.Fprintf(w, "%6d  %s\n", p.Index, p.Text)
					}
				}
			})
		},
	}
}

func (a *app) learnCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "learn REFERENCE",
		Short: "Build an exact-match style table from a correctly styled .docx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := extractors.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table := classifiers.Learn(doc)
			if err := classifiers.SaveTable(output, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Learned %d entries into %s\n", table.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Table file to write (YAML)")
	_ = cmd.MarkFlagRequired("output")
	cmd.AddCommand(a.learnStyleCommand())
	return cmd
}

func (a *app) learnStyleCommand() *cobra.Command {
	var (
		output    string
		name      string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "style ORIGINAL FORMATTED [ORIGINAL FORMATTED...]",
		Short: "Learn a style guide from documents before and after hand formatting",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected ORIGINAL FORMATTED pairs, got %d paths", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make([]formatting.DocumentPair, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				orig, err := extractors.Extract(cmd.Context(), args[i])
				if err != nil {
					return err
				}
				formatted, err := extractors.Extract(cmd.Context(), args[i+1])
				if err != nil {
					return err
				}
				pairs = append(pairs, formatting.DocumentPair{Original: orig, Formatted: formatted})
			}

			guide, stats, err := formatting.LearnStyleGuide(pairs, formatting.LearnOptions{Name: name, Threshold: threshold})
			if err != nil {
				return err
			}
			if stats.Skipped > 0 {
				a.obs.Logger().Warn("paragraphs skipped because their text differs", "skipped", stats.Skipped)
			}
			if err := formatting.SaveStyleGuide(output, guide); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Learned %d rules from %d paragraphs into %s\n", stats.Rules, stats.Paragraphs, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Style guide file to write (YAML)")
	cmd.Flags().StringVar(&name, "name", "learned", "Name recorded in the style guide")
	cmd.Flags().Float64Var(&threshold, "threshold", formatting.DefaultLearnThreshold, "Share of paragraphs that must agree on a value")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
