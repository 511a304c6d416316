// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"docsafe/internal/core"
	"docsafe/internal/document"
	"docsafe/internal/formatters"
	"docsafe/internal/formatters/shared"
	"docsafe/internal/integrity"
)

const defaultWidth = 100

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(result *core.ProcessResult, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var b strings.Builder
	f.appendSummary(&b, result, options)
	f.appendSafety(&b, result, options)
	if len(result.Removed) > 0 {
		f.appendRemovals(&b, result, options)
	}
	if options.Verbose && len(result.Paragraphs) > 0 {
		f.appendParagraphs(&b, result, options)
	}
	if result.Integrity != nil {
		f.appendIntegrity(&b, result, options)
	}
	return b.String(), nil
}

func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) heading(b *strings.Builder, title string, options formatters.FormatterOptions) {
	b.WriteString(f.paint("white", options, "=== %s ===\n", title))
}

func (f *Formatter) appendSummary(b *strings.Builder, r *core.ProcessResult, options formatters.FormatterOptions) {
	f.heading(b, "Document", options)
	fmt.Fprintf(b, "%-14s %s\n", "Input:", r.InputPath)
	if r.OutputPath != "" {
		fmt.Fprintf(b, "%-14s %s\n", "Output:", r.OutputPath)
	}
	fmt.Fprintf(b, "%-14s %s\n", "Title:", r.Title)
	fmt.Fprintf(b, "%-14s %s\n", "Strategy:", r.Strategy)
	fmt.Fprintf(b, "%-14s %d kept, %d removed", "Paragraphs:", len(r.Paragraphs), len(r.Removed))
	if r.Resumed {
		b.WriteString(f.paint("cyan", options, " (resumed)"))
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "%-14s rule %d, exact %d, remote %d, fallback %d\n", "Classifier:",
		r.Stats.RuleHits, r.Stats.ExactHits, r.Stats.RemoteHits, r.Stats.Fallbacks)
	if r.OutputPath != "" {
		fmt.Fprintf(b, "%-14s %s styled, %s preserved, %s for review, %d changes\n", "Formatting:",
			f.paint("green", options, "%d", r.Styled),
			f.paint("red", options, "%d", r.Preserved),
			f.paint("yellow", options, "%d", r.Review),
			len(r.Changes))
	}
	if r.BackupID != "" {
		fmt.Fprintf(b, "%-14s %s\n", "Backup:", r.BackupID)
	}
	fmt.Fprintf(b, "%-14s %s\n\n", "Operation:", r.OperationID)
}

func (f *Formatter) appendSafety(b *strings.Builder, r *core.ProcessResult, options formatters.FormatterOptions) {
	s := r.Safety
	f.heading(b, "Safety", options)
	fmt.Fprintf(b, "%s safe  %s review  %s critical  (%.1f%% safe, %.1f%% critical)\n",
		f.paint("green", options, "%d", s.Safe),
		f.paint("yellow", options, "%d", s.Review),
		f.paint("red", options, "%d", s.Critical),
		s.SafePercentage, s.CriticalPercentage)
	if s.ZoneCount > 0 {
		fmt.Fprintf(b, "Prohibited zones: %d (%s)\n", s.ZoneCount, strings.Join(s.ZoneTypes, ", "))
	}
	fmt.Fprintf(b, "Recommendation: %s\n\n", f.paint("cyan", options, "%s", s.RecommendedApproach))
}

func (f *Formatter) appendRemovals(b *strings.Builder, r *core.ProcessResult, options formatters.FormatterOptions) {
	f.heading(b, "Removed", options)
	header := fmt.Sprintf("%-6s %-11s %-36s %s\n", "INDEX", "STAGE", "REASON", "TEXT")
	b.WriteString(f.paint("white", options, "%s", header))
	b.WriteString(strings.Repeat("-", min(width(options), 80)) + "\n")

	textWidth := width(options) - 56
	for _, rm := range r.Removed {
		text := "[hidden]"
		if options.ShowText || options.Verbose {
			text = truncate(rm.Paragraph.Text, textWidth)
		}
		fmt.Fprintf(b, "%6d %s %-36s %s\n",
			rm.Paragraph.Index,
			f.paint("magenta", options, "%-11s", rm.Stage),
			truncate(rm.Reason, 36),
			text)
	}
	b.WriteString("\n")
}

func (f *Formatter) appendParagraphs(b *strings.Builder, r *core.ProcessResult, options formatters.FormatterOptions) {
	f.heading(b, "Paragraphs", options)
	header := fmt.Sprintf("%-6s %-9s %-15s %-7s %-9s %s\n", "INDEX", "SAFETY", "STYLE", "CONF", "SOURCE", "TEXT")
	b.WriteString(f.paint("white", options, "%s", header))
	b.WriteString(strings.Repeat("-", min(width(options), 80)) + "\n")

	textWidth := width(options) - 52
	for _, cp := range r.Paragraphs {
		fmt.Fprintf(b, "%6d %s %-15s %s %-9s %s\n",
			cp.Paragraph.Index,
			f.safety(cp.Safety, options),
			cp.Style.String(),
			f.confidence(cp.Confidence, options),
			cp.Source,
			truncate(cp.Paragraph.Text, textWidth))
	}
	b.WriteString("\n")
}

func (f *Formatter) safety(level document.SafetyLevel, options formatters.FormatterOptions) string {
	name := "green"
	switch level {
	case document.SafetyCritical:
		name = "red"
	case document.SafetyReview:
		name = "yellow"
	}
	return f.paint(name, options, "%-9s", strings.ToUpper(level.String()))
}

func (f *Formatter) confidence(c float64, options formatters.FormatterOptions) string {
	name := "green"
	switch shared.GetConfidenceLevel(c) {
	case "MEDIUM":
		name = "yellow"
	case "LOW":
		name = "red"
	}
	return f.paint(name, options, "%6.2f ", c)
}

func (f *Formatter) appendIntegrity(b *strings.Builder, r *core.ProcessResult, options formatters.FormatterOptions) {
	f.heading(b, "Integrity", options)
	rep := r.Integrity
	f.check(b, "content hash", rep.ContentHashMatch, "", options)
	f.check(b, "word count", rep.WordCountMatch, fmt.Sprintf("%d/%d", rep.ActualWords, rep.ExpectedWords), options)
	f.check(b, "character count", rep.CharacterCountMatch, fmt.Sprintf("%d/%d", rep.ActualChars, rep.ExpectedChars), options)
	f.check(b, "numerical values", rep.NumericalValuesPreserved, missing(rep), options)
	if pc := r.ParagraphCheck; pc != nil {
		detail := ""
		if !pc.Matched {
			detail = fmt.Sprintf("changed %v, missing %d, extra %d", pc.Changed, pc.Missing, pc.Extra)
		}
		f.check(b, "paragraphs", pc.Matched, detail, options)
	}
	if prior := r.PriorCheck; prior != nil {
		f.check(b, "prior numerical values", prior.NumericalValuesPreserved, missing(prior), options)
	}

	switch {
	case r.Blocked:
		b.WriteString(f.paint("red", options, "Output blocked: integrity validation failed\n"))
	case r.Valid():
		b.WriteString(f.paint("green", options, "Output verified\n"))
	default:
		b.WriteString(f.paint("yellow", options, "Output written but failed validation; review before use\n"))
	}
}

func (f *Formatter) check(b *strings.Builder, name string, ok bool, detail string, options formatters.FormatterOptions) {
	mark := f.paint("green", options, "✓")
	if !ok {
		mark = f.paint("red", options, "✗")
	}
	if detail != "" {
		fmt.Fprintf(b, "  %s %-24s %s\n", mark, name, detail)
		return
	}
	fmt.Fprintf(b, "  %s %s\n", mark, name)
}

func missing(r *integrity.Report) string {
	if len(r.MissingValues) == 0 {
		return ""
	}
	return "missing " + strings.Join(r.MissingValues, ", ")
}

func width(options formatters.FormatterOptions) int {
	if options.Width > 0 {
		return options.Width
	}
	return defaultWidth
}

// truncate shortens text to n runes on one line
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n < 10 {
		n = 10
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
