// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifiers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"docsafe/internal/document"
)

// Table maps the literal text of known headings and sections to a label.
// Keys are whitespace-normalised.
type Table struct {
	entries map[string]document.StyleLabel
	order   []string
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{entries: make(map[string]document.StyleLabel)}
}

func tableKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Add records a literal. The first label recorded for a text wins.
func (t *Table) Add(text string, label document.StyleLabel) bool {
	key := tableKey(text)
	if key == "" {
		return false
	}
	if _, ok := t.entries[key]; ok {
		return false
	}
	t.entries[key] = label
	t.order = append(t.order, key)
	return true
}

// Lookup returns the label recorded for text
func (t *Table) Lookup(text string) (document.StyleLabel, bool) {
	l, ok := t.entries[tableKey(text)]
	return l, ok
}

// Len returns the number of entries
func (t *Table) Len() int { return len(t.entries) }

// Learn builds a table from a correctly styled reference document. Only
// paragraphs whose style is a heading or Normal are recorded: body text and
// list items are too varied to be matched literally.
func Learn(src document.Source) *Table {
	t := NewTable()
	for _, p := range document.NonEmpty(src) {
		label, err := document.ParseStyleLabel(p.StyleName)
		if err != nil {
			continue
		}
		if label.IsHeading() || label == document.Normal {
			t.Add(p.Text, label)
		}
	}
	return t
}

type tableFile struct {
	Entries []tableEntry `yaml:"entries"`
}

type tableEntry struct {
	Text  string `yaml:"text"`
	Style string `yaml:"style"`
}

// LoadTable reads a table written by SaveTable
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern table: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pattern table %s: %w", path, err)
	}
	t := NewTable()
	for i, e := range f.Entries {
		label, err := document.ParseStyleLabel(e.Style)
		if err != nil {
			return nil, fmt.Errorf("pattern table entry %d: %w", i, err)
		}
		t.Add(e.Text, label)
	}
	return t, nil
}

// SaveTable writes the table as YAML, in insertion order
func SaveTable(path string, t *Table) error {
	f := tableFile{}
	for _, key := range t.order {
		f.Entries = append(f.Entries, tableEntry{Text: key, Style: t.entries[key].String()})
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to encode pattern table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pattern table: %w", err)
	}
	return nil
}

// patternRule is a structural heading rule checked after the literal table
type patternRule struct {
	label      document.StyleLabel
	confidence float64
	match      func(text string) bool
}

var (
	appendixHeading = regexp.MustCompile(`^Appendix [A-Z] `)
	cfrReference    = regexp.MustCompile(`^\d+ CFR Part `)
	sectionCode     = regexp.MustCompile(`\([A-Z]+-[A-Z]+\)`)
)

func upperWithin(text string, limit int, keywords ...string) bool {
	if !isUpper(text) || utf8.RuneCountInString(text) >= limit {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

var patternRules = []patternRule{
	{document.Heading1, 0.95, appendixHeading.MatchString},
	{document.Heading2, 0.95, func(s string) bool { return isUpper(s) && sectionCode.MatchString(s) }},
	{document.Heading2, 0.90, func(s string) bool {
		return upperWithin(s, 60, "DEFINITIONS", "POLICY", "PROCEDURE", "BENEFITS", "REQUIREMENTS")
	}},
	{document.Heading3, 0.95, cfrReference.MatchString},
	{document.Heading3, 0.90, func(s string) bool {
		return upperWithin(s, 50, "SCOPE", "PURPOSE", "GENERAL", "EMPLOYEE", "MANAGEMENT", "CORE")
	}},
	{document.Heading4, 0.90, func(s string) bool { return strings.HasPrefix(s, "NOTE:") }},
	{document.Heading4, 0.85, func(s string) bool { return strings.HasSuffix(s, "?") }},
	{document.Heading5, 0.85, func(s string) bool {
		return utf8.RuneCountInString(s) < 50 && (strings.Contains(s, "Options") || strings.Contains(s, "System"))
	}},
}

// Exact checks a learned literal table, then structural heading patterns,
// then falls through to the rule tree.
type Exact struct {
	table *Table
	rule  *Rule
}

// NewExact creates a classifier. A nil table behaves as an empty one.
func NewExact(table *Table) *Exact {
	if table == nil {
		table = NewTable()
	}
	return &Exact{table: table, rule: NewRule()}
}

func (e *Exact) Classify(ctx context.Context, text string, c Context) (Result, error) {
	if label, ok := e.table.Lookup(text); ok {
		return Result{label, 1.0, SourceExact}, nil
	}
	trimmed := strings.TrimSpace(text)
	for _, p := range patternRules {
		if p.match(trimmed) {
			return Result{p.label, p.confidence, SourcePattern}, nil
		}
	}
	return e.rule.Classify(ctx, text, c)
}
