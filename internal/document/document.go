// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"strings"
)

// Format identifies the container a document was read from
type Format string

const (
	FormatDocx     Format = "docx"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

// Formatting is a read-only snapshot of a paragraph's visual properties
type Formatting struct {
	FontName      string  `json:"font_name,omitempty" yaml:"font_name,omitempty"`
	FontSize      float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"` // points
	Bold          bool    `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic        bool    `json:"italic,omitempty" yaml:"italic,omitempty"`
	Alignment     string  `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	SpacingBefore float64 `json:"spacing_before,omitempty" yaml:"spacing_before,omitempty"` // points
	SpacingAfter  float64 `json:"spacing_after,omitempty" yaml:"spacing_after,omitempty"`   // points
}

// Paragraph is one unit of document text. Text is never modified after extraction.
type Paragraph struct {
	Index      int        `json:"index" yaml:"index"`
	Text       string     `json:"text" yaml:"text"`
	StyleName  string     `json:"style_name,omitempty" yaml:"style_name,omitempty"`
	Formatting Formatting `json:"formatting" yaml:"formatting"`
}

// IsEmpty reports whether the paragraph carries no visible text
func (p Paragraph) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == ""
}

// IsHeading reports whether the source style is a heading style
func (p Paragraph) IsHeading() bool {
	return strings.HasPrefix(p.StyleName, "Heading")
}

// Cell is a single table cell
type Cell struct {
	Text string `json:"text" yaml:"text"`
}

// Table is an ordered grid of cells
type Table struct {
	Index int      `json:"index" yaml:"index"`
	Rows  [][]Cell `json:"rows" yaml:"rows"`
}

// Source is the narrow view the core algorithms need from a document.
// Anything that can list its paragraphs and tables in order can be
// fingerprinted, filtered and classified.
type Source interface {
	Paragraphs() []Paragraph
	Tables() []Table
}

// Document is the in-memory result of reading a document file
type Document struct {
	Path   string      `json:"path" yaml:"path"`
	Format Format      `json:"format" yaml:"format"`
	Title  string      `json:"title,omitempty" yaml:"title,omitempty"`
	Paras  []Paragraph `json:"paragraphs" yaml:"paragraphs"`
	Tabs   []Table     `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// New builds a document from raw paragraph texts, indexing them in order.
// Mostly useful for fixtures and plain-text input.
func New(path string, texts ...string) *Document {
	doc := &Document{Path: path, Format: FormatText}
	for i, t := range texts {
		doc.Paras = append(doc.Paras, Paragraph{Index: i, Text: t, StyleName: "Normal"})
	}
	return doc
}

// Paragraphs implements Source
func (d *Document) Paragraphs() []Paragraph { return d.Paras }

// Tables implements Source
func (d *Document) Tables() []Table { return d.Tabs }

// NonEmpty returns the paragraphs with visible text, in source order
func NonEmpty(src Source) []Paragraph {
	var out []Paragraph
	for _, p := range src.Paragraphs() {
		if !p.IsEmpty() {
			out = append(out, p)
		}
	}
	return out
}

// HeadingCount counts paragraphs whose source style is a heading style
func HeadingCount(src Source) int {
	n := 0
	for _, p := range src.Paragraphs() {
		if p.IsHeading() {
			n++
		}
	}
	return n
}

// Texts returns the paragraph texts in order
func Texts(paragraphs []Paragraph) []string {
	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = p.Text
	}
	return out
}

// CellParagraphs flattens table cells into paragraphs in table, row and
// column order, numbered from zero
func CellParagraphs(tables []Table) []Paragraph {
	var out []Paragraph
	for _, t := range tables {
		for _, row := range t.Rows {
			for _, c := range row {
				out = append(out, Paragraph{Index: len(out), Text: c.Text})
			}
		}
	}
	return out
}

// slice adapts a plain paragraph list to Source
type slice []Paragraph

func (s slice) Paragraphs() []Paragraph { return s }
func (s slice) Tables() []Table         { return nil }

// FromParagraphs wraps a paragraph list as a Source with no tables
func FromParagraphs(paragraphs []Paragraph) Source {
	return slice(paragraphs)
}
