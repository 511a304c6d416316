// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatting

import (
	"fmt"
	"strconv"
	"strings"

	"docsafe/internal/document"
)

// Output classes
const (
	ClassPreserved = "preserved"
	ClassReview    = "requires-review"
	ClassStyled    = "styled"
)

// Change records one applied property. Changes are appended in paragraph
// then property order and never modified afterwards.
type Change struct {
	ElementID   string `json:"element_id" yaml:"element_id"`
	ChangeType  string `json:"change_type" yaml:"change_type"`
	CSSProperty string `json:"css_property" yaml:"css_property"`
	OldValue    string `json:"old_value" yaml:"old_value"`
	NewValue    string `json:"new_value" yaml:"new_value"`
	Rationale   string `json:"rationale" yaml:"rationale"`
}

// Paragraph is one rendered output paragraph. Text is always the input
// text, byte for byte.
type Paragraph struct {
	ID         string               `json:"id" yaml:"id"`
	Index      int                  `json:"index" yaml:"index"`
	Text       string               `json:"text" yaml:"text"`
	Style      document.StyleLabel  `json:"style" yaml:"style"`
	Safety     document.SafetyLevel `json:"safety" yaml:"safety"`
	Class      string               `json:"class" yaml:"class"`
	Properties map[string]string    `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Output is a rendered document
type Output struct {
	Guide      *StyleGuide `json:"-" yaml:"-"`
	Paragraphs []Paragraph `json:"paragraphs" yaml:"paragraphs"`
	Tables     []Table     `json:"tables,omitempty" yaml:"tables,omitempty"`
	Changes    []Change    `json:"changes" yaml:"changes"`
}

// Text joins the non-empty output texts with newlines, the same way
// fingerprints build their full text. Table cells follow the paragraphs in
// table, row and column order.
func (o *Output) Text() string {
	var texts []string
	for _, p := range o.Paragraphs {
		if strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	for _, c := range o.cells() {
		if strings.TrimSpace(c.Text) != "" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (o *Output) cells() []Cell {
	var cells []Cell
	for _, t := range o.Tables {
		for _, row := range t.Rows {
			cells = append(cells, row...)
		}
	}
	return cells
}

// Counts returns how many paragraphs and table cells were styled, preserved
// and flagged
func (o *Output) Counts() (styled, preserved, review int) {
	classes := make([]string, 0, len(o.Paragraphs))
	for _, p := range o.Paragraphs {
		classes = append(classes, p.Class)
	}
	for _, c := range o.cells() {
		classes = append(classes, c.Class)
	}
	for _, class := range classes {
		switch class {
		case ClassStyled:
			styled++
		case ClassPreserved:
			preserved++
		case ClassReview:
			review++
		}
	}
	return styled, preserved, review
}

// Engine applies a validated style guide
type Engine struct {
	guide *StyleGuide
}

// NewEngine validates the guide. A nil guide uses DefaultStyleGuide.
func NewEngine(guide *StyleGuide) (*Engine, error) {
	if guide == nil {
		guide = DefaultStyleGuide()
	}
	if err := guide.Validate(); err != nil {
		return nil, fmt.Errorf("style guide %q: %w", guide.Name, err)
	}
	return &Engine{guide: guide}, nil
}

// Guide returns the engine's style guide
func (e *Engine) Guide() *StyleGuide { return e.guide }

// Render decides per paragraph, by safety level, what may be applied:
// critical text is preserved with no rule, review text keeps only its
// structural label, and safe text gets the label's allow-listed properties.
func (e *Engine) Render(paragraphs []document.ClassifiedParagraph) *Output {
	out := &Output{Guide: e.guide, Paragraphs: make([]Paragraph, 0, len(paragraphs))}

	for _, cp := range paragraphs {
		p := Paragraph{
			ID:     elementID(cp.Paragraph.Index),
			Index:  cp.Paragraph.Index,
			Text:   cp.Paragraph.Text,
			Style:  cp.Style,
			Safety: cp.Safety,
		}

		switch cp.Safety {
		case document.SafetyCritical:
			p.Class = ClassPreserved
			p.Style = sourceLabel(cp.Paragraph)
		case document.SafetyReview:
			p.Class = ClassReview
		default:
			p.Class = ClassStyled
			rule, ok := e.guide.RuleFor(cp.Style)
			if ok && rule.Safety == document.SafetySafe {
				p.Properties = make(map[string]string, len(rule.Properties))
				current := currentValues(cp.Paragraph.Formatting)
				for _, prop := range rule.SortedProperties() {
					if !Allowed(prop) {
						continue
					}
					newValue := rule.Properties[prop]
					p.Properties[prop] = newValue
					if current[prop] == newValue {
						continue
					}
					out.Changes = append(out.Changes, Change{
						ElementID:   p.ID,
						ChangeType:  "style",
						CSSProperty: prop,
						OldValue:    current[prop],
						NewValue:    newValue,
						Rationale:   fmt.Sprintf("%s rule for %s from style guide %q", rule.ElementType, cp.Style, e.guide.Name),
					})
				}
			}
		}
		out.Paragraphs = append(out.Paragraphs, p)
	}
	return out
}

func elementID(index int) string {
	return "para-" + strconv.Itoa(index)
}

// sourceLabel keeps a preserved paragraph on the style it came in with
func sourceLabel(p document.Paragraph) document.StyleLabel {
	if l, err := document.ParseStyleLabel(p.StyleName); err == nil {
		return l
	}
	return document.Normal
}

// currentValues expresses a formatting snapshot as CSS values so that
// unchanged properties can be skipped
func currentValues(f document.Formatting) map[string]string {
	v := map[string]string{}
	if f.FontName != "" {
		v["font-family"] = f.FontName
	}
	if f.FontSize > 0 {
		v["font-size"] = formatPoints(f.FontSize)
	}
	if f.Bold {
		v["font-weight"] = "bold"
	} else {
		v["font-weight"] = "normal"
	}
	if f.Italic {
		v["font-style"] = "italic"
	} else {
		v["font-style"] = "normal"
	}
	if f.Alignment != "" {
		v["text-align"] = f.Alignment
	}
	if f.SpacingBefore > 0 {
		v["margin-top"] = formatPoints(f.SpacingBefore)
	}
	if f.SpacingAfter > 0 {
		v["margin-bottom"] = formatPoints(f.SpacingAfter)
	}
	return v
}

func formatPoints(pt float64) string {
	return strconv.FormatFloat(pt, 'f', -1, 64) + "pt"
}
