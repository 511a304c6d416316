// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"
	"strings"
)

// SafetyLevel describes how far a paragraph may be modified
type SafetyLevel int

const (
	// SafetySafe allows visual formatting changes
	SafetySafe SafetyLevel = iota
	// SafetyReview means numeric content a human should check
	SafetyReview
	// SafetyCritical content must be preserved verbatim
	SafetyCritical
)

// String returns the string representation of the safety level
func (s SafetyLevel) String() string {
	switch s {
	case SafetySafe:
		return "safe"
	case SafetyReview:
		return "review"
	case SafetyCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSafetyLevel converts "safe", "review" or "critical" to a SafetyLevel
func ParseSafetyLevel(s string) (SafetyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return SafetySafe, nil
	case "review":
		return SafetyReview, nil
	case "critical":
		return SafetyCritical, nil
	}
	return SafetySafe, fmt.Errorf("unknown safety level %q", s)
}

func (s SafetyLevel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SafetyLevel) UnmarshalText(b []byte) error {
	v, err := ParseSafetyLevel(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StyleLabel is the semantic role assigned to a paragraph
type StyleLabel int

const (
	BodyText StyleLabel = iota
	Heading1
	Heading2
	Heading3
	Heading4
	Heading5
	Heading6
	ListParagraph
	Normal
)

var styleNames = map[StyleLabel]string{
	BodyText:      "Body Text",
	Heading1:      "Heading 1",
	Heading2:      "Heading 2",
	Heading3:      "Heading 3",
	Heading4:      "Heading 4",
	Heading5:      "Heading 5",
	Heading6:      "Heading 6",
	ListParagraph: "List Paragraph",
	Normal:        "Normal",
}

var elementTypes = map[StyleLabel]string{
	BodyText:      "p",
	Heading1:      "h1",
	Heading2:      "h2",
	Heading3:      "h3",
	Heading4:      "h4",
	Heading5:      "h5",
	Heading6:      "h6",
	ListParagraph: "li",
	Normal:        "note",
}

// AllLabels lists every label in declaration order
func AllLabels() []StyleLabel {
	return []StyleLabel{BodyText, Heading1, Heading2, Heading3, Heading4, Heading5, Heading6, ListParagraph, Normal}
}

// String returns the office style name, e.g. "Heading 1"
func (l StyleLabel) String() string {
	if name, ok := styleNames[l]; ok {
		return name
	}
	return fmt.Sprintf("StyleLabel(%d)", int(l))
}

// ElementType returns the semantic tag used by style guides (h1..h6, li, p, note)
func (l StyleLabel) ElementType() string {
	if tag, ok := elementTypes[l]; ok {
		return tag
	}
	return "p"
}

// IsHeading reports whether the label is one of the heading tiers
func (l StyleLabel) IsHeading() bool {
	return l >= Heading1 && l <= Heading6
}

// ParseStyleLabel accepts an office style name ("heading 2", "Body Text")
// or an element type ("h2", "li") and returns the matching label.
func ParseStyleLabel(s string) (StyleLabel, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, l := range AllLabels() {
		if key == strings.ToLower(styleNames[l]) || key == elementTypes[l] {
			return l, nil
		}
	}
	// "Heading1" without the space, as stored in docx style ids
	if strings.HasPrefix(key, "heading") {
		rest := strings.TrimSpace(strings.TrimPrefix(key, "heading"))
		if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
			return Heading1 + StyleLabel(rest[0]-'1'), nil
		}
	}
	switch key {
	case "listparagraph", "list":
		return ListParagraph, nil
	case "bodytext", "body":
		return BodyText, nil
	}
	return BodyText, fmt.Errorf("unknown style label %q", s)
}

func (l StyleLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *StyleLabel) UnmarshalText(b []byte) error {
	v, err := ParseStyleLabel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ClassifiedParagraph is the output record of the classification stages.
// It wraps the source paragraph instead of mutating it.
type ClassifiedParagraph struct {
	Paragraph  Paragraph   `json:"paragraph" yaml:"paragraph"`
	Style      StyleLabel  `json:"style" yaml:"style"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Source     string      `json:"source" yaml:"source"`
	Safety     SafetyLevel `json:"safety" yaml:"safety"`
}
