// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"docsafe/internal/document"
	"docsafe/internal/patterns"
)

// sampleLength is the number of runes kept in a zone's text sample
const sampleLength = 100

// ProhibitedZone marks a paragraph region that must not be modified.
// Zones always cover a single paragraph, so Start equals End.
type ProhibitedZone struct {
	ZoneType    string               `json:"zone_type" yaml:"zone_type"`
	Start       int                  `json:"start_paragraph" yaml:"start_paragraph"`
	End         int                  `json:"end_paragraph" yaml:"end_paragraph"`
	ContentHash string               `json:"content_hash" yaml:"content_hash"`
	Safety      document.SafetyLevel `json:"safety_level" yaml:"safety_level"`
	TextSample  string               `json:"text_sample" yaml:"text_sample"`
}

// Classifier assigns safety levels using a pattern library
type Classifier struct {
	lib *patterns.Library
}

// NewClassifier creates a classifier. A nil library uses the built-in one.
func NewClassifier(lib *patterns.Library) *Classifier {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Classifier{lib: lib}
}

// Assess returns the safety level of a paragraph text.
//
// Categories are evaluated in the fixed order procedural, technical,
// numerical, regulatory. Procedural, technical and regulatory hits make the
// text CRITICAL. A text whose only hits are numerical, or that holds a digit
// and no hit at all, needs REVIEW. Because procedural and technical come
// before numerical, a paragraph with both a procedural keyword and a number
// is always CRITICAL.
func (c *Classifier) Assess(text string) document.SafetyLevel {
	if strings.TrimSpace(text) == "" {
		return document.SafetySafe
	}

	numeric := false
	for _, cat := range c.lib.Categories() {
		if _, ok := cat.Match(text); !ok {
			continue
		}
		if cat.Name != patterns.Numerical {
			return document.SafetyCritical
		}
		numeric = true
	}
	if numeric || containsDigit(text) {
		return document.SafetyReview
	}
	return document.SafetySafe
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// IdentifyZones scans non-empty paragraphs and returns one zone per paragraph
// for the first category that matches. Later categories are not consulted.
func (c *Classifier) IdentifyZones(src document.Source) []ProhibitedZone {
	var zones []ProhibitedZone
	for _, p := range src.Paragraphs() {
		if p.IsEmpty() {
			continue
		}
		name, ok := c.lib.MatchCategory(p.Text)
		if !ok {
			continue
		}
		zones = append(zones, ProhibitedZone{
			ZoneType:    name,
			Start:       p.Index,
			End:         p.Index,
			ContentHash: hashText(p.Text),
			Safety:      document.SafetyCritical,
			TextSample:  truncate(p.Text, sampleLength),
		})
	}
	return zones
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
