// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"strings"
	"unicode/utf8"

	"docsafe/internal/document"
	"docsafe/internal/fingerprint"
)

// Names of the individual checks, as reported by Failures
const (
	CheckContentHash     = "content_hash"
	CheckWordCount       = "word_count"
	CheckCharacterCount  = "character_count"
	CheckNumericalValues = "numerical_values"
)

// Report is the result of comparing a candidate text with a fingerprint.
// A failed check is data, not an error: callers decide whether to block.
type Report struct {
	ContentHashMatch         bool     `json:"content_hash_match" yaml:"content_hash_match"`
	WordCountMatch           bool     `json:"word_count_match" yaml:"word_count_match"`
	CharacterCountMatch      bool     `json:"character_count_match" yaml:"character_count_match"`
	NumericalValuesPreserved bool     `json:"numerical_values_preserved" yaml:"numerical_values_preserved"`
	MissingValues            []string `json:"missing_values" yaml:"missing_values"`
	OverallValid             bool     `json:"overall_valid" yaml:"overall_valid"`

	ExpectedWords int `json:"expected_words" yaml:"expected_words"`
	ActualWords   int `json:"actual_words" yaml:"actual_words"`
	ExpectedChars int `json:"expected_characters" yaml:"expected_characters"`
	ActualChars   int `json:"actual_characters" yaml:"actual_characters"`
}

// Failures lists the names of the checks that did not pass
func (r *Report) Failures() []string {
	var out []string
	if !r.ContentHashMatch {
		out = append(out, CheckContentHash)
	}
	if !r.WordCountMatch {
		out = append(out, CheckWordCount)
	}
	if !r.CharacterCountMatch {
		out = append(out, CheckCharacterCount)
	}
	if !r.NumericalValuesPreserved {
		out = append(out, CheckNumericalValues)
	}
	return out
}

// Validate compares candidate text against a fingerprint. It never touches
// the source document.
func Validate(fp *fingerprint.Fingerprint, candidate string) *Report {
	r := &Report{
		ContentHashMatch: fingerprint.Hash(candidate) == fp.FullTextHash,
		ExpectedWords:    fp.WordCount,
		ActualWords:      len(strings.Fields(candidate)),
		ExpectedChars:    fp.CharacterCount,
		ActualChars:      utf8.RuneCountInString(candidate),
		MissingValues:    []string{},
	}
	r.WordCountMatch = r.ExpectedWords == r.ActualWords
	r.CharacterCountMatch = r.ExpectedChars == r.ActualChars

	for _, v := range fp.NumericalValues {
		if !strings.Contains(candidate, v) {
			r.MissingValues = append(r.MissingValues, v)
		}
	}
	r.NumericalValuesPreserved = len(r.MissingValues) == 0
	r.OverallValid = r.ContentHashMatch && r.WordCountMatch && r.CharacterCountMatch && r.NumericalValuesPreserved
	return r
}

// ParagraphReport compares per-paragraph hashes, position by position
type ParagraphReport struct {
	Matched bool  `json:"matched" yaml:"matched"`
	Changed []int `json:"changed,omitempty" yaml:"changed,omitempty"`
	Missing int   `json:"missing" yaml:"missing"`
	Extra   int   `json:"extra" yaml:"extra"`
}

// ValidateParagraphs checks each non-empty candidate paragraph against the
// fingerprint's paragraph hashes. Changed holds the positions, among
// non-empty paragraphs, whose hash differs.
func ValidateParagraphs(fp *fingerprint.Fingerprint, paragraphs []document.Paragraph) ParagraphReport {
	var hashes []string
	for _, p := range paragraphs {
		if !p.IsEmpty() {
			hashes = append(hashes, fingerprint.Hash(p.Text))
		}
	}

	var r ParagraphReport
	n := min(len(hashes), len(fp.ParagraphHashes))
	for i := 0; i < n; i++ {
		if hashes[i] != fp.ParagraphHashes[i] {
			r.Changed = append(r.Changed, i)
		}
	}
	if len(fp.ParagraphHashes) > len(hashes) {
		r.Missing = len(fp.ParagraphHashes) - len(hashes)
	}
	if len(hashes) > len(fp.ParagraphHashes) {
		r.Extra = len(hashes) - len(fp.ParagraphHashes)
	}
	r.Matched = len(r.Changed) == 0 && r.Missing == 0 && r.Extra == 0
	return r
}
