// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"docsafe/internal/document"
	"docsafe/internal/extractors"
	"docsafe/internal/patterns"
)

// Fingerprint is an immutable signature of a document's text content
type Fingerprint struct {
	FullTextHash    string    `json:"full_text_hash" yaml:"full_text_hash"`
	ParagraphHashes []string  `json:"paragraph_hashes" yaml:"paragraph_hashes"`
	StructureHash   string    `json:"structure_hash" yaml:"structure_hash"`
	WordCount       int       `json:"word_count" yaml:"word_count"`
	CharacterCount  int       `json:"character_count" yaml:"character_count"`
	NumericalValues []string  `json:"numerical_values" yaml:"numerical_values"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
}

// Equal compares every field except the timestamp
func Equal(a, b *Fingerprint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.FullTextHash == b.FullTextHash &&
		a.StructureHash == b.StructureHash &&
		a.WordCount == b.WordCount &&
		a.CharacterCount == b.CharacterCount &&
		slices.Equal(a.ParagraphHashes, b.ParagraphHashes) &&
		slices.Equal(a.NumericalValues, b.NumericalValues)
}

// structure is hashed as JSON; encoding/json writes map keys sorted
type structure map[string]int

// Builder computes fingerprints
type Builder struct {
	lib *patterns.Library
	now func() time.Time
}

// NewBuilder creates a builder. A nil library uses the built-in one.
func NewBuilder(lib *patterns.Library) *Builder {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Builder{lib: lib, now: time.Now}
}

// FullText joins the non-empty paragraph texts with newlines. This is the
// canonical text that hashes, counts and integrity checks work on.
func FullText(paragraphs []document.Paragraph) string {
	var texts []string
	for _, p := range paragraphs {
		if !p.IsEmpty() {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Build fingerprints a paragraph source
func (b *Builder) Build(src document.Source) (*Fingerprint, error) {
	paragraphs := src.Paragraphs()
	fullText := FullText(paragraphs)

	var hashes []string
	for _, p := range paragraphs {
		if !p.IsEmpty() {
			hashes = append(hashes, Hash(p.Text))
		}
	}

	structHash, err := structureHash(structure{
		"paragraph_count": len(paragraphs),
		"table_count":     len(src.Tables()),
		"heading_count":   document.HeadingCount(src),
	})
	if err != nil {
		return nil, err
	}

	return &Fingerprint{
		FullTextHash:    Hash(fullText),
		ParagraphHashes: hashes,
		StructureHash:   structHash,
		WordCount:       len(strings.Fields(fullText)),
		CharacterCount:  utf8.RuneCountInString(fullText),
		NumericalValues: lo.Uniq(b.lib.NumericMatches(fullText)),
		Timestamp:       b.now().UTC(),
	}, nil
}

// BuildFile extracts a document from disk and fingerprints it. Open and
// parse failures are returned to the caller as is; nothing is retried.
func (b *Builder) BuildFile(ctx context.Context, path string) (*Fingerprint, *document.Document, error) {
	doc, err := extractors.Extract(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	fp, err := b.Build(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return fp, doc, nil
}

// Hash returns the hex SHA-256 digest of s
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func structureHash(s structure) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode structure: %w", err)
	}
	return Hash(string(data)), nil
}
