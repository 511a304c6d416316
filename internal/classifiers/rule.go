// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifiers

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"docsafe/internal/document"
)

// Rule confidences
const (
	ConfidenceListMarker   = 0.95
	ConfidenceImperative   = 0.90
	ConfidenceModal        = 0.85
	ConfidenceCapsHeading  = 0.90
	ConfidenceTitleHeading = 0.80
	ConfidenceNote         = 0.90
	ConfidenceBody         = 0.50
)

const (
	headingMaxLength    = 100
	upperHeadingCutover = 30
)

var listMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^[•\-\*◦►○]\s+`),
	regexp.MustCompile(`^\d+\.\s+`),
	regexp.MustCompile(`^[a-z]\)\s+`),
	regexp.MustCompile(`^[A-Z]\)\s+`),
	regexp.MustCompile(`^\([a-z]\)\s+`),
	regexp.MustCompile(`^\([A-Z]\)\s+`),
}

var imperativeVerbs = []string{
	"read,", "understand", "comply", "report", "maintain", "avoid", "use",
	"respect", "promote", "cooperate", "ensure", "follow", "wear", "keep",
	"replace", "check", "verify", "submit",
}

var modalPhrases = []string{
	"must ", "shall ", "will ", "should ", "are required to", "are responsible for",
}

// Rule is the fixed decision tree for paragraph styles. It never fails.
type Rule struct{}

// NewRule creates a rule classifier
func NewRule() *Rule { return &Rule{} }

func (r *Rule) Classify(_ context.Context, text string, _ Context) (Result, error) {
	return r.classify(text), nil
}

func (r *Rule) classify(text string) Result {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	for _, re := range listMarkers {
		if re.MatchString(text) {
			return Result{document.ListParagraph, ConfidenceListMarker, SourceRule}
		}
	}
	for _, verb := range imperativeVerbs {
		if hasWordPrefix(lower, verb) {
			return Result{document.ListParagraph, ConfidenceImperative, SourceRule}
		}
	}
	for _, phrase := range modalPhrases {
		if strings.Contains(lower, phrase) {
			return Result{document.ListParagraph, ConfidenceModal, SourceRule}
		}
	}

	n := utf8.RuneCountInString(text)
	if n < headingMaxLength && !strings.HasSuffix(text, ".") {
		if isUpper(text) {
			if n < upperHeadingCutover {
				return Result{document.Heading2, ConfidenceCapsHeading, SourceRule}
			}
			return Result{document.Heading1, ConfidenceCapsHeading, SourceRule}
		}
		if isTitle(text) {
			return Result{document.Heading3, ConfidenceTitleHeading, SourceRule}
		}
	}

	if strings.HasPrefix(text, "NOTE:") {
		return Result{document.Normal, ConfidenceNote, SourceRule}
	}
	return Result{document.BodyText, ConfidenceBody, SourceRule}
}

// hasWordPrefix reports whether s starts with prefix followed by a non-letter,
// so "use" matches "use gloves" but not "useful".
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsLetter(r)
}

// isUpper reports whether s has at least one letter and no lower-case letters
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// isTitle reports whether every word starts with an upper-case letter
// followed only by lower-case letters. Words are maximal runs of letters.
func isTitle(s string) bool {
	cased := false
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevLetter {
				return false
			}
			cased = true
			prevLetter = true
		case unicode.IsLower(r):
			if !prevLetter {
				return false
			}
			prevLetter = true
		default:
			prevLetter = false
		}
	}
	return cased
}
