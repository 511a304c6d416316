// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import "regexp"

// Navigation holds the literals and expressions for non-content artifacts
// (tables of contents, page furniture, revision stamps). Only the filter
// stages use them; they play no part in safety classification.
type Navigation struct {
	// Stage 1
	TOCPhrases      []string
	RevisionPhrases []string
	LeaderDots      *regexp.Regexp
	PageReference   *regexp.Regexp
	TOCEntry        *regexp.Regexp

	// Stage 2, matched against lower-cased text
	BlankPagePhrase    string
	PageNumber         *regexp.Regexp
	RevisionMarker     *regexp.Regexp
	ReportMarker       *regexp.Regexp
	InternalReferences []string
	CompanyHeader      string
	DocumentTitles     []string
	HandbookTitle      string
	ManualTitle        string
	DateStamp          *regexp.Regexp
}

func defaultNavigation() *Navigation {
	return &Navigation{
		TOCPhrases: []string{"table of contents", "master table"},
		RevisionPhrases: []string{
			"record of revisions",
			"revision highlights",
			"list of effective sections",
			"list of effective pages",
		},
		LeaderDots:    regexp.MustCompile(`\.{5,}`),
		PageReference: regexp.MustCompile(`^[A-Z]+-\d+$`),
		TOCEntry:      regexp.MustCompile(`^\d+\.\d+\s+.*\.{3,}\s*\d+`),

		BlankPagePhrase:    "intentionally left blank",
		PageNumber:         regexp.MustCompile(`page \d+`),
		RevisionMarker:     regexp.MustCompile(`revision:`),
		ReportMarker:       regexp.MustCompile(`report #`),
		InternalReferences: []string{"oae."},
		CompanyHeader:      "company name",
		DocumentTitles:     []string{"FLIGHT ATTENDANT POLICIES & PROCEDURES HANDBOOK"},
		HandbookTitle:      "policies & procedures handbook",
		ManualTitle:        "flight crew training manual",
		DateStamp:          regexp.MustCompile(`date:?\s*\d{2}-\d{2}-\d{2}`),
	}
}

// WithExtras returns a copy of the navigation rules with additional document
// title literals and internal reference tokens.
func (n *Navigation) WithExtras(titles, references []string) *Navigation {
	cp := *n
	cp.DocumentTitles = append(append([]string(nil), n.DocumentTitles...), titles...)
	cp.InternalReferences = append(append([]string(nil), n.InternalReferences...), references...)
	return &cp
}
