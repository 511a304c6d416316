// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"docsafe/internal/patterns"
)

// Stage is one deterministic filtering pass. Check returns the reason a
// paragraph text should be dropped; the first matching rule wins.
type Stage interface {
	Name() string
	Check(text string) (reason string, drop bool)
}

// Stage names
const (
	StageNavigation = "navigation"
	StageMetadata   = "metadata"
)

// Removal reasons
const (
	ReasonTooShort          = "too short"
	ReasonTOC               = "table of contents"
	ReasonTOCVariant        = "table of contents variant"
	ReasonMasterTOC         = "master table of contents"
	ReasonMasterVariant     = "master table variant"
	ReasonDottedLines       = "dotted lines (TOC)"
	ReasonPageReference     = "page reference"
	ReasonTOCEntry          = "TOC entry with page numbers"
	ReasonBlankExact        = "intentionally left blank (exact)"
	ReasonBlankVariant      = "intentionally left blank (variant)"
	ReasonPageNumber        = "page number"
	ReasonRevisionInfo      = "revision info"
	ReasonReportNumber      = "report number"
	ReasonInternalReference = "internal reference"
	ReasonCompanyHeader     = "company header"
	ReasonDocumentTitle     = "document title"
	ReasonHandbookTitle     = "handbook title"
	ReasonManualTitle       = "manual title"
	ReasonDateStamp         = "date stamp"
)

// NavigationStage removes tables of contents and other navigation artifacts
type NavigationStage struct {
	nav *patterns.Navigation
}

// NewNavigationStage creates stage 1. A nil argument uses the built-in rules.
func NewNavigationStage(nav *patterns.Navigation) *NavigationStage {
	if nav == nil {
		nav = patterns.Default().Navigation
	}
	return &NavigationStage{nav: nav}
}

func (s *NavigationStage) Name() string { return StageNavigation }

func (s *NavigationStage) Check(text string) (string, bool) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	if len([]rune(text)) < 3 {
		return ReasonTooShort, true
	}
	if text == "TABLE OF CONTENTS" {
		return ReasonTOC, true
	}
	if strings.Contains(lower, "table of contents") {
		return ReasonTOCVariant, true
	}
	// unreachable for the default phrases, kept for configured ones
	if text == "MASTER TABLE OF CONTENTS" {
		return ReasonMasterTOC, true
	}
	if strings.Contains(lower, "master table") {
		return ReasonMasterVariant, true
	}
	for _, phrase := range s.nav.RevisionPhrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	if s.nav.LeaderDots.MatchString(text) {
		return ReasonDottedLines, true
	}
	if s.nav.PageReference.MatchString(text) {
		return ReasonPageReference, true
	}
	if s.nav.TOCEntry.MatchString(text) {
		return ReasonTOCEntry, true
	}
	return "", false
}

// MetadataStage removes headers, footers and other page furniture
type MetadataStage struct {
	nav *patterns.Navigation
}

// NewMetadataStage creates stage 2. A nil argument uses the built-in rules.
func NewMetadataStage(nav *patterns.Navigation) *MetadataStage {
	if nav == nil {
		nav = patterns.Default().Navigation
	}
	return &MetadataStage{nav: nav}
}

func (s *MetadataStage) Name() string { return StageMetadata }

// Check tests the blank-page rule before anything else, on a normalised form
// of the text, so that width variants and odd spacing cannot hide it.
func (s *MetadataStage) Check(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	lower := Normalize(text)

	if trimmed == "INTENTIONALLY LEFT BLANK" {
		return ReasonBlankExact, true
	}
	if strings.Contains(lower, s.nav.BlankPagePhrase) {
		return ReasonBlankVariant, true
	}
	if s.nav.PageNumber.MatchString(lower) {
		return ReasonPageNumber, true
	}
	if s.nav.RevisionMarker.MatchString(lower) {
		return ReasonRevisionInfo, true
	}
	if s.nav.ReportMarker.MatchString(lower) {
		return ReasonReportNumber, true
	}
	for _, ref := range s.nav.InternalReferences {
		if ref != "" && strings.Contains(lower, strings.ToLower(ref)) {
			return ReasonInternalReference, true
		}
	}
	n := len([]rune(trimmed))
	if strings.Contains(lower, s.nav.CompanyHeader) && n < 50 {
		return ReasonCompanyHeader, true
	}
	for _, title := range s.nav.DocumentTitles {
		if trimmed == title {
			return ReasonDocumentTitle, true
		}
	}
	if strings.Contains(lower, s.nav.HandbookTitle) && n < 100 {
		return ReasonHandbookTitle, true
	}
	if strings.Contains(lower, s.nav.ManualTitle) && n < 100 {
		return ReasonManualTitle, true
	}
	if s.nav.DateStamp.MatchString(lower) {
		return ReasonDateStamp, true
	}
	return "", false
}

// Normalize applies NFKC, collapses whitespace and lower-cases text
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFKC.String(text)), " "))
}
