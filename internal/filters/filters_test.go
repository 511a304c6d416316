// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
	"docsafe/internal/patterns"
)

func TestNavigationStage(t *testing.T) {
	s := NewNavigationStage(nil)

	tests := []struct {
		text   string
		reason string
	}{
		{"ab", ReasonTooShort},
		{"TABLE OF CONTENTS", ReasonTOC},
		{"Table of Contents (continued)", ReasonTOCVariant},
		{"MASTER TABLE OF CONTENTS", ReasonTOCVariant},
		{"Master Table Index", ReasonMasterVariant},
		{"RECORD OF REVISIONS", "record of revisions"},
		{"List of Effective Pages", "list of effective pages"},
		{"Introduction ........ 4", ReasonDottedLines},
		{"TOC-12", ReasonPageReference},
		{"1.2 Scope ... 7", ReasonTOCEntry},
		{"The meeting is scheduled for next Tuesday.", ""},
		{"INTENTIONALLY LEFT BLANK", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			reason, drop := s.Check(tt.text)
			assert.Equal(t, tt.reason != "", drop)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestMetadataStage(t *testing.T) {
	s := NewMetadataStage(nil)

	tests := []struct {
		text   string
		reason string
	}{
		{"INTENTIONALLY LEFT BLANK", ReasonBlankExact},
		{"This page intentionally left blank", ReasonBlankVariant},
		{"THIS PAGE   INTENTIONALLY\tLEFT BLANK", ReasonBlankVariant},
		{"ＩＮＴＥＮＴＩＯＮＡＬＬＹ ＬＥＦＴ ＢＬＡＮＫ page", ReasonBlankVariant},
		{"Page 4 of 210", ReasonPageNumber},
		{"Revision: 12", ReasonRevisionInfo},
		{"Report # 2024-11", ReasonReportNumber},
		{"See OAE.123 for details", ReasonInternalReference},
		{"Company Name Inc.", ReasonCompanyHeader},
		{"FLIGHT ATTENDANT POLICIES & PROCEDURES HANDBOOK", ReasonDocumentTitle},
		{"Cabin Policies & Procedures Handbook", ReasonHandbookTitle},
		{"Flight Crew Training Manual", ReasonManualTitle},
		{"Date: 12-05-24", ReasonDateStamp},
		{"The meeting is scheduled for next Tuesday.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			reason, drop := s.Check(tt.text)
			assert.Equal(t, tt.reason != "", drop)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestMetadataStage_ExtraLiterals(t *testing.T) {
	nav := patterns.Default().Navigation.WithExtras([]string{"GROUND OPERATIONS MANUAL"}, []string{"ops-ref:"})
	s := NewMetadataStage(nav)

	reason, drop := s.Check("GROUND OPERATIONS MANUAL")
	assert.True(t, drop)
	assert.Equal(t, ReasonDocumentTitle, reason)

	reason, drop = s.Check("see OPS-REF:77")
	assert.True(t, drop)
	assert.Equal(t, ReasonInternalReference, reason)
}

func TestApply_KeepsOrderAndReasons(t *testing.T) {
	doc := document.New("x",
		"TABLE OF CONTENTS",
		"First real paragraph.",
		"Introduction ........ 4",
		"Second real paragraph.",
	)
	kept, removed := Apply(NewNavigationStage(nil), doc.Paragraphs())

	require.Len(t, kept, 2)
	assert.Equal(t, 1, kept[0].Index)
	assert.Equal(t, 3, kept[1].Index)

	require.Len(t, removed, 2)
	assert.Equal(t, StageNavigation, removed[0].Stage)
	assert.Equal(t, ReasonTOC, removed[0].Reason)
	assert.Equal(t, ReasonDottedLines, removed[1].Reason)
}

func TestPipeline_BlankPageNeverSurvives(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	blanks := []string{
		"INTENTIONALLY LEFT BLANK",
		"This Page Intentionally Left Blank",
		"intentionally   left blank.",
		"PAGE INTENTIONALLY LEFT BLANK - END OF SECTION",
	}
	kept, removed := p.Filter(document.New("x", blanks...).Paragraphs())
	assert.Empty(t, kept)
	assert.Len(t, removed, len(blanks))
	for _, r := range removed {
		assert.Equal(t, StageMetadata, r.Stage)
	}
}

func TestPipeline_Run(t *testing.T) {
	doc := document.New("manual.docx",
		"TABLE OF CONTENTS",
		"",
		"INTENTIONALLY LEFT BLANK",
		"SAFETY",
		"Step 1: Turn off the main power switch.",
		"The meeting is scheduled for next Tuesday.",
		"Total cost is $15,000.00 with 15% discount.",
	)

	res, err := NewPipeline(nil, nil, nil).Run(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, res.Removed, 2)
	assert.Equal(t, ReasonTOC, res.Removed[0].Reason)
	assert.Equal(t, ReasonBlankExact, res.Removed[1].Reason)

	require.Len(t, res.Paragraphs, 4)
	assert.Equal(t, document.Heading2, res.Paragraphs[0].Style)
	assert.Equal(t, document.SafetyCritical, res.Paragraphs[1].Safety)
	assert.Equal(t, document.BodyText, res.Paragraphs[2].Style)
	assert.Equal(t, document.SafetySafe, res.Paragraphs[2].Safety)
	assert.Equal(t, document.SafetyReview, res.Paragraphs[3].Safety)

	for i, cp := range res.Paragraphs {
		assert.Equal(t, doc.Paras[i+3].Text, cp.Paragraph.Text, "text is carried through untouched")
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "intentionally left blank", Normalize("  ＩＮＴＥＮＴＩＯＮＡＬＬＹ LEFT   Blank "))
}
