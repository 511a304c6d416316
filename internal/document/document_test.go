// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStyleLabel(t *testing.T) {
	cases := []struct {
		in   string
		want StyleLabel
	}{
		{"Heading 1", Heading1},
		{"heading  3", Heading3},
		{"Heading5", Heading5},
		{"h2", Heading2},
		{"List Paragraph", ListParagraph},
		{"ListParagraph", ListParagraph},
		{"li", ListParagraph},
		{"Body Text", BodyText},
		{"p", BodyText},
		{"NORMAL", Normal},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseStyleLabel(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseStyleLabel("Caption")
	assert.Error(t, err)
}

func TestStyleLabel_RoundTripName(t *testing.T) {
	for _, l := range AllLabels() {
		parsed, err := ParseStyleLabel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
}

func TestStyleLabel_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]StyleLabel{"style": Heading2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"style":"Heading 2"}`, string(data))
}

func TestSafetyLevel_String(t *testing.T) {
	assert.Equal(t, "safe", SafetySafe.String())
	assert.Equal(t, "review", SafetyReview.String())
	assert.Equal(t, "critical", SafetyCritical.String())

	lvl, err := ParseSafetyLevel("CRITICAL")
	require.NoError(t, err)
	assert.Equal(t, SafetyCritical, lvl)
}

func TestNonEmptyAndHeadingCount(t *testing.T) {
	doc := &Document{Paras: []Paragraph{
		{Index: 0, Text: "Intro", StyleName: "Heading 1"},
		{Index: 1, Text: "   "},
		{Index: 2, Text: "Body"},
		{Index: 3, Text: "", StyleName: "Heading 2"},
	}}

	nonEmpty := NonEmpty(doc)
	require.Len(t, nonEmpty, 2)
	assert.Equal(t, 2, nonEmpty[1].Index)
	assert.Equal(t, 2, HeadingCount(doc))
}
