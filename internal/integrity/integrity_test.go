// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
	"docsafe/internal/fingerprint"
)

var paragraphs = []string{
	"Safety Procedures",
	"Step 1: Turn off the main power switch.",
	"The meeting is scheduled for next Tuesday.",
	"Total cost is $15,000.00 with 15% discount.",
}

func build(t *testing.T, texts ...string) *fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.NewBuilder(nil).Build(document.New("fixture", texts...))
	require.NoError(t, err)
	return fp
}

func TestValidate_RoundTrip(t *testing.T) {
	fp := build(t, paragraphs...)

	r := Validate(fp, strings.Join(paragraphs, "\n"))
	assert.True(t, r.ContentHashMatch)
	assert.True(t, r.WordCountMatch)
	assert.True(t, r.CharacterCountMatch)
	assert.True(t, r.NumericalValuesPreserved)
	assert.Empty(t, r.MissingValues)
	assert.True(t, r.OverallValid)
	assert.Empty(t, r.Failures())
}

func TestValidate_NumericAlteration(t *testing.T) {
	fp := build(t, paragraphs...)

	altered := strings.Join(paragraphs, "\n")
	altered = strings.Replace(altered, "$15,000.00", "$20,000.00", 1)

	r := Validate(fp, altered)
	assert.False(t, r.NumericalValuesPreserved)
	assert.Contains(t, r.MissingValues, "$15,000.00")
	assert.False(t, r.ContentHashMatch)
	assert.True(t, r.WordCountMatch)
	assert.False(t, r.OverallValid)
	assert.Equal(t, []string{CheckContentHash, CheckNumericalValues}, r.Failures())
}

func TestValidate_WordDrift(t *testing.T) {
	fp := build(t, "Keep all the words here.")
	r := Validate(fp, "Keep the words here.")
	assert.False(t, r.WordCountMatch)
	assert.False(t, r.CharacterCountMatch)
	assert.Equal(t, 5, r.ExpectedWords)
	assert.Equal(t, 4, r.ActualWords)
}

const renderedHTML = `<!DOCTYPE html>
<html>
<head><title>Manual</title><style>h1 { font-size: 18px; }</style></head>
<body>
  <h1 class="styled" data-safety="safe">Safety Procedures</h1>
  <p class="preserved" data-safety="critical">Step 1: Turn off the main power switch.</p>
  <p class="styled" data-safety="safe">The meeting is scheduled for next Tuesday.</p>
  <p class="requires-review" data-safety="review">Total cost is $15,000.00 with 15% discount.</p>
</body>
</html>`

func TestValidate_HTMLArtifact(t *testing.T) {
	fp := build(t, paragraphs...)

	t.Run("raw markup keeps numbers but not lengths", func(t *testing.T) {
		r := Validate(fp, renderedHTML)
		assert.True(t, r.NumericalValuesPreserved)
		assert.False(t, r.WordCountMatch)
		assert.False(t, r.CharacterCountMatch)
		assert.False(t, r.OverallValid)
	})

	t.Run("extracted text matches exactly", func(t *testing.T) {
		text, err := ExtractHTMLText(strings.NewReader(renderedHTML))
		require.NoError(t, err)
		assert.Equal(t, strings.Join(paragraphs, "\n"), text)

		r := Validate(fp, text)
		assert.True(t, r.OverallValid, "failures: %v", r.Failures())
	})
}

func TestExtractHTMLText_EntitiesAndNesting(t *testing.T) {
	src := `<div><p>Fish &amp; chips</p><ul><li>one</li><li>two</li></ul><div>  </div></div>`
	text, err := ExtractHTMLText(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Fish & chips\none\ntwo", text)
}

func TestValidateParagraphs(t *testing.T) {
	fp := build(t, paragraphs...)

	same := document.New("x", paragraphs...).Paragraphs()
	assert.True(t, ValidateParagraphs(fp, same).Matched)

	changed := document.New("x", paragraphs[0], "Step 2: something else.", paragraphs[2]).Paragraphs()
	r := ValidateParagraphs(fp, changed)
	assert.False(t, r.Matched)
	assert.Equal(t, []int{1}, r.Changed)
	assert.Equal(t, 1, r.Missing)
	assert.Equal(t, 0, r.Extra)
}
