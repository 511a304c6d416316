// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatting

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
	"docsafe/internal/integrity"
)

func classified(index int, text string, style document.StyleLabel, safety document.SafetyLevel) document.ClassifiedParagraph {
	return document.ClassifiedParagraph{
		Paragraph: document.Paragraph{Index: index, Text: text, StyleName: "Normal"},
		Style:     style,
		Safety:    safety,
	}
}

func mixedParagraphs() []document.ClassifiedParagraph {
	return []document.ClassifiedParagraph{
		classified(0, "Introduction", document.Heading1, document.SafetySafe),
		classified(1, "This section describes general office practices.", document.BodyText, document.SafetySafe),
		classified(2, "Step 1: Turn off the main power switch.", document.ListParagraph, document.SafetyCritical),
		classified(3, "Total cost is $15,000.00 with 15% discount.", document.BodyText, document.SafetyReview),
		classified(4, "Keep the break room tidy", document.ListParagraph, document.SafetySafe),
		classified(5, "Label shared food", document.ListParagraph, document.SafetySafe),
	}
}

func TestDefaultStyleGuideIsValid(t *testing.T) {
	require.NoError(t, DefaultStyleGuide().Validate())
}

func TestValidate_RejectsUnsafeRules(t *testing.T) {
	g := &StyleGuide{Name: "bad", Rules: map[string]Rule{
		"p":  {ElementType: "p", Properties: map[string]string{"content": "'x'"}, Safety: document.SafetySafe},
		"h1": {ElementType: "h1", Properties: map[string]string{"font-size": "12px"}, Safety: document.SafetyReview},
		"li": {ElementType: "li", Properties: map[string]string{"color": "red; content: 'x'"}, Safety: document.SafetySafe},
	}}

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"content" is not allow-listed`)
	assert.Contains(t, err.Error(), "rule h1: safety level must be safe")
	assert.Contains(t, err.Error(), "unsafe value")

	_, err = NewEngine(g)
	assert.Error(t, err)
}

func TestProhibitedPropertiesAreNeverAllowed(t *testing.T) {
	for _, p := range ProhibitedProperties {
		assert.False(t, Allowed(p), p)
	}
}

func TestLoadStyleGuide(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.yaml")
	data := `name: house
rules:
  p:
    css_properties:
      font-family: Georgia
      font-size: 11pt
    safety_level: safe
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	g, err := LoadStyleGuide(path)
	require.NoError(t, err)
	assert.Equal(t, "house", g.Name)
	assert.Equal(t, "p", g.Rules["p"].ElementType)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules:\n  p:\n    css_properties:\n      text-transform: uppercase\n    safety_level: safe\n"), 0o600))
	_, err = LoadStyleGuide(bad)
	assert.Error(t, err)
}

func TestRender_PreservesText(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	in := mixedParagraphs()
	out := engine.Render(in)

	var want []string
	for _, p := range in {
		want = append(want, p.Paragraph.Text)
	}
	assert.Equal(t, strings.Join(want, "\n"), out.Text())
	require.Len(t, out.Paragraphs, len(in))
	for i, p := range out.Paragraphs {
		assert.Equal(t, in[i].Paragraph.Text, p.Text)
	}
}

func TestRender_SafetyDecidesWhatApplies(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)
	out := engine.Render(mixedParagraphs())

	critical := out.Paragraphs[2]
	assert.Equal(t, ClassPreserved, critical.Class)
	assert.Empty(t, critical.Properties)
	assert.Equal(t, document.Normal, critical.Style)

	review := out.Paragraphs[3]
	assert.Equal(t, ClassReview, review.Class)
	assert.Empty(t, review.Properties)
	assert.Equal(t, document.BodyText, review.Style)

	for _, c := range out.Changes {
		assert.NotEqual(t, "para-2", c.ElementID)
		assert.NotEqual(t, "para-3", c.ElementID)
	}

	styled, preserved, flagged := out.Counts()
	assert.Equal(t, 4, styled)
	assert.Equal(t, 1, preserved)
	assert.Equal(t, 1, flagged)
}

func TestRender_BodyTextGetsGuideProperties(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	p := classified(0, "This section describes general office practices.", document.BodyText, document.SafetySafe)
	p.Paragraph.Formatting = document.Formatting{FontName: "Times New Roman", FontSize: 10}
	out := engine.Render([]document.ClassifiedParagraph{p})

	require.Len(t, out.Paragraphs, 1)
	assert.Equal(t, "Arial, sans-serif", out.Paragraphs[0].Properties["font-family"])
	assert.Equal(t, "12px", out.Paragraphs[0].Properties["font-size"])

	var family *Change
	for i := range out.Changes {
		if out.Changes[i].CSSProperty == "font-family" {
			family = &out.Changes[i]
		}
	}
	require.NotNil(t, family)
	assert.Equal(t, "Times New Roman", family.OldValue)
	assert.Equal(t, "Arial, sans-serif", family.NewValue)
	assert.Equal(t, "para-0", family.ElementID)
}

func TestRender_UnchangedPropertyRecordsNoChange(t *testing.T) {
	g := &StyleGuide{Name: "t", Rules: map[string]Rule{
		"p": rule("p", map[string]string{"text-align": "left", "font-weight": "normal"}),
	}}
	engine, err := NewEngine(g)
	require.NoError(t, err)

	p := classified(0, "plain", document.BodyText, document.SafetySafe)
	p.Paragraph.Formatting.Alignment = "left"
	out := engine.Render([]document.ClassifiedParagraph{p})

	assert.Empty(t, out.Changes)
	assert.Len(t, out.Paragraphs[0].Properties, 2)
}

func TestRender_OnlyAllowListedProperties(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)
	out := engine.Render(mixedParagraphs())

	for _, p := range out.Paragraphs {
		for prop := range p.Properties {
			assert.True(t, Allowed(prop), prop)
		}
	}
	for _, c := range out.Changes {
		assert.True(t, Allowed(c.CSSProperty), c.CSSProperty)
	}
}

func TestWriteHTML(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)
	in := append(mixedParagraphs(), classified(6, "Fish & chips <Friday>", document.BodyText, document.SafetySafe))
	out := engine.Render(in)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, out, "Office <guide>"))
	html := buf.String()

	assert.Contains(t, html, "<title>Office &lt;guide&gt;</title>")
	assert.Contains(t, html, "Fish &amp; chips &lt;Friday&gt;")
	assert.Contains(t, html, `<p id="para-2" class="preserved" data-safety="critical">Step 1: Turn off the main power switch.</p>`)
	assert.Contains(t, html, `data-safety="review">Total cost`)
	assert.Equal(t, 1, strings.Count(html, "<ul>"))
	for _, p := range ProhibitedProperties {
		assert.NotContains(t, html, p+":")
	}

	text, err := integrity.ExtractHTMLText(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, out.Text(), text)
}

func TestTag(t *testing.T) {
	assert.Equal(t, "h3", Tag(document.Heading3))
	assert.Equal(t, "li", Tag(document.ListParagraph))
	assert.Equal(t, "p", Tag(document.Normal))
	assert.Equal(t, "p", Tag(document.BodyText))
}

type assessFunc func(string) document.SafetyLevel

func (f assessFunc) Assess(text string) document.SafetyLevel { return f(text) }

func TestRenderTables_AssessesEachCell(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)
	tables := []document.Table{{Index: 0, Rows: [][]document.Cell{
		{{Text: "Setting"}, {Text: "Value"}},
		{{Text: "Max pressure"}, {Text: "150 PSI"}},
		{{Text: "Warning: do not exceed"}, {Text: ""}},
	}}}
	assess := assessFunc(func(text string) document.SafetyLevel {
		switch {
		case strings.Contains(text, "Warning"):
			return document.SafetyCritical
		case strings.Contains(text, "PSI"):
			return document.SafetyReview
		}
		return document.SafetySafe
	})

	out := engine.Render(mixedParagraphs())
	engine.RenderTables(out, tables, assess)

	require.Len(t, out.Tables, 1)
	rows := out.Tables[0].Rows
	assert.True(t, rows[0][0].Header)
	assert.Equal(t, "bold", rows[0][0].Properties["font-weight"])
	assert.Equal(t, ClassReview, rows[1][1].Class)
	assert.Nil(t, rows[1][1].Properties)
	assert.Equal(t, ClassPreserved, rows[2][0].Class)
	assert.Nil(t, rows[2][0].Properties)
	assert.Equal(t, ClassStyled, rows[1][0].Class)
	assert.Equal(t, "1px solid #ddd", rows[1][0].Properties["border"])

	styled, preserved, review := out.Counts()
	assert.Equal(t, 4+4, styled)
	assert.Equal(t, 1+1, preserved)
	assert.Equal(t, 1+1, review)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, out, "Pump"))
	html := buf.String()
	assert.Contains(t, html, `<th class="styled" data-safety="safe" style=`)
	assert.Contains(t, html, `<td class="requires-review" data-safety="review">150 PSI</td>`)
	assert.Contains(t, html, `<td class="preserved" data-safety="critical">Warning: do not exceed</td>`)
	assert.Less(t, strings.Index(html, "Label shared food"), strings.Index(html, "<table"))

	text, err := integrity.ExtractHTMLText(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, out.Text(), text)
	assert.True(t, strings.HasSuffix(text, "Max pressure\n150 PSI\nWarning: do not exceed"))
}
