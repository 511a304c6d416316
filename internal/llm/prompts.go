// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"fmt"
	"strings"
)

// Prompt truncation limits, in runes
const (
	ClassifyTextLimit     = 800
	ClassifyPreviousLimit = 200
	FilterTextLimit       = 500
)

const classifyTemplate = `Classify this paragraph of a policy or procedures manual into exactly one style.

STYLES:
- Heading 1: major section titles
- Heading 2: section titles, often with a section code
- Heading 3: subsection titles, requirements, procedures
- Heading 4: details, questions, notes
- Heading 5: options, system details, minor classifications
- Body Text: explanations and descriptions
- List Paragraph: instructions, requirements, action items
- Normal: special formatting, quotes, references

PARAGRAPH:
"%s"

PREVIOUS PARAGRAPH:
"%s"

Imperative language (must, shall, should) usually means List Paragraph.
ALL CAPS usually means a heading. Explanations usually mean Body Text.
Answer with the style name only.`

const filterTemplate = `Decide whether this text belongs in the final document.

FILTER: headers, footers, page numbers, "intentionally left blank" pages,
table of contents entries, navigation, revision information, company
headers, document titles repeated in headers.

INCLUDE: policy content, procedures, requirements, explanations, lists,
instructions and any other real document content.

TEXT:
"%s"

Answer with one word: INCLUDE or FILTER.`

// ClassifyPrompt builds the style classification prompt
func ClassifyPrompt(text, previous string) string {
	return fmt.Sprintf(classifyTemplate,
		quoteSafe(Truncate(text, ClassifyTextLimit)),
		quoteSafe(Truncate(previous, ClassifyPreviousLimit)))
}

// FilterPrompt builds the include/exclude prompt
func FilterPrompt(text string) string {
	return fmt.Sprintf(filterTemplate, quoteSafe(Truncate(text, FilterTextLimit)))
}

// Truncate keeps at most n runes of s
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func quoteSafe(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
