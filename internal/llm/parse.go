// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"strings"

	"docsafe/internal/document"
	"docsafe/internal/resilience"
)

// Decision is a filter answer
type Decision int

const (
	Include Decision = iota
	Exclude
)

func (d Decision) String() string {
	if d == Exclude {
		return "exclude"
	}
	return "include"
}

// ParseLabel maps a free-form answer onto the closed label set. An answer
// that is exactly a label wins; otherwise the label mentioned earliest in
// the answer is used. Answers naming no label are malformed.
func ParseLabel(response string) (document.StyleLabel, error) {
	cleaned := strings.Trim(strings.TrimSpace(response), "\"'`.*: ")
	if label, err := document.ParseStyleLabel(cleaned); err == nil {
		return label, nil
	}

	upper := strings.ToUpper(response)
	best, bestPos := document.BodyText, -1
	for _, label := range document.AllLabels() {
		pos := strings.Index(upper, strings.ToUpper(label.String()))
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			best, bestPos = label, pos
		}
	}
	if bestPos < 0 {
		return document.BodyText, resilience.NewMalformedResponseError(response)
	}
	return best, nil
}

// ParseDecision reads an INCLUDE/FILTER answer. FILTER is checked first.
func ParseDecision(response string) (Decision, error) {
	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, "FILTER") || strings.Contains(upper, "EXCLUDE"):
		return Exclude, nil
	case strings.Contains(upper, "INCLUDE"):
		return Include, nil
	}
	return Include, resilience.NewMalformedResponseError(response)
}
