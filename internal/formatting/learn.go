// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatting

import (
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"docsafe/internal/document"
)

// DefaultLearnThreshold is the share of an element's paragraphs that must
// agree on a value before it becomes a rule
const DefaultLearnThreshold = 0.7

// DocumentPair is a document before and after it was formatted by hand
type DocumentPair struct {
	Original  document.Source
	Formatted document.Source
}

// LearnOptions tune LearnStyleGuide
type LearnOptions struct {
	Name      string
	Threshold float64 // DefaultLearnThreshold when zero
}

// LearnStats summarizes what a learning run looked at
type LearnStats struct {
	Pairs      int `json:"pairs" yaml:"pairs"`
	Paragraphs int `json:"paragraphs" yaml:"paragraphs"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Rules      int `json:"rules" yaml:"rules"`
}

// propertyVotes counts the formatted values seen for one property of one
// element type
type propertyVotes struct {
	values  map[string]int
	changed bool
}

// LearnStyleGuide derives a style guide from formatted examples. Paragraphs
// are paired by position and only when their text is identical; the element
// type comes from the formatted paragraph's style. A property becomes a rule
// when at least Threshold of the element's paired paragraphs share one
// formatted value and at least one of them changed from the original.
// Values that are not allow-listed or not safe to emit are never learned,
// so the result always passes Validate.
func LearnStyleGuide(pairs []DocumentPair, opts LearnOptions) (*StyleGuide, LearnStats, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultLearnThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, LearnStats{}, fmt.Errorf("learn threshold %v is outside 0..1", threshold)
	}
	name := opts.Name
	if name == "" {
		name = "learned"
	}

	stats := LearnStats{Pairs: len(pairs)}
	seen := map[string]int{}
	votes := map[string]map[string]*propertyVotes{}

	for _, pair := range pairs {
		orig := pair.Original.Paragraphs()
		formatted := pair.Formatted.Paragraphs()
		for i, fp := range formatted {
			if fp.IsEmpty() {
				continue
			}
			if i >= len(orig) || orig[i].Text != fp.Text {
				stats.Skipped++
				continue
			}
			stats.Paragraphs++

			label, err := document.ParseStyleLabel(fp.StyleName)
			if err != nil {
				label = document.Normal
			}
			el := label.ElementType()
			seen[el]++
			if votes[el] == nil {
				votes[el] = map[string]*propertyVotes{}
			}

			before := currentValues(orig[i].Formatting)
			for prop, value := range currentValues(fp.Formatting) {
				if !Allowed(prop) || !validValue(value) {
					continue
				}
				v := votes[el][prop]
				if v == nil {
					v = &propertyVotes{values: map[string]int{}}
					votes[el][prop] = v
				}
				v.values[value]++
				if before[prop] != value {
					v.changed = true
				}
			}
		}
	}

	guide := &StyleGuide{Name: name, Rules: map[string]Rule{}}
	for el, props := range votes {
		learned := map[string]string{}
		for prop, v := range props {
			if !v.changed {
				continue
			}
			value, n := v.mode()
			if float64(n)/float64(seen[el]) >= threshold {
				learned[prop] = value
			}
		}
		if len(learned) == 0 {
			continue
		}
		guide.Rules[el] = Rule{
			ElementType: el,
			Properties:  learned,
			Conditions:  []string{fmt.Sprintf("learned from %d paragraphs", seen[el])},
			Safety:      document.SafetySafe,
		}
	}
	stats.Rules = len(guide.Rules)

	if err := guide.Validate(); err != nil {
		return nil, stats, fmt.Errorf("learned style guide: %w", err)
	}
	return guide, stats, nil
}

// mode returns the most common value, the lexically smallest on a tie
func (v *propertyVotes) mode() (string, int) {
	values := lo.Keys(v.values)
	sort.Strings(values)
	best, n := "", 0
	for _, val := range values {
		if v.values[val] > n {
			best, n = val, v.values[val]
		}
	}
	return best, n
}

// SaveStyleGuide validates g and writes it as YAML that LoadStyleGuide reads
func SaveStyleGuide(path string, g *StyleGuide) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("refusing to save style guide %q: %w", g.Name, err)
	}
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode style guide: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write style guide: %w", err)
	}
	return nil
}
