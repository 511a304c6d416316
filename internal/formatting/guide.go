// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatting

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"docsafe/internal/document"
)

// VisualProperties may change how text looks
var VisualProperties = map[string]bool{
	"font-family": true, "font-size": true, "font-weight": true, "font-style": true,
	"color": true, "background-color": true, "text-align": true, "line-height": true,
	"margin": true, "padding": true, "border": true, "border-collapse": true,
	"width": true, "height": true, "display": true, "float": true, "clear": true,
}

// LayoutProperties may change where text sits
var LayoutProperties = map[string]bool{
	"margin-top": true, "margin-bottom": true, "margin-left": true, "margin-right": true,
	"padding-top": true, "padding-bottom": true, "padding-left": true, "padding-right": true,
	"text-indent": true, "vertical-align": true,
	"page-break-before": true, "page-break-after": true,
}

// ProhibitedProperties can alter the displayed text itself
var ProhibitedProperties = []string{"content", "counter-increment", "counter-reset", "quotes", "text-transform"}

// Allowed reports whether a property is in the visual or layout sets
func Allowed(property string) bool {
	p := strings.ToLower(strings.TrimSpace(property))
	return VisualProperties[p] || LayoutProperties[p]
}

// forbidden value fragments: anything that could close the declaration or
// pull in content from elsewhere
var forbiddenValueFragments = []string{";", "{", "}", "<", ">", "\"", "url(", "expression(", "attr(", "\\"}

func validValue(v string) bool {
	lower := strings.ToLower(v)
	for _, f := range forbiddenValueFragments {
		if strings.Contains(lower, f) {
			return false
		}
	}
	return strings.TrimSpace(v) != ""
}

// Rule is one style guide entry. Rules only ever apply to SAFE paragraphs.
type Rule struct {
	ElementType string               `yaml:"element_type" json:"element_type"`
	Properties  map[string]string    `yaml:"css_properties" json:"css_properties"`
	Conditions  []string             `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Safety      document.SafetyLevel `yaml:"safety_level" json:"safety_level"`
}

// SortedProperties returns the property names in a stable order
func (r Rule) SortedProperties() []string {
	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StyleGuide maps element types (h1..h6, p, li, note, table, td, th) to rules
type StyleGuide struct {
	Name  string          `yaml:"name" json:"name"`
	Rules map[string]Rule `yaml:"rules" json:"rules"`
}

// RuleFor returns the rule for a style label
func (g *StyleGuide) RuleFor(label document.StyleLabel) (Rule, bool) {
	r, ok := g.Rules[label.ElementType()]
	return r, ok
}

// Validate rejects rules that are not SAFE, properties outside the allow
// lists and values that could escape a declaration. Every problem is listed.
func (g *StyleGuide) Validate() error {
	var errs []error
	keys := make([]string, 0, len(g.Rules))
	for k := range g.Rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rule := g.Rules[key]
		if rule.Safety != document.SafetySafe {
			errs = append(errs, fmt.Errorf("rule %s: safety level must be safe, got %s", key, rule.Safety))
		}
		for _, prop := range rule.SortedProperties() {
			if !Allowed(prop) {
				errs = append(errs, fmt.Errorf("rule %s: property %q is not allow-listed", key, prop))
				continue
			}
			if !validValue(rule.Properties[prop]) {
				errs = append(errs, fmt.Errorf("rule %s: property %q has an unsafe value %q", key, prop, rule.Properties[prop]))
			}
		}
	}
	return errors.Join(errs...)
}

// LoadStyleGuide reads and validates a YAML style guide
func LoadStyleGuide(path string) (*StyleGuide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style guide: %w", err)
	}
	var g StyleGuide
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse style guide %s: %w", path, err)
	}
	for key, rule := range g.Rules {
		if rule.ElementType == "" {
			rule.ElementType = key
			g.Rules[key] = rule
		}
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid style guide %s: %w", path, err)
	}
	return &g, nil
}

func rule(element string, props map[string]string, conditions ...string) Rule {
	return Rule{ElementType: element, Properties: props, Conditions: conditions, Safety: document.SafetySafe}
}

// DefaultStyleGuide returns the built-in guide
func DefaultStyleGuide() *StyleGuide {
	const font = "Arial, sans-serif"
	return &StyleGuide{
		Name: "default",
		Rules: map[string]Rule{
			"h1": rule("h1", map[string]string{
				"font-family": font, "font-size": "18px", "font-weight": "bold",
				"color": "#000080", "margin-bottom": "12px", "margin-top": "16px",
			}, "major section title"),
			"h2": rule("h2", map[string]string{
				"font-family": font, "font-size": "14px", "font-weight": "bold",
				"color": "#333333", "margin-bottom": "8px", "margin-top": "12px",
			}, "section title"),
			"h3": rule("h3", map[string]string{
				"font-family": font, "font-size": "13px", "font-weight": "bold",
				"color": "#666666", "margin-bottom": "6px", "margin-top": "10px",
			}, "subsection title"),
			"h4": rule("h4", map[string]string{
				"font-family": font, "font-size": "12px", "font-weight": "bold",
				"color": "#333333", "margin-bottom": "6px", "margin-top": "8px",
			}),
			"h5": rule("h5", map[string]string{
				"font-family": font, "font-size": "12px", "font-style": "italic",
				"color": "#333333", "margin-bottom": "4px", "margin-top": "6px",
			}),
			"h6": rule("h6", map[string]string{
				"font-family": font, "font-size": "11px", "font-style": "italic",
				"color": "#666666", "margin-bottom": "4px", "margin-top": "6px",
			}),
			"p": rule("p", map[string]string{
				"font-family": font, "font-size": "12px", "line-height": "1.15", "margin-bottom": "6px",
			}, "body text"),
			"li": rule("li", map[string]string{
				"font-family": font, "font-size": "12px", "line-height": "1.15",
				"margin-bottom": "4px", "margin-left": "18px",
			}, "instruction or list item"),
			"note": rule("note", map[string]string{
				"font-family": font, "font-size": "11px", "font-style": "italic", "margin-bottom": "6px",
			}),
			"table": rule("table", map[string]string{
				"border-collapse": "collapse", "width": "100%", "font-size": "12px", "margin-bottom": "12px",
			}),
			"td": rule("td", map[string]string{
				"border": "1px solid #ddd", "padding": "6px", "text-align": "left",
			}),
			"th": rule("th", map[string]string{
				"border": "1px solid #ddd", "padding": "6px", "text-align": "left",
				"background-color": "#f2f2f2", "font-weight": "bold",
			}),
		},
	}
}
