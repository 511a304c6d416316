// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// Safety category names, in evaluation order
const (
	Procedural = "procedural_language"
	Technical  = "technical_terms"
	Numerical  = "numerical_values"
	Regulatory = "regulatory_compliance"
)

// Order is the fixed order in which safety categories are evaluated
var Order = []string{Procedural, Technical, Numerical, Regulatory}

// Expression sources per category. Case-insensitivity is set per expression:
// acronym and product-code expressions must stay case-sensitive, otherwise
// every ordinary word of two letters or more would count as an acronym.
var defaultExpressions = map[string][]string{
	Procedural: {
		`(?i)\b(?:step|procedure|process|method|instruction)\b`,
		`(?i)\b(?:shall|must|required|mandatory|prohibited)\b`,
		`(?i)\b(?:warning|caution|danger|notice|alert)\b`,
		`(?i)\b(?:follow|execute|perform|complete)\b.*\b(?:exactly|precisely)\b`,
	},
	Technical: {
		`\b[A-Z]{2,}\b`,                  // acronyms
		`\b\w+[-_]\w+\b`,                 // technical notation
		`\b\d+\.\d+\.\d+\b`,              // version numbers
		`\b[a-zA-Z]+\d+[a-zA-Z]*\b`,      // product codes
		`\b(?:API|SDK|HTTP|REST|JSON|XML)\b`,
		`\b(?:OAuth|SSL|TLS|HTTPS)\b`,
	},
	Numerical: {
		`\b\d+\.\d+\b`,                       // decimals
		`\$\d+(?:,\d{3})*(?:\.\d{2})?\b`,     // currency
		`\b\d+(?:\.\d+)?%`,                   // percentages
		`\b\d{1,3}(?:,\d{3})+\b`,             // grouped large numbers
		`\b\d+\s*(?:PSI|V|A|Hz|°[CF])\b`,     // units
		`\b\d+[-/]\d+[-/]\d{2,4}\b`,          // dates
		`\bv?\d+\.\d+\.\d+\b`,                // versions
	},
	Regulatory: {
		`(?i)\b(?:FDA|ISO|OSHA|EPA|compliance|regulation)\b`,
		`(?i)\b(?:standard|specification|requirement|guideline)\b`,
		`(?i)\b(?:approved|certified|validated|authorized)\b`,
		`\b(?:CE|UL|FCC|RoHS)\b.*(?i:\b(?:certified|compliant)\b)`,
	},
}

// Category is a named, ordered list of compiled expressions
type Category struct {
	Name        string
	Expressions []string
	compiled    []*regexp.Regexp
}

// Match returns the first expression in the category that matches text
func (c *Category) Match(text string) (string, bool) {
	for i, re := range c.compiled {
		if re.MatchString(text) {
			return c.Expressions[i], true
		}
	}
	return "", false
}

// FindAll returns every match of every expression, expression order first
func (c *Category) FindAll(text string) []string {
	var out []string
	for _, re := range c.compiled {
		out = append(out, re.FindAllString(text, -1)...)
	}
	return out
}

// Library holds the compiled safety categories and the navigation rules
type Library struct {
	categories map[string]*Category
	Navigation *Navigation
}

// DefaultExpressions returns a copy of the built-in category expressions
func DefaultExpressions() map[string][]string {
	out := make(map[string][]string, len(defaultExpressions))
	for name, exprs := range defaultExpressions {
		out[name] = append([]string(nil), exprs...)
	}
	return out
}

// Validate checks that every category is present, non-empty and that every
// expression compiles. All problems are reported together.
func Validate(expressions map[string][]string) error {
	var errs []error
	for _, name := range Order {
		exprs, ok := expressions[name]
		if !ok || len(exprs) == 0 {
			errs = append(errs, fmt.Errorf("category %s has no expressions", name))
			continue
		}
		for i, expr := range exprs {
			if _, err := regexp.Compile(expr); err != nil {
				errs = append(errs, fmt.Errorf("category %s expression %d %q: %w", name, i, expr, err))
			}
		}
	}
	for name := range expressions {
		if !isKnownCategory(name) {
			errs = append(errs, fmt.Errorf("unknown category %q", name))
		}
	}
	return errors.Join(errs...)
}

func isKnownCategory(name string) bool {
	for _, n := range Order {
		if n == name {
			return true
		}
	}
	return false
}

// New compiles the built-in expressions plus any extra expressions per
// category. Extra expressions are appended after the built-in ones.
func New(extra map[string][]string) (*Library, error) {
	expressions := DefaultExpressions()
	for name, exprs := range extra {
		expressions[name] = append(expressions[name], exprs...)
	}
	if err := Validate(expressions); err != nil {
		return nil, fmt.Errorf("invalid pattern library: %w", err)
	}

	lib := &Library{
		categories: make(map[string]*Category, len(Order)),
		Navigation: defaultNavigation(),
	}
	for _, name := range Order {
		cat := &Category{Name: name, Expressions: expressions[name]}
		for _, expr := range cat.Expressions {
			cat.compiled = append(cat.compiled, regexp.MustCompile(expr))
		}
		lib.categories[name] = cat
	}
	return lib, nil
}

var (
	defaultOnce    sync.Once
	defaultLibrary *Library
)

// Default returns the shared built-in library. The built-in expressions are
// validated on first use and a failure panics: the process cannot classify
// anything with a broken library.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := New(nil)
		if err != nil {
			panic(err)
		}
		defaultLibrary = lib
	})
	return defaultLibrary
}

// Categories returns the safety categories in evaluation order
func (l *Library) Categories() []*Category {
	out := make([]*Category, 0, len(Order))
	for _, name := range Order {
		out = append(out, l.categories[name])
	}
	return out
}

// Category returns a category by name
func (l *Library) Category(name string) (*Category, bool) {
	c, ok := l.categories[name]
	return c, ok
}

// MatchCategory returns the first category, in evaluation order, with an
// expression matching text. Later categories are not consulted.
func (l *Library) MatchCategory(text string) (string, bool) {
	for _, c := range l.Categories() {
		if _, ok := c.Match(text); ok {
			return c.Name, true
		}
	}
	return "", false
}

// NumericMatches returns every numerical-category match in text, in
// expression order then position order, duplicates included.
func (l *Library) NumericMatches(text string) []string {
	return l.categories[Numerical].FindAll(text)
}
