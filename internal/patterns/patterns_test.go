// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExpressionsCompile(t *testing.T) {
	require.NoError(t, Validate(DefaultExpressions()))

	for _, name := range Order {
		exprs := DefaultExpressions()[name]
		assert.NotEmpty(t, exprs, "category %s must not be empty", name)
		for _, expr := range exprs {
			_, err := regexp.Compile(expr)
			assert.NoError(t, err, "expression %q", expr)
		}
	}
}

func TestValidate_ReportsBadExpressions(t *testing.T) {
	exprs := DefaultExpressions()
	exprs[Technical] = append(exprs[Technical], `([unclosed`)
	exprs[Regulatory] = nil

	err := Validate(exprs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "technical_terms")
	assert.Contains(t, err.Error(), "regulatory_compliance has no expressions")
}

func TestNew_RejectsUnknownCategory(t *testing.T) {
	_, err := New(map[string][]string{"made_up": {`x`}})
	require.Error(t, err)
}

func TestNew_AppendsExtraExpressions(t *testing.T) {
	lib, err := New(map[string][]string{Procedural: {`(?i)\blockout\b`}})
	require.NoError(t, err)

	name, ok := lib.MatchCategory("apply lockout before service")
	require.True(t, ok)
	assert.Equal(t, Procedural, name)
}

func TestMatchCategory_FixedOrder(t *testing.T) {
	lib := Default()

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Step 1: Turn off the main power switch.", Procedural, true},
		{"Uses the REST interface.", Technical, true},
		{"Total cost is $15,000.00 with 15% discount.", Numerical, true},
		{"Our ISO certification", Technical, true}, // acronym wins before regulatory
		{"This meets the guideline.", Regulatory, true},
		{"The meeting is scheduled for next Tuesday.", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := lib.MatchCategory(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNumericMatches(t *testing.T) {
	got := Default().NumericMatches("Total cost is $15,000.00 with 15% discount.")
	assert.Contains(t, got, "$15,000.00")
	assert.Contains(t, got, "15%")
}

func TestNavigation_WithExtras(t *testing.T) {
	base := Default().Navigation
	ext := base.WithExtras([]string{"OPERATIONS MANUAL"}, []string{"ref-xyz"})

	assert.Contains(t, ext.DocumentTitles, "OPERATIONS MANUAL")
	assert.Contains(t, ext.InternalReferences, "ref-xyz")
	assert.NotContains(t, base.DocumentTitles, "OPERATIONS MANUAL")
}
