// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
)

func fixture() *document.Document {
	doc := document.New("manual.docx",
		"Safety Procedures",
		"",
		"Step 1: Turn off the main power switch.",
		"Total cost is $15,000.00 with 15% discount.",
		"Budget revised to $15,000.00 on 03/04/2024.",
	)
	doc.Paras[0].StyleName = "Heading 1"
	doc.Tabs = []document.Table{{Index: 0, Rows: [][]document.Cell{{{Text: "a"}}}}}
	return doc
}

func TestBuild_Stable(t *testing.T) {
	b := NewBuilder(nil)
	calls := 0
	b.now = func() time.Time {
		calls++
		return time.Date(2024, 1, calls, 0, 0, 0, 0, time.UTC)
	}

	first, err := b.Build(fixture())
	require.NoError(t, err)
	second, err := b.Build(fixture())
	require.NoError(t, err)

	assert.NotEqual(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, first.FullTextHash, second.FullTextHash)
	assert.Equal(t, first.ParagraphHashes, second.ParagraphHashes)
	assert.Equal(t, first.StructureHash, second.StructureHash)
	assert.Equal(t, first.NumericalValues, second.NumericalValues)
	assert.True(t, Equal(first, second))
}

func TestBuild_Fields(t *testing.T) {
	fp, err := NewBuilder(nil).Build(fixture())
	require.NoError(t, err)

	full := "Safety Procedures\nStep 1: Turn off the main power switch.\n" +
		"Total cost is $15,000.00 with 15% discount.\nBudget revised to $15,000.00 on 03/04/2024."
	assert.Equal(t, Hash(full), fp.FullTextHash)
	assert.Len(t, fp.ParagraphHashes, 4, "empty paragraphs are skipped")
	assert.Equal(t, Hash("Safety Procedures"), fp.ParagraphHashes[0])
	assert.Equal(t, Hash(`{"heading_count":1,"paragraph_count":5,"table_count":1}`), fp.StructureHash)
	assert.Equal(t, 23, fp.WordCount)

	assert.Contains(t, fp.NumericalValues, "$15,000.00")
	assert.Contains(t, fp.NumericalValues, "15%")
	assert.Contains(t, fp.NumericalValues, "03/04/2024")

	seen := map[string]bool{}
	for _, v := range fp.NumericalValues {
		assert.False(t, seen[v], "duplicate value %q", v)
		seen[v] = true
	}
}

func TestBuild_CharacterCountIsRunes(t *testing.T) {
	fp, err := NewBuilder(nil).Build(document.New("x", "café"))
	require.NoError(t, err)
	assert.Equal(t, 4, fp.CharacterCount)
}

func TestEqual_DetectsChange(t *testing.T) {
	b := NewBuilder(nil)
	a, err := b.Build(document.New("x", "Total cost is $15,000.00"))
	require.NoError(t, err)
	c, err := b.Build(document.New("x", "Total cost is $20,000.00"))
	require.NoError(t, err)

	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))
}

func TestWriteReadFile(t *testing.T) {
	fp, err := NewBuilder(nil).Build(fixture())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "fp.json")
	require.NoError(t, WriteFile(path, fp))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, Equal(fp, loaded))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
