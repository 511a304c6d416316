// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package docx

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
)

func writeRawDocx(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	w, err := zw.Create(stylesPart)
	require.NoError(t, err)
	_, err = w.Write(stylesBody())
	require.NoError(t, err)

	w, err = zw.Create(documentPart)
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="` + wordNS + `"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestSaveAndRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.docx")
	entries := []Entry{
		{Text: "SAFETY PROCEDURES", Style: document.Heading1},
		{Text: "Fish & chips <Friday>", Style: document.BodyText, Properties: map[string]string{
			"font-family": "Arial, sans-serif", "font-size": "12pt", "font-weight": "bold", "text-align": "justify", "margin-bottom": "6pt",
		}},
		{Text: "col a\tcol b", Style: document.ListParagraph},
		{Text: "line one\nline two", Style: document.Normal},
		{Text: "", Style: document.BodyText},
	}
	require.NoError(t, Save(filepath.Join(dir, "in.docx"), out, entries))

	doc, err := Read(out)
	require.NoError(t, err)
	require.Len(t, doc.Paras, len(entries))
	assert.Equal(t, document.FormatDocx, doc.Format)
	assert.Equal(t, "SAFETY PROCEDURES", doc.Title)

	for i, e := range entries {
		assert.Equal(t, e.Text, doc.Paras[i].Text, "paragraph %d", i)
		assert.Equal(t, e.Style.String(), doc.Paras[i].StyleName, "paragraph %d", i)
		assert.Equal(t, i, doc.Paras[i].Index)
	}

	f := doc.Paras[1].Formatting
	assert.Equal(t, "Arial", f.FontName)
	assert.Equal(t, 12.0, f.FontSize)
	assert.True(t, f.Bold)
	assert.False(t, f.Italic)
	assert.Equal(t, "justify", f.Alignment)
	assert.Equal(t, 6.0, f.SpacingAfter)
}

func TestSaveAndRead_TablesFollowParagraphs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tables.docx")
	entries := []Entry{{Text: "Pump settings", Style: document.Heading2}}
	table := TableEntry{Rows: [][]Entry{
		{{Text: "Setting", Properties: map[string]string{"font-weight": "bold"}}, {Text: "Value"}},
		{{Text: "Max pressure"}, {Text: "150 PSI"}},
		{{Text: "Notes"}, {Text: "line one\nline two"}},
	}}
	require.NoError(t, Save("", out, entries, table))

	doc, err := Read(out)
	require.NoError(t, err)
	require.Len(t, doc.Paras, 1)
	assert.Equal(t, "Pump settings", doc.Paras[0].Text)

	require.Len(t, doc.Tabs, 1)
	rows := doc.Tabs[0].Rows
	require.Len(t, rows, 3)
	for r, row := range table.Rows {
		require.Len(t, rows[r], len(row))
		for c, cell := range row {
			assert.Equal(t, cell.Text, rows[r][c].Text, "cell %d,%d", r, c)
		}
	}
}

func TestSave_RefusesInputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, Save("", path, []Entry{{Text: "x"}}))

	err := Save(path, path, []Entry{{Text: "y"}})
	require.ErrorIs(t, err, ErrSameFile)

	doc, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Paras[0].Text)
}

func TestRead_TableParagraphsBelongToTables(t *testing.T) {
	path := writeRawDocx(t, `
<w:p><w:pPr><w:pStyle w:val="Heading2"/><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Contacts</w:t></w:r></w:p>
<w:tbl>
  <w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Phone</w:t></w:r></w:p></w:tc></w:tr>
  <w:tr><w:tc><w:p><w:r><w:t>Front desk</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>x100</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:rPr><w:i/><w:b w:val="0"/></w:rPr><w:t xml:space="preserve">After </w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t>table</w:t></w:r></w:p>`)

	doc, err := Read(path)
	require.NoError(t, err)

	require.Len(t, doc.Paras, 2)
	assert.Equal(t, "Contacts", doc.Paras[0].Text)
	assert.Equal(t, "Heading 2", doc.Paras[0].StyleName)
	assert.Equal(t, "After table", doc.Paras[1].Text)
	assert.Equal(t, "Normal", doc.Paras[1].StyleName)
	assert.True(t, doc.Paras[1].Formatting.Italic)
	assert.False(t, doc.Paras[1].Formatting.Bold)

	require.Len(t, doc.Tabs, 1)
	require.Len(t, doc.Tabs[0].Rows, 2)
	assert.Equal(t, "Front desk", doc.Tabs[0].Rows[1][0].Text)
	assert.Equal(t, "x100", doc.Tabs[0].Rows[1][1].Text)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.docx"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("other.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Read(path)
	assert.ErrorIs(t, err, ErrNoDocumentPart)
}
